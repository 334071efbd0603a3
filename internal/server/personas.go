package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rizzbot-app/rizzbot/internal/store"
)

// PersonasHandler serves /api/personas. Persona selectors are numeric only.
type PersonasHandler struct {
	Store *store.Store
}

func (h *PersonasHandler) Register(g *echo.Group) {
	g.GET("", h.get)
	g.POST("", h.create)
	g.PUT("", h.update)
	g.DELETE("", h.delete)
}

func (h *PersonasHandler) get(c echo.Context) error {
	ctx := c.Request().Context()
	if raw := c.QueryParam("persona_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "persona_id must be numeric")
		}
		persona, err := h.Store.GetPersona(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusOK, nil)
		}
		if err != nil {
			return storeError(err)
		}
		return c.JSON(http.StatusOK, persona)
	}
	if raw := c.QueryParam("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "user_id must be numeric")
		}
		personas, err := h.Store.ListPersonasByUser(ctx, userID)
		if err != nil {
			return storeError(err)
		}
		return c.JSON(http.StatusOK, personas)
	}
	personas, err := h.Store.ListPersonas(ctx, store.PersonaListCap)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, personas)
}

type personaRequest struct {
	ID                   int64           `json:"id"`
	UserID               int64           `json:"user_id"`
	Name                 string          `json:"name"`
	RelationshipContext  *string         `json:"relationship_context"`
	HarshnessLevel       *int            `json:"harshness_level"`
	CommunicationTips    json.RawMessage `json:"communication_tips"`
	ConversationStarters json.RawMessage `json:"conversation_starters"`
	ThingsToAvoid        json.RawMessage `json:"things_to_avoid"`
}

func (r personaRequest) record() store.NewPersona {
	return store.NewPersona{
		UserID:               r.UserID,
		Name:                 r.Name,
		RelationshipContext:  r.RelationshipContext,
		HarshnessLevel:       r.HarshnessLevel,
		CommunicationTips:    store.JSONColumn(r.CommunicationTips, "[]"),
		ConversationStarters: store.JSONColumn(r.ConversationStarters, "[]"),
		ThingsToAvoid:        store.JSONColumn(r.ThingsToAvoid, "[]"),
	}
}

func (h *PersonasHandler) create(c echo.Context) error {
	var req personaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == 0 || req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and name required")
	}
	id, err := h.Store.CreatePersona(c.Request().Context(), req.record())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, successID(id))
}

func (h *PersonasHandler) update(c echo.Context) error {
	var req personaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "id required")
	}
	changes, err := h.Store.UpdatePersona(c.Request().Context(), req.ID, req.record())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, successChanges(changes))
}

func (h *PersonasHandler) delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.QueryParam("id"), 10, 64)
	if err != nil || id == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "id required")
	}
	changes, err := h.Store.DeletePersona(c.Request().Context(), id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, successChanges(changes))
}
