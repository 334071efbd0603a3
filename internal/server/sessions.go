package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rizzbot-app/rizzbot/internal/store"
)

// SessionsHandler serves /api/sessions.
type SessionsHandler struct {
	Store *store.Store
}

func (h *SessionsHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.DELETE("", h.delete)
}

func (h *SessionsHandler) list(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = store.SessionPageDefault
	}
	if limit > store.SessionPageMax {
		limit = store.SessionPageMax
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	userID, _ := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)
	filter := store.SessionFilter{
		AnonID: c.QueryParam("anon_id"),
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	}
	ctx := c.Request().Context()
	sessions, err := h.Store.ListSessions(ctx, filter)
	if err != nil {
		return storeError(err)
	}
	total, err := h.Store.CountSessions(ctx, filter)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"pagination": Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: int64(offset+limit) < total,
		},
	})
}

type createSessionRequest struct {
	UserAnonID   string          `json:"user_anon_id"`
	AnonID       string          `json:"anon_id"`
	UserID       int64           `json:"user_id"`
	Result       json.RawMessage `json:"result"`
	Mode         string          `json:"mode"`
	PersonaName  *string         `json:"persona_name"`
	Headline     *string         `json:"headline"`
	GhostRisk    *string         `json:"ghost_risk"`
	MessageCount int             `json:"message_count"`
}

func (h *SessionsHandler) create(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	// External anon id wins over a caller-supplied numeric id.
	anonID := req.UserAnonID
	if anonID == "" {
		anonID = req.AnonID
	}
	var userID *int64
	if anonID != "" {
		user, err := h.Store.FindOrCreateUser(ctx, store.NewUser{AnonID: anonID})
		if err != nil {
			return storeError(err)
		}
		userID = &user.ID
	} else if req.UserID != 0 {
		userID = &req.UserID
	}

	id, err := h.Store.CreateSession(ctx, store.NewSession{
		UserID:       userID,
		Result:       store.JSONColumn(req.Result, "{}"),
		Mode:         req.Mode,
		PersonaName:  req.PersonaName,
		Headline:     req.Headline,
		GhostRisk:    req.GhostRisk,
		MessageCount: req.MessageCount,
	})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, successID(id))
}

func (h *SessionsHandler) delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.QueryParam("id"), 10, 64)
	if err != nil || id == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Session ID required")
	}
	if err := h.Store.DeleteSession(c.Request().Context(), id); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
