package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rizzbot-app/rizzbot/internal/store"
)

// TherapistSessionsHandler serves /api/therapist_sessions. Saves are
// idempotent per interaction_id: POST upserts rather than appending.
type TherapistSessionsHandler struct {
	Store *store.Store
}

func (h *TherapistSessionsHandler) Register(g *echo.Group) {
	g.GET("", h.get)
	g.POST("", h.save)
	g.DELETE("", h.delete)
}

func (h *TherapistSessionsHandler) get(c echo.Context) error {
	ctx := c.Request().Context()
	if interactionID := c.QueryParam("interaction_id"); interactionID != "" {
		session, err := h.Store.GetTherapistSession(ctx, interactionID)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusOK, nil)
		}
		if err != nil {
			return storeError(err)
		}
		return c.JSON(http.StatusOK, session)
	}

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
	filter := store.TherapistSessionFilter{
		AnonID: c.QueryParam("anon_id"),
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	}
	if filter.AnonID == "" && filter.UserID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "User identifier required")
	}
	sessions, err := h.Store.ListTherapistSessions(ctx, filter)
	if err != nil {
		return storeError(err)
	}
	total, err := h.Store.CountTherapistSessions(ctx, filter)
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

type saveTherapistSessionRequest struct {
	UserAnonID    string          `json:"user_anon_id"`
	UserID        int64           `json:"user_id"`
	InteractionID string          `json:"interaction_id"`
	Messages      json.RawMessage `json:"messages"`
	ClinicalNotes json.RawMessage `json:"clinical_notes"`
	Summary       *string         `json:"summary"`
}

func (h *TherapistSessionsHandler) save(c echo.Context) error {
	var req saveTherapistSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	userID := req.UserID
	if userID == 0 && req.UserAnonID != "" {
		user, err := h.Store.FindOrCreateUser(ctx, store.NewUser{AnonID: req.UserAnonID})
		if err != nil {
			return storeError(err)
		}
		userID = user.ID
	}
	if userID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "User not found")
	}
	if req.InteractionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "interaction_id required")
	}

	id, action, err := h.Store.UpsertTherapistSession(ctx, userID, req.InteractionID,
		store.JSONColumn(req.Messages, "[]"),
		store.JSONColumn(req.ClinicalNotes, "{}"),
		req.Summary)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "action": action, "id": id})
}

func (h *TherapistSessionsHandler) delete(c echo.Context) error {
	interactionID := c.QueryParam("interaction_id")
	if interactionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "interaction_id required")
	}
	if err := h.Store.DeleteTherapistSession(c.Request().Context(), interactionID); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
