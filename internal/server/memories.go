package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rizzbot-app/rizzbot/internal/store"
)

// MemoriesHandler serves /api/memories.
type MemoriesHandler struct {
	Store *store.Store
}

func (h *MemoriesHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.PUT("", h.update)
	g.DELETE("", h.delete)
}

func validMemoryType(t string) bool {
	return t == store.MemoryTypeGlobal || t == store.MemoryTypeSession
}

func (h *MemoriesHandler) list(c echo.Context) error {
	ctx := c.Request().Context()
	userID, _ := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)

	// anon_id resolves to the internal id; an unknown anon id is an empty
	// collection, not an error.
	if userID == 0 {
		if anonID := c.QueryParam("anon_id"); anonID != "" {
			id, err := h.Store.ResolveUserID(ctx, anonID)
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusOK, map[string]interface{}{"memories": []store.Memory{}})
			}
			if err != nil {
				return storeError(err)
			}
			userID = id
		}
	}
	if userID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "User identifier required")
	}

	if t := c.QueryParam("type"); t != "" && !validMemoryType(t) {
		return echo.NewHTTPError(http.StatusBadRequest, "type must be GLOBAL or SESSION")
	}
	sessionID, _ := strconv.ParseInt(c.QueryParam("session_id"), 10, 64)
	memories, err := h.Store.ListMemories(ctx, store.MemoryFilter{
		UserID:    userID,
		Type:      c.QueryParam("type"),
		SessionID: sessionID,
		Limit:     store.MemoryListCap,
	})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"memories": memories})
}

type createMemoryRequest struct {
	UserAnonID string `json:"user_anon_id"`
	UserID     int64  `json:"user_id"`
	SessionID  *int64 `json:"session_id"`
	Type       string `json:"type"`
	Content    string `json:"content"`
}

func (h *MemoriesHandler) create(c echo.Context) error {
	var req createMemoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	userID := req.UserID
	if userID == 0 && req.UserAnonID != "" {
		id, err := h.Store.ResolveUserID(ctx, req.UserAnonID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return storeError(err)
		}
		userID = id
	}
	if userID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "User required")
	}
	if req.Content == "" || req.Type == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Content and Type required")
	}
	if !validMemoryType(req.Type) {
		return echo.NewHTTPError(http.StatusBadRequest, "type must be GLOBAL or SESSION")
	}

	id, err := h.Store.CreateMemory(ctx, userID, req.SessionID, req.Type, req.Content)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, successID(id))
}

type updateMemoryRequest struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (h *MemoriesHandler) update(c echo.Context) error {
	var req updateMemoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ID == 0 || req.Content == "" || req.Type == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ID, Content, and Type required")
	}
	if !validMemoryType(req.Type) {
		return echo.NewHTTPError(http.StatusBadRequest, "type must be GLOBAL or SESSION")
	}
	if err := h.Store.UpdateMemory(c.Request().Context(), req.ID, req.Type, req.Content); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

func (h *MemoriesHandler) delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.QueryParam("id"), 10, 64)
	if err != nil || id == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ID required")
	}
	if err := h.Store.DeleteMemory(c.Request().Context(), id); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
