package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rizzbot-app/rizzbot/internal/store"
)

// FeedbackHandler serves /api/feedback.
type FeedbackHandler struct {
	Store *store.Store
}

func (h *FeedbackHandler) Register(g *echo.Group) {
	g.GET("", h.get)
	g.POST("", h.create)
}

func (h *FeedbackHandler) get(c echo.Context) error {
	ctx := c.Request().Context()
	if raw := c.QueryParam("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "user_id must be numeric")
		}
		summary, err := h.Store.FeedbackSummary(ctx, userID)
		if err != nil {
			return storeError(err)
		}
		return c.JSON(http.StatusOK, summary)
	}
	all, err := h.Store.ListFeedback(ctx, store.FeedbackListCap)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, all)
}

type createFeedbackRequest struct {
	UserID         int64           `json:"user_id"`
	Source         string          `json:"source"`
	SuggestionType string          `json:"suggestion_type"`
	Rating         *int            `json:"rating"`
	Metadata       json.RawMessage `json:"metadata"`
}

func (h *FeedbackHandler) create(c echo.Context) error {
	var req createFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == 0 || req.Source == "" || req.SuggestionType == "" || req.Rating == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id, source, suggestion_type, rating required")
	}
	id, err := h.Store.CreateFeedback(c.Request().Context(), req.UserID, req.Source, req.SuggestionType,
		*req.Rating, store.NullableJSONColumn(req.Metadata))
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, successID(id))
}
