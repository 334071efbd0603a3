package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rizzbot-app/rizzbot/internal/store"
)

// StyleProfilesHandler serves /api/style_profiles. Profiles are append-only;
// a GET by user returns only the most recent row.
type StyleProfilesHandler struct {
	Store *store.Store
}

func (h *StyleProfilesHandler) Register(g *echo.Group) {
	g.GET("", h.get)
	g.POST("", h.create)
}

func (h *StyleProfilesHandler) get(c echo.Context) error {
	ctx := c.Request().Context()
	if raw := c.QueryParam("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "user_id must be numeric")
		}
		profile, err := h.Store.LatestStyleProfile(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusOK, nil)
		}
		if err != nil {
			return storeError(err)
		}
		return c.JSON(http.StatusOK, profile)
	}
	profiles, err := h.Store.ListStyleProfiles(ctx, store.StyleProfileListCap)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, profiles)
}

type createStyleProfileRequest struct {
	UserID            int64           `json:"user_id"`
	EmojiUsage        *string         `json:"emoji_usage"`
	Capitalization    *string         `json:"capitalization"`
	Punctuation       *string         `json:"punctuation"`
	AverageLength     *string         `json:"average_length"`
	SlangLevel        *string         `json:"slang_level"`
	SignaturePatterns json.RawMessage `json:"signature_patterns"`
	PreferredTone     *string         `json:"preferred_tone"`
	RawSamples        json.RawMessage `json:"raw_samples"`
	AISummary         *string         `json:"ai_summary"`
	FavoriteEmojis    json.RawMessage `json:"favorite_emojis"`
}

func (h *StyleProfilesHandler) create(c echo.Context) error {
	var req createStyleProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}
	id, err := h.Store.CreateStyleProfile(c.Request().Context(), store.NewStyleProfile{
		UserID:            req.UserID,
		EmojiUsage:        req.EmojiUsage,
		Capitalization:    req.Capitalization,
		Punctuation:       req.Punctuation,
		AverageLength:     req.AverageLength,
		SlangLevel:        req.SlangLevel,
		SignaturePatterns: store.JSONColumn(req.SignaturePatterns, "[]"),
		PreferredTone:     req.PreferredTone,
		RawSamples:        store.NullableJSONColumn(req.RawSamples),
		AISummary:         req.AISummary,
		FavoriteEmojis:    store.NullableJSONColumn(req.FavoriteEmojis),
	})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, successID(id))
}
