package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rizzbot-app/rizzbot/internal/store"
)

// UsersHandler serves /api/users. Identity arrives as an external key
// (firebase_uid, with anon_id kept for older clients).
type UsersHandler struct {
	Store *store.Store
}

func (h *UsersHandler) Register(g *echo.Group) {
	g.GET("", h.get)
	g.POST("", h.create)
	g.PUT("", h.update)
}

func (h *UsersHandler) get(c echo.Context) error {
	identifier := c.QueryParam("firebase_uid")
	if identifier == "" {
		identifier = c.QueryParam("anon_id")
	}
	ctx := c.Request().Context()

	if identifier != "" {
		user, err := h.Store.GetUserByAnonID(ctx, identifier)
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		if err != nil {
			return storeError(err)
		}
		// Last-seen tracking piggybacks on lookup.
		if err := h.Store.TouchLastLogin(ctx, user.ID); err != nil {
			log.Printf("[HTTP] touch last_login for user %d: %v", user.ID, err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"user": user})
	}

	users, err := h.Store.ListUsers(ctx, store.UserListCap)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, users)
}

type createUserRequest struct {
	FirebaseUID string  `json:"firebase_uid"`
	AnonID      string  `json:"anon_id"`
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
	PhotoURL    *string `json:"photo_url"`
	Provider    string  `json:"provider"`
}

func (h *UsersHandler) create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	identifier := req.FirebaseUID
	if identifier == "" {
		identifier = req.AnonID
	}
	if identifier == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "firebase_uid or anon_id required")
	}
	user, err := h.Store.FindOrCreateUser(c.Request().Context(), store.NewUser{
		AnonID:      identifier,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		Provider:    req.Provider,
	})
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"user": user, "created": true})
}

type updateUserRequest struct {
	ID          int64           `json:"id"`
	Email       json.RawMessage `json:"email"`
	DisplayName json.RawMessage `json:"display_name"`
	PhotoURL    json.RawMessage `json:"photo_url"`
	Provider    *string         `json:"provider"`
}

// textPatch maps a raw JSON field onto the three-way update semantics:
// absent leaves the column alone, null clears it, a string sets it.
func textPatch(field string, raw json.RawMessage) (store.TextPatch, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return store.TextPatch{}, nil
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return store.TextPatch{Set: true}, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return store.TextPatch{}, echo.NewHTTPError(http.StatusBadRequest, field+" must be a string or null")
	}
	return store.TextPatch{Set: true, Value: &s}, nil
}

func (h *UsersHandler) update(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "id required")
	}
	upd := store.UserUpdate{Provider: req.Provider}
	var err error
	if upd.Email, err = textPatch("email", req.Email); err != nil {
		return err
	}
	if upd.DisplayName, err = textPatch("display_name", req.DisplayName); err != nil {
		return err
	}
	if upd.PhotoURL, err = textPatch("photo_url", req.PhotoURL); err != nil {
		return err
	}
	if err := h.Store.UpdateUser(c.Request().Context(), req.ID, upd); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
