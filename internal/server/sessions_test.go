package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/rizzbot-app/rizzbot/internal/store"
)

var sessionCols = []string{"id", "result", "created_at", "mode", "persona_name", "headline", "ghost_risk", "message_count", "user_id", "anon_id"}

func TestSessionsListPaginationEnvelope(t *testing.T) {
	e := echo.New()
	st, mock, closeDB := newMockStore(t)
	defer closeDB()
	handler := &SessionsHandler{Store: st}

	now := time.Now()
	mock.ExpectQuery(`FROM sessions s\s+LEFT JOIN users u`).
		WithArgs("anon-1", 5, 10).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow(int64(11), `{"score":72}`, now, "simulator", "Alex", nil, "low", 14, int64(7), "anon-1"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sessions s`).
		WithArgs("anon-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(23)))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?anon_id=anon-1&limit=5&offset=10", nil)
	rec := httptest.NewRecorder()
	if err := handler.list(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}

	var resp struct {
		Sessions   []store.Session `json:"sessions"`
		Pagination Pagination      `json:"pagination"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Sessions) != 1 || resp.Sessions[0].ID != 11 {
		t.Fatalf("unexpected sessions: %+v", resp.Sessions)
	}
	p := resp.Pagination
	if p.Total != 23 || p.Limit != 5 || p.Offset != 10 || !p.HasMore {
		t.Fatalf("unexpected pagination: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionsListClampsLimit(t *testing.T) {
	e := echo.New()
	st, mock, closeDB := newMockStore(t)
	defer closeDB()
	handler := &SessionsHandler{Store: st}

	mock.ExpectQuery(`FROM sessions s`).
		WithArgs(store.SessionPageMax, 0).
		WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sessions`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?limit=5000", nil)
	rec := httptest.NewRecorder()
	if err := handler.list(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionsCreateResolvesAnonOwner(t *testing.T) {
	e := echo.New()
	st, mock, closeDB := newMockStore(t)
	defer closeDB()
	handler := &SessionsHandler{Store: st}

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("anon-1", nil, nil, nil, "unknown").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(7), "anon-1", nil, nil, nil, "unknown", now, now))
	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(int64(7), `{"score":72}`, "simulator", nil, nil, nil, 14).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	req := httptest.NewRequest(http.MethodPost, "/api/sessions",
		strings.NewReader(`{"user_anon_id":"anon-1","result":{"score":72},"message_count":14}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := handler.create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("create: %v", err)
	}

	var resp SuccessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.ID == nil || *resp.ID != 42 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionsDeleteRequiresID(t *testing.T) {
	e := echo.New()
	st, _, closeDB := newMockStore(t)
	defer closeDB()
	handler := &SessionsHandler{Store: st}

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	err := handler.delete(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if httpErr.Message != "Session ID required" {
		t.Fatalf("unexpected message: %v", httpErr.Message)
	}
}
