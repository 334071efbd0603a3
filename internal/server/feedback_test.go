package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/rizzbot-app/rizzbot/internal/store"
)

func TestFeedbackGetAggregatesByUser(t *testing.T) {
	e := echo.New()
	st, mock, closeDB := newMockStore(t)
	defer closeDB()
	handler := &FeedbackHandler{Store: st}

	mock.ExpectQuery(`GROUP BY source, suggestion_type, rating`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"source", "suggestion_type", "rating", "count"}).
			AddRow("simulator", "opener", 1, int64(4)))

	req := httptest.NewRequest(http.MethodGet, "/api/feedback?user_id=7", nil)
	rec := httptest.NewRecorder()
	if err := handler.get(e.NewContext(req, rec)); err != nil {
		t.Fatalf("get: %v", err)
	}

	var summary []store.FeedbackCount
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(summary) != 1 || summary[0].Count != 4 || summary[0].Source != "simulator" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFeedbackCreateAcceptsZeroRating(t *testing.T) {
	e := echo.New()
	st, mock, closeDB := newMockStore(t)
	defer closeDB()
	handler := &FeedbackHandler{Store: st}

	mock.ExpectQuery(`INSERT INTO feedback`).
		WithArgs(int64(7), "simulator", "opener", 0, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	req := httptest.NewRequest(http.MethodPost, "/api/feedback",
		strings.NewReader(`{"user_id":7,"source":"simulator","suggestion_type":"opener","rating":0}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := handler.create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("create: %v", err)
	}

	var resp SuccessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.ID == nil || *resp.ID != 12 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFeedbackCreateRequiresRating(t *testing.T) {
	e := echo.New()
	st, _, closeDB := newMockStore(t)
	defer closeDB()
	handler := &FeedbackHandler{Store: st}

	req := httptest.NewRequest(http.MethodPost, "/api/feedback",
		strings.NewReader(`{"user_id":7,"source":"simulator","suggestion_type":"opener"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	err := handler.create(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if httpErr.Message != "user_id, source, suggestion_type, rating required" {
		t.Fatalf("unexpected message: %v", httpErr.Message)
	}
}
