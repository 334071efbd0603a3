package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var userRowCols = []string{"id", "anon_id", "email", "display_name", "photo_url", "provider", "created_at", "last_login_at"}

func TestFindOrCreateUserInsertsNewRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users .* ON CONFLICT \(anon_id\) DO NOTHING`).
		WithArgs("anon-1", nil, nil, nil, "google").
		WillReturnRows(sqlmock.NewRows(userRowCols).
			AddRow(int64(7), "anon-1", nil, nil, nil, "google", now, now))

	u, err := s.FindOrCreateUser(context.Background(), NewUser{AnonID: "anon-1", Provider: "google"})
	if err != nil {
		t.Fatalf("FindOrCreateUser: %v", err)
	}
	if u.ID != 7 || u.AnonID != "anon-1" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindOrCreateUserConflictFallsBackToSelect(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	now := time.Now()
	// The conflict path returns no rows from the insert.
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("anon-1", nil, nil, nil, "unknown").
		WillReturnRows(sqlmock.NewRows(userRowCols))
	mock.ExpectQuery(`SELECT .+ FROM users WHERE anon_id = \$1`).
		WithArgs("anon-1").
		WillReturnRows(sqlmock.NewRows(userRowCols).
			AddRow(int64(7), "anon-1", nil, nil, nil, "unknown", now, now))

	u, err := s.FindOrCreateUser(context.Background(), NewUser{AnonID: "anon-1"})
	if err != nil {
		t.Fatalf("FindOrCreateUser: %v", err)
	}
	if u.ID != 7 {
		t.Fatalf("expected existing row id 7, got %d", u.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResolveUserIDUnknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	mock.ExpectQuery(`SELECT id FROM users WHERE anon_id = \$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := s.ResolveUserID(context.Background(), "ghost"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUserBuildsPartialSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	email := "a@b.c"
	mock.ExpectExec(`UPDATE users SET email = \$1, last_login_at = NOW\(\) WHERE id = \$2`).
		WithArgs("a@b.c", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.UpdateUser(context.Background(), 7, UserUpdate{Email: TextPatch{Set: true, Value: &email}}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateUserNullClearsColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	// A set-but-nil patch writes NULL; an unset one is skipped entirely.
	mock.ExpectExec(`UPDATE users SET photo_url = \$1, last_login_at = NOW\(\) WHERE id = \$2`).
		WithArgs(nil, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.UpdateUser(context.Background(), 7, UserUpdate{PhotoURL: TextPatch{Set: true}}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListMemoriesSessionScopeIncludesGlobal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	now := time.Now()
	mock.ExpectQuery(`FROM memories WHERE user_id = \$1 AND \(session_id = \$2 OR type = 'GLOBAL'\) ORDER BY created_at DESC LIMIT \$3`).
		WithArgs(int64(7), int64(3), MemoryListCap).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "session_id", "type", "content", "created_at"}).
			AddRow(int64(1), int64(7), int64(3), MemoryTypeSession, "likes hiking", now).
			AddRow(int64(2), int64(7), nil, MemoryTypeGlobal, "direct communicator", now))

	memories, err := s.ListMemories(context.Background(), MemoryFilter{UserID: 7, SessionID: 3, Limit: MemoryListCap})
	if err != nil {
		t.Fatalf("ListMemories: %v", err)
	}
	if len(memories) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(memories))
	}
	if memories[1].Type != MemoryTypeGlobal || memories[1].SessionID != nil {
		t.Fatalf("unexpected global memory: %+v", memories[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListSessionsFilterPrefersAnonID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	cols := []string{"id", "result", "created_at", "mode", "persona_name", "headline", "ghost_risk", "message_count", "user_id", "anon_id"}
	mock.ExpectQuery(`LEFT JOIN users u ON s\.user_id = u\.id\s+WHERE u\.anon_id = \$1`).
		WithArgs("anon-1", 20, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), `{"score":80}`, time.Now(), "simulator", nil, nil, nil, 12, int64(7), "anon-1"))

	sessions, err := s.ListSessions(context.Background(), SessionFilter{AnonID: "anon-1", UserID: 99, Limit: 20})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].AnonID == nil || *sessions[0].AnonID != "anon-1" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateSessionDefaultsMode(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	userID := int64(7)
	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(&userID, "{}", "simulator", nil, nil, nil, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := s.CreateSession(context.Background(), NewSession{UserID: &userID, Result: "{}"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}
}

func TestFeedbackSummaryGroupsBuckets(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	mock.ExpectQuery(`GROUP BY source, suggestion_type, rating\s+ORDER BY MAX\(created_at\) DESC`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"source", "suggestion_type", "rating", "count"}).
			AddRow("simulator", "opener", 1, int64(5)).
			AddRow("simulator", "opener", -1, int64(2)))

	summary, err := s.FeedbackSummary(context.Background(), 7)
	if err != nil {
		t.Fatalf("FeedbackSummary: %v", err)
	}
	if len(summary) != 2 || summary[0].Count != 5 || summary[1].Rating != -1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
