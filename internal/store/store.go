package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a selector resolves to no row.
var ErrNotFound = errors.New("not found")

// Row caps applied to unfiltered list queries.
const (
	UserListCap         = 100
	PersonaListCap      = 100
	StyleProfileListCap = 100
	MemoryListCap       = 200
	FeedbackListCap     = 500
	SessionPageDefault  = 20
	SessionPageMax      = 100
)

type Store struct {
	DB *sql.DB
}

// New opens a Postgres connection for the given DSN and verifies it.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

func placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// User is a persisted users row. anon_id is the stable external identity key.
type User struct {
	ID          int64      `json:"id"`
	AnonID      string     `json:"anon_id"`
	Email       *string    `json:"email"`
	DisplayName *string    `json:"display_name"`
	PhotoURL    *string    `json:"photo_url"`
	Provider    string     `json:"provider"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

const userColumns = `id, anon_id, email, display_name, photo_url, provider, created_at, last_login_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.AnonID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.Provider, &u.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return u, nil
}

func (s *Store) GetUserByAnonID(ctx context.Context, anonID string) (User, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE anon_id = $1`, anonID)
	return scanUser(row)
}

// ResolveUserID maps an external anon id to the internal numeric id without
// creating a row.
func (s *Store) ResolveUserID(ctx context.Context, anonID string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `SELECT id FROM users WHERE anon_id = $1`, anonID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// NewUser carries the optional profile fields accepted on user creation.
type NewUser struct {
	AnonID      string
	Email       *string
	DisplayName *string
	PhotoURL    *string
	Provider    string
}

// FindOrCreateUser inserts a user keyed by anon_id, relying on the column's
// UNIQUE constraint so that two near-simultaneous creates converge on one
// row. The conflict path falls back to a plain select.
func (s *Store) FindOrCreateUser(ctx context.Context, nu NewUser) (User, error) {
	provider := nu.Provider
	if provider == "" {
		provider = "unknown"
	}
	row := s.DB.QueryRowContext(ctx, `
INSERT INTO users (anon_id, email, display_name, photo_url, provider, last_login_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (anon_id) DO NOTHING
RETURNING `+userColumns, nu.AnonID, nu.Email, nu.DisplayName, nu.PhotoURL, provider)
	u, err := scanUser(row)
	if errors.Is(err, ErrNotFound) {
		return s.GetUserByAnonID(ctx, nu.AnonID)
	}
	return u, err
}

// TouchLastLogin records last-seen on lookup.
func (s *Store) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

// TextPatch is an optional column assignment. Set distinguishes an omitted
// field (leave unchanged) from an explicit null (write NULL).
type TextPatch struct {
	Set   bool
	Value *string
}

// UserUpdate lists the mutable profile fields. Provider stays a plain
// pointer: the column is NOT NULL, so null can only mean skip.
type UserUpdate struct {
	Email       TextPatch
	DisplayName TextPatch
	PhotoURL    TextPatch
	Provider    *string
}

func (s *Store) UpdateUser(ctx context.Context, id int64, upd UserUpdate) error {
	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Email.Set {
		add("email", upd.Email.Value)
	}
	if upd.DisplayName.Set {
		add("display_name", upd.DisplayName.Value)
	}
	if upd.PhotoURL.Set {
		add("photo_url", upd.PhotoURL.Value)
	}
	if upd.Provider != nil {
		add("provider", *upd.Provider)
	}
	sets = append(sets, "last_login_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	_, err := s.DB.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]User, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		var lastLogin sql.NullTime
		if err := rows.Scan(&u.ID, &u.AnonID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.Provider, &u.CreatedAt, &lastLogin); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			u.LastLoginAt = &lastLogin.Time
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
