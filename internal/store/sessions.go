package store

import (
	"context"
	"database/sql"
	"time"
)

// Session is one completed simulation, joined with its owning user when set.
type Session struct {
	ID           int64     `json:"id"`
	Result       string    `json:"result"`
	CreatedAt    time.Time `json:"created_at"`
	Mode         string    `json:"mode"`
	PersonaName  *string   `json:"persona_name"`
	Headline     *string   `json:"headline"`
	GhostRisk    *string   `json:"ghost_risk"`
	MessageCount int       `json:"message_count"`
	UserID       *int64    `json:"user_id"`
	AnonID       *string   `json:"anon_id"`
}

// SessionFilter selects sessions by external or internal user identity.
// AnonID wins when both are set.
type SessionFilter struct {
	AnonID string
	UserID int64
	Limit  int
	Offset int
}

const sessionColumns = `s.id, s.result, s.created_at, s.mode, s.persona_name, s.headline, s.ghost_risk, s.message_count,
       u.id AS user_id, u.anon_id`

func (f SessionFilter) where() (string, []interface{}) {
	if f.AnonID != "" {
		return `WHERE u.anon_id = $1`, []interface{}{f.AnonID}
	}
	if f.UserID != 0 {
		return `WHERE s.user_id = $1`, []interface{}{f.UserID}
	}
	return ``, nil
}

func (s *Store) ListSessions(ctx context.Context, f SessionFilter) ([]Session, error) {
	where, args := f.where()
	query := `SELECT ` + sessionColumns + `
FROM sessions s
LEFT JOIN users u ON s.user_id = u.id
` + where + `
ORDER BY s.created_at DESC
LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Session{}
	for rows.Next() {
		var rec Session
		var userID sql.NullInt64
		var anonID sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Result, &rec.CreatedAt, &rec.Mode, &rec.PersonaName,
			&rec.Headline, &rec.GhostRisk, &rec.MessageCount, &userID, &anonID); err != nil {
			return nil, err
		}
		if userID.Valid {
			rec.UserID = &userID.Int64
		}
		if anonID.Valid {
			rec.AnonID = &anonID.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) CountSessions(ctx context.Context, f SessionFilter) (int64, error) {
	var total int64
	var err error
	if f.AnonID != "" {
		err = s.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sessions s LEFT JOIN users u ON s.user_id = u.id WHERE u.anon_id = $1`,
			f.AnonID).Scan(&total)
	} else if f.UserID != 0 {
		err = s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id = $1`, f.UserID).Scan(&total)
	} else {
		err = s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total)
	}
	return total, err
}

// NewSession is the create payload; Result is already-normalized JSON text.
type NewSession struct {
	UserID       *int64
	Result       string
	Mode         string
	PersonaName  *string
	Headline     *string
	GhostRisk    *string
	MessageCount int
}

func (s *Store) CreateSession(ctx context.Context, ns NewSession) (int64, error) {
	mode := ns.Mode
	if mode == "" {
		mode = "simulator"
	}
	var id int64
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO sessions (user_id, result, mode, persona_name, headline, ghost_risk, message_count)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		ns.UserID, ns.Result, mode, ns.PersonaName, ns.Headline, ns.GhostRisk, ns.MessageCount).Scan(&id)
	return id, err
}

func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}
