package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TherapistSession is a long-running coaching conversation saved by
// interaction id; repeated saves for the same interaction update in place.
type TherapistSession struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	InteractionID string    `json:"interaction_id"`
	Messages      string    `json:"messages"`
	ClinicalNotes string    `json:"clinical_notes"`
	Summary       *string   `json:"summary"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const therapistSessionColumns = `id, user_id, interaction_id, messages, clinical_notes, summary, created_at, updated_at`

func scanTherapistSession(sc interface {
	Scan(dest ...interface{}) error
}) (TherapistSession, error) {
	var ts TherapistSession
	err := sc.Scan(&ts.ID, &ts.UserID, &ts.InteractionID, &ts.Messages, &ts.ClinicalNotes, &ts.Summary, &ts.CreatedAt, &ts.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TherapistSession{}, ErrNotFound
	}
	return ts, err
}

func (s *Store) GetTherapistSession(ctx context.Context, interactionID string) (TherapistSession, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+therapistSessionColumns+` FROM therapist_sessions WHERE interaction_id = $1`, interactionID)
	return scanTherapistSession(row)
}

// TherapistSessionFilter selects sessions by user identity; AnonID wins.
type TherapistSessionFilter struct {
	AnonID string
	UserID int64
	Limit  int
	Offset int
}

func (s *Store) ListTherapistSessions(ctx context.Context, f TherapistSessionFilter) ([]TherapistSession, error) {
	var query string
	args := []interface{}{}
	if f.AnonID != "" {
		query = `SELECT ts.id, ts.user_id, ts.interaction_id, ts.messages, ts.clinical_notes, ts.summary, ts.created_at, ts.updated_at
FROM therapist_sessions ts
JOIN users u ON ts.user_id = u.id
WHERE u.anon_id = $1
ORDER BY ts.updated_at DESC
LIMIT $2 OFFSET $3`
		args = append(args, f.AnonID, f.Limit, f.Offset)
	} else {
		query = `SELECT ` + therapistSessionColumns + ` FROM therapist_sessions WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
		args = append(args, f.UserID, f.Limit, f.Offset)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TherapistSession{}
	for rows.Next() {
		ts, err := scanTherapistSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *Store) CountTherapistSessions(ctx context.Context, f TherapistSessionFilter) (int64, error) {
	var total int64
	var err error
	if f.AnonID != "" {
		err = s.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM therapist_sessions ts JOIN users u ON ts.user_id = u.id WHERE u.anon_id = $1`,
			f.AnonID).Scan(&total)
	} else {
		err = s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM therapist_sessions WHERE user_id = $1`, f.UserID).Scan(&total)
	}
	return total, err
}

// UpsertTherapistSession creates or updates the session keyed by
// interaction_id. Returns the row id and whether it was created or updated.
func (s *Store) UpsertTherapistSession(ctx context.Context, userID int64, interactionID, messages, clinicalNotes string, summary *string) (int64, string, error) {
	var id int64
	var existedBefore bool
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO therapist_sessions (user_id, interaction_id, messages, clinical_notes, summary)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (interaction_id) DO UPDATE SET
  messages       = EXCLUDED.messages,
  clinical_notes = EXCLUDED.clinical_notes,
  summary        = EXCLUDED.summary,
  updated_at     = NOW()
RETURNING id, (created_at < updated_at) AS existed`,
		userID, interactionID, messages, clinicalNotes, summary).Scan(&id, &existedBefore)
	if err != nil {
		return 0, "", err
	}
	action := "created"
	if existedBefore {
		action = "updated"
	}
	return id, action, nil
}

func (s *Store) DeleteTherapistSession(ctx context.Context, interactionID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM therapist_sessions WHERE interaction_id = $1`, interactionID)
	return err
}
