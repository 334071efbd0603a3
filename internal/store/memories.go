package store

import (
	"context"
	"time"
)

// Memory types. GLOBAL memories apply across sessions; SESSION memories are
// scoped to one session.
const (
	MemoryTypeGlobal  = "GLOBAL"
	MemoryTypeSession = "SESSION"
)

// Memory is a stored context note used by future generations.
type Memory struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SessionID *int64    `json:"session_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryFilter selects memories for one user, optionally narrowed by type.
// When SessionID is set, GLOBAL memories are still included alongside the
// session-scoped ones.
type MemoryFilter struct {
	UserID    int64
	Type      string
	SessionID int64
	Limit     int
}

func (s *Store) ListMemories(ctx context.Context, f MemoryFilter) ([]Memory, error) {
	query := `SELECT id, user_id, session_id, type, content, created_at FROM memories WHERE user_id = $1`
	args := []interface{}{f.UserID}
	if f.Type != "" {
		args = append(args, f.Type)
		query += ` AND type = ` + placeholder(len(args))
	}
	if f.SessionID != 0 {
		args = append(args, f.SessionID)
		query += ` AND (session_id = ` + placeholder(len(args)) + ` OR type = 'GLOBAL')`
	}
	args = append(args, f.Limit)
	query += ` ORDER BY created_at DESC LIMIT ` + placeholder(len(args))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Memory{}
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.ID, &m.UserID, &m.SessionID, &m.Type, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CreateMemory(ctx context.Context, userID int64, sessionID *int64, memType, content string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO memories (user_id, session_id, type, content) VALUES ($1,$2,$3,$4) RETURNING id`,
		userID, sessionID, memType, content).Scan(&id)
	return id, err
}

func (s *Store) UpdateMemory(ctx context.Context, id int64, memType, content string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE memories SET content = $1, type = $2 WHERE id = $3`, content, memType, id)
	return err
}

func (s *Store) DeleteMemory(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM memories WHERE id = $1`, id)
	return err
}
