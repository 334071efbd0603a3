package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Persona is a saved target-persona configuration. The three array-valued
// fields are stored as serialized JSON text (see JSONColumn).
type Persona struct {
	ID                   int64     `json:"id"`
	UserID               int64     `json:"user_id"`
	Name                 string    `json:"name"`
	RelationshipContext  *string   `json:"relationship_context"`
	HarshnessLevel       *int      `json:"harshness_level"`
	CommunicationTips    string    `json:"communication_tips"`
	ConversationStarters string    `json:"conversation_starters"`
	ThingsToAvoid        string    `json:"things_to_avoid"`
	CreatedAt            time.Time `json:"created_at"`
}

const personaColumns = `id, user_id, name, relationship_context, harshness_level, communication_tips, conversation_starters, things_to_avoid, created_at`

func scanPersona(sc interface {
	Scan(dest ...interface{}) error
}) (Persona, error) {
	var p Persona
	err := sc.Scan(&p.ID, &p.UserID, &p.Name, &p.RelationshipContext, &p.HarshnessLevel,
		&p.CommunicationTips, &p.ConversationStarters, &p.ThingsToAvoid, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Persona{}, ErrNotFound
	}
	return p, err
}

func (s *Store) GetPersona(ctx context.Context, id int64) (Persona, error) {
	return scanPersona(s.DB.QueryRowContext(ctx, `SELECT `+personaColumns+` FROM personas WHERE id = $1`, id))
}

func (s *Store) ListPersonasByUser(ctx context.Context, userID int64) ([]Persona, error) {
	return s.queryPersonas(ctx, `SELECT `+personaColumns+` FROM personas WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (s *Store) ListPersonas(ctx context.Context, limit int) ([]Persona, error) {
	return s.queryPersonas(ctx, `SELECT `+personaColumns+` FROM personas ORDER BY created_at DESC LIMIT $1`, limit)
}

func (s *Store) queryPersonas(ctx context.Context, query string, args ...interface{}) ([]Persona, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Persona{}
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// NewPersona is the create/update payload with array fields pre-normalized.
type NewPersona struct {
	UserID               int64
	Name                 string
	RelationshipContext  *string
	HarshnessLevel       *int
	CommunicationTips    string
	ConversationStarters string
	ThingsToAvoid        string
}

func (s *Store) CreatePersona(ctx context.Context, np NewPersona) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO personas (user_id, name, relationship_context, harshness_level, communication_tips, conversation_starters, things_to_avoid)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		np.UserID, np.Name, np.RelationshipContext, np.HarshnessLevel,
		np.CommunicationTips, np.ConversationStarters, np.ThingsToAvoid).Scan(&id)
	return id, err
}

func (s *Store) UpdatePersona(ctx context.Context, id int64, np NewPersona) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
UPDATE personas SET name = $1, relationship_context = $2, harshness_level = $3, communication_tips = $4, conversation_starters = $5, things_to_avoid = $6
WHERE id = $7`,
		np.Name, np.RelationshipContext, np.HarshnessLevel,
		np.CommunicationTips, np.ConversationStarters, np.ThingsToAvoid, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeletePersona(ctx context.Context, id int64) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM personas WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
