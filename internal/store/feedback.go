package store

import (
	"context"
	"time"
)

// Feedback is one rating event on a generated suggestion.
type Feedback struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Source         string    `json:"source"`
	SuggestionType string    `json:"suggestion_type"`
	Rating         int       `json:"rating"`
	Metadata       *string   `json:"metadata"`
	CreatedAt      time.Time `json:"created_at"`
}

// FeedbackCount is one aggregation bucket per (source, suggestion_type, rating).
type FeedbackCount struct {
	Source         string `json:"source"`
	SuggestionType string `json:"suggestion_type"`
	Rating         int    `json:"rating"`
	Count          int64  `json:"count"`
}

// FeedbackSummary aggregates a user's ratings for prompt biasing, newest
// buckets first.
func (s *Store) FeedbackSummary(ctx context.Context, userID int64) ([]FeedbackCount, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT source, suggestion_type, rating, COUNT(*) AS count
FROM feedback
WHERE user_id = $1
GROUP BY source, suggestion_type, rating
ORDER BY MAX(created_at) DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []FeedbackCount{}
	for rows.Next() {
		var fc FeedbackCount
		if err := rows.Scan(&fc.Source, &fc.SuggestionType, &fc.Rating, &fc.Count); err != nil {
			return nil, err
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

func (s *Store) ListFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, source, suggestion_type, rating, metadata, created_at FROM feedback ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Feedback{}
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.Source, &f.SuggestionType, &f.Rating, &f.Metadata, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) CreateFeedback(ctx context.Context, userID int64, source, suggestionType string, rating int, metadata *string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO feedback (user_id, source, suggestion_type, rating, metadata) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		userID, source, suggestionType, rating, metadata).Scan(&id)
	return id, err
}
