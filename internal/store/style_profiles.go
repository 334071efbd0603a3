package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// StyleProfile is one stored writing-style fingerprint. Reads return the
// most recent row per user.
type StyleProfile struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	EmojiUsage        *string   `json:"emoji_usage"`
	Capitalization    *string   `json:"capitalization"`
	Punctuation       *string   `json:"punctuation"`
	AverageLength     *string   `json:"average_length"`
	SlangLevel        *string   `json:"slang_level"`
	SignaturePatterns string    `json:"signature_patterns"`
	PreferredTone     *string   `json:"preferred_tone"`
	RawSamples        *string   `json:"raw_samples"`
	AISummary         *string   `json:"ai_summary"`
	FavoriteEmojis    *string   `json:"favorite_emojis"`
	CreatedAt         time.Time `json:"created_at"`
}

const styleProfileColumns = `id, user_id, emoji_usage, capitalization, punctuation, average_length, slang_level, signature_patterns, preferred_tone, raw_samples, ai_summary, favorite_emojis, created_at`

func scanStyleProfile(sc interface {
	Scan(dest ...interface{}) error
}) (StyleProfile, error) {
	var p StyleProfile
	err := sc.Scan(&p.ID, &p.UserID, &p.EmojiUsage, &p.Capitalization, &p.Punctuation, &p.AverageLength,
		&p.SlangLevel, &p.SignaturePatterns, &p.PreferredTone, &p.RawSamples, &p.AISummary, &p.FavoriteEmojis, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StyleProfile{}, ErrNotFound
	}
	return p, err
}

// LatestStyleProfile returns the newest profile for the user (latest row wins).
func (s *Store) LatestStyleProfile(ctx context.Context, userID int64) (StyleProfile, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+styleProfileColumns+` FROM style_profiles WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID)
	return scanStyleProfile(row)
}

func (s *Store) ListStyleProfiles(ctx context.Context, limit int) ([]StyleProfile, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+styleProfileColumns+` FROM style_profiles ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StyleProfile{}
	for rows.Next() {
		p, err := scanStyleProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// NewStyleProfile is the create payload; JSON-valued fields pre-normalized.
type NewStyleProfile struct {
	UserID            int64
	EmojiUsage        *string
	Capitalization    *string
	Punctuation       *string
	AverageLength     *string
	SlangLevel        *string
	SignaturePatterns string
	PreferredTone     *string
	RawSamples        *string
	AISummary         *string
	FavoriteEmojis    *string
}

func (s *Store) CreateStyleProfile(ctx context.Context, np NewStyleProfile) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO style_profiles (user_id, emoji_usage, capitalization, punctuation, average_length, slang_level, signature_patterns, preferred_tone, raw_samples, ai_summary, favorite_emojis)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		np.UserID, np.EmojiUsage, np.Capitalization, np.Punctuation, np.AverageLength, np.SlangLevel,
		np.SignaturePatterns, np.PreferredTone, np.RawSamples, np.AISummary, np.FavoriteEmojis).Scan(&id)
	return id, err
}
