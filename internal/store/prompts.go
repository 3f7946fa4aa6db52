package store

import (
	"context"
	"fmt"
)

// Prompt returns the stored template for key; ok is false when none is set.
func (s *Store) Prompt(ctx context.Context, key string) (template string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT template FROM prompts WHERE key = ?`, key).Scan(&template)
	if isNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get prompt: %w", err)
	}
	return template, true, nil
}

func (s *Store) SetPrompt(ctx context.Context, key, template string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prompts (key, template, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET template = excluded.template, updated_at = excluded.updated_at`,
		key, template, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("store: set prompt: %w", err)
	}
	return nil
}
