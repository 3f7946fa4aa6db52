package store

import (
	"context"
	"fmt"

	"team-insights-go/internal/types"
)

// AddEvidence appends evidence rows in one transaction. Existing rows are
// never rewritten.
func (s *Store) AddEvidence(ctx context.Context, items []types.Evidence) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin evidence tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profile_evidence (id, profile_id, project_id, person_id, quote, trait,
			confidence, is_primary, source_transcript_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare evidence insert: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for i := range items {
		e := &items[i]
		if e.ID == "" {
			e.ID = newID()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.ProfileID, e.ProjectID, e.PersonID, e.Quote, e.Trait,
			e.Confidence, boolInt(e.IsPrimary), e.SourceTranscriptID, formatTime(e.CreatedAt)); err != nil {
			return fmt.Errorf("store: insert evidence: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit evidence: %w", err)
	}
	return nil
}

func (s *Store) ListEvidence(ctx context.Context, profileID string) ([]types.Evidence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, project_id, person_id, quote, trait, confidence, is_primary,
			source_transcript_id, created_at
		FROM profile_evidence WHERE profile_id = ? ORDER BY created_at, rowid`, profileID)
	if err != nil {
		return nil, fmt.Errorf("store: list evidence: %w", err)
	}
	defer rows.Close()

	var out []types.Evidence
	for rows.Next() {
		var (
			e       types.Evidence
			primary int
			created string
		)
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.ProjectID, &e.PersonID, &e.Quote, &e.Trait,
			&e.Confidence, &primary, &e.SourceTranscriptID, &created); err != nil {
			return nil, fmt.Errorf("store: scan evidence: %w", err)
		}
		e.IsPrimary = primary != 0
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
