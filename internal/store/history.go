package store

import (
	"context"
	"fmt"

	"team-insights-go/internal/types"
)

// AddHistory appends an audit snapshot.
func (s *Store) AddHistory(ctx context.Context, h types.HistorySnapshot) error {
	if h.ID == "" {
		h.ID = newID()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_history (id, project_id, kind, subject_id, snapshot, trigger_type,
			trigger_transcript_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.ProjectID, string(h.Kind), h.SubjectID, string(h.Snapshot), string(h.Trigger),
		h.TriggerTranscriptID, formatTime(h.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("store: add history: %w", err)
	}
	return nil
}

// ListHistory returns snapshots for one subject, oldest first. An empty
// subjectID matches project-level (team) snapshots.
func (s *Store) ListHistory(ctx context.Context, projectID string, kind types.HistoryKind, subjectID string) ([]types.HistorySnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, kind, subject_id, snapshot, trigger_type, trigger_transcript_id, created_at
		FROM analysis_history
		WHERE project_id = ? AND kind = ? AND subject_id = ?
		ORDER BY created_at, rowid`, projectID, string(kind), subjectID)
	if err != nil {
		return nil, fmt.Errorf("store: list history: %w", err)
	}
	defer rows.Close()

	var out []types.HistorySnapshot
	for rows.Next() {
		var (
			h                          types.HistorySnapshot
			rowKind, snapshot, trigger string
			created                    string
		)
		if err := rows.Scan(&h.ID, &h.ProjectID, &rowKind, &h.SubjectID, &snapshot, &trigger,
			&h.TriggerTranscriptID, &created); err != nil {
			return nil, fmt.Errorf("store: scan history: %w", err)
		}
		h.Kind = types.HistoryKind(rowKind)
		h.Snapshot = []byte(snapshot)
		h.Trigger = types.TriggerType(trigger)
		h.CreatedAt = parseTime(created)
		out = append(out, h)
	}
	return out, rows.Err()
}
