package store

import (
	"context"
	"fmt"

	"team-insights-go/internal/types"
)

// UpsertRelationship folds one observation into the edge keyed by
// (project, from, to, type). Strength only ever rises, evidence is appended
// and capped to the most recent maxEvidence entries, and evidence_count keeps
// the running total. The read and the write share one IMMEDIATE transaction.
func (s *Store) UpsertRelationship(ctx context.Context, obs types.RelationshipObservation, maxEvidence int) (types.Relationship, error) {
	s.relMu.Lock()
	defer s.relMu.Unlock()

	observed := obs.ObservedAt
	if observed.IsZero() {
		observed = s.now()
	}
	strength := clamp01(obs.Strength)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Relationship{}, fmt.Errorf("store: begin relationship tx: %w", err)
	}
	defer tx.Rollback()

	rel, err := scanRelationship(tx.QueryRowContext(ctx, `
		SELECT `+relationshipColumns+` FROM behavioral_relationships
		WHERE project_id = ? AND from_person_id = ? AND to_person_id = ? AND relationship_type = ?`,
		obs.ProjectID, obs.FromPersonID, obs.ToPersonID, string(obs.Type)))
	switch {
	case isNoRows(err):
		rel = types.Relationship{
			ID:             newID(),
			ProjectID:      obs.ProjectID,
			FromPersonID:   obs.FromPersonID,
			ToPersonID:     obs.ToPersonID,
			Type:           obs.Type,
			Strength:       strength,
			Evidence:       lastN(obs.Evidence, maxEvidence),
			EvidenceCount:  len(obs.Evidence),
			LastObservedAt: observed,
			CreatedAt:      observed,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO behavioral_relationships (`+relationshipColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rel.ID, rel.ProjectID, rel.FromPersonID, rel.ToPersonID, string(rel.Type), rel.Strength,
			encodeList(rel.Evidence), rel.EvidenceCount, formatTime(rel.LastObservedAt), formatTime(rel.CreatedAt))
		if err != nil {
			return types.Relationship{}, fmt.Errorf("store: insert relationship: %w", err)
		}
	case err != nil:
		return types.Relationship{}, fmt.Errorf("store: read relationship: %w", err)
	default:
		rel.Strength = max(rel.Strength, strength)
		rel.Evidence = lastN(append(rel.Evidence, obs.Evidence...), maxEvidence)
		rel.EvidenceCount += len(obs.Evidence)
		rel.LastObservedAt = observed
		_, err = tx.ExecContext(ctx, `
			UPDATE behavioral_relationships
			SET strength = ?, evidence = ?, evidence_count = ?, last_observed_at = ?
			WHERE id = ?`,
			rel.Strength, encodeList(rel.Evidence), rel.EvidenceCount, formatTime(rel.LastObservedAt), rel.ID)
		if err != nil {
			return types.Relationship{}, fmt.Errorf("store: update relationship: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Relationship{}, fmt.Errorf("store: commit relationship: %w", err)
	}
	return rel, nil
}

func (s *Store) ListRelationships(ctx context.Context, projectID string) ([]types.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+relationshipColumns+` FROM behavioral_relationships
		WHERE project_id = ? ORDER BY relationship_type, from_person_id, to_person_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list relationships: %w", err)
	}
	defer rows.Close()

	var out []types.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan relationship: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const relationshipColumns = `id, project_id, from_person_id, to_person_id, relationship_type, strength,
	evidence, evidence_count, last_observed_at, created_at`

func scanRelationship(row rowScanner) (types.Relationship, error) {
	var (
		r                 types.Relationship
		relType, evidence string
		observed, created string
	)
	err := row.Scan(&r.ID, &r.ProjectID, &r.FromPersonID, &r.ToPersonID, &relType, &r.Strength,
		&evidence, &r.EvidenceCount, &observed, &created)
	if err != nil {
		return types.Relationship{}, err
	}
	r.Type = types.RelationshipType(relType)
	if r.Evidence, err = decodeList[string](evidence); err != nil {
		return types.Relationship{}, fmt.Errorf("decode evidence: %w", err)
	}
	r.LastObservedAt = parseTime(observed)
	r.CreatedAt = parseTime(created)
	return r, nil
}

func lastN(in []string, n int) []string {
	if n > 0 && len(in) > n {
		in = in[len(in)-n:]
	}
	return append([]string(nil), in...)
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
