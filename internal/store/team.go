package store

import (
	"context"
	"encoding/json"
	"fmt"

	"team-insights-go/internal/types"
)

// teamPayload is the JSON column holding the model-derived parts of a team
// analysis.
type teamPayload struct {
	DominantPattern string                 `json:"dominant_communication_pattern,omitempty"`
	InfluenceMap    []types.InfluenceEntry `json:"influence_map"`
	Alliances       []types.Alliance       `json:"alliances"`
	Tensions        []types.Tension        `json:"tensions"`
	Summary         string                 `json:"summary,omitempty"`
	Recommendations []string               `json:"recommendations,omitempty"`
}

func (s *Store) GetTeamAnalysis(ctx context.Context, projectID string) (*types.TeamAnalysis, error) {
	var (
		a                             types.TeamAnalysis
		payload, members, transcripts string
		analyzed, created, updated    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, cohesion_score, tension_level, analysis, member_ids, transcript_ids,
			analyzed_at, created_at, updated_at
		FROM team_analyses WHERE project_id = ?`, projectID,
	).Scan(&a.ID, &a.ProjectID, &a.CohesionScore, &a.TensionLevel, &payload, &members, &transcripts,
		&analyzed, &created, &updated)
	if isNoRows(err) {
		return nil, notFound("team analysis", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get team analysis: %w", err)
	}

	var tp teamPayload
	if err := json.Unmarshal([]byte(payload), &tp); err != nil {
		return nil, fmt.Errorf("store: decode team analysis: %w", err)
	}
	a.DominantPattern = tp.DominantPattern
	a.InfluenceMap = tp.InfluenceMap
	a.Alliances = tp.Alliances
	a.Tensions = tp.Tensions
	a.Summary = tp.Summary
	a.Recommendations = tp.Recommendations
	if a.MemberIDs, err = decodeList[string](members); err != nil {
		return nil, fmt.Errorf("store: decode team members: %w", err)
	}
	if a.TranscriptIDs, err = decodeList[string](transcripts); err != nil {
		return nil, fmt.Errorf("store: decode team transcripts: %w", err)
	}
	a.AnalyzedAt = parseTime(analyzed)
	a.CreatedAt = parseTime(created)
	a.UpdatedAt = parseTime(updated)
	return &a, nil
}

// UpsertTeamAnalysis writes the analysis keyed by project.
func (s *Store) UpsertTeamAnalysis(ctx context.Context, a *types.TeamAnalysis) error {
	if a.ID == "" {
		a.ID = newID()
	}
	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.AnalyzedAt.IsZero() {
		a.AnalyzedAt = now
	}
	a.UpdatedAt = now

	payload, err := encodeJSON(teamPayload{
		DominantPattern: a.DominantPattern,
		InfluenceMap:    a.InfluenceMap,
		Alliances:       a.Alliances,
		Tensions:        a.Tensions,
		Summary:         a.Summary,
		Recommendations: a.Recommendations,
	})
	if err != nil {
		return fmt.Errorf("store: encode team analysis: %w", err)
	}

	var id, created string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO team_analyses (id, project_id, cohesion_score, tension_level, analysis,
			member_ids, transcript_ids, analyzed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			cohesion_score = excluded.cohesion_score,
			tension_level = excluded.tension_level,
			analysis = excluded.analysis,
			member_ids = excluded.member_ids,
			transcript_ids = excluded.transcript_ids,
			analyzed_at = excluded.analyzed_at,
			updated_at = excluded.updated_at
		RETURNING id, created_at`,
		a.ID, a.ProjectID, a.CohesionScore, a.TensionLevel, payload,
		encodeList(a.MemberIDs), encodeList(a.TranscriptIDs),
		formatTime(a.AnalyzedAt), formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	).Scan(&id, &created)
	if err != nil {
		return fmt.Errorf("store: upsert team analysis: %w", err)
	}
	a.ID = id
	a.CreatedAt = parseTime(created)
	return nil
}
