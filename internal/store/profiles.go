package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"team-insights-go/internal/types"
)

const profileColumns = `id, project_id, person_id, person_name, profile_data, confidence_level,
	communication_style, dominant_motivation, risk_tolerance, influence_score,
	total_speaking_time, total_interventions, total_words, avg_words_per_intervention,
	transcripts_analyzed, evidence_count, last_analysis_at, last_incremental_at,
	created_at, updated_at`

func (s *Store) GetProfile(ctx context.Context, projectID, personID string) (*types.BehavioralProfile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE project_id = ? AND person_id = ?`, projectID, personID))
	if isNoRows(err) {
		return nil, notFound("profile", personID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get profile: %w", err)
	}
	return &p, nil
}

func (s *Store) ListProfiles(ctx context.Context, projectID string) ([]types.BehavioralProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE project_id = ? ORDER BY person_name, person_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list profiles: %w", err)
	}
	defer rows.Close()

	var out []types.BehavioralProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertProfile writes the profile keyed by (project, person). The stored id
// and created_at of an existing row are kept and copied back into p.
func (s *Store) UpsertProfile(ctx context.Context, p *types.BehavioralProfile) error {
	if p.ID == "" {
		p.ID = newID()
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	data, err := json.Marshal(p.ProfileData)
	if err != nil {
		return fmt.Errorf("store: encode profile data: %w", err)
	}
	var incremental sql.NullString
	if p.LastIncrementalAt != nil {
		incremental = sql.NullString{String: formatTime(*p.LastIncrementalAt), Valid: true}
	}

	var id, created string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, person_id) DO UPDATE SET
			person_name = excluded.person_name,
			profile_data = excluded.profile_data,
			confidence_level = excluded.confidence_level,
			communication_style = excluded.communication_style,
			dominant_motivation = excluded.dominant_motivation,
			risk_tolerance = excluded.risk_tolerance,
			influence_score = excluded.influence_score,
			total_speaking_time = excluded.total_speaking_time,
			total_interventions = excluded.total_interventions,
			total_words = excluded.total_words,
			avg_words_per_intervention = excluded.avg_words_per_intervention,
			transcripts_analyzed = excluded.transcripts_analyzed,
			evidence_count = excluded.evidence_count,
			last_analysis_at = excluded.last_analysis_at,
			last_incremental_at = excluded.last_incremental_at,
			updated_at = excluded.updated_at
		RETURNING id, created_at`,
		p.ID, p.ProjectID, p.PersonID, p.PersonName, string(data), string(p.ConfidenceLevel),
		p.CommunicationStyle, p.DominantMotivation, p.RiskTolerance, p.InfluenceScore,
		p.TotalSpeakingTime, p.TotalInterventions, p.TotalWords, p.AvgWordsPerIntervention,
		encodeList(p.TranscriptsAnalyzed), p.EvidenceCount, formatTime(p.LastAnalysisAt), incremental,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	).Scan(&id, &created)
	if err != nil {
		return fmt.Errorf("store: upsert profile: %w", err)
	}
	p.ID = id
	p.CreatedAt = parseTime(created)
	return nil
}

func scanProfile(row rowScanner) (types.BehavioralProfile, error) {
	var (
		p           types.BehavioralProfile
		data        string
		confidence  string
		transcripts string
		lastFull    string
		lastIncr    sql.NullString
		created     string
		updated     string
	)
	err := row.Scan(&p.ID, &p.ProjectID, &p.PersonID, &p.PersonName, &data, &confidence,
		&p.CommunicationStyle, &p.DominantMotivation, &p.RiskTolerance, &p.InfluenceScore,
		&p.TotalSpeakingTime, &p.TotalInterventions, &p.TotalWords, &p.AvgWordsPerIntervention,
		&transcripts, &p.EvidenceCount, &lastFull, &lastIncr, &created, &updated)
	if err != nil {
		return types.BehavioralProfile{}, err
	}
	if err := json.Unmarshal([]byte(data), &p.ProfileData); err != nil {
		return types.BehavioralProfile{}, fmt.Errorf("decode profile data: %w", err)
	}
	p.ConfidenceLevel = types.ConfidenceLevel(confidence)
	if p.TranscriptsAnalyzed, err = decodeList[string](transcripts); err != nil {
		return types.BehavioralProfile{}, fmt.Errorf("decode transcripts analyzed: %w", err)
	}
	p.LastAnalysisAt = parseTime(lastFull)
	if lastIncr.Valid {
		t := parseTime(lastIncr.String)
		p.LastIncrementalAt = &t
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}
