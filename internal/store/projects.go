package store

import (
	"context"
	"encoding/json"
	"fmt"

	"team-insights-go/internal/types"
)

func (s *Store) CreateProject(ctx context.Context, p types.Project) (types.Project, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if p.AccessPolicy == "" {
		p.AccessPolicy = types.AccessAdminOnly
	}
	cfg := p.LLMConfig
	if cfg == nil {
		cfg = map[string]any{}
	}
	cfgJSON, err := encodeJSON(cfg)
	if err != nil {
		return types.Project{}, fmt.Errorf("store: encode llm config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, owner_id, behavioral_enabled, access_policy,
			llm_provider, llm_model, llm_config, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			owner_id = excluded.owner_id,
			behavioral_enabled = excluded.behavioral_enabled,
			access_policy = excluded.access_policy,
			llm_provider = excluded.llm_provider,
			llm_model = excluded.llm_model,
			llm_config = excluded.llm_config`,
		p.ID, p.Name, p.OwnerID, boolInt(p.BehavioralEnabled), string(p.AccessPolicy),
		p.LLMProvider, p.LLMModel, cfgJSON, formatTime(p.CreatedAt),
	)
	if err != nil {
		return types.Project{}, fmt.Errorf("store: save project: %w", err)
	}
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*types.Project, error) {
	var (
		p       types.Project
		enabled int
		policy  string
		cfgJSON string
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, behavioral_enabled, access_policy,
			llm_provider, llm_model, llm_config, created_at
		FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.OwnerID, &enabled, &policy, &p.LLMProvider, &p.LLMModel, &cfgJSON, &created)
	if isNoRows(err) {
		return nil, notFound("project", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project: %w", err)
	}
	p.BehavioralEnabled = enabled != 0
	p.AccessPolicy = types.AccessPolicy(policy)
	p.CreatedAt = parseTime(created)
	if cfgJSON != "" && cfgJSON != "{}" {
		if err := json.Unmarshal([]byte(cfgJSON), &p.LLMConfig); err != nil {
			return nil, fmt.Errorf("store: decode llm config: %w", err)
		}
	}
	return &p, nil
}

func (s *Store) SetMemberRole(ctx context.Context, projectID, userID string, role types.MemberRole) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT(project_id, user_id) DO UPDATE SET role = excluded.role`,
		projectID, userID, string(role),
	)
	if err != nil {
		return fmt.Errorf("store: set member role: %w", err)
	}
	return nil
}

// MemberRole returns the user's role in the project; ok is false when the
// user is not a member.
func (s *Store) MemberRole(ctx context.Context, projectID, userID string) (role types.MemberRole, ok bool, err error) {
	var r string
	err = s.db.QueryRowContext(ctx,
		`SELECT role FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	).Scan(&r)
	if isNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: member role: %w", err)
	}
	return types.MemberRole(r), true, nil
}
