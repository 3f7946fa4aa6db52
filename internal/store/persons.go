package store

import (
	"context"
	"fmt"
	"sort"

	"team-insights-go/internal/types"
)

// Team members and contacts live in separate tables with slightly different
// columns. Both are mapped to types.Person here and nowhere else.

func (s *Store) AddPerson(ctx context.Context, p types.Person) (types.Person, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Source == "" {
		p.Source = types.SourceTeamMember
	}
	aliases := encodeList(p.Aliases)
	now := formatTime(s.now())

	var err error
	switch p.Source {
	case types.SourceTeamMember:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO team_members (id, project_id, name, role, organization, email, aliases, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, role = excluded.role, organization = excluded.organization,
				email = excluded.email, aliases = excluded.aliases`,
			p.ID, p.ProjectID, p.Name, p.Role, p.Organization, p.Email, aliases, now)
	case types.SourceContact:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO contacts (id, project_id, name, title, company, email, aliases, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, title = excluded.title, company = excluded.company,
				email = excluded.email, aliases = excluded.aliases`,
			p.ID, p.ProjectID, p.Name, p.Role, p.Organization, p.Email, aliases, now)
	default:
		return types.Person{}, fmt.Errorf("store: unknown person source %q", p.Source)
	}
	if err != nil {
		return types.Person{}, fmt.Errorf("store: save person: %w", err)
	}
	return p, nil
}

// GetPerson looks the id up in team_members first, then contacts.
func (s *Store) GetPerson(ctx context.Context, projectID, personID string) (*types.Person, error) {
	for _, q := range []struct {
		sql    string
		source types.PersonSource
	}{
		{`SELECT id, project_id, name, role, organization, email, aliases FROM team_members WHERE project_id = ? AND id = ?`, types.SourceTeamMember},
		{`SELECT id, project_id, name, title, company, email, aliases FROM contacts WHERE project_id = ? AND id = ?`, types.SourceContact},
	} {
		p, err := scanPerson(s.db.QueryRowContext(ctx, q.sql, projectID, personID), q.source)
		if isNoRows(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store: get person: %w", err)
		}
		return &p, nil
	}
	return nil, notFound("person", personID)
}

// ListPersons returns every team member and contact in the project, sorted
// by name.
func (s *Store) ListPersons(ctx context.Context, projectID string) ([]types.Person, error) {
	var out []types.Person
	for _, q := range []struct {
		sql    string
		source types.PersonSource
	}{
		{`SELECT id, project_id, name, role, organization, email, aliases FROM team_members WHERE project_id = ?`, types.SourceTeamMember},
		{`SELECT id, project_id, name, title, company, email, aliases FROM contacts WHERE project_id = ?`, types.SourceContact},
	} {
		rows, err := s.db.QueryContext(ctx, q.sql, projectID)
		if err != nil {
			return nil, fmt.Errorf("store: list persons: %w", err)
		}
		for rows.Next() {
			p, err := scanPerson(rows, q.source)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("store: scan person: %w", err)
			}
			out = append(out, p)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("store: list persons: %w", err)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func scanPerson(row rowScanner, source types.PersonSource) (types.Person, error) {
	var (
		p       types.Person
		aliases string
	)
	err := row.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Role, &p.Organization, &p.Email, &aliases)
	if err != nil {
		return types.Person{}, err
	}
	if p.Aliases, err = decodeList[string](aliases); err != nil {
		return types.Person{}, fmt.Errorf("decode aliases: %w", err)
	}
	p.Source = source
	return p, nil
}
