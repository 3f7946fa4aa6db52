package store

import (
	"context"
	"encoding/json"
	"fmt"

	"team-insights-go/internal/types"
)

func (s *Store) AddDocument(ctx context.Context, d types.Transcript) (types.Transcript, error) {
	if d.ID == "" {
		d.ID = newID()
	}
	if d.Kind == "" {
		d.Kind = types.DocumentKindTranscript
	}
	if d.Status == "" {
		d.Status = types.DocumentStatusProcessed
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	extraction, err := encodeJSON(d.Extraction)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("store: encode extraction: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, project_id, title, kind, status, content, file_ref, file_name, extraction, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.Title, d.Kind, d.Status, d.Content, d.FileRef, d.FileName, extraction, formatTime(d.CreatedAt),
	)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("store: add document: %w", err)
	}
	return d, nil
}

const documentColumns = `id, project_id, title, kind, status, content, file_ref, file_name, extraction, created_at`

func (s *Store) GetDocument(ctx context.Context, projectID, id string) (*types.Transcript, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE project_id = ? AND id = ?`, projectID, id))
	if isNoRows(err) {
		return nil, notFound("document", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document: %w", err)
	}
	return &d, nil
}

// ListTranscripts returns the project's transcript documents whose status is
// processed or completed, oldest first.
func (s *Store) ListTranscripts(ctx context.Context, projectID string) ([]types.Transcript, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE project_id = ? AND kind = ? AND status IN (?, ?)
		ORDER BY created_at, id`,
		projectID, types.DocumentKindTranscript, types.DocumentStatusProcessed, types.DocumentStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list transcripts: %w", err)
	}
	defer rows.Close()

	var out []types.Transcript
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDocumentContent caches hydrated transcript text on the document.
func (s *Store) UpdateDocumentContent(ctx context.Context, id, content string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET content = ? WHERE id = ?`, content, id)
	if err != nil {
		return fmt.Errorf("store: update document content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("document", id)
	}
	return nil
}

func scanDocument(row rowScanner) (types.Transcript, error) {
	var (
		d          types.Transcript
		extraction string
		created    string
	)
	err := row.Scan(&d.ID, &d.ProjectID, &d.Title, &d.Kind, &d.Status, &d.Content,
		&d.FileRef, &d.FileName, &extraction, &created)
	if err != nil {
		return types.Transcript{}, err
	}
	if extraction != "" {
		if err := json.Unmarshal([]byte(extraction), &d.Extraction); err != nil {
			return types.Transcript{}, fmt.Errorf("decode extraction: %w", err)
		}
	}
	d.CreatedAt = parseTime(created)
	return d, nil
}
