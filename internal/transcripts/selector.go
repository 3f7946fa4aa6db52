// Package transcripts selects the transcripts that mention a person,
// hydrating missing content from secondary sources on the way.
package transcripts

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"team-insights-go/internal/logger"
	"team-insights-go/internal/names"
	"team-insights-go/internal/types"
)

// Store is the document storage the selector reads from and caches into.
type Store interface {
	ListTranscripts(ctx context.Context, projectID string) ([]types.Transcript, error)
	UpdateDocumentContent(ctx context.Context, id, content string) error
}

// ContentSource loads transcript text kept outside the document row.
type ContentSource interface {
	Name() string
	Fetch(ctx context.Context, t types.Transcript) (string, error)
}

type Selector struct {
	store   Store
	sources []ContentSource
	log     *logrus.Entry
}

// NewSelector returns a Selector that tries sources in order when a
// transcript has no cached content.
func NewSelector(store Store, log *logrus.Entry, sources ...ContentSource) *Selector {
	return &Selector{store: store, sources: sources, log: logger.OrDiscard(log, "transcript-selector")}
}

// Select returns every processed transcript whose participants or text
// match the person's name variants. Hydration failures are logged and the
// transcript is still considered with whatever content it has.
func (s *Selector) Select(ctx context.Context, projectID, name string, aliases []string) ([]types.Transcript, error) {
	all, err := s.store.ListTranscripts(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}

	m := names.NewMatcher(name, aliases)
	var out []types.Transcript
	for _, t := range all {
		if strings.TrimSpace(t.Content) == "" {
			t.Content = s.hydrate(ctx, t)
		}
		if m.InParticipants(t.Extraction.Participants) || m.InText(t.Content) {
			out = append(out, t)
		}
	}

	s.log.WithFields(logrus.Fields{
		"project_id": projectID,
		"person":     name,
		"total":      len(all),
		"matched":    len(out),
	}).Info("transcripts selected")
	return out, nil
}

func (s *Selector) hydrate(ctx context.Context, t types.Transcript) string {
	log := s.log.WithField("document_id", t.ID)
	for _, src := range s.sources {
		content, err := src.Fetch(ctx, t)
		if err != nil {
			log.WithError(err).WithField("source", src.Name()).Warn("transcript hydration failed")
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		if err := s.store.UpdateDocumentContent(ctx, t.ID, content); err != nil {
			log.WithError(err).Warn("caching hydrated content failed")
		}
		log.WithField("source", src.Name()).Debug("transcript hydrated")
		return content
	}
	return t.Content
}

// IDs returns the transcript ids in order.
func IDs(ts []types.Transcript) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
