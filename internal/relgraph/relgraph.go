// Package relgraph turns a team-dynamics analysis into typed, weighted
// edges between people and upserts them.
package relgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"team-insights-go/internal/logger"
	"team-insights-go/internal/types"
)

// Store applies one observation to the edge keyed by (project, from, to,
// type) atomically.
type Store interface {
	UpsertRelationship(ctx context.Context, obs types.RelationshipObservation, maxEvidence int) (types.Relationship, error)
}

var tensionStrength = map[string]float64{
	"high":   0.9,
	"medium": 0.6,
	"low":    0.3,
}

type Synchronizer struct {
	store           Store
	maxEvidence     int
	defaultStrength float64
	log             *logrus.Entry
}

func NewSynchronizer(store Store, maxEvidence int, defaultStrength float64, log *logrus.Entry) *Synchronizer {
	if maxEvidence <= 0 {
		maxEvidence = 10
	}
	return &Synchronizer{
		store:           store,
		maxEvidence:     maxEvidence,
		defaultStrength: defaultStrength,
		log:             logger.OrDiscard(log, "relgraph"),
	}
}

// Stats counts what a Sync did. Skipped counts signals with a mention that
// did not resolve to a person.
type Stats struct {
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Sync upserts one edge per influence entry, one aligned_with edge per pair
// of alliance members and one tension_with edge per tension. profiles must
// be in the order they were presented to the model so Person_N placeholders
// resolve. Upsert failures do not stop the run and are returned joined.
func (s *Synchronizer) Sync(ctx context.Context, projectID string, a *types.TeamAnalysis, profiles []types.BehavioralProfile) (Stats, error) {
	var (
		stats Stats
		errs  []error
	)
	lookup := NewLookup(profiles)
	observed := a.AnalyzedAt

	upsert := func(from, to string, typ types.RelationshipType, strength float64, evidence string) {
		if from == to {
			stats.Skipped++
			return
		}
		obs := types.RelationshipObservation{
			ProjectID:    projectID,
			FromPersonID: from,
			ToPersonID:   to,
			Type:         typ,
			Strength:     strength,
			ObservedAt:   observed,
		}
		if evidence != "" {
			obs.Evidence = []string{evidence}
		}
		if _, err := s.store.UpsertRelationship(ctx, obs, s.maxEvidence); err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("%s %s->%s: %w", typ, from, to, err))
			return
		}
		stats.Upserted++
	}

	for _, e := range a.InfluenceMap {
		from, okFrom := lookup.Resolve(e.From)
		to, okTo := lookup.Resolve(e.To)
		if !okFrom || !okTo {
			stats.Skipped++
			continue
		}
		strength := s.defaultStrength
		if e.Strength != nil {
			strength = *e.Strength
		}
		upsert(from, to, types.RelInfluences, strength, firstNonEmpty(e.Evidence, e.Mechanism))
	}

	for _, al := range a.Alliances {
		ids := lookup.ResolveAll(al.Members)
		if len(ids) < len(al.Members) {
			stats.Skipped += len(al.Members) - len(ids)
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				upsert(ids[i], ids[j], types.RelAlignedWith, s.defaultStrength, firstNonEmpty(al.Evidence, al.Basis))
			}
		}
	}

	for _, tn := range a.Tensions {
		if len(tn.Members) < 2 {
			stats.Skipped++
			continue
		}
		from, okFrom := lookup.Resolve(tn.Members[0])
		to, okTo := lookup.Resolve(tn.Members[1])
		if !okFrom || !okTo {
			stats.Skipped++
			continue
		}
		strength, ok := tensionStrength[strings.ToLower(strings.TrimSpace(tn.Level))]
		if !ok {
			strength = s.defaultStrength
		}
		upsert(from, to, types.RelTensionWith, strength, firstNonEmpty(tn.Evidence, tn.Topic))
	}

	s.log.WithFields(logrus.Fields{
		"project_id": projectID,
		"upserted":   stats.Upserted,
		"skipped":    stats.Skipped,
		"failed":     stats.Failed,
	}).Info("relationship graph synced")
	return stats, errors.Join(errs...)
}

// Lookup resolves person mentions from model output to person ids.
type Lookup map[string]string

// NewLookup maps each profile's full name, first name, Person_N placeholder
// and id (all lowercase) to its person id. Earlier profiles win on
// collisions.
func NewLookup(profiles []types.BehavioralProfile) Lookup {
	l := Lookup{}
	add := func(key, id string) {
		if key == "" {
			return
		}
		if _, taken := l[key]; !taken {
			l[key] = id
		}
	}
	for i, p := range profiles {
		full := normalize(p.PersonName)
		add(full, p.PersonID)
		if fields := strings.Fields(full); len(fields) > 0 {
			add(fields[0], p.PersonID)
		}
		add(Placeholder(i), p.PersonID)
		add(strings.ToLower(p.PersonID), p.PersonID)
	}
	return l
}

// Placeholder is the lowercase positional reference for the i-th profile
// (zero-based), e.g. "person_1".
func Placeholder(i int) string {
	return fmt.Sprintf("person_%d", i+1)
}

func (l Lookup) Resolve(mention string) (string, bool) {
	m := normalize(mention)
	if m == "" {
		return "", false
	}
	if id, ok := l[m]; ok {
		return id, true
	}
	if id, ok := l[strings.ReplaceAll(m, " ", "_")]; ok {
		return id, true
	}
	if fields := strings.Fields(m); len(fields) > 1 {
		if id, ok := l[fields[0]]; ok {
			return id, true
		}
	}
	return "", false
}

// ResolveAll resolves mentions, dropping unresolved ones and duplicates.
func (l Lookup) ResolveAll(mentions []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range mentions {
		id, ok := l.Resolve(m)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// normalize lowercases, drops a trailing parenthetical such as a role and
// collapses whitespace.
func normalize(s string) string {
	if i := strings.Index(s, "("); i > 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
