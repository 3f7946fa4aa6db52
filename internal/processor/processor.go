// Package processor refreshes behavioral profiles after a transcript is
// ingested and then re-runs team dynamics.
package processor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"team-insights-go/internal/logger"
	"team-insights-go/internal/names"
	"team-insights-go/internal/profile"
	"team-insights-go/internal/team"
	"team-insights-go/internal/types"
)

type Store interface {
	ListPersons(ctx context.Context, projectID string) ([]types.Person, error)
	ListProfiles(ctx context.Context, projectID string) ([]types.BehavioralProfile, error)
}

type PersonAnalyzer interface {
	AnalyzePerson(ctx context.Context, projectID, personID string, opts profile.Options) (*profile.Result, error)
}

type TeamAnalyzer interface {
	AnalyzeTeam(ctx context.Context, projectID string, opts team.Options) (*team.Result, error)
}

type Processor struct {
	store   Store
	persons PersonAnalyzer
	team    TeamAnalyzer
	log     *logrus.Entry
}

func New(store Store, persons PersonAnalyzer, teamAnalyzer TeamAnalyzer, log *logrus.Entry) *Processor {
	return &Processor{store: store, persons: persons, team: teamAnalyzer, log: logger.OrDiscard(log, "processor")}
}

// PersonOutcome is the result for one participant of the batch.
type PersonOutcome struct {
	PersonID string       `json:"person_id"`
	Name     string       `json:"name"`
	Mode     profile.Mode `json:"mode,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// IngestResult is returned by TranscriptIngested. Unmatched lists names that
// did not resolve to exactly one person.
type IngestResult struct {
	DocumentID string          `json:"document_id"`
	Persons    []PersonOutcome `json:"persons"`
	Unmatched  []string        `json:"unmatched,omitempty"`
	Team       *team.Result    `json:"team,omitempty"`
	TeamError  string          `json:"team_error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
}

// TranscriptIngested analyzes every named participant one at a time. A
// failure for one person is recorded in its outcome and the batch moves on.
// Team dynamics are refreshed afterwards when the project has at least two
// profiles; that step is also best-effort. Only a failure to list the
// project's people, or cancellation, fails the call.
func (p *Processor) TranscriptIngested(ctx context.Context, projectID, documentID string, participantNames []string) (*IngestResult, error) {
	start := time.Now()
	log := p.log.WithFields(logrus.Fields{"project_id": projectID, "document_id": documentID})
	res := &IngestResult{DocumentID: documentID}

	people, err := p.store.ListPersons(ctx, projectID)
	if err != nil {
		return nil, err
	}
	targets, unmatched := Resolve(participantNames, people)
	res.Unmatched = unmatched
	if len(unmatched) > 0 {
		log.WithField("names", unmatched).Warn("participants not matched to a person")
	}

	for _, person := range targets {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out := PersonOutcome{PersonID: person.ID, Name: person.Name}
		r, err := p.persons.AnalyzePerson(ctx, projectID, person.ID, profile.Options{
			Trigger:             types.TriggerAutomatic,
			TriggerTranscriptID: documentID,
		})
		if err != nil {
			out.Error = err.Error()
			log.WithError(err).WithField("person_id", person.ID).Warn("person analysis failed, continuing batch")
		} else {
			out.Mode = r.Mode
			out.Warnings = r.Warnings
		}
		res.Persons = append(res.Persons, out)
	}

	profiles, err := p.store.ListProfiles(ctx, projectID)
	switch {
	case err != nil:
		res.TeamError = err.Error()
		log.WithError(err).Warn("could not list profiles for team refresh")
	case len(profiles) >= 2:
		tr, err := p.team.AnalyzeTeam(ctx, projectID, team.Options{
			Trigger:             types.TriggerAutomatic,
			TriggerTranscriptID: documentID,
		})
		if err != nil {
			res.TeamError = err.Error()
			log.WithError(err).Warn("team dynamics refresh failed")
		} else {
			res.Team = tr
		}
	}

	res.DurationMs = time.Since(start).Milliseconds()
	log.WithFields(logrus.Fields{
		"persons":     len(res.Persons),
		"unmatched":   len(res.Unmatched),
		"duration_ms": res.DurationMs,
	}).Info("transcript ingestion processed")
	return res, nil
}

// Resolve maps participant names to people. An exact (case-insensitive)
// name match wins; otherwise the name must match the variants of exactly
// one person. Each person appears at most once, in first-mention order.
func Resolve(participantNames []string, people []types.Person) ([]types.Person, []string) {
	var (
		out       []types.Person
		unmatched []string
		seen      = map[string]bool{}
	)
	for _, raw := range participantNames {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		person, err := resolveOne(name, people)
		if err != nil {
			unmatched = append(unmatched, name)
			continue
		}
		if !seen[person.ID] {
			seen[person.ID] = true
			out = append(out, person)
		}
	}
	return out, unmatched
}

var (
	errNoMatch   = errors.New("no matching person")
	errAmbiguous = errors.New("name matches several people")
)

func resolveOne(name string, people []types.Person) (types.Person, error) {
	for _, p := range people {
		if strings.EqualFold(strings.Join(strings.Fields(p.Name), " "), strings.Join(strings.Fields(name), " ")) {
			return p, nil
		}
	}
	var hits []types.Person
	for _, p := range people {
		if names.NewMatcher(p.Name, p.Aliases).IsSpeaker(name) {
			hits = append(hits, p)
		}
	}
	switch len(hits) {
	case 0:
		return types.Person{}, errNoMatch
	case 1:
		return hits[0], nil
	}
	return types.Person{}, errAmbiguous
}
