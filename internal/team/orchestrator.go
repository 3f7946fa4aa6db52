// Package team computes the project-level dynamics analysis from the
// individual behavioral profiles and keeps it fresh.
package team

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"team-insights-go/internal/llm"
	"team-insights-go/internal/logger"
	"team-insights-go/internal/prompts"
	"team-insights-go/internal/relgraph"
	"team-insights-go/internal/types"
)

type Store interface {
	GetProject(ctx context.Context, projectID string) (*types.Project, error)
	GetPerson(ctx context.Context, projectID, personID string) (*types.Person, error)
	ListProfiles(ctx context.Context, projectID string) ([]types.BehavioralProfile, error)
	GetTeamAnalysis(ctx context.Context, projectID string) (*types.TeamAnalysis, error)
	UpsertTeamAnalysis(ctx context.Context, a *types.TeamAnalysis) error
	AddHistory(ctx context.Context, h types.HistorySnapshot) error
}

type PromptLibrary interface {
	Get(ctx context.Context, key string) string
}

// GraphSync turns a saved analysis into relationship edges.
type GraphSync interface {
	Sync(ctx context.Context, projectID string, a *types.TeamAnalysis, profiles []types.BehavioralProfile) (relgraph.Stats, error)
}

type Deps struct {
	Store     Store
	Prompts   PromptLibrary
	Generator llm.Generator
	Graph     GraphSync
	Now       func() time.Time
}

type Settings struct {
	DefaultProvider string
	DefaultModel    string
	Temperature     float64
	MaxTokens       int
}

type Orchestrator struct {
	deps     Deps
	settings Settings
	log      *logrus.Entry
}

func NewOrchestrator(deps Deps, settings Settings, log *logrus.Entry) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{deps: deps, settings: settings, log: logger.OrDiscard(log, "team-orchestrator")}
}

type Options struct {
	Force               bool
	Trigger             types.TriggerType
	TriggerTranscriptID string
}

// Result is the stored analysis plus what this call did to it. Graph and
// Warnings are only populated when Recomputed is true.
type Result struct {
	Analysis   *types.TeamAnalysis `json:"analysis"`
	Recomputed bool                `json:"recomputed"`
	Graph      relgraph.Stats      `json:"graph"`
	Warnings   []string            `json:"warnings,omitempty"`
}

// AnalyzeTeam returns the project's team analysis, recomputing it when it is
// missing, forced, built over a different member set or older than any
// profile.
func (o *Orchestrator) AnalyzeTeam(ctx context.Context, projectID string, opts Options) (*Result, error) {
	log := o.log.WithField("project_id", projectID)

	project, err := o.deps.Store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	profiles, err := o.deps.Store.ListProfiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(profiles) < 2 {
		return nil, fmt.Errorf("project %s has %d: %w", projectID, len(profiles), types.ErrInsufficientTeam)
	}

	existing, err := o.deps.Store.GetTeamAnalysis(ctx, projectID)
	if errors.Is(err, types.ErrNotFound) {
		existing, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	members := memberIDs(profiles)
	reason := Stale(existing, profiles, members, opts.Force)
	if reason == "" {
		log.Info("team analysis is current, returning cached")
		return &Result{Analysis: existing}, nil
	}
	log = log.WithField("reason", reason)

	settings, err := llm.ResolveSettings(project, o.settings.DefaultProvider, o.settings.DefaultModel)
	if err != nil {
		return nil, err
	}

	prompt := prompts.Render(o.deps.Prompts.Get(ctx, prompts.KeyTeamDynamics), map[string]string{
		"MEMBER_COUNT":  strconv.Itoa(len(profiles)),
		"TEAM_PROFILES": o.teamProfiles(ctx, projectID, profiles),
	})
	text, err := llm.Call(ctx, o.deps.Generator, llm.Request{
		Provider:    settings.Provider,
		Model:       settings.Model,
		Config:      settings.Config,
		Prompt:      prompt,
		Temperature: o.settings.Temperature,
		MaxTokens:   o.settings.MaxTokens,
		ContextTag:  llm.TagTeamDynamics,
		ProjectID:   projectID,
	})
	if err != nil {
		return nil, err
	}
	var parsed types.TeamAnalysis
	if err := llm.Decode(text, &parsed); err != nil {
		return nil, err
	}

	a := &types.TeamAnalysis{
		ProjectID:       projectID,
		CohesionScore:   normalizeCohesion(parsed.CohesionScore),
		TensionLevel:    strings.ToLower(strings.TrimSpace(parsed.TensionLevel)),
		DominantPattern: parsed.DominantPattern,
		InfluenceMap:    parsed.InfluenceMap,
		Alliances:       parsed.Alliances,
		Tensions:        parsed.Tensions,
		Summary:         parsed.Summary,
		Recommendations: parsed.Recommendations,
		MemberIDs:       members,
		TranscriptIDs:   transcriptIDs(profiles),
		AnalyzedAt:      o.deps.Now(),
	}
	if existing != nil {
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	}
	if err := o.deps.Store.UpsertTeamAnalysis(ctx, a); err != nil {
		return nil, fmt.Errorf("save team analysis: %w", err)
	}

	res := &Result{Analysis: a, Recomputed: true}

	trigger := opts.Trigger
	if trigger == "" {
		trigger = types.TriggerManual
	}
	if err := o.writeHistory(ctx, a, trigger, opts.TriggerTranscriptID); err != nil {
		res.Warnings = append(res.Warnings, "history not saved: "+err.Error())
		log.WithError(err).WithField("secondary_write", "history").Warn("secondary write failed")
	}

	if o.deps.Graph != nil {
		stats, err := o.deps.Graph.Sync(ctx, projectID, a, profiles)
		res.Graph = stats
		if err != nil {
			res.Warnings = append(res.Warnings, "relationships not fully saved: "+err.Error())
			log.WithError(err).WithField("secondary_write", "relationships").Warn("secondary write failed")
		}
	}

	log.WithFields(logrus.Fields{
		"members":  len(members),
		"cohesion": a.CohesionScore,
		"tension":  a.TensionLevel,
	}).Info("team dynamics analyzed")
	return res, nil
}

// Stale returns why the stored analysis must be recomputed, or "" when it is
// current. members must be sorted.
func Stale(existing *types.TeamAnalysis, profiles []types.BehavioralProfile, members []string, force bool) string {
	switch {
	case existing == nil:
		return "no previous analysis"
	case force:
		return "forced"
	}
	prev := slices.Clone(existing.MemberIDs)
	slices.Sort(prev)
	if !slices.Equal(prev, members) {
		return "membership changed"
	}
	for i := range profiles {
		if profiles[i].LastAnalyzed().After(existing.AnalyzedAt) {
			return "profile updated"
		}
	}
	return ""
}

// teamMember is the per-person payload sent to the model. Ref is the
// positional placeholder the graph sync also understands.
type teamMember struct {
	Ref                 string   `json:"ref"`
	Name                string   `json:"name"`
	Role                string   `json:"role,omitempty"`
	Organization        string   `json:"organization,omitempty"`
	CommunicationStyle  string   `json:"communication_style,omitempty"`
	DominantMotivation  string   `json:"dominant_motivation,omitempty"`
	RiskTolerance       string   `json:"risk_tolerance,omitempty"`
	InfluenceScore      int      `json:"influence_score"`
	InfluenceTactics    []string `json:"influence_tactics,omitempty"`
	BehaviorUnderStress []string `json:"behavior_under_pressure,omitempty"`
	Triggers            []string `json:"triggers,omitempty"`
	Confidence          string   `json:"confidence_level"`
}

func (o *Orchestrator) teamProfiles(ctx context.Context, projectID string, profiles []types.BehavioralProfile) string {
	out := make([]teamMember, 0, len(profiles))
	for i, p := range profiles {
		m := teamMember{
			Ref:                 "Person_" + strconv.Itoa(i+1),
			Name:                p.PersonName,
			CommunicationStyle:  p.CommunicationStyle,
			DominantMotivation:  p.DominantMotivation,
			RiskTolerance:       p.RiskTolerance,
			InfluenceScore:      p.InfluenceScore,
			InfluenceTactics:    texts(p.ProfileData.InfluenceTactics),
			BehaviorUnderStress: texts(p.ProfileData.BehaviorUnderPressure),
			Triggers:            texts(p.ProfileData.Vulnerabilities.Triggers),
			Confidence:          string(p.ConfidenceLevel),
		}
		if person, err := o.deps.Store.GetPerson(ctx, projectID, p.PersonID); err == nil {
			m.Role = person.Role
			m.Organization = person.Organization
		} else {
			o.log.WithError(err).WithField("person_id", p.PersonID).Debug("person identity unavailable")
		}
		out = append(out, m)
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	return string(b)
}

func (o *Orchestrator) writeHistory(ctx context.Context, a *types.TeamAnalysis, trigger types.TriggerType, transcriptID string) error {
	snap, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return o.deps.Store.AddHistory(ctx, types.HistorySnapshot{
		ProjectID:           a.ProjectID,
		Kind:                types.HistoryTeam,
		SubjectID:           a.ProjectID,
		Snapshot:            snap,
		Trigger:             trigger,
		TriggerTranscriptID: transcriptID,
	})
}

// normalizeCohesion accepts either a 0..1 fraction or a 0..100 percentage.
func normalizeCohesion(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	return min(max(v, 0), 1)
}

func memberIDs(profiles []types.BehavioralProfile) []string {
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.PersonID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func transcriptIDs(profiles []types.BehavioralProfile) []string {
	var ids []string
	for _, p := range profiles {
		ids = append(ids, p.TranscriptsAnalyzed...)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func texts(items []any) []string {
	var out []string
	for _, it := range items {
		if s := types.ItemText(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}
