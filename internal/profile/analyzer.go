// Package profile builds and refines a person's behavioral profile from the
// transcripts that mention them.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"team-insights-go/internal/interventions"
	"team-insights-go/internal/llm"
	"team-insights-go/internal/logger"
	"team-insights-go/internal/metrics"
	"team-insights-go/internal/prompts"
	"team-insights-go/internal/transcripts"
	"team-insights-go/internal/types"
)

type Store interface {
	GetProject(ctx context.Context, projectID string) (*types.Project, error)
	GetPerson(ctx context.Context, projectID, personID string) (*types.Person, error)
	GetProfile(ctx context.Context, projectID, personID string) (*types.BehavioralProfile, error)
	UpsertProfile(ctx context.Context, p *types.BehavioralProfile) error
	AddEvidence(ctx context.Context, items []types.Evidence) error
	AddHistory(ctx context.Context, h types.HistorySnapshot) error
}

type TranscriptSelector interface {
	Select(ctx context.Context, projectID, name string, aliases []string) ([]types.Transcript, error)
}

type InterventionExtractor interface {
	Extract(ctx context.Context, projectID, personID, name string, aliases []string, ts []types.Transcript) []types.TranscriptInterventions
}

type PromptLibrary interface {
	Get(ctx context.Context, key string) string
}

// Deps are the collaborators an Analyzer needs. Now defaults to time.Now.
type Deps struct {
	Store     Store
	Selector  TranscriptSelector
	Extractor InterventionExtractor
	Prompts   PromptLibrary
	Generator llm.Generator
	Now       func() time.Time
}

// Settings tune generation and prompt budgets.
type Settings struct {
	DefaultProvider            string
	DefaultModel               string
	Temperature                float64
	MaxTokens                  int
	MaxPromptTokens            int
	IncrementalMaxPromptTokens int
}

type Analyzer struct {
	deps     Deps
	settings Settings
	log      *logrus.Entry
}

func NewAnalyzer(deps Deps, settings Settings, log *logrus.Entry) *Analyzer {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Analyzer{deps: deps, settings: settings, log: logger.OrDiscard(log, "profile-analyzer")}
}

type Options struct {
	Force               bool
	Trigger             types.TriggerType
	TriggerTranscriptID string
}

// Result reports what an analysis did. Warnings lists secondary writes that
// failed after the profile itself was saved.
type Result struct {
	Profile          *types.BehavioralProfile `json:"profile"`
	Mode             Mode                     `json:"mode"`
	NewTranscriptIDs []string                 `json:"new_transcript_ids,omitempty"`
	Warnings         []string                 `json:"warnings,omitempty"`
}

// AnalyzePerson builds or refreshes the profile of one person. Nothing is
// written unless generation and parsing both succeed.
func (a *Analyzer) AnalyzePerson(ctx context.Context, projectID, personID string, opts Options) (*Result, error) {
	log := a.log.WithFields(logrus.Fields{"project_id": projectID, "person_id": personID})

	person, err := a.deps.Store.GetPerson(ctx, projectID, personID)
	if err != nil {
		return nil, err
	}
	project, err := a.deps.Store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	matching, err := a.deps.Selector.Select(ctx, projectID, person.Name, person.Aliases)
	if err != nil {
		return nil, err
	}
	if len(matching) == 0 {
		return nil, fmt.Errorf("%s: %w", person.Name, types.ErrNoTranscripts)
	}

	existing, err := a.deps.Store.GetProfile(ctx, projectID, personID)
	if errors.Is(err, types.ErrNotFound) {
		existing, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	decision := Decide(existing, transcripts.IDs(matching), opts.Force)
	log = log.WithField("mode", decision.Mode)
	if decision.Mode == ModeSkip {
		log.Info("profile is current, skipping analysis")
		return &Result{Profile: existing, Mode: ModeSkip}, nil
	}

	settings, err := llm.ResolveSettings(project, a.settings.DefaultProvider, a.settings.DefaultModel)
	if err != nil {
		return nil, err
	}

	extracted := a.deps.Extractor.Extract(ctx, projectID, personID, person.Name, person.Aliases, matching)

	var (
		data        types.ProfileData
		newEvidence []types.EvidenceItem
		analyzed    []types.Transcript
	)
	switch decision.Mode {
	case ModeIncremental:
		analyzed = subset(matching, decision.NewIDs)
		data, err = a.runIncremental(ctx, project.ID, settings, person, existing, analyzed, subsetResults(extracted, decision.NewIDs))
		if err != nil {
			return nil, err
		}
		newEvidence = data.NewEvidence
	default:
		analyzed = matching
		data, err = a.runFull(ctx, project.ID, settings, person, analyzed, extracted)
		if err != nil {
			return nil, err
		}
		newEvidence = data.Evidence
	}

	now := a.deps.Now()
	summary := metrics.Compute(extracted)
	p := &types.BehavioralProfile{
		ProjectID:               projectID,
		PersonID:                personID,
		PersonName:              person.Name,
		ProfileData:             data,
		ConfidenceLevel:         data.ConfidenceLevel,
		CommunicationStyle:      data.CommunicationStyle(),
		DominantMotivation:      data.DominantMotivation(),
		RiskTolerance:           data.Motivations.RiskTolerance,
		InfluenceScore:          metrics.InfluenceScore(data),
		TotalSpeakingTime:       summary.TotalSpeakingTime,
		TotalInterventions:      summary.TotalInterventions,
		TotalWords:              summary.TotalWords,
		AvgWordsPerIntervention: summary.AvgWordsPerIntervention,
		TranscriptsAnalyzed:     transcripts.IDs(matching),
		EvidenceCount:           len(newEvidence),
		LastAnalysisAt:          now,
	}
	if existing != nil {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		p.TranscriptsAnalyzed = union(existing.TranscriptsAnalyzed, p.TranscriptsAnalyzed)
		p.EvidenceCount += existing.EvidenceCount
		p.LastIncrementalAt = existing.LastIncrementalAt
	}
	if decision.Mode == ModeIncremental {
		p.LastIncrementalAt = &now
	}

	if err := a.deps.Store.UpsertProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	res := &Result{Profile: p, Mode: decision.Mode, NewTranscriptIDs: decision.NewIDs}

	if err := a.deps.Store.AddEvidence(ctx, toEvidence(p, newEvidence, analyzed)); err != nil {
		res.Warnings = append(res.Warnings, "evidence not saved: "+err.Error())
		log.WithError(err).WithField("secondary_write", "evidence").Warn("secondary write failed")
	}

	trigger := opts.Trigger
	if trigger == "" {
		trigger = types.TriggerManual
		if decision.Mode == ModeIncremental {
			trigger = types.TriggerIncremental
		}
	}
	if err := a.writeHistory(ctx, p, trigger, opts.TriggerTranscriptID); err != nil {
		res.Warnings = append(res.Warnings, "history not saved: "+err.Error())
		log.WithError(err).WithField("secondary_write", "history").Warn("secondary write failed")
	}

	log.WithFields(logrus.Fields{
		"transcripts":     len(analyzed),
		"new_evidence":    len(newEvidence),
		"influence_score": p.InfluenceScore,
		"confidence":      p.ConfidenceLevel,
	}).Info("profile analyzed")
	return res, nil
}

func (a *Analyzer) runFull(ctx context.Context, projectID string, s llm.Settings, person *types.Person, ts []types.Transcript, extracted []types.TranscriptInterventions) (types.ProfileData, error) {
	excerpt := interventions.FormatForPrompt(extracted, a.settings.MaxPromptTokens)
	if excerpt.IncludedCount == 0 {
		excerpt = interventions.FormatRaw(ts, a.settings.MaxPromptTokens)
	}
	prompt := prompts.Render(a.deps.Prompts.Get(ctx, prompts.KeyProfile), map[string]string{
		"TARGET_NAME":         person.Name,
		"TARGET_ROLE":         orUnknown(person.Role),
		"TARGET_ORGANIZATION": orUnknown(person.Organization),
		"TRANSCRIPT_COUNT":    strconv.Itoa(len(ts)),
		"INTERVENTION_COUNT":  strconv.Itoa(excerpt.IncludedCount),
		"INTERVENTIONS":       excerpt.FormattedText,
	})

	text, err := llm.Call(ctx, a.deps.Generator, a.request(projectID, s, prompt, llm.TagProfile))
	if err != nil {
		return types.ProfileData{}, err
	}
	var data types.ProfileData
	if err := llm.Decode(text, &data); err != nil {
		return types.ProfileData{}, err
	}
	data.SchemaVersion = types.ProfileSchemaVersion
	if !data.ConfidenceLevel.Valid() {
		data.ConfidenceLevel = types.ConfidenceLow
	}
	return data, nil
}

func (a *Analyzer) runIncremental(ctx context.Context, projectID string, s llm.Settings, person *types.Person, existing *types.BehavioralProfile, ts []types.Transcript, extracted []types.TranscriptInterventions) (types.ProfileData, error) {
	excerpt := interventions.FormatForPrompt(extracted, a.settings.IncrementalMaxPromptTokens)
	if excerpt.IncludedCount == 0 {
		excerpt = interventions.FormatRaw(ts, a.settings.IncrementalMaxPromptTokens)
	}
	prompt := prompts.Render(a.deps.Prompts.Get(ctx, prompts.KeyProfileIncremental), map[string]string{
		"TARGET_NAME":          person.Name,
		"TARGET_ROLE":          orUnknown(person.Role),
		"TARGET_ORGANIZATION":  orUnknown(person.Organization),
		"EXISTING_PROFILE":     compact(existing),
		"NEW_TRANSCRIPT_COUNT": strconv.Itoa(len(ts)),
		"INTERVENTION_COUNT":   strconv.Itoa(excerpt.IncludedCount),
		"INTERVENTIONS":        excerpt.FormattedText,
	})

	text, err := llm.Call(ctx, a.deps.Generator, a.request(projectID, s, prompt, llm.TagProfileIncremental))
	if err != nil {
		return types.ProfileData{}, err
	}
	var delta types.IncrementalResult
	if err := llm.Decode(text, &delta); err != nil {
		return types.ProfileData{}, err
	}
	merged, err := Merge(existing.ProfileData, delta)
	if err != nil {
		return types.ProfileData{}, err
	}
	merged.SchemaVersion = types.ProfileSchemaVersion
	if !merged.ConfidenceLevel.Valid() {
		merged.ConfidenceLevel = existing.ConfidenceLevel
	}
	return merged, nil
}

func (a *Analyzer) request(projectID string, s llm.Settings, prompt, tag string) llm.Request {
	return llm.Request{
		Provider:    s.Provider,
		Model:       s.Model,
		Config:      s.Config,
		Prompt:      prompt,
		Temperature: a.settings.Temperature,
		MaxTokens:   a.settings.MaxTokens,
		ContextTag:  tag,
		ProjectID:   projectID,
	}
}

func (a *Analyzer) writeHistory(ctx context.Context, p *types.BehavioralProfile, trigger types.TriggerType, transcriptID string) error {
	snap, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return a.deps.Store.AddHistory(ctx, types.HistorySnapshot{
		ProjectID:           p.ProjectID,
		Kind:                types.HistoryProfile,
		SubjectID:           p.PersonID,
		Snapshot:            snap,
		Trigger:             trigger,
		TriggerTranscriptID: transcriptID,
	})
}

// compact serializes the behavioral sections of a profile for the
// incremental prompt, leaving out evidence and bookkeeping.
func compact(p *types.BehavioralProfile) string {
	d := p.ProfileData.Clone()
	d.Evidence = nil
	d.Contradictions = nil
	d.BehaviorEvolution = ""
	d.NewEvidence = nil
	d.AnalysisSummary = ""
	d.ConfidenceLevel = p.ConfidenceLevel
	b, _ := json.MarshalIndent(d, "", "  ")
	return string(b)
}

func toEvidence(p *types.BehavioralProfile, items []types.EvidenceItem, analyzed []types.Transcript) []types.Evidence {
	known := make(map[string]bool, len(analyzed))
	for _, t := range analyzed {
		known[t.ID] = true
	}
	var out []types.Evidence
	for _, it := range items {
		if it.Quote == "" {
			continue
		}
		src := ""
		switch {
		case known[it.Source]:
			src = it.Source
		case len(analyzed) == 1:
			src = analyzed[0].ID
		}
		out = append(out, types.Evidence{
			ProfileID:          p.ID,
			ProjectID:          p.ProjectID,
			PersonID:           p.PersonID,
			Quote:              it.Quote,
			Trait:              it.Trait,
			Confidence:         it.Confidence,
			IsPrimary:          it.IsPrimary,
			SourceTranscriptID: src,
		})
	}
	return out
}

func subset(ts []types.Transcript, ids []string) []types.Transcript {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []types.Transcript
	for _, t := range ts {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func subsetResults(rs []types.TranscriptInterventions, ids []string) []types.TranscriptInterventions {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []types.TranscriptInterventions
	for _, r := range rs {
		if want[r.DocumentID] {
			out = append(out, r)
		}
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
