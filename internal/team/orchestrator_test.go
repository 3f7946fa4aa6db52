package team

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"team-insights-go/internal/llm"
	"team-insights-go/internal/prompts"
	"team-insights-go/internal/relgraph"
	"team-insights-go/internal/store"
	"team-insights-go/internal/types"
)

type scriptedGenerator struct {
	responses []llm.Response
	requests  []llm.Request
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	g.requests = append(g.requests, req)
	if len(g.responses) == 0 {
		return llm.Response{Error: "no scripted response"}, nil
	}
	r := g.responses[0]
	g.responses = g.responses[1:]
	return r, nil
}

func ok(text string) llm.Response { return llm.Response{Success: true, Text: text} }

const teamJSON = `Here is the analysis:
{
  "cohesion_score": 72,
  "tension_level": "Medium",
  "dominant_communication_pattern": "data-driven",
  "influence_map": [{"from": "Person_1", "to": "Bob", "strength": 0.8, "evidence": "Bob adopts Ann's framing"}],
  "alliances": [{"members": ["Ann Lee", "Jane Doe"], "basis": "shared roadmap"}],
  "tensions": [{"members": ["Bob", "Jane"], "level": "high", "topic": "pricing"}],
  "summary": "Productive with one pricing fault line."
}`

type fixture struct {
	store *store.Store
	gen   *scriptedGenerator
	orch  *Orchestrator
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "team.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	f := &fixture{store: s, gen: &scriptedGenerator{}, clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s.SetClock(func() time.Time { return f.clock })

	ctx := context.Background()
	if _, err := s.CreateProject(ctx, types.Project{ID: "p1", OwnerID: "owner", LLMProvider: "openai", LLMModel: "gpt-4o-mini"}); err != nil {
		t.Fatal(err)
	}
	for _, p := range []types.Person{
		{ID: "ann", ProjectID: "p1", Name: "Ann Lee", Role: "PM"},
		{ID: "bob", ProjectID: "p1", Name: "Bob Smith", Role: "Sales"},
		{ID: "jane", ProjectID: "p1", Name: "Jane Doe", Organization: "Acme", Source: types.SourceContact},
	} {
		if _, err := s.AddPerson(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	f.orch = NewOrchestrator(Deps{
		Store:     s,
		Prompts:   prompts.NewLibrary(s, nil),
		Generator: f.gen,
		Graph:     relgraph.NewSynchronizer(s, 10, 0.5, nil),
		Now:       func() time.Time { return f.clock },
	}, Settings{Temperature: 0.3, MaxTokens: 4000}, nil)
	return f
}

func (f *fixture) addProfile(t *testing.T, personID, name string, analyzedAt time.Time) {
	t.Helper()
	p := &types.BehavioralProfile{
		ProjectID:           "p1",
		PersonID:            personID,
		PersonName:          name,
		ConfidenceLevel:     types.ConfidenceMedium,
		InfluenceScore:      60,
		TranscriptsAnalyzed: []string{"t-" + personID},
		LastAnalysisAt:      analyzedAt,
		ProfileData: types.ProfileData{
			InfluenceTactics: []any{"frames with data"},
		},
	}
	if err := f.store.UpsertProfile(context.Background(), p); err != nil {
		t.Fatal(err)
	}
}

func TestAnalyzeTeam_RequiresTwoProfiles(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, "ann", "Ann Lee", f.clock)

	_, err := f.orch.AnalyzeTeam(context.Background(), "p1", Options{})
	if !errors.Is(err, types.ErrInsufficientTeam) {
		t.Fatalf("err = %v, want ErrInsufficientTeam", err)
	}
	if len(f.gen.requests) != 0 {
		t.Error("generator should not be called")
	}
}

func TestAnalyzeTeam_ComputesAndSyncsGraph(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProfile(t, "ann", "Ann Lee", f.clock.Add(-time.Hour))
	f.addProfile(t, "bob", "Bob Smith", f.clock.Add(-time.Hour))
	f.addProfile(t, "jane", "Jane Doe", f.clock.Add(-time.Hour))
	f.gen.responses = []llm.Response{ok(teamJSON)}

	res, err := f.orch.AnalyzeTeam(ctx, "p1", Options{})
	if err != nil {
		t.Fatalf("AnalyzeTeam: %v", err)
	}
	if !res.Recomputed {
		t.Error("first run must recompute")
	}
	a := res.Analysis
	if a.CohesionScore != 0.72 {
		t.Errorf("cohesion = %v, want 0.72", a.CohesionScore)
	}
	if a.TensionLevel != "medium" {
		t.Errorf("tension = %q", a.TensionLevel)
	}
	if strings.Join(a.MemberIDs, ",") != "ann,bob,jane" {
		t.Errorf("members = %v", a.MemberIDs)
	}
	if strings.Join(a.TranscriptIDs, ",") != "t-ann,t-bob,t-jane" {
		t.Errorf("transcripts = %v", a.TranscriptIDs)
	}

	req := f.gen.requests[0]
	if req.ContextTag != llm.TagTeamDynamics || req.ProjectID != "p1" || req.Model != "gpt-4o-mini" {
		t.Errorf("request = %+v", req)
	}
	for _, want := range []string{`"ref": "Person_1"`, `"name": "Ann Lee"`, `"organization": "Acme"`, "frames with data"} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %s", want)
		}
	}

	if res.Graph.Upserted != 3 {
		t.Errorf("graph = %+v, want 3 edges", res.Graph)
	}
	rels, err := f.store.ListRelationships(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rels) != 3 {
		t.Fatalf("stored %d relationships, want 3", len(rels))
	}

	stored, err := f.store.GetTeamAnalysis(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.ID != a.ID || len(stored.Tensions) != 1 {
		t.Errorf("stored = %+v", stored)
	}
	hist, err := f.store.ListHistory(ctx, "p1", types.HistoryTeam, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 || hist[0].Trigger != types.TriggerManual {
		t.Errorf("history = %+v", hist)
	}
}

func TestAnalyzeTeam_Staleness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProfile(t, "ann", "Ann Lee", f.clock.Add(-time.Hour))
	f.addProfile(t, "bob", "Bob Smith", f.clock.Add(-time.Hour))
	f.gen.responses = []llm.Response{ok(teamJSON), ok(teamJSON), ok(teamJSON), ok(teamJSON)}

	first, err := f.orch.AnalyzeTeam(ctx, "p1", Options{})
	if err != nil {
		t.Fatal(err)
	}
	t0 := first.Analysis.AnalyzedAt

	f.clock = f.clock.Add(time.Minute)
	cached, err := f.orch.AnalyzeTeam(ctx, "p1", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if cached.Recomputed || !cached.Analysis.AnalyzedAt.Equal(t0) {
		t.Errorf("expected cached analysis, got recomputed=%v at %v", cached.Recomputed, cached.Analysis.AnalyzedAt)
	}
	if len(f.gen.requests) != 1 {
		t.Fatalf("generator calls = %d, want 1", len(f.gen.requests))
	}

	// a profile refreshed after t0 makes the analysis stale
	f.addProfile(t, "bob", "Bob Smith", t0.Add(time.Second))
	f.clock = f.clock.Add(time.Minute)
	res, err := f.orch.AnalyzeTeam(ctx, "p1", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Recomputed || res.Analysis.ID != first.Analysis.ID {
		t.Errorf("recomputed=%v id=%s, want same id %s", res.Recomputed, res.Analysis.ID, first.Analysis.ID)
	}

	// membership change
	f.addProfile(t, "jane", "Jane Doe", f.clock.Add(-time.Hour))
	f.clock = f.clock.Add(time.Minute)
	res, err = f.orch.AnalyzeTeam(ctx, "p1", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Recomputed || len(res.Analysis.MemberIDs) != 3 {
		t.Errorf("membership change not recomputed: %+v", res.Analysis.MemberIDs)
	}

	// force
	f.clock = f.clock.Add(time.Minute)
	res, err = f.orch.AnalyzeTeam(ctx, "p1", Options{Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Recomputed {
		t.Error("force must recompute")
	}
}

func TestAnalyzeTeam_FailuresPersistNothing(t *testing.T) {
	tests := []struct {
		name    string
		resp    llm.Response
		wantErr error
	}{
		{"generation failure", llm.Response{Error: "rate limited"}, types.ErrGeneration},
		{"unparseable", ok("the team seems fine"), types.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addProfile(t, "ann", "Ann Lee", f.clock)
			f.addProfile(t, "bob", "Bob Smith", f.clock)
			f.gen.responses = []llm.Response{tt.resp}

			_, err := f.orch.AnalyzeTeam(context.Background(), "p1", Options{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if _, err := f.store.GetTeamAnalysis(context.Background(), "p1"); !errors.Is(err, types.ErrNotFound) {
				t.Errorf("analysis was persisted: %v", err)
			}
		})
	}
}

func TestAnalyzeTeam_NoLLMConfigured(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.store.CreateProject(ctx, types.Project{ID: "p1", OwnerID: "owner"}); err != nil {
		t.Fatal(err)
	}
	f.addProfile(t, "ann", "Ann Lee", f.clock)
	f.addProfile(t, "bob", "Bob Smith", f.clock)

	if _, err := f.orch.AnalyzeTeam(ctx, "p1", Options{}); !errors.Is(err, types.ErrNoLLMConfigured) {
		t.Fatalf("err = %v, want ErrNoLLMConfigured", err)
	}
}

type failingGraph struct{}

func (failingGraph) Sync(context.Context, string, *types.TeamAnalysis, []types.BehavioralProfile) (relgraph.Stats, error) {
	return relgraph.Stats{Failed: 1}, errors.New("database is locked")
}

func TestAnalyzeTeam_GraphFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.orch.deps.Graph = failingGraph{}
	f.addProfile(t, "ann", "Ann Lee", f.clock)
	f.addProfile(t, "bob", "Bob Smith", f.clock)
	f.gen.responses = []llm.Response{ok(teamJSON)}

	res, err := f.orch.AnalyzeTeam(context.Background(), "p1", Options{Trigger: types.TriggerAutomatic})
	if err != nil {
		t.Fatalf("AnalyzeTeam: %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "locked") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestNormalizeCohesion(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0.4, 0.4}, {1, 1}, {85, 0.85}, {250, 1}, {-3, 0},
	}
	for _, tt := range tests {
		if got := normalizeCohesion(tt.in); got != tt.want {
			t.Errorf("normalizeCohesion(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
