package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"team-insights-go/internal/profile"
	"team-insights-go/internal/team"
	"team-insights-go/internal/types"
)

type fakeStore struct {
	people   []types.Person
	profiles int
}

func (f *fakeStore) ListPersons(context.Context, string) ([]types.Person, error) {
	return f.people, nil
}

func (f *fakeStore) ListProfiles(context.Context, string) ([]types.BehavioralProfile, error) {
	return make([]types.BehavioralProfile, f.profiles), nil
}

type fakeAnalyzer struct {
	fail  map[string]error
	calls []string
	opts  []profile.Options
}

func (f *fakeAnalyzer) AnalyzePerson(_ context.Context, _, personID string, opts profile.Options) (*profile.Result, error) {
	f.calls = append(f.calls, personID)
	f.opts = append(f.opts, opts)
	if err := f.fail[personID]; err != nil {
		return nil, err
	}
	return &profile.Result{Mode: profile.ModeFull}, nil
}

type fakeTeam struct {
	calls int
	opts  team.Options
	err   error
}

func (f *fakeTeam) AnalyzeTeam(_ context.Context, _ string, opts team.Options) (*team.Result, error) {
	f.calls++
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &team.Result{Recomputed: true, Analysis: &types.TeamAnalysis{ProjectID: "p1"}}, nil
}

func people() []types.Person {
	return []types.Person{
		{ID: "jane", Name: "Jane Doe"},
		{ID: "janet", Name: "Janet Ruiz", Aliases: []string{"JR"}},
		{ID: "bob", Name: "Bob Smith"},
	}
}

func TestResolve(t *testing.T) {
	got, unmatched := Resolve([]string{"jane doe", "Bob", "JR", "Carol", "Smith", "  ", "Jan"}, people())

	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	if strings.Join(ids, ",") != "jane,bob,janet" {
		t.Errorf("resolved = %v, want jane,bob,janet", ids)
	}
	if strings.Join(unmatched, ",") != "Carol,Jan" {
		t.Errorf("unmatched = %v", unmatched)
	}
}

func TestResolve_AmbiguousFirstName(t *testing.T) {
	ppl := []types.Person{{ID: "a", Name: "Sam Park"}, {ID: "b", Name: "Sam Okafor"}}
	got, unmatched := Resolve([]string{"Sam"}, ppl)
	if len(got) != 0 || len(unmatched) != 1 {
		t.Errorf("got %v unmatched %v, want ambiguous name unmatched", got, unmatched)
	}
}

func TestTranscriptIngested_ContinuesPastFailures(t *testing.T) {
	st := &fakeStore{people: people(), profiles: 3}
	an := &fakeAnalyzer{fail: map[string]error{"jane": types.ErrNoTranscripts}}
	tm := &fakeTeam{}

	res, err := New(st, an, tm, nil).TranscriptIngested(context.Background(), "p1", "doc-9", []string{"Jane Doe", "Bob Smith"})
	if err != nil {
		t.Fatalf("TranscriptIngested: %v", err)
	}
	if strings.Join(an.calls, ",") != "jane,bob" {
		t.Errorf("analysis order = %v", an.calls)
	}
	for _, o := range an.opts {
		if o.Trigger != types.TriggerAutomatic || o.TriggerTranscriptID != "doc-9" {
			t.Errorf("options = %+v", o)
		}
	}
	if res.Persons[0].Error == "" || res.Persons[1].Error != "" || res.Persons[1].Mode != profile.ModeFull {
		t.Errorf("outcomes = %+v", res.Persons)
	}
	if tm.calls != 1 || tm.opts.Trigger != types.TriggerAutomatic || tm.opts.TriggerTranscriptID != "doc-9" {
		t.Errorf("team calls=%d opts=%+v", tm.calls, tm.opts)
	}
	if res.Team == nil || res.TeamError != "" {
		t.Errorf("team result = %+v, error %q", res.Team, res.TeamError)
	}
}

func TestTranscriptIngested_TeamRefresh(t *testing.T) {
	t.Run("skipped below two profiles", func(t *testing.T) {
		tm := &fakeTeam{}
		_, err := New(&fakeStore{people: people(), profiles: 1}, &fakeAnalyzer{}, tm, nil).
			TranscriptIngested(context.Background(), "p1", "doc", []string{"Bob"})
		if err != nil {
			t.Fatal(err)
		}
		if tm.calls != 0 {
			t.Errorf("team analyzed with one profile")
		}
	})

	t.Run("failure is reported not returned", func(t *testing.T) {
		tm := &fakeTeam{err: types.ErrGeneration}
		res, err := New(&fakeStore{people: people(), profiles: 2}, &fakeAnalyzer{}, tm, nil).
			TranscriptIngested(context.Background(), "p1", "doc", []string{"Bob"})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(res.TeamError, "text generation failed") {
			t.Errorf("team error = %q", res.TeamError)
		}
	})
}

func TestTranscriptIngested_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	an := &fakeAnalyzer{}
	_, err := New(&fakeStore{people: people()}, an, &fakeTeam{}, nil).
		TranscriptIngested(ctx, "p1", "doc", []string{"Bob"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(an.calls) != 0 {
		t.Error("no analysis should start after cancellation")
	}
}
