package profile

import (
	"errors"
	"reflect"
	"testing"

	"team-insights-go/internal/llm"
	"team-insights-go/internal/types"
)

func baseline() types.ProfileData {
	return types.ProfileData{
		SchemaVersion:         types.ProfileSchemaVersion,
		CommunicationIdentity: types.Fields{"primary_style": "analytical", "pace": "measured"},
		Motivations: types.Motivations{
			Primary:       "delivery certainty",
			RiskTolerance: "medium",
			Values:        []any{"ownership"},
			Avoids:        []any{"open scope"},
		},
		BehaviorUnderPressure: []any{"asks for data"},
		InfluenceTactics:      []any{"metrics framing"},
		Vulnerabilities:       types.Vulnerabilities{Triggers: []any{"surprise deadlines"}, BlindSpots: []any{"morale"}},
		InteractionStrategy:   types.Fields{"approach": "numbers first"},
		EarlyWarningSigns:     []any{"short replies"},
		PowerAnalysis:         types.PowerAnalysis{Factors: []types.PowerFactor{{Factor: "budget", Assessment: "moderate"}}, Summary: "mid"},
		ConfidenceLevel:       types.ConfidenceMedium,
		Evidence:              []types.EvidenceItem{{Quote: "numbers first", Trait: "analytical"}},
	}
}

func withoutBookkeeping(p types.ProfileData) types.ProfileData {
	p.Contradictions = nil
	p.BehaviorEvolution = ""
	p.NewEvidence = nil
	p.AnalysisSummary = ""
	return p
}

func TestMerge_ConfirmedOnlyIsNoOp(t *testing.T) {
	base := baseline()
	var delta types.IncrementalResult
	delta.SectionUpdates.CommunicationIdentity.Status = types.StatusConfirmed
	delta.SectionUpdates.Motivations.Status = types.StatusUnchanged
	delta.SectionUpdates.InfluenceTactics = types.SectionUpdate[[]any]{Status: types.StatusConfirmed, Updates: []any{"ignored"}}
	delta.AnalysisSummary = "consistent"
	delta.Contradictions = []any{"none really"}

	got, err := Merge(base, delta)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !reflect.DeepEqual(withoutBookkeeping(got), withoutBookkeeping(base)) {
		t.Errorf("confirmed/unchanged delta changed the profile:\n got %+v\nwant %+v", got, base)
	}
	if got.AnalysisSummary != "consistent" || len(got.Contradictions) != 1 {
		t.Errorf("bookkeeping not attached: %+v", got)
	}
}

func TestMerge_RefinedSections(t *testing.T) {
	base := baseline()
	var delta types.IncrementalResult
	u := &delta.SectionUpdates
	u.CommunicationIdentity = types.SectionUpdate[types.Fields]{Status: types.StatusRefined, Updates: types.Fields{"pace": "fast", "register": "formal"}}
	u.Motivations = types.SectionUpdate[types.MotivationsDelta]{Status: types.StatusRefined, Updates: types.MotivationsDelta{RiskTolerance: "high", NewValues: []any{"speed"}}}
	u.BehaviorUnderPressure = types.SectionUpdate[[]any]{Status: types.StatusNewDiscovered, Updates: []any{"goes quiet"}}
	u.InfluenceTactics = types.SectionUpdate[[]any]{Status: types.StatusRefined, Updates: []any{"coalition building", "deadlines"}}
	u.Vulnerabilities = types.SectionUpdate[types.VulnerabilitiesDelta]{Status: types.StatusRefined, Updates: types.VulnerabilitiesDelta{NewTriggers: []any{"scope creep"}}}
	u.PowerAnalysis = types.SectionUpdate[types.PowerAnalysisDelta]{Status: types.StatusRefined, Updates: types.PowerAnalysisDelta{NewFactors: []types.PowerFactor{{Factor: "network", Assessment: "strong"}}}}
	delta.ConfidenceChange = &types.ConfidenceChange{From: types.ConfidenceMedium, To: types.ConfidenceHigh}

	got, err := Merge(base, delta)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	ci := got.CommunicationIdentity
	if ci["primary_style"] != "analytical" || ci["pace"] != "fast" || ci["register"] != "formal" {
		t.Errorf("communication identity not shallow-merged: %v", ci)
	}
	if got.Motivations.Primary != "delivery certainty" || got.Motivations.RiskTolerance != "high" {
		t.Errorf("motivations scalars = %+v", got.Motivations)
	}
	if len(got.Motivations.Values) != 2 || len(got.Motivations.Avoids) != 1 {
		t.Errorf("motivation lists = %+v", got.Motivations)
	}
	if len(got.BehaviorUnderPressure) != 2 || len(got.InfluenceTactics) != 3 {
		t.Errorf("list sections did not grow: %v %v", got.BehaviorUnderPressure, got.InfluenceTactics)
	}
	if got.InfluenceTactics[0] != "metrics framing" {
		t.Errorf("existing tactic lost or reordered: %v", got.InfluenceTactics)
	}
	if len(got.Vulnerabilities.Triggers) != 2 || len(got.Vulnerabilities.BlindSpots) != 1 {
		t.Errorf("vulnerabilities = %+v", got.Vulnerabilities)
	}
	if len(got.PowerAnalysis.Factors) != 2 || got.PowerAnalysis.Summary != "mid" {
		t.Errorf("power analysis = %+v", got.PowerAnalysis)
	}
	if got.ConfidenceLevel != types.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", got.ConfidenceLevel)
	}

	// baseline must be untouched
	if base.CommunicationIdentity["pace"] != "measured" || len(base.InfluenceTactics) != 1 {
		t.Errorf("Merge mutated its baseline: %+v", base)
	}
}

func TestMerge_ListSectionsNeverShrink(t *testing.T) {
	base := baseline()
	statuses := []types.SectionStatus{"", types.StatusUnchanged, types.StatusConfirmed, types.StatusRefined, types.StatusNewDiscovered}
	for _, st := range statuses {
		var delta types.IncrementalResult
		u := &delta.SectionUpdates
		u.BehaviorUnderPressure.Status = st
		u.InfluenceTactics.Status = st
		u.EarlyWarningSigns.Status = st
		u.Vulnerabilities.Status = st
		u.Motivations.Status = st
		u.PowerAnalysis.Status = st

		got, err := Merge(base, delta)
		if err != nil {
			t.Fatalf("status %q: %v", st, err)
		}
		checks := []struct {
			name      string
			got, want int
		}{
			{"behavior_under_pressure", len(got.BehaviorUnderPressure), len(base.BehaviorUnderPressure)},
			{"influence_tactics", len(got.InfluenceTactics), len(base.InfluenceTactics)},
			{"early_warning_signs", len(got.EarlyWarningSigns), len(base.EarlyWarningSigns)},
			{"triggers", len(got.Vulnerabilities.Triggers), len(base.Vulnerabilities.Triggers)},
			{"blind_spots", len(got.Vulnerabilities.BlindSpots), len(base.Vulnerabilities.BlindSpots)},
			{"values", len(got.Motivations.Values), len(base.Motivations.Values)},
			{"avoids", len(got.Motivations.Avoids), len(base.Motivations.Avoids)},
			{"factors", len(got.PowerAnalysis.Factors), len(base.PowerAnalysis.Factors)},
		}
		for _, c := range checks {
			if c.got < c.want {
				t.Errorf("status %q: %s shrank from %d to %d", st, c.name, c.want, c.got)
			}
		}
	}
}

func TestMerge_ConfidenceKeptWithoutExplicitChange(t *testing.T) {
	base := baseline()
	got, err := Merge(base, types.IncrementalResult{ConfidenceChange: &types.ConfidenceChange{Reason: "no move"}})
	if err != nil {
		t.Fatal(err)
	}
	if got.ConfidenceLevel != types.ConfidenceMedium {
		t.Errorf("confidence = %s, want medium", got.ConfidenceLevel)
	}
}

func TestMerge_InvalidDeltaIsRejectedWhole(t *testing.T) {
	var delta types.IncrementalResult
	delta.SectionUpdates.InfluenceTactics = types.SectionUpdate[[]any]{Status: types.StatusRefined, Updates: []any{"x"}}
	delta.SectionUpdates.EarlyWarningSigns.Status = "rewritten"

	if _, err := Merge(baseline(), delta); !errors.Is(err, types.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}

	bad := types.IncrementalResult{ConfidenceChange: &types.ConfidenceChange{To: "certain"}}
	if _, err := Merge(baseline(), bad); !errors.Is(err, types.ErrParse) {
		t.Errorf("expected ErrParse for unknown confidence, got %v", err)
	}
}

func TestMerge_IgnoresPayloadOnSectionsWithoutChanges(t *testing.T) {
	text := `{"section_updates":{
		"communication_identity":{"status":"unchanged","updates":[]},
		"behavior_under_pressure":{"status":"confirmed","updates":{}},
		"influence_tactics":{"status":"refined","updates":["coalition building"]}
	}}`
	var delta types.IncrementalResult
	if err := llm.Decode(text, &delta); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	base := baseline()
	got, err := Merge(base, delta)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !reflect.DeepEqual(got.CommunicationIdentity, base.CommunicationIdentity) {
		t.Errorf("communication identity = %v, want %v", got.CommunicationIdentity, base.CommunicationIdentity)
	}
	if !reflect.DeepEqual(got.BehaviorUnderPressure, base.BehaviorUnderPressure) {
		t.Errorf("behavior under pressure = %v, want %v", got.BehaviorUnderPressure, base.BehaviorUnderPressure)
	}
	want := []any{"metrics framing", "coalition building"}
	if !reflect.DeepEqual(got.InfluenceTactics, want) {
		t.Errorf("influence tactics = %v, want %v", got.InfluenceTactics, want)
	}
}

func TestMerge_MalformedRefinedPayloadFailsDecode(t *testing.T) {
	text := `{"section_updates":{"influence_tactics":{"status":"refined","updates":{"not":"a list"}}}}`
	var delta types.IncrementalResult
	if err := llm.Decode(text, &delta); !errors.Is(err, types.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}
