package profile

import (
	"slices"
	"testing"

	"team-insights-go/internal/types"
)

func analyzedProfile(ids ...string) *types.BehavioralProfile {
	return &types.BehavioralProfile{
		TranscriptsAnalyzed: ids,
		ProfileData:         types.ProfileData{InfluenceTactics: []any{"framing"}},
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		existing *types.BehavioralProfile
		matching []string
		force    bool
		want     Mode
		wantNew  []string
	}{
		{"no profile is full", nil, []string{"A", "B", "C"}, false, ModeFull, nil},
		{"new transcript on mature profile is incremental", analyzedProfile("A", "B"), []string{"A", "B", "C"}, false, ModeIncremental, []string{"C"}},
		{"nothing new is skip", analyzedProfile("A", "B"), []string{"A", "B"}, false, ModeSkip, nil},
		{"nothing new but forced is full", analyzedProfile("A", "B"), []string{"A", "B"}, true, ModeFull, nil},
		{"forced with new ids stays incremental", analyzedProfile("A", "B"), []string{"A", "B", "C"}, true, ModeIncremental, []string{"C"}},
		{"profile without history is full", analyzedProfile(), []string{"A"}, false, ModeFull, []string{"A"}},
		{"all matching ids new is full", analyzedProfile("X"), []string{"A", "B"}, false, ModeFull, []string{"A", "B"}},
		{"empty analysis data is full", &types.BehavioralProfile{TranscriptsAnalyzed: []string{"A"}}, []string{"A", "B"}, false, ModeFull, []string{"B"}},
		{"duplicate matching ids are ignored", analyzedProfile("A"), []string{"A", "B", "B"}, false, ModeIncremental, []string{"B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.existing, tt.matching, tt.force)
			if got.Mode != tt.want {
				t.Errorf("mode = %s, want %s", got.Mode, tt.want)
			}
			if !slices.Equal(got.NewIDs, tt.wantNew) {
				t.Errorf("new ids = %v, want %v", got.NewIDs, tt.wantNew)
			}
		})
	}
}

func TestUnion_KeepsOrderAndNeverDrops(t *testing.T) {
	got := union([]string{"A", "B"}, []string{"C", "A"})
	if !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("union = %v", got)
	}
	got = union([]string{"A", "B"}, []string{"C"})
	if !slices.Contains(got, "A") || !slices.Contains(got, "B") {
		t.Errorf("union dropped prior ids: %v", got)
	}
}
