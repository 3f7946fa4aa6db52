package actionable

import (
	"strings"
	"testing"

	"team-insights-go/internal/types"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		in   *types.TeamAnalysis
		want string
	}{
		{"nil analysis", nil, "No team analysis yet"},
		{
			"strongest tension wins",
			&types.TeamAnalysis{
				CohesionScore: 0.3,
				Tensions: []types.Tension{
					{Members: []string{"Ann", "Bob"}, Level: "medium", Topic: "hiring"},
					{Members: []string{"Bob", "Jane"}, Level: "High", Topic: "pricing"},
				},
			},
			"high tension between Bob and Jane over pricing",
		},
		{
			"low tension falls through to cohesion",
			&types.TeamAnalysis{
				CohesionScore: 0.42,
				Tensions:      []types.Tension{{Members: []string{"Ann", "Bob"}, Level: "low"}},
			},
			"Low team cohesion (42%)",
		},
		{"healthy team", &types.TeamAnalysis{CohesionScore: 0.8}, "No strong friction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.in)
			if !strings.Contains(got.Insight, tt.want) {
				t.Errorf("insight = %q, want it to contain %q", got.Insight, tt.want)
			}
			if got.Action == "" || got.Impact == "" {
				t.Errorf("incomplete card %+v", got)
			}
		})
	}
}
