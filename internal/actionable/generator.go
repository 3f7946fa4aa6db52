package actionable

import (
	"fmt"
	"strings"

	"team-insights-go/internal/types"
)

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

var tensionRank = map[string]int{"low": 1, "medium": 2, "high": 3}

// Generate picks the single most pressing signal in a team analysis: the
// strongest medium-or-high tension, then low cohesion.
func Generate(a *types.TeamAnalysis) ActionCard {
	if a == nil {
		return ActionCard{
			Insight: "No team analysis yet",
			Action:  "Analyze at least two people, then run team dynamics",
			Impact:  "None until data exists",
		}
	}

	var worst *types.Tension
	for i := range a.Tensions {
		t := &a.Tensions[i]
		if worst == nil || rank(t.Level) > rank(worst.Level) {
			worst = t
		}
	}
	if worst != nil && rank(worst.Level) >= 2 && len(worst.Members) >= 2 {
		topic := worst.Topic
		if topic == "" {
			topic = "unspecified issues"
		}
		return ActionCard{
			Insight: fmt.Sprintf("%s tension between %s over %s", strings.ToLower(worst.Level), strings.Join(worst.Members, " and "), topic),
			Action:  "Schedule a facilitated 1:1 on the disputed topic before the next group decision",
			Impact:  "Prevents the disagreement from stalling team decisions",
		}
	}

	if a.CohesionScore > 0 && a.CohesionScore < 0.5 {
		return ActionCard{
			Insight: fmt.Sprintf("Low team cohesion (%.0f%%)", a.CohesionScore*100),
			Action:  "Agree shared goals and decision owners in the next team meeting",
			Impact:  "Improves alignment and reduces rework",
		}
	}

	return ActionCard{
		Insight: "No strong friction pattern detected",
		Action:  "Keep monitoring as new transcripts arrive",
		Impact:  "Low immediate intervention",
	}
}

func rank(level string) int {
	return tensionRank[strings.ToLower(strings.TrimSpace(level))]
}
