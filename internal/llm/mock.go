package llm

import "context"

// Mock returns deterministic output per context tag. Enabled with
// USE_MOCK_LLM=true for offline demos.
type Mock struct{}

func (Mock) Generate(_ context.Context, req Request) (Response, error) {
	switch req.ContextTag {
	case TagProfile:
		return Response{Success: true, Text: mockProfile}, nil
	case TagProfileIncremental:
		return Response{Success: true, Text: mockIncremental}, nil
	case TagTeamDynamics:
		return Response{Success: true, Text: mockTeam}, nil
	}
	return Response{Error: "mock: unknown context tag " + req.ContextTag}, nil
}

const mockProfile = `{
  "communication_identity": {"primary_style": "analytical", "pace": "measured"},
  "motivations_priorities": {
    "primary": "delivery certainty",
    "risk_tolerance": "medium",
    "values": ["clear ownership"],
    "avoids": ["open-ended scope"]
  },
  "behavior_under_pressure": ["narrows scope and asks for data"],
  "influence_tactics": ["frames decisions with metrics"],
  "vulnerabilities": {"triggers": ["surprise deadlines"], "blind_spots": ["underweights morale"]},
  "interaction_strategy": {"approach": "bring numbers first"},
  "early_warning_signs": ["short written replies"],
  "power_analysis": {"factors": [{"factor": "budget control", "assessment": "moderate"}]},
  "confidence_level": "medium",
  "evidence": [{"quote": "Let's see the numbers first.", "trait": "analytical", "confidence": "high", "is_primary": true}]
}`

const mockIncremental = `{
  "section_updates": {
    "communication_identity": {"status": "confirmed"},
    "motivations_priorities": {"status": "confirmed"},
    "behavior_under_pressure": {"status": "unchanged"},
    "influence_tactics": {"status": "unchanged"},
    "vulnerabilities": {"status": "unchanged"},
    "interaction_strategy": {"status": "confirmed"},
    "early_warning_signs": {"status": "unchanged"},
    "power_analysis": {"status": "unchanged"}
  },
  "analysis_summary": "New material is consistent with the existing profile."
}`

const mockTeam = `{
  "cohesion_score": 0.7,
  "tension_level": "low",
  "dominant_communication_pattern": "collaborative",
  "influence_map": [],
  "alliances": [],
  "tensions": [],
  "summary": "The team works collaboratively with no visible friction."
}`
