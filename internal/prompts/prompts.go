// Package prompts looks up analysis prompt templates, falling back to the
// built-in defaults when none is stored.
package prompts

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"team-insights-go/internal/logger"
)

const (
	KeyProfile            = "team_behavioral_analysis"
	KeyProfileIncremental = "team_behavioral_analysis_incremental"
	KeyTeamDynamics       = "team_dynamics_analysis"
)

// Source is the stored-template lookup; ok is false when key is unset.
type Source interface {
	Prompt(ctx context.Context, key string) (template string, ok bool, err error)
}

type Library struct {
	src Source
	log *logrus.Entry
}

// NewLibrary returns a Library over src. A nil src serves defaults only.
func NewLibrary(src Source, log *logrus.Entry) *Library {
	return &Library{src: src, log: logger.OrDiscard(log, "prompts")}
}

// Get returns the stored template for key, or the default. Lookup errors
// are logged and the default is used.
func (l *Library) Get(ctx context.Context, key string) string {
	if l.src != nil {
		tmpl, ok, err := l.src.Prompt(ctx, key)
		switch {
		case err != nil:
			l.log.WithError(err).WithField("key", key).Warn("prompt lookup failed, using default")
		case ok && strings.TrimSpace(tmpl) != "":
			return tmpl
		}
	}
	return defaults[key]
}

// Render replaces each {{KEY}} placeholder with its value. Unknown
// placeholders are left as they are.
func Render(tmpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

var defaults = map[string]string{
	KeyProfile:            defaultProfile,
	KeyProfileIncremental: defaultIncremental,
	KeyTeamDynamics:       defaultTeamDynamics,
}

const defaultProfile = `You are an expert organizational psychologist building a behavioral profile.

TARGET PERSON: {{TARGET_NAME}}
ROLE: {{TARGET_ROLE}}
ORGANIZATION: {{TARGET_ORGANIZATION}}

Analyze ONLY what {{TARGET_NAME}} says and does in the excerpts below.
Ground every claim in a quote. Do not invent facts. If evidence is thin, say so
through a low confidence_level rather than guessing.

----------------------------------------------------------------------
SCHEMA (STRICT - RETURN ONLY JSON)
{
  "communication_identity": {"primary_style": "", "pace": "", "register": ""},
  "motivations_priorities": {"primary": "", "risk_tolerance": "low|medium|high", "values": [], "avoids": []},
  "behavior_under_pressure": [],
  "influence_tactics": [],
  "vulnerabilities": {"triggers": [], "blind_spots": []},
  "interaction_strategy": {"approach": "", "do": [], "avoid": []},
  "early_warning_signs": [],
  "power_analysis": {"factors": [{"factor": "", "assessment": ""}], "summary": ""},
  "confidence_level": "low|medium|high",
  "evidence": [{"quote": "", "trait": "", "confidence": "low|medium|high", "is_primary": true}]
}
----------------------------------------------------------------------

TRANSCRIPT EXCERPTS ({{TRANSCRIPT_COUNT}} transcripts, {{INTERVENTION_COUNT}} interventions):
{{INTERVENTIONS}}

Return ONLY valid JSON matching the schema. No commentary, no markdown.
`

const defaultIncremental = `You are refining an existing behavioral profile of {{TARGET_NAME}} ({{TARGET_ROLE}}).

CURRENT PROFILE SUMMARY:
{{EXISTING_PROFILE}}

NEW TRANSCRIPT EXCERPTS ({{NEW_TRANSCRIPT_COUNT}} new transcripts):
{{INTERVENTIONS}}

For every section decide a status:
- "confirmed": new evidence agrees with the profile, nothing to add
- "unchanged": new evidence says nothing about this section
- "refined": adjust fields of the section (objects) or add new items (lists)
- "new_discovered": a pattern not yet in the profile

Only put NEW items in list updates; existing items are kept automatically.

----------------------------------------------------------------------
SCHEMA (STRICT - RETURN ONLY JSON)
{
  "section_updates": {
    "communication_identity": {"status": "", "updates": {}},
    "motivations_priorities": {"status": "", "updates": {"primary": "", "risk_tolerance": "", "new_values": [], "new_avoids": []}},
    "behavior_under_pressure": {"status": "", "updates": []},
    "influence_tactics": {"status": "", "updates": []},
    "vulnerabilities": {"status": "", "updates": {"new_triggers": [], "new_blind_spots": []}},
    "interaction_strategy": {"status": "", "updates": {}},
    "early_warning_signs": {"status": "", "updates": []},
    "power_analysis": {"status": "", "updates": {"new_factors": [{"factor": "", "assessment": ""}], "summary": ""}}
  },
  "confidence_change": {"from": "", "to": "", "reason": ""},
  "contradictions_detected": [],
  "behavior_evolution": "",
  "new_evidence": [{"quote": "", "trait": "", "confidence": "", "is_primary": false}],
  "analysis_summary": ""
}
----------------------------------------------------------------------

Omit confidence_change when confidence did not move.
Return ONLY valid JSON matching the schema. No commentary, no markdown.
`

const defaultTeamDynamics = `You are an expert in team dynamics. Analyze how the following {{MEMBER_COUNT}} people work together.

TEAM PROFILES:
{{TEAM_PROFILES}}

Refer to people by the exact name given in the profiles.

----------------------------------------------------------------------
SCHEMA (STRICT - RETURN ONLY JSON)
{
  "cohesion_score": 0.0,
  "tension_level": "low|medium|high",
  "dominant_communication_pattern": "",
  "influence_map": [{"from": "", "to": "", "strength": 0.0, "mechanism": "", "evidence": ""}],
  "alliances": [{"members": [], "basis": "", "evidence": ""}],
  "tensions": [{"members": [], "level": "low|medium|high", "topic": "", "evidence": ""}],
  "summary": "",
  "recommendations": []
}
----------------------------------------------------------------------

cohesion_score and strength are between 0 and 1.
Return ONLY valid JSON matching the schema. No commentary, no markdown.
`
