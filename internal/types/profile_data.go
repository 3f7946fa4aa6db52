package types

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

const ProfileSchemaVersion = 2

type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

func (c ConfidenceLevel) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// Fields is a free-form object section (communication identity, strategy).
type Fields map[string]any

type Motivations struct {
	Primary       string `json:"primary,omitempty"`
	RiskTolerance string `json:"risk_tolerance,omitempty"`
	Values        []any  `json:"values,omitempty"`
	Avoids        []any  `json:"avoids,omitempty"`
}

type Vulnerabilities struct {
	Triggers   []any `json:"triggers,omitempty"`
	BlindSpots []any `json:"blind_spots,omitempty"`
}

type PowerFactor struct {
	Factor     string `json:"factor"`
	Assessment string `json:"assessment"`
}

type PowerAnalysis struct {
	Factors []PowerFactor `json:"factors,omitempty"`
	Summary string        `json:"summary,omitempty"`
}

// EvidenceItem is a quote as reported by the model, before it is stored.
type EvidenceItem struct {
	Quote      string `json:"quote"`
	Trait      string `json:"trait"`
	Confidence string `json:"confidence,omitempty"`
	IsPrimary  bool   `json:"is_primary,omitempty"`
	Source     string `json:"source,omitempty"`
}

// ProfileData is the versioned profile payload. The last four fields only
// describe the most recent incremental delta.
type ProfileData struct {
	SchemaVersion         int             `json:"schema_version,omitempty"`
	CommunicationIdentity Fields          `json:"communication_identity,omitempty"`
	Motivations           Motivations     `json:"motivations_priorities"`
	BehaviorUnderPressure []any           `json:"behavior_under_pressure,omitempty"`
	InfluenceTactics      []any           `json:"influence_tactics,omitempty"`
	Vulnerabilities       Vulnerabilities `json:"vulnerabilities"`
	InteractionStrategy   Fields          `json:"interaction_strategy,omitempty"`
	EarlyWarningSigns     []any           `json:"early_warning_signs,omitempty"`
	PowerAnalysis         PowerAnalysis   `json:"power_analysis"`
	ConfidenceLevel       ConfidenceLevel `json:"confidence_level,omitempty"`
	Evidence              []EvidenceItem  `json:"evidence,omitempty"`

	Contradictions    []any          `json:"contradictions_detected,omitempty"`
	BehaviorEvolution string         `json:"behavior_evolution,omitempty"`
	NewEvidence       []EvidenceItem `json:"new_evidence,omitempty"`
	AnalysisSummary   string         `json:"analysis_summary,omitempty"`
}

// HasAnalysis reports whether any behavioral section carries content.
func (p ProfileData) HasAnalysis() bool {
	return len(p.CommunicationIdentity) > 0 ||
		p.Motivations.Primary != "" ||
		len(p.Motivations.Values) > 0 ||
		len(p.Motivations.Avoids) > 0 ||
		len(p.BehaviorUnderPressure) > 0 ||
		len(p.InfluenceTactics) > 0 ||
		len(p.Vulnerabilities.Triggers) > 0 ||
		len(p.Vulnerabilities.BlindSpots) > 0 ||
		len(p.InteractionStrategy) > 0 ||
		len(p.EarlyWarningSigns) > 0 ||
		len(p.PowerAnalysis.Factors) > 0
}

// Clone copies every slice and map so the result can be mutated freely.
// List elements themselves are shared.
func (p ProfileData) Clone() ProfileData {
	out := p
	out.CommunicationIdentity = maps.Clone(p.CommunicationIdentity)
	out.Motivations.Values = slices.Clone(p.Motivations.Values)
	out.Motivations.Avoids = slices.Clone(p.Motivations.Avoids)
	out.BehaviorUnderPressure = slices.Clone(p.BehaviorUnderPressure)
	out.InfluenceTactics = slices.Clone(p.InfluenceTactics)
	out.Vulnerabilities.Triggers = slices.Clone(p.Vulnerabilities.Triggers)
	out.Vulnerabilities.BlindSpots = slices.Clone(p.Vulnerabilities.BlindSpots)
	out.InteractionStrategy = maps.Clone(p.InteractionStrategy)
	out.EarlyWarningSigns = slices.Clone(p.EarlyWarningSigns)
	out.PowerAnalysis.Factors = slices.Clone(p.PowerAnalysis.Factors)
	out.Evidence = slices.Clone(p.Evidence)
	out.Contradictions = slices.Clone(p.Contradictions)
	out.NewEvidence = slices.Clone(p.NewEvidence)
	return out
}

func (p ProfileData) CommunicationStyle() string {
	for _, key := range []string{"primary_style", "style", "communication_style"} {
		if s, ok := p.CommunicationIdentity[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (p ProfileData) DominantMotivation() string {
	if p.Motivations.Primary != "" {
		return p.Motivations.Primary
	}
	if len(p.Motivations.Values) > 0 {
		return ItemText(p.Motivations.Values[0])
	}
	return ""
}

// ItemText renders a list item (string or object) as display text.
func ItemText(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"description", "text", "value", "name", "tactic", "sign", "trigger"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return fmt.Sprint(item)
}

// SectionStatus tags how an incremental run judged one profile section.
type SectionStatus string

const (
	StatusUnchanged     SectionStatus = "unchanged"
	StatusConfirmed     SectionStatus = "confirmed"
	StatusRefined       SectionStatus = "refined"
	StatusNewDiscovered SectionStatus = "new_discovered"
)

// Valid accepts the four statuses plus the empty string, which is read as
// unchanged.
func (s SectionStatus) Valid() bool {
	switch s {
	case "", StatusUnchanged, StatusConfirmed, StatusRefined, StatusNewDiscovered:
		return true
	}
	return false
}

// Changes reports whether the section carries a delta to apply.
func (s SectionStatus) Changes() bool {
	return s == StatusRefined || s == StatusNewDiscovered
}

// SectionUpdate is a status-tagged section delta. Updates is only read when
// the status Changes().
type SectionUpdate[T any] struct {
	Status  SectionStatus `json:"status"`
	Updates T             `json:"updates,omitempty"`
}

// UnmarshalJSON decodes Updates only when the status Changes(). Payloads on
// unchanged or confirmed sections are dropped unread.
func (u *SectionUpdate[T]) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status  SectionStatus   `json:"status"`
		Updates json.RawMessage `json:"updates"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = SectionUpdate[T]{Status: raw.Status}
	if !raw.Status.Changes() || len(raw.Updates) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.Updates, &u.Updates); err != nil {
		return fmt.Errorf("%s updates: %w", raw.Status, err)
	}
	return nil
}

type MotivationsDelta struct {
	Primary       string `json:"primary,omitempty"`
	RiskTolerance string `json:"risk_tolerance,omitempty"`
	NewValues     []any  `json:"new_values,omitempty"`
	NewAvoids     []any  `json:"new_avoids,omitempty"`
}

type VulnerabilitiesDelta struct {
	NewTriggers   []any `json:"new_triggers,omitempty"`
	NewBlindSpots []any `json:"new_blind_spots,omitempty"`
}

type PowerAnalysisDelta struct {
	NewFactors []PowerFactor `json:"new_factors,omitempty"`
	Summary    string        `json:"summary,omitempty"`
}

type SectionUpdates struct {
	CommunicationIdentity SectionUpdate[Fields]               `json:"communication_identity"`
	Motivations           SectionUpdate[MotivationsDelta]     `json:"motivations_priorities"`
	BehaviorUnderPressure SectionUpdate[[]any]                `json:"behavior_under_pressure"`
	InfluenceTactics      SectionUpdate[[]any]                `json:"influence_tactics"`
	Vulnerabilities       SectionUpdate[VulnerabilitiesDelta] `json:"vulnerabilities"`
	InteractionStrategy   SectionUpdate[Fields]               `json:"interaction_strategy"`
	EarlyWarningSigns     SectionUpdate[[]any]                `json:"early_warning_signs"`
	PowerAnalysis         SectionUpdate[PowerAnalysisDelta]   `json:"power_analysis"`
}

func (u SectionUpdates) statuses() map[string]SectionStatus {
	return map[string]SectionStatus{
		"communication_identity":  u.CommunicationIdentity.Status,
		"motivations_priorities":  u.Motivations.Status,
		"behavior_under_pressure": u.BehaviorUnderPressure.Status,
		"influence_tactics":       u.InfluenceTactics.Status,
		"vulnerabilities":         u.Vulnerabilities.Status,
		"interaction_strategy":    u.InteractionStrategy.Status,
		"early_warning_signs":     u.EarlyWarningSigns.Status,
		"power_analysis":          u.PowerAnalysis.Status,
	}
}

type ConfidenceChange struct {
	From   ConfidenceLevel `json:"from,omitempty"`
	To     ConfidenceLevel `json:"to"`
	Reason string          `json:"reason,omitempty"`
}

// IncrementalResult is the model's answer to an incremental analysis prompt.
type IncrementalResult struct {
	SectionUpdates    SectionUpdates    `json:"section_updates"`
	ConfidenceChange  *ConfidenceChange `json:"confidence_change,omitempty"`
	Contradictions    []any             `json:"contradictions_detected,omitempty"`
	BehaviorEvolution string            `json:"behavior_evolution,omitempty"`
	NewEvidence       []EvidenceItem    `json:"new_evidence,omitempty"`
	AnalysisSummary   string            `json:"analysis_summary,omitempty"`
}

// Validate rejects unknown section statuses and confidence levels so a
// malformed delta is never partially applied.
func (r IncrementalResult) Validate() error {
	for name, status := range r.SectionUpdates.statuses() {
		if !status.Valid() {
			return fmt.Errorf("section %s: unknown status %q", name, status)
		}
	}
	if r.ConfidenceChange != nil && r.ConfidenceChange.To != "" && !r.ConfidenceChange.To.Valid() {
		return fmt.Errorf("confidence_change: unknown level %q", r.ConfidenceChange.To)
	}
	return nil
}
