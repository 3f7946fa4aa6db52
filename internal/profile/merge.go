package profile

import (
	"fmt"
	"maps"

	"team-insights-go/internal/types"
)

// Merge folds an incremental result into baseline and returns the new
// profile data. baseline is not modified.
//
// Object sections that changed are shallow-merged, list sections only ever
// grow, and the bookkeeping fields are replaced by the delta's. Confidence
// moves only when the delta reports a valid new level. An invalid delta is
// rejected as a whole with ErrParse.
func Merge(baseline types.ProfileData, delta types.IncrementalResult) (types.ProfileData, error) {
	if err := delta.Validate(); err != nil {
		return types.ProfileData{}, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	out := baseline.Clone()
	u := delta.SectionUpdates

	if u.CommunicationIdentity.Status.Changes() {
		out.CommunicationIdentity = mergeFields(out.CommunicationIdentity, u.CommunicationIdentity.Updates)
	}
	if u.Motivations.Status.Changes() {
		d := u.Motivations.Updates
		if d.Primary != "" {
			out.Motivations.Primary = d.Primary
		}
		if d.RiskTolerance != "" {
			out.Motivations.RiskTolerance = d.RiskTolerance
		}
		out.Motivations.Values = append(out.Motivations.Values, d.NewValues...)
		out.Motivations.Avoids = append(out.Motivations.Avoids, d.NewAvoids...)
	}
	if u.BehaviorUnderPressure.Status.Changes() {
		out.BehaviorUnderPressure = append(out.BehaviorUnderPressure, u.BehaviorUnderPressure.Updates...)
	}
	if u.InfluenceTactics.Status.Changes() {
		out.InfluenceTactics = append(out.InfluenceTactics, u.InfluenceTactics.Updates...)
	}
	if u.Vulnerabilities.Status.Changes() {
		d := u.Vulnerabilities.Updates
		out.Vulnerabilities.Triggers = append(out.Vulnerabilities.Triggers, d.NewTriggers...)
		out.Vulnerabilities.BlindSpots = append(out.Vulnerabilities.BlindSpots, d.NewBlindSpots...)
	}
	if u.InteractionStrategy.Status.Changes() {
		out.InteractionStrategy = mergeFields(out.InteractionStrategy, u.InteractionStrategy.Updates)
	}
	if u.EarlyWarningSigns.Status.Changes() {
		out.EarlyWarningSigns = append(out.EarlyWarningSigns, u.EarlyWarningSigns.Updates...)
	}
	if u.PowerAnalysis.Status.Changes() {
		d := u.PowerAnalysis.Updates
		out.PowerAnalysis.Factors = append(out.PowerAnalysis.Factors, d.NewFactors...)
		if d.Summary != "" {
			out.PowerAnalysis.Summary = d.Summary
		}
	}

	if c := delta.ConfidenceChange; c != nil && c.To.Valid() {
		out.ConfidenceLevel = c.To
	}

	out.Contradictions = delta.Contradictions
	out.BehaviorEvolution = delta.BehaviorEvolution
	out.NewEvidence = delta.NewEvidence
	out.AnalysisSummary = delta.AnalysisSummary
	return out, nil
}

func mergeFields(base, updates types.Fields) types.Fields {
	if len(updates) == 0 {
		return base
	}
	if base == nil {
		base = types.Fields{}
	}
	maps.Copy(base, updates)
	return base
}
