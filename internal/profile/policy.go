package profile

import "team-insights-go/internal/types"

// Mode is the kind of work an analysis run does.
type Mode string

const (
	ModeSkip        Mode = "skip"
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

// Decision is the outcome of Decide. NewIDs lists matching transcripts not
// yet folded into the profile, in input order.
type Decision struct {
	Mode   Mode
	NewIDs []string
}

// Decide picks skip, incremental or full for one person.
//
// Skip when a profile exists, nothing is new and force is off. Incremental
// only when the profile already carries analysis, something is new and some
// of the matching transcripts were already analyzed. Everything else is a
// full analysis over all matching transcripts.
func Decide(existing *types.BehavioralProfile, matchingIDs []string, force bool) Decision {
	ids := uniq(matchingIDs)
	if existing == nil {
		return Decision{Mode: ModeFull}
	}

	var newIDs []string
	for _, id := range ids {
		if !existing.HasTranscript(id) {
			newIDs = append(newIDs, id)
		}
	}

	switch {
	case len(newIDs) == 0 && !force:
		return Decision{Mode: ModeSkip}
	case existing.ProfileData.HasAnalysis() && len(newIDs) > 0 && len(newIDs) < len(ids):
		return Decision{Mode: ModeIncremental, NewIDs: newIDs}
	default:
		return Decision{Mode: ModeFull, NewIDs: newIDs}
	}
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// union appends the ids in add that base lacks, keeping base's order.
func union(base, add []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]struct{}, len(base)+len(add))
	for _, id := range base {
		seen[id] = struct{}{}
	}
	for _, id := range add {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
