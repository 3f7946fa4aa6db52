// Package metrics derives scalar summaries from profile content and
// extracted interventions. Everything here is pure.
package metrics

import (
	"math"
	"strings"

	"team-insights-go/internal/types"
)

const (
	baseInfluence      = 50
	perTacticInfluence = 5
	perStrongFactor    = 10
	wordsPerMinute     = 150
)

var strongKeywords = []string{"high", "strong"}

// InfluenceScore starts at 50, adds 5 per influence tactic and 10 per power
// factor assessed high or strong, and clamps to [0, 100].
func InfluenceScore(pd types.ProfileData) int {
	score := baseInfluence + perTacticInfluence*len(pd.InfluenceTactics)
	for _, f := range pd.PowerAnalysis.Factors {
		if isStrong(f.Assessment) {
			score += perStrongFactor
		}
	}
	return min(max(score, 0), 100)
}

func isStrong(assessment string) bool {
	a := strings.ToLower(assessment)
	for _, k := range strongKeywords {
		if strings.Contains(a, k) {
			return true
		}
	}
	return false
}

// SpeakingTime converts a word count to seconds at 150 words per minute.
func SpeakingTime(words int) int {
	return int(math.Round(float64(words) / wordsPerMinute * 60))
}

type Summary struct {
	TotalSpeakingTime       int     `json:"total_speaking_time"`
	TotalInterventions      int     `json:"total_interventions"`
	TotalWords              int     `json:"total_words"`
	AvgWordsPerIntervention float64 `json:"avg_words_per_intervention"`
}

// Compute totals the interventions across transcripts. The average is 0
// when there are no interventions.
func Compute(results []types.TranscriptInterventions) Summary {
	var s Summary
	for _, r := range results {
		for _, iv := range r.Interventions {
			s.TotalInterventions++
			s.TotalWords += iv.WordCount
		}
	}
	s.TotalSpeakingTime = SpeakingTime(s.TotalWords)
	if s.TotalInterventions > 0 {
		s.AvgWordsPerIntervention = float64(s.TotalWords) / float64(s.TotalInterventions)
	}
	return s
}

// TeamInsight aggregates stored profiles for reporting.
type TeamInsight struct {
	StyleCounts      map[string]int     `json:"style_counts"`
	ConfidenceCounts map[string]int     `json:"confidence_counts"`
	SpeakingShare    map[string]float64 `json:"speaking_share"`
	AvgInfluence     float64            `json:"avg_influence"`
	TopInfluencer    string             `json:"top_influencer,omitempty"`
}

// Aggregate summarizes profiles. SpeakingShare is keyed by person name and
// sums to 1 when anyone spoke at all.
func Aggregate(profiles []types.BehavioralProfile) TeamInsight {
	ins := TeamInsight{
		StyleCounts:      map[string]int{},
		ConfidenceCounts: map[string]int{},
		SpeakingShare:    map[string]float64{},
	}
	if len(profiles) == 0 {
		return ins
	}

	totalSpeaking, totalInfluence, top := 0, 0, -1
	for _, p := range profiles {
		if p.CommunicationStyle != "" {
			ins.StyleCounts[strings.ToLower(p.CommunicationStyle)]++
		}
		if p.ConfidenceLevel != "" {
			ins.ConfidenceCounts[string(p.ConfidenceLevel)]++
		}
		totalSpeaking += p.TotalSpeakingTime
		totalInfluence += p.InfluenceScore
		if p.InfluenceScore > top {
			top = p.InfluenceScore
			ins.TopInfluencer = p.PersonName
		}
	}
	for _, p := range profiles {
		if totalSpeaking > 0 {
			ins.SpeakingShare[p.PersonName] = float64(p.TotalSpeakingTime) / float64(totalSpeaking)
		} else {
			ins.SpeakingShare[p.PersonName] = 0
		}
	}
	ins.AvgInfluence = float64(totalInfluence) / float64(len(profiles))
	return ins
}
