package dataset

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"team-insights-go/internal/metrics"
	"team-insights-go/internal/types"
)

const (
	SheetSummary       = "Summary"
	SheetProfiles      = "Profiles"
	SheetRelationships = "Relationships"
)

// WriteReport writes a workbook with a team summary, one row per profile and
// one row per relationship edge.
func WriteReport(path string, profiles []types.BehavioralProfile, rels []types.Relationship) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetProfiles, SheetRelationships} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}
	}

	if err := writeRows(f, SheetSummary, summaryRows(profiles)); err != nil {
		return err
	}
	if err := writeRows(f, SheetProfiles, profileRows(profiles)); err != nil {
		return err
	}
	if err := writeRows(f, SheetRelationships, relationshipRows(profiles, rels)); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(profiles []types.BehavioralProfile) [][]any {
	ins := metrics.Aggregate(profiles)
	rows := [][]any{
		{"Metric", "Value"},
		{"Profiles", len(profiles)},
		{"Average influence", fmt.Sprintf("%.1f", ins.AvgInfluence)},
		{"Top influencer", ins.TopInfluencer},
	}
	for _, style := range sortedKeys(ins.StyleCounts) {
		rows = append(rows, []any{"Style: " + style, ins.StyleCounts[style]})
	}
	for _, level := range sortedKeys(ins.ConfidenceCounts) {
		rows = append(rows, []any{"Confidence: " + level, ins.ConfidenceCounts[level]})
	}
	for _, name := range sortedKeys(ins.SpeakingShare) {
		rows = append(rows, []any{"Speaking share: " + name, fmt.Sprintf("%.0f%%", ins.SpeakingShare[name]*100)})
	}
	return rows
}

func profileRows(profiles []types.BehavioralProfile) [][]any {
	rows := [][]any{{
		"Name", "Confidence", "Communication style", "Dominant motivation", "Risk tolerance",
		"Influence", "Speaking time (s)", "Interventions", "Words", "Avg words",
		"Transcripts", "Evidence", "Last analyzed",
	}}
	for i := range profiles {
		p := &profiles[i]
		rows = append(rows, []any{
			p.PersonName, string(p.ConfidenceLevel), p.CommunicationStyle, p.DominantMotivation, p.RiskTolerance,
			p.InfluenceScore, p.TotalSpeakingTime, p.TotalInterventions, p.TotalWords,
			fmt.Sprintf("%.1f", p.AvgWordsPerIntervention),
			len(p.TranscriptsAnalyzed), p.EvidenceCount, p.LastAnalyzed().Format(time.RFC3339),
		})
	}
	return rows
}

func relationshipRows(profiles []types.BehavioralProfile, rels []types.Relationship) [][]any {
	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.PersonID] = p.PersonName
	}
	nameOf := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}
	rows := [][]any{{"From", "To", "Type", "Strength", "Evidence count", "Last observed", "Latest evidence"}}
	for _, r := range rels {
		latest := ""
		if len(r.Evidence) > 0 {
			latest = r.Evidence[len(r.Evidence)-1]
		}
		rows = append(rows, []any{
			nameOf(r.FromPersonID), nameOf(r.ToPersonID), strings.ReplaceAll(string(r.Type), "_", " "),
			fmt.Sprintf("%.2f", r.Strength), r.EvidenceCount, r.LastObservedAt.Format(time.RFC3339), latest,
		})
	}
	return rows
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
