package interventions

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"team-insights-go/internal/types"
)

const meeting = `[00:00:05] Jane Doe: Morning all, let's look at the numbers first.
Bob Smith: I think we should ship on Friday.
[00:01:10] Jane: Not before QA signs off.
That means Monday at the earliest.
Moderator note without a label
Bob Smith: Fine.
`

func TestParseTurns(t *testing.T) {
	turns := parseTurns(meeting)
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d: %+v", len(turns), turns)
	}
	third := turns[2]
	if third.Timestamp != "00:01:10" || third.Speaker != "Jane" || third.Order != 3 {
		t.Errorf("third turn = %+v", third)
	}
	if !strings.HasSuffix(third.Text, "Moderator note without a label") {
		t.Errorf("continuation lines not folded: %q", third.Text)
	}
	if turns[3].WordCount != 1 {
		t.Errorf("word count = %d", turns[3].WordCount)
	}
}

func TestExtract_AttributesByNameVariant(t *testing.T) {
	e := NewExtractor(nil)
	got := e.Extract(context.Background(), "p1", "jane", "Jane Doe", nil, []types.Transcript{
		{ID: "t1", Content: meeting},
		{ID: "t2", Content: "Bob Smith: nobody else here"},
	})
	if len(got) != 2 {
		t.Fatalf("expected one entry per transcript, got %d", len(got))
	}
	if got[0].InterventionCount != 2 {
		t.Errorf("t1 interventions = %d, want 2", got[0].InterventionCount)
	}
	wantWords := len(strings.Fields("Morning all, let's look at the numbers first.")) +
		len(strings.Fields("Not before QA signs off. That means Monday at the earliest. Moderator note without a label"))
	if got[0].TotalWordCount != wantWords {
		t.Errorf("t1 words = %d, want %d", got[0].TotalWordCount, wantWords)
	}
	if got[1].DocumentID != "t2" || got[1].InterventionCount != 0 {
		t.Errorf("t2 = %+v", got[1])
	}
}

func TestFormatForPrompt_RespectsBudget(t *testing.T) {
	var ivs []types.Intervention
	for i := 0; i < 50; i++ {
		ivs = append(ivs, types.Intervention{Speaker: "Jane", Text: strings.Repeat("word ", 20)})
	}
	results := []types.TranscriptInterventions{{DocumentID: "t1", Interventions: ivs}}

	f := FormatForPrompt(results, 100)
	if f.TotalCount != 50 {
		t.Errorf("total = %d", f.TotalCount)
	}
	if f.IncludedCount == 0 || f.IncludedCount >= 50 {
		t.Errorf("included = %d, expected a truncated subset", f.IncludedCount)
	}
	if f.EstimatedTokens > 100 {
		t.Errorf("estimate %d exceeds budget", f.EstimatedTokens)
	}

	unlimited := FormatForPrompt(results, 0)
	if unlimited.IncludedCount != 50 {
		t.Errorf("unlimited included = %d", unlimited.IncludedCount)
	}
	if !strings.HasPrefix(unlimited.FormattedText, "--- transcript t1 ---\n") {
		t.Errorf("missing transcript header: %q", unlimited.FormattedText[:40])
	}
}

func TestFormatRaw(t *testing.T) {
	f := FormatRaw([]types.Transcript{
		{ID: "t1", Content: "notes about Jane"},
		{ID: "t2", Content: "   "},
	}, 0)
	if f.IncludedCount != 1 || !strings.Contains(f.FormattedText, "notes about Jane") {
		t.Errorf("FormatRaw = %+v", f)
	}
	small := FormatRaw([]types.Transcript{{ID: "t1", Content: strings.Repeat("x", 1000)}}, 10)
	if len(small.FormattedText) > 40 {
		t.Errorf("raw excerpt not truncated: %d chars", len(small.FormattedText))
	}
}

func TestFormatRaw_CutsOnRuneBoundary(t *testing.T) {
	f := FormatRaw([]types.Transcript{{ID: "t1", Content: strings.Repeat("€", 100)}}, 11)
	if !utf8.ValidString(f.FormattedText) {
		t.Errorf("excerpt split a rune: %q", f.FormattedText)
	}
	if len(f.FormattedText) > 11*CharsPerToken || !strings.Contains(f.FormattedText, "€") {
		t.Errorf("unexpected excerpt %q (%d bytes)", f.FormattedText, len(f.FormattedText))
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 || EstimateTokens("abcd") != 1 || EstimateTokens("abcde") != 2 {
		t.Error("EstimateTokens rounding is off")
	}
}
