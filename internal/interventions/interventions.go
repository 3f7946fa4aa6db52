// Package interventions pulls one person's speaking turns out of transcript
// text and serializes them into a token-bounded prompt excerpt.
//
// Recognized line shapes:
//
//	Jane Doe: text
//	[00:12:31] Jane Doe: text
//	[12:31] Jane: text
//
// Lines without a speaker label continue the previous turn.
package interventions

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"team-insights-go/internal/logger"
	"team-insights-go/internal/names"
	"team-insights-go/internal/types"
)

// CharsPerToken is the rough ratio used for prompt budget estimates.
const CharsPerToken = 4

var turnLine = regexp.MustCompile(`^\s*(?:\[(\d{1,2}:\d{2}(?::\d{2})?)\]\s*)?([^:\[\]]{1,60}?)\s*:\s+(.*)$`)

type Extractor struct {
	log *logrus.Entry
}

func NewExtractor(log *logrus.Entry) *Extractor {
	return &Extractor{log: logger.OrDiscard(log, "interventions")}
}

// Extract returns, for every transcript, the turns spoken by the person.
// Transcripts where the person never speaks yield an empty entry.
func (e *Extractor) Extract(ctx context.Context, projectID, personID, name string, aliases []string, transcripts []types.Transcript) []types.TranscriptInterventions {
	m := names.NewMatcher(name, aliases)
	out := make([]types.TranscriptInterventions, 0, len(transcripts))
	for _, t := range transcripts {
		if ctx.Err() != nil {
			break
		}
		turns := attributed(parseTurns(t.Content), m)
		words := 0
		for _, iv := range turns {
			words += iv.WordCount
		}
		out = append(out, types.TranscriptInterventions{
			DocumentID:        t.ID,
			Interventions:     turns,
			InterventionCount: len(turns),
			TotalWordCount:    words,
		})
	}
	e.log.WithFields(logrus.Fields{
		"project_id":  projectID,
		"person_id":   personID,
		"transcripts": len(transcripts),
	}).Debug("interventions extracted")
	return out
}

// parseTurns splits text into speaker turns, numbering them in order.
func parseTurns(text string) []types.Intervention {
	var turns []types.Intervention
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := turnLine.FindStringSubmatch(line); m != nil {
			turns = append(turns, types.Intervention{
				Timestamp: m[1],
				Speaker:   strings.TrimSpace(m[2]),
				Text:      strings.TrimSpace(m[3]),
				Order:     len(turns) + 1,
			})
			continue
		}
		if len(turns) > 0 {
			last := &turns[len(turns)-1]
			last.Text = strings.TrimSpace(last.Text + " " + strings.TrimSpace(line))
		}
	}
	for i := range turns {
		turns[i].WordCount = len(strings.Fields(turns[i].Text))
	}
	return turns
}

func attributed(turns []types.Intervention, m *names.Matcher) []types.Intervention {
	var out []types.Intervention
	for _, t := range turns {
		if t.Text != "" && m.IsSpeaker(t.Speaker) {
			out = append(out, t)
		}
	}
	return out
}

// Formatted is a prompt-ready excerpt and what it covers.
type Formatted struct {
	FormattedText   string
	IncludedCount   int
	TotalCount      int
	EstimatedTokens int
}

// FormatForPrompt serializes interventions grouped by transcript, stopping
// before the estimate would exceed maxTokens. maxTokens <= 0 means no limit.
func FormatForPrompt(results []types.TranscriptInterventions, maxTokens int) Formatted {
	var (
		b   strings.Builder
		out Formatted
	)
	for _, r := range results {
		out.TotalCount += len(r.Interventions)
	}

	full := false
	for _, r := range results {
		if full || len(r.Interventions) == 0 {
			continue
		}
		header := fmt.Sprintf("--- transcript %s ---\n", r.DocumentID)
		wroteHeader := false
		for _, iv := range r.Interventions {
			line := formatLine(iv)
			extra := line
			if !wroteHeader {
				extra = header + line
			}
			if maxTokens > 0 && tokensFor(b.Len()+len(extra)) > maxTokens {
				full = true
				break
			}
			b.WriteString(extra)
			wroteHeader = true
			out.IncludedCount++
		}
	}
	out.FormattedText = b.String()
	out.EstimatedTokens = EstimateTokens(out.FormattedText)
	return out
}

// FormatRaw serializes transcript content as-is within the same budget. Used
// when no attributed turns could be found.
func FormatRaw(transcripts []types.Transcript, maxTokens int) Formatted {
	var b strings.Builder
	out := Formatted{TotalCount: len(transcripts)}
	for _, t := range transcripts {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		chunk := fmt.Sprintf("--- transcript %s ---\n%s\n", t.ID, strings.TrimSpace(t.Content))
		if maxTokens > 0 {
			remaining := maxTokens*CharsPerToken - b.Len()
			if remaining <= 0 {
				break
			}
			if len(chunk) > remaining {
				cut := remaining
				for cut > 0 && !utf8.RuneStart(chunk[cut]) {
					cut--
				}
				if cut == 0 {
					break
				}
				chunk = chunk[:cut]
			}
		}
		b.WriteString(chunk)
		out.IncludedCount++
	}
	out.FormattedText = b.String()
	out.EstimatedTokens = EstimateTokens(out.FormattedText)
	return out
}

func formatLine(iv types.Intervention) string {
	if iv.Timestamp != "" {
		return fmt.Sprintf("[%s] %s: %s\n", iv.Timestamp, iv.Speaker, iv.Text)
	}
	return fmt.Sprintf("%s: %s\n", iv.Speaker, iv.Text)
}

// EstimateTokens rounds up len(s)/CharsPerToken.
func EstimateTokens(s string) int {
	return tokensFor(len(s))
}

func tokensFor(n int) int {
	return (n + CharsPerToken - 1) / CharsPerToken
}
