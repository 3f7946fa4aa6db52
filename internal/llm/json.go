package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"team-insights-go/internal/types"
)

// Decode unmarshals generated text into v. When the text is not JSON as a
// whole, the first balanced object found in it is tried before giving up
// with ErrParse.
func Decode(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), v); err == nil {
			return nil
		}
	}
	candidate := ExtractJSON(text)
	if candidate == "" {
		return fmt.Errorf("%w: no JSON object in output", types.ErrParse)
	}
	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	return nil
}

// ExtractJSON finds the first balanced JSON object in s and returns it.
// Markdown fences are stripped first. Braces inside string literals are
// ignored.
func ExtractJSON(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, r := range []string{"```json", "```JSON", "```"} {
		s = strings.ReplaceAll(s, r, "")
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}
