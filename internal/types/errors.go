package types

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrNoTranscripts    = errors.New("no transcripts mention this person")
	ErrNoLLMConfigured  = errors.New("no text-generation provider configured: select a provider and model in the project or system LLM settings")
	ErrGeneration       = errors.New("text generation failed")
	ErrParse            = errors.New("could not parse generated output")
	ErrInsufficientTeam = errors.New("team dynamics need at least two behavioral profiles")
	ErrForbidden        = errors.New("behavioral analysis access denied")
)
