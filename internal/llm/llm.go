// Package llm is the text-generation collaborator: a provider-agnostic
// request/response shape, an OpenAI-compatible HTTP gateway and helpers for
// recovering JSON from generated text.
package llm

import (
	"context"
	"fmt"

	"team-insights-go/internal/types"
)

// Context tags sent with each request so the gateway can attribute usage.
const (
	TagProfile            = "behavioral_profile"
	TagProfileIncremental = "behavioral_profile_incremental"
	TagTeamDynamics       = "team_dynamics"
)

// Request carries everything one generation call needs. ProjectID is used
// for billing attribution and travels with the request, never through
// shared state.
type Request struct {
	Provider    string
	Model       string
	Config      map[string]any
	Prompt      string
	Temperature float64
	MaxTokens   int
	ContextTag  string
	ProjectID   string
}

// Response is the collaborator's answer. A reported failure has Success
// false and a reason in Error.
type Response struct {
	Success bool
	Text    string
	Error   string
}

// Generator produces text for a prompt. The returned error is reserved for
// conditions outside the call itself, such as a cancelled context.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Settings is the provider/model pair chosen for a project.
type Settings struct {
	Provider string
	Model    string
	Config   map[string]any
}

// ResolveSettings prefers the project's own selection and falls back to the
// system default. Having neither is ErrNoLLMConfigured.
func ResolveSettings(project *types.Project, defaultProvider, defaultModel string) (Settings, error) {
	if project != nil && project.LLMProvider != "" && project.LLMModel != "" {
		return Settings{Provider: project.LLMProvider, Model: project.LLMModel, Config: project.LLMConfig}, nil
	}
	if defaultProvider != "" && defaultModel != "" {
		return Settings{Provider: defaultProvider, Model: defaultModel}, nil
	}
	return Settings{}, types.ErrNoLLMConfigured
}

// Call runs one generation and folds both failure paths into ErrGeneration.
func Call(ctx context.Context, g Generator, req Request) (string, error) {
	resp, err := g.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrGeneration, err)
	}
	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = "provider reported failure"
		}
		return "", fmt.Errorf("%w: %s", types.ErrGeneration, reason)
	}
	return resp.Text, nil
}
