package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"team-insights-go/internal/config"
	"team-insights-go/internal/logger"
)

// Gateway talks to an OpenAI-compatible chat-completions endpoint. Transport
// errors and 5xx responses are retried with exponential backoff up to
// MaxRetryTime; 4xx responses fail at once. Either way the caller gets a
// Response with Success false, not an error.
type Gateway struct {
	url          string
	apiKey       string
	client       *http.Client
	maxRetryTime time.Duration
	log          *logrus.Entry
}

func NewGateway(cfg config.LLMConfig, log *logrus.Entry) *Gateway {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Gateway{
		url:          cfg.GatewayURL,
		apiKey:       cfg.APIKey,
		client:       &http.Client{Timeout: timeout},
		maxRetryTime: cfg.MaxRetryTime,
		log:          logger.OrDiscard(log, "llm-gateway"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	User        string        `json:"user,omitempty"`
}

func (g *Gateway) Generate(ctx context.Context, req Request) (Response, error) {
	url, apiKey := g.url, g.apiKey
	if v, ok := req.Config["base_url"].(string); ok && v != "" {
		url = v
	}
	if v, ok := req.Config["api_key"].(string); ok && v != "" {
		apiKey = v
	}
	if url == "" {
		return Response{Error: "llm gateway url not configured"}, nil
	}

	data, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		User:        req.ProjectID,
	})
	if err != nil {
		return Response{}, fmt.Errorf("encode llm request: %w", err)
	}

	log := g.log.WithFields(logrus.Fields{
		"provider":    req.Provider,
		"model":       req.Model,
		"context_tag": req.ContextTag,
		"project_id":  req.ProjectID,
	})
	log.WithField("payload_len", len(data)).Debug("llm request")

	var text string
	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+apiKey)
		}
		httpReq.Header.Set("X-LLM-Provider", req.Provider)
		httpReq.Header.Set("X-Context-Tag", req.ContextTag)
		httpReq.Header.Set("X-Project-ID", req.ProjectID)

		resp, err := g.client.Do(httpReq)
		if err != nil {
			log.WithError(err).Warn("llm request failed")
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("llm server error %d: %s", resp.StatusCode, truncate(body, 300))
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("llm request rejected %d: %s", resp.StatusCode, truncate(body, 300)))
		}

		content, ok := contentFromBody(body)
		if !ok {
			return backoff.Permanent(errors.New("unexpected llm response shape"))
		}
		text = content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	if g.maxRetryTime > 0 {
		b.MaxElapsedTime = g.maxRetryTime
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		log.WithError(err).Error("llm generation failed")
		return Response{Error: err.Error()}, nil
	}
	log.WithField("response_len", len(text)).Debug("llm response")
	return Response{Success: true, Text: text}, nil
}

// contentFromBody reads choices[0].message.content, falling back to a bare
// {"text": ...} body as returned by some gateways.
func contentFromBody(body []byte) (string, bool) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false
	}
	if len(parsed.Choices) > 0 {
		return parsed.Choices[0].Message.Content, true
	}
	if parsed.Text != nil {
		return *parsed.Text, true
	}
	return "", false
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
