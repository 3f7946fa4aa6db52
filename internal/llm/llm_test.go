package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"team-insights-go/internal/config"
	"team-insights-go/internal/types"
)

func testGateway(url string) *Gateway {
	return NewGateway(config.LLMConfig{
		GatewayURL:     url,
		APIKey:         "secret",
		RequestTimeout: 5 * time.Second,
		MaxRetryTime:   3 * time.Second,
	}, nil)
}

func chatBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return string(b)
}

func TestGateway_SendsRequestAndReadsChoices(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth header")
		}
		if r.Header.Get("X-Project-ID") != "p1" || r.Header.Get("X-Context-Tag") != TagProfile {
			t.Errorf("attribution headers = %q / %q", r.Header.Get("X-Project-ID"), r.Header.Get("X-Context-Tag"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(chatBody(`{"ok":true}`)))
	}))
	defer srv.Close()

	resp, err := testGateway(srv.URL).Generate(context.Background(), Request{
		Provider: "openai", Model: "m1", Prompt: "hi", Temperature: 0.3, MaxTokens: 100,
		ContextTag: TagProfile, ProjectID: "p1",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !resp.Success || resp.Text != `{"ok":true}` {
		t.Errorf("resp = %+v", resp)
	}
	if got.Model != "m1" || got.MaxTokens != 100 || got.User != "p1" || len(got.Messages) != 1 {
		t.Errorf("request body = %+v", got)
	}
}

func TestGateway_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(chatBody("done")))
	}))
	defer srv.Close()

	resp, err := testGateway(srv.URL).Generate(context.Background(), Request{Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Text != "done" {
		t.Errorf("resp = %+v", resp)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestGateway_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	resp, err := testGateway(srv.URL).Generate(context.Background(), Request{Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error == "" {
		t.Errorf("expected reported failure, got %+v", resp)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestGateway_ConfigOverridesURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"from override"}`))
	}))
	defer srv.Close()

	g := testGateway("")
	resp, err := g.Generate(context.Background(), Request{Config: map[string]any{"base_url": srv.URL}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "from override" {
		t.Errorf("resp = %+v", resp)
	}

	resp, _ = g.Generate(context.Background(), Request{})
	if resp.Success {
		t.Error("expected failure without any url")
	}
}

type stubGenerator struct {
	resp Response
	err  error
}

func (s stubGenerator) Generate(context.Context, Request) (Response, error) { return s.resp, s.err }

func TestCall_FoldsFailuresIntoErrGeneration(t *testing.T) {
	ctx := context.Background()
	if _, err := Call(ctx, stubGenerator{resp: Response{Error: "quota"}}, Request{}); !errors.Is(err, types.ErrGeneration) {
		t.Errorf("reported failure: got %v", err)
	}
	if _, err := Call(ctx, stubGenerator{err: context.Canceled}, Request{}); !errors.Is(err, types.ErrGeneration) {
		t.Errorf("transport error: got %v", err)
	}
	text, err := Call(ctx, stubGenerator{resp: Response{Success: true, Text: "x"}}, Request{})
	if err != nil || text != "x" {
		t.Errorf("Call = %q, %v", text, err)
	}
}

func TestResolveSettings(t *testing.T) {
	project := &types.Project{LLMProvider: "anthropic", LLMModel: "m-project"}
	s, err := ResolveSettings(project, "openai", "m-default")
	if err != nil || s.Model != "m-project" {
		t.Errorf("project selection not preferred: %+v %v", s, err)
	}
	s, err = ResolveSettings(&types.Project{}, "openai", "m-default")
	if err != nil || s.Provider != "openai" {
		t.Errorf("default not used: %+v %v", s, err)
	}
	if _, err := ResolveSettings(&types.Project{}, "", ""); !errors.Is(err, types.ErrNoLLMConfigured) {
		t.Errorf("expected ErrNoLLMConfigured, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Sure! Here it is: {"a":{"b":2}} hope that helps {"c":3}`, `{"a":{"b":2}}`},
		{"brace in string", `x {"q":"use { carefully"} y`, `{"q":"use { carefully"}`},
		{"escaped quote", `{"q":"say \"}\" now"}`, `{"q":"say \"}\" now"}`},
		{"unbalanced", `{"a":1`, ""},
		{"none", "no json here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Level string `json:"level"`
	}
	if err := Decode("Result:\n```json\n{\"level\":\"high\"}\n```", &v); err != nil || v.Level != "high" {
		t.Errorf("Decode recovered = %+v, %v", v, err)
	}
	if err := Decode("I cannot help with that.", &v); !errors.Is(err, types.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
	if err := Decode(`{"level": 3}`, &v); !errors.Is(err, types.ErrParse) {
		t.Errorf("expected ErrParse on type mismatch, got %v", err)
	}
}

func TestMock(t *testing.T) {
	for _, tag := range []string{TagProfile, TagProfileIncremental, TagTeamDynamics} {
		resp, _ := Mock{}.Generate(context.Background(), Request{ContextTag: tag})
		var v map[string]any
		if !resp.Success || Decode(resp.Text, &v) != nil {
			t.Errorf("mock output for %s not decodable", tag)
		}
	}
}
