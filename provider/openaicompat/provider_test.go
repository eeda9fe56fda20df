package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ada "github.com/adalabs/ada"
)

func TestProvider_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o" {
			t.Errorf("expected model gpt-4o, got %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ChatResponse{
			ID: "chatcmpl-1",
			Choices: []Choice{{
				Message: &ChoiceMessage{Role: "assistant", Content: "Hello!"},
			}},
			Usage: &Usage{PromptTokens: 5, CompletionTokens: 2},
		})
	}))
	defer srv.Close()

	p := NewProvider("test-key", "gpt-4o", srv.URL)
	resp, err := p.Chat(context.Background(), ada.ChatRequest{
		Messages: []ada.ChatMessage{
			ada.SystemMessage("be brief"),
			ada.UserMessage("Hi"),
		},
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if resp.Content != "Hello!" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.InputTokens != 5 || resp.Usage.OutputTokens != 2 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestProvider_ChatHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	p := NewProvider("k", "m", srv.URL)
	_, err := p.Chat(context.Background(), ada.ChatRequest{Messages: []ada.ChatMessage{ada.UserMessage("x")}})

	var httpErr *ada.ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *ada.ErrHTTP", err)
	}
	if httpErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d", httpErr.Status)
	}
	if httpErr.RetryAfter != 3*time.Second {
		t.Errorf("retryAfter = %v, want 3s", httpErr.RetryAfter)
	}
}

func TestProvider_ChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.Stream || req.StreamOptions == nil || !req.StreamOptions.IncludeUsage {
			t.Errorf("stream flags not set: %+v", req)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"Hel"}}]}` + "\n\n"))
		w.Write([]byte(`data: {"choices":[{"delta":{"content":"lo"}}]}` + "\n\n"))
		w.Write([]byte(`data: {"choices":[],"usage":{"prompt_tokens":4,"completion_tokens":1}}` + "\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	p := NewProvider("k", "m", srv.URL)
	ch := make(chan string, 16)
	resp, err := p.ChatStream(context.Background(), ada.ChatRequest{
		Messages: []ada.ChatMessage{ada.UserMessage("hi")},
	}, ch)
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	var chunks []string
	for c := range ch {
		chunks = append(chunks, c)
	}
	if len(chunks) != 2 || chunks[0] != "Hel" || chunks[1] != "lo" {
		t.Errorf("chunks = %v", chunks)
	}
	if resp.Content != "Hello" {
		t.Errorf("accumulated content = %q", resp.Content)
	}
	if resp.Usage.InputTokens != 4 || resp.Usage.OutputTokens != 1 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestProvider_ChatStreamClosesOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProvider("k", "m", srv.URL)
	ch := make(chan string, 16)
	_, err := p.ChatStream(context.Background(), ada.ChatRequest{Messages: []ada.ChatMessage{ada.UserMessage("hi")}}, ch)
	if err == nil {
		t.Fatal("expected error")
	}
	// Channel must be closed on the error path.
	if _, open := <-ch; open {
		t.Error("channel left open after error")
	}
}

func TestBuildBody_Options(t *testing.T) {
	body := BuildBody(
		[]ada.ChatMessage{ada.UserMessage("x")},
		"model-1",
		WithTemperature(0.2),
		WithMaxTokens(512),
		WithSeed(7),
	)
	if body.Model != "model-1" {
		t.Errorf("model = %q", body.Model)
	}
	if body.Temperature == nil || *body.Temperature != 0.2 {
		t.Errorf("temperature = %v", body.Temperature)
	}
	if body.MaxTokens != 512 {
		t.Errorf("maxTokens = %d", body.MaxTokens)
	}
	if body.Seed == nil || *body.Seed != 7 {
		t.Errorf("seed = %v", body.Seed)
	}
}

func TestParseResponse_Empty(t *testing.T) {
	resp, err := ParseResponse(ChatResponse{})
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if resp.Content != "" {
		t.Errorf("content = %q", resp.Content)
	}
}
