package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeCall struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu      sync.Mutex
	queue   []fakeCall
	configs []*genai.GenerateContentConfig
	users   []string
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.configs = append(f.configs, config)
	for _, content := range contents {
		for _, part := range content.Parts {
			f.users = append(f.users, part.Text)
		}
	}

	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	call := f.queue[0]
	f.queue = f.queue[1:]
	return call.resp, call.err
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeCall{resp: resp, err: err})
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGenerator(models *fakeModels, maxRetries int) *Generator {
	return &Generator{
		models:     models,
		model:      "gemini-test",
		maxRetries: maxRetries,
		timeout:    time.Second,
		logger:     zap.NewNop(),
	}
}

func TestGenerateJSONRetriesOnServerError(t *testing.T) {
	originalSleep := sleep
	sleep = func(context.Context, time.Duration) error { return nil }
	defer func() { sleep = originalSleep }()

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(textResponse(`{"ok": true}`), nil)

	g := newTestGenerator(models, 2)

	output, err := g.GenerateJSON(context.Background(), "system", "message", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != `{"ok": true}` {
		t.Fatalf("unexpected output: %q", output)
	}
	if len(models.configs) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.configs))
	}

	for _, config := range models.configs {
		if config.ResponseMIMEType != "application/json" {
			t.Fatalf("expected json response mime type, got %q", config.ResponseMIMEType)
		}
		if config.SystemInstruction == nil || config.SystemInstruction.Parts[0].Text != "system" {
			t.Fatal("expected system instruction to be set")
		}
	}
}

func TestGenerateJSONDoesNotRetryClientErrors(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := newTestGenerator(models, 3)

	if _, err := g.GenerateJSON(context.Background(), "sys", "msg", nil); err == nil {
		t.Fatal("expected error")
	}
	if len(models.configs) != 1 {
		t.Fatalf("expected single call, got %d", len(models.configs))
	}
}

func TestGenerateJSONStopsAfterRetriesExhausted(t *testing.T) {
	originalSleep := sleep
	sleep = func(context.Context, time.Duration) error { return nil }
	defer func() { sleep = originalSleep }()

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"})
	models.enqueue(nil, genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"})

	g := newTestGenerator(models, 2)

	if _, err := g.GenerateJSON(context.Background(), "sys", "msg", nil); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if len(models.configs) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.configs))
	}
}

func TestGenerateJSONEmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse(""), nil)

	g := newTestGenerator(models, 1)

	if _, err := g.GenerateJSON(context.Background(), "sys", "msg", nil); err == nil {
		t.Fatal("expected error for empty response")
	}
}
