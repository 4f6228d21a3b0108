package genmodel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenRouterProvider_ParsesValidTemplate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"sections\": [{\"type\": \"hero\", \"title\": \"Hi\"}]}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "test-key", "openrouter/auto", "", "", 5*time.Second)
	res, err := p.Generate(context.Background(), []Message{{Role: "user", Content: "build a page"}})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got err=%q", res.Err)
	}
	if len(res.Template.Sections) != 1 || res.Template.Sections[0].Title != "Hi" {
		t.Fatalf("unexpected template: %+v", res.Template)
	}
}

func TestOpenRouterProvider_RateLimitIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "test-key", "openrouter/auto", "", "", 5*time.Second)
	res, err := p.Generate(context.Background(), []Message{{Role: "user", Content: "x"}})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.Success || !res.Retryable {
		t.Fatalf("expected a retryable failure for a 429, got %+v", res)
	}
}

func TestOpenRouterProvider_BadRequestIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "test-key", "openrouter/auto", "", "", 5*time.Second)
	res, err := p.Generate(context.Background(), []Message{{Role: "user", Content: "x"}})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.Success || res.Retryable {
		t.Fatalf("expected a non-retryable failure for a 400, got %+v", res)
	}
}

func TestOpenRouterProvider_NonJSONContentIsPermanentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"not json at all"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "test-key", "openrouter/auto", "", "", 5*time.Second)
	res, err := p.Generate(context.Background(), []Message{{Role: "user", Content: "x"}})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.Success || res.Retryable {
		t.Fatalf("expected a non-retryable failure when the model refuses to produce JSON, got %+v", res)
	}
}

func TestOpenRouterProvider_RequiresAPIKey(t *testing.T) {
	p := NewOpenRouterProvider("https://openrouter.ai/api/v1", "", "openrouter/auto", "", "", 5*time.Second)
	if _, err := p.Generate(context.Background(), []Message{{Role: "user", Content: "x"}}); err == nil {
		t.Fatalf("expected an error when no API key is configured")
	}
}
