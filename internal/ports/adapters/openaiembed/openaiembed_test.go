package openaiembed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEmbed_PreservesInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// Answer out of order; the client must restore input order by index.
		resp := map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float64{0, 1}},
				{"index": 0, "embedding": []float64{1, 0}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	a := New("test-key", "test-model", srv.URL)
	vecs, err := a.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("vectors not restored to input order: %v", vecs)
	}
}

func TestEmbed_CountMismatchFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float64{1}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	a := New("test-key", "test-model", srv.URL)
	if _, err := a.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected error on vector count mismatch")
	}
}

func TestEmbed_ErrorBodyRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key sk-super-secret; Authorization: Bearer sk-super-secret"}`))
	}))
	defer srv.Close()

	a := New("sk-super-secret", "test-model", srv.URL)
	_, err := a.Embed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatalf("expected error on 401")
	}
	if strings.Contains(err.Error(), "sk-super-secret") {
		t.Fatalf("expected API key to be redacted in: %v", err)
	}
}

func TestEmbed_EmptyInputNoCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("unexpected request for empty input")
	}))
	defer srv.Close()

	a := New("k", "m", srv.URL)
	vecs, err := a.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs != nil {
		t.Fatalf("expected nil for empty input, got %v", vecs)
	}
}

func TestRedactSecrets(t *testing.T) {
	apiKey := "sk-super-secret"
	in := `status 401; Authorization: Bearer sk-super-secret; api_key=sk-super-secret`
	got := redactSecrets(in, apiKey)

	if strings.Contains(got, apiKey) {
		t.Fatalf("expected API key to be redacted, got: %q", got)
	}
	if !strings.Contains(got, "Authorization: [REDACTED]") {
		t.Fatalf("expected authorization header to be redacted, got: %q", got)
	}
}
