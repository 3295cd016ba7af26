package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFetch_LocalPathPassesThrough(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in.mp4")
	if err := os.WriteFile(in, []byte("x"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	got, err := New().Fetch(context.Background(), in, tmp)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != in {
		t.Fatalf("expected passthrough path %q, got %q", in, got)
	}
}

func TestFetch_MissingLocalPathFails(t *testing.T) {
	tmp := t.TempDir()
	if _, err := New().Fetch(context.Background(), filepath.Join(tmp, "nope.mp4"), tmp); err == nil {
		t.Fatalf("expected error for missing local file")
	}
}

func TestFetch_DownloadsURL(t *testing.T) {
	payload := "fake video bytes"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	tmp := t.TempDir()
	got, err := New().Fetch(context.Background(), srv.URL+"/clip.mp4", tmp)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.HasSuffix(got, ".mp4") {
		t.Fatalf("expected extension preserved, got %q", got)
	}
	b, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(b) != payload {
		t.Fatalf("downloaded bytes mismatch: %q", string(b))
	}
}

func TestFetch_RejectsBadStatusAndHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.mp4":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html>not a video</html>"))
		}
	}))
	defer srv.Close()

	tmp := t.TempDir()
	if _, err := New().Fetch(context.Background(), srv.URL+"/missing.mp4", tmp); err == nil {
		t.Fatalf("expected error for 404")
	}
	if _, err := New().Fetch(context.Background(), srv.URL+"/page", tmp); err == nil {
		t.Fatalf("expected error for html content type")
	}
}

func TestFetch_SizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	a := New()
	a.maxSize = 16
	tmp := t.TempDir()
	if _, err := a.Fetch(context.Background(), srv.URL+"/big.mp4", tmp); err == nil {
		t.Fatalf("expected error when source exceeds size cap")
	}
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected partial download to be removed, found %d files", len(entries))
	}
}
