package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/matmap/internal/cache"
	"github.com/ppiankov/matmap/internal/model"
	"github.com/ppiankov/matmap/internal/worker"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "matmap-test/1.0",
		MaxBodyBytes: 1 << 20,
		MaxRetries:   3,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = origSleep })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "matmap-test/1.0" {
			t.Errorf("unexpected User-Agent %q", ua)
		}
		w.Header().Set("Content-Type", "application/toml")
		w.Header().Set("ETag", `"abc"`)
		_, _ = fmt.Fprint(w, "[[material]]\napp = []")
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig())
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(result.Body) != "[[material]]\napp = []" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if result.Meta.ETag != `"abc"` || result.Meta.ContentType != "application/toml" {
		t.Errorf("Unexpected meta: %+v", result.Meta)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testHTTPConfig())
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(result.Body) != "OK" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testHTTPConfig())
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Errorf("expected StatusError 404, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("404 must not be retried, got %d attempts", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testHTTPConfig())
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testHTTPConfig())
	if _, err := fetcher.FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestFetch_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("x", 64))
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.MaxBodyBytes = 16
	_, err := NewFetcher(cfg).Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestFetch_RevalidatesCachedDocument(t *testing.T) {
	const lastModified = "Sat, 01 Mar 2025 12:00:00 GMT"
	var hits, notModified atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Last-Modified", lastModified)
		if r.Header.Get("If-Modified-Since") == lastModified {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"MAT_001": "*MAT_ELASTIC"}`)
	}))
	defer server.Close()

	c := cache.NewMemoryCache(time.Minute, time.Minute)
	fetcher := NewFetcher(testHTTPConfig(), WithCache(c, 0))

	first, err := fetcher.Fetch(context.Background(), server.URL+"/lib/mat.json")
	if err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if first.FromCache {
		t.Error("first fetch should not come from cache")
	}

	second, err := fetcher.Fetch(context.Background(), server.URL+"/lib/mat.json")
	if err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	if !second.FromCache {
		t.Error("second fetch should reuse the cached body")
	}
	if string(second.Body) != string(first.Body) {
		t.Errorf("cached body mismatch: %q vs %q", second.Body, first.Body)
	}
	if second.Meta.StatusCode != http.StatusOK || second.Meta.ContentType != "application/json" {
		t.Errorf("unexpected meta after 304: %+v", second.Meta)
	}
	if second.Meta.LastModified != lastModified {
		t.Errorf("cached validators lost: %+v", second.Meta)
	}
	if hits.Load() != 2 || notModified.Load() != 1 {
		t.Errorf("expected 2 server hits with 1 conditional 304, got %d hits, %d 304s", hits.Load(), notModified.Load())
	}
}

func TestFetch_CachedDocumentChanged(t *testing.T) {
	var version atomic.Int32
	version.Store(1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		etag := fmt.Sprintf(`"v%d"`, version.Load())
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		_, _ = fmt.Fprintf(w, "body v%d", version.Load())
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig(), WithCache(cache.NewMemoryCache(time.Minute, time.Minute), 0))
	ctx := context.Background()

	if _, err := fetcher.Fetch(ctx, server.URL); err != nil {
		t.Fatal(err)
	}
	version.Store(2)

	result, err := fetcher.Fetch(ctx, server.URL)
	if err != nil {
		t.Fatalf("fetch after change failed: %v", err)
	}
	if result.FromCache || string(result.Body) != "body v2" {
		t.Errorf("expected fresh body v2, got %q (from cache: %v)", result.Body, result.FromCache)
	}

	again, err := fetcher.Fetch(ctx, server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !again.FromCache || string(again.Body) != "body v2" {
		t.Errorf("expected cached body v2, got %q (from cache: %v)", again.Body, again.FromCache)
	}
}

func TestFetch_CachedWithoutValidatorsRefetches(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		_, _ = fmt.Fprintf(w, "body %d", n)
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig(), WithCache(cache.NewMemoryCache(time.Minute, time.Minute), 0))
	for i := 1; i <= 2; i++ {
		result, err := fetcher.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("body %d", i); string(result.Body) != want || result.FromCache {
			t.Errorf("fetch %d = %q (from cache: %v), want fresh %q", i, result.Body, result.FromCache, want)
		}
	}
}

func TestFetchOnce_NoRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testHTTPConfig())
	_, err := fetcher.FetchOnce(context.Background(), server.URL)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 StatusError, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestFetch_WithLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig(), WithLimiter(worker.NewLimiter(1000, 10)))
	for i := 0; i < 3; i++ {
		if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}
	}
}

func TestFetch_RobotsDisallow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "OK")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.RespectRobots = true
	fetcher := NewFetcher(cfg)

	if _, err := fetcher.Fetch(context.Background(), server.URL+"/data/a.toml"); err != nil {
		t.Errorf("allowed path failed: %v", err)
	}
	if _, err := fetcher.Fetch(context.Background(), server.URL+"/private/a.toml"); err == nil {
		t.Error("expected disallowed path to fail")
	}
}

func TestFetch_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steel.toml")
	if err := os.WriteFile(path, []byte("[[material]]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fetcher := NewFetcher(testHTTPConfig())

	for _, loc := range []string{path, "file://" + filepath.ToSlash(path)} {
		result, err := fetcher.Fetch(context.Background(), loc)
		if err != nil {
			t.Fatalf("Fetch(%q) failed: %v", loc, err)
		}
		if string(result.Body) != "[[material]]\n" {
			t.Errorf("unexpected body for %q: %q", loc, result.Body)
		}
		if result.Meta.LastModified == "" {
			t.Errorf("expected modification time for %q", loc)
		}
	}
}

func TestFetch_LocalFileMissing(t *testing.T) {
	_, err := NewFetcher(testHTTPConfig()).Fetch(context.Background(), filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"503", &StatusError{Code: 503, Status: "503 Service Unavailable"}, true},
		{"500", &StatusError{Code: 500, Status: "500 Internal Server Error"}, true},
		{"502 wrapped", fmt.Errorf("get: %w", &StatusError{Code: 502, Status: "502 Bad Gateway"}), true},
		{"429", &StatusError{Code: 429, Status: "429 Too Many Requests"}, true},
		{"404", &StatusError{Code: 404, Status: "404 Not Found"}, false},
		{"403", &StatusError{Code: 403, Status: "403 Forbidden"}, false},
		{"connection refused", errors.New("fetch: connection refused"), true},
		{"connection reset", errors.New("fetch: connection reset by peer"), true},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), false},
		{"bad request", errors.New("create request: invalid URL"), false},
		{"read body", errors.New("read body: unexpected EOF"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestIsRetryableFetchError_Nil(t *testing.T) {
	if isRetryableFetchError(nil) {
		t.Error("Expected nil error to not be retryable")
	}
}
