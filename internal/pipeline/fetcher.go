package pipeline

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/matmap/internal/cache"
	"github.com/ppiankov/matmap/internal/logger"
	"github.com/ppiankov/matmap/internal/model"
	"github.com/ppiankov/matmap/internal/worker"
)

const defaultMaxRetries = 3

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// ErrBodyTooLarge is returned when a source exceeds the configured size cap
var ErrBodyTooLarge = errors.New("body exceeds size limit")

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// FetchMeta contains response metadata
type FetchMeta struct {
	StatusCode   int
	ContentType  string
	LastModified string
	ETag         string
}

// FetchResult is a fetched source document
type FetchResult struct {
	Body      []byte
	Location  string // As requested
	FinalURL  string // After redirects; the file path for local sources
	Meta      FetchMeta
	FromCache bool // Cached body reused after a 304
}

// Fetcher reads source documents from http(s) URLs, file:// URLs and paths
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int
	cache      cache.Cache
	cacheTTL   time.Duration
	limiter    *worker.Limiter
	robots     *RobotsPolicy
	log        *logger.Logger
}

// Option customises a Fetcher
type Option func(*Fetcher)

// WithCache caches remote documents for ttl (0 = cache default)
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithLimiter paces remote requests per host
func WithLimiter(l *worker.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// NewFetcher creates a Fetcher from HTTP settings
func NewFetcher(cfg model.HTTPConfig, opts ...Option) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in flag
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		maxRetries: maxRetries,
		log:        logger.Nop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	if cfg.RespectRobots {
		f.robots = NewRobotsPolicy(f.httpClient, cfg.UserAgent)
	}

	return f
}

// Fetch reads the document at location. A cached remote document is
// revalidated with a conditional request; its body is reused only when the
// server answers 304 Not Modified.
func (f *Fetcher) Fetch(ctx context.Context, location string) (*FetchResult, error) {
	return f.fetch(ctx, location, f.maxRetries)
}

// FetchOnce is Fetch with a single attempt and no retries
func (f *Fetcher) FetchOnce(ctx context.Context, location string) (*FetchResult, error) {
	return f.fetch(ctx, location, 1)
}

func (f *Fetcher) fetch(ctx context.Context, location string, attempts int) (*FetchResult, error) {
	if !IsRemote(location) {
		return f.readLocal(location)
	}

	key := cache.Key(location)
	var cached *cache.Document
	if f.cache != nil {
		if doc, ok := f.cache.Get(key); ok && (doc.ETag != "" || doc.LastModified != "") {
			cached = doc
		}
	}

	var crawlDelay time.Duration
	if f.robots != nil {
		allowed, delay := f.robots.Check(ctx, location)
		if !allowed {
			return nil, fmt.Errorf("fetch: %s disallowed by robots.txt", location)
		}
		crawlDelay = delay
	}

	if f.limiter != nil {
		if err := f.limiter.WaitWithDelay(ctx, location, crawlDelay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	result, err := f.fetchWithRetry(ctx, location, cached, attempts)
	if err != nil {
		return nil, err
	}

	if result.Meta.StatusCode == http.StatusNotModified {
		f.log.Debug("not modified", "location", location)
		result = &FetchResult{
			Body:     cached.Body,
			Location: location,
			FinalURL: result.FinalURL,
			Meta: FetchMeta{
				StatusCode:   http.StatusOK,
				ContentType:  cached.ContentType,
				LastModified: firstNonEmpty(result.Meta.LastModified, cached.LastModified),
				ETag:         firstNonEmpty(result.Meta.ETag, cached.ETag),
			},
			FromCache: true,
		}
	}

	if f.cache != nil {
		doc := &cache.Document{
			Body:         result.Body,
			ContentType:  result.Meta.ContentType,
			ETag:         result.Meta.ETag,
			LastModified: result.Meta.LastModified,
			FetchedAt:    time.Now().UTC(),
		}
		if err := f.cache.Set(key, doc, f.cacheTTL); err != nil {
			f.log.Warn("cache write failed", "location", location, "err", err)
		}
	}

	return result, nil
}

// FetchWithRetry fetches a remote URL, retrying transient failures with
// exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	return f.fetchWithRetry(ctx, rawURL, nil, f.maxRetries)
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string, cached *cache.Document, attempts int) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			f.log.Debug("retrying fetch", "url", rawURL, "attempt", attempt+1, "backoff", backoff, "err", lastErr)
			fetchSleepFunc(backoff)
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("fetch: %w", err)
			}
		}

		result, err := f.fetchOnce(ctx, rawURL, cached)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) {
			break
		}
	}
	return nil, lastErr
}

// fetchOnce issues one GET. With a cached document it sends the document's
// validators and returns a body-less 304 result when the server has nothing new.
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string, cached *cache.Document) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/json, application/toml, application/yaml, text/plain;q=0.9, */*;q=0.8")
	if cached != nil {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	meta := FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
	}

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		return &FetchResult{Location: rawURL, FinalURL: resp.Request.URL.String(), Meta: meta}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		Body:     body,
		Location: rawURL,
		FinalURL: resp.Request.URL.String(),
		Meta:     meta,
	}, nil
}

func (f *Fetcher) readLocal(location string) (*FetchResult, error) {
	path := LocalPath(location)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = file.Close() }()

	body, err := f.readLimited(file)
	if err != nil {
		return nil, err
	}

	meta := FetchMeta{StatusCode: http.StatusOK}
	if info, err := file.Stat(); err == nil {
		meta.LastModified = info.ModTime().UTC().Format(http.TimeFormat)
	}

	return &FetchResult{
		Body:     body,
		Location: location,
		FinalURL: path,
		Meta:     meta,
	}, nil
}

// readLimited reads r fully, failing when it holds more than maxBytes
func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("read body: %w (%d bytes)", ErrBodyTooLarge, f.maxBytes)
	}
	return body, nil
}

// isRetryableFetchError reports whether a fetch error is worth retrying:
// 429 and 5xx responses, and transport failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return strings.HasPrefix(err.Error(), "fetch:")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
