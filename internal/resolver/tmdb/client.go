// Package tmdb implements Identity Resolver Stage B: taking a Stage A guess
// and returning the first matching provider record, grounded on the
// original's backend/app/core/tmdb.py (type-directed search, semaphore-
// bounded concurrency, retry-then-cache layering).
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	tmdb "github.com/cyruzin/golang-tmdb"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/zhinengfan/clearmedia-go/internal/cache"
	"github.com/zhinengfan/clearmedia-go/internal/log"
	"github.com/zhinengfan/clearmedia-go/internal/metrics"
	"github.com/zhinengfan/clearmedia-go/internal/planner"
	"github.com/zhinengfan/clearmedia-go/internal/resilience"
	"github.com/zhinengfan/clearmedia-go/internal/resolver"
	"github.com/zhinengfan/clearmedia-go/internal/telemetry"
)

// movieResult and tvResult are the only provider fields the Path Planner
// needs; the searchClient boundary translates away from the SDK's response
// shape here, so the rest of this package (and its tests) never depends on
// it directly.
type movieResult struct {
	ID          int64
	Title       string
	ReleaseDate string
}

type tvResult struct {
	ID           int64
	Name         string
	FirstAirDate string
}

// searchClient is the subset of the TMDB SDK this package depends on, so
// tests can supply a fake without a live API key.
type searchClient interface {
	SearchMovies(title string, opts map[string]string) ([]movieResult, error)
	SearchTVShows(title string, opts map[string]string) ([]tvResult, error)
}

// sdkSearchClient adapts the real cyruzin/golang-tmdb client to searchClient.
type sdkSearchClient struct {
	api *tmdb.Client
}

func (s sdkSearchClient) SearchMovies(title string, opts map[string]string) ([]movieResult, error) {
	resp, err := s.api.GetSearchMovies(title, opts)
	if err != nil {
		return nil, err
	}
	out := make([]movieResult, len(resp.Results))
	for i, r := range resp.Results {
		out[i] = movieResult{ID: r.ID, Title: r.Title, ReleaseDate: r.ReleaseDate}
	}
	return out, nil
}

func (s sdkSearchClient) SearchTVShows(title string, opts map[string]string) ([]tvResult, error) {
	resp, err := s.api.GetSearchTVShow(title, opts)
	if err != nil {
		return nil, err
	}
	out := make([]tvResult, len(resp.Results))
	for i, r := range resp.Results {
		out[i] = tvResult{ID: r.ID, Name: r.Name, FirstAirDate: r.FirstAirDate}
	}
	return out, nil
}

// Client is the Stage B metadata client: semaphore-bounded, retried,
// cached, and circuit-broken.
type Client struct {
	api     searchClient
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	cache   cache.Cache
	breaker *resilience.CircuitBreaker
	language string
	cacheTTL time.Duration
}

// Config configures a Client.
type Config struct {
	APIKey      string
	Language    string
	Concurrency int // defaults to 10, range 1-20 per §4.9
	// RequestsPerSecond caps outbound search calls independently of
	// Concurrency, honoring TMDB's published ~40 requests/10s account
	// limit rather than only bounding how many calls run at once.
	RequestsPerSecond float64
	// CacheCapacity bounds the number of remembered (title, year) matches;
	// 0 uses the default of 128 entries per §4.3.
	CacheCapacity int
	// CacheBackend is "memory" (default) or "redis"; see internal/cache.Config.
	CacheBackend string
	Redis        cache.RedisConfig
}

// New constructs a Client backed by the real TMDB API.
func New(cfg Config) (*Client, error) {
	api, err := tmdb.Init(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("tmdb: init client: %w", err)
	}
	return NewWithSearchClient(sdkSearchClient{api: api}, cfg), nil
}

// NewWithSearchClient builds a Client around a caller-supplied searchClient,
// used by tests to avoid a live API dependency.
func NewWithSearchClient(api searchClient, cfg Config) *Client {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4 // ~40 req/10s, TMDB's published account-level ceiling
	}
	return &Client{
		api:     api,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		limiter: rate.NewLimiter(rate.Limit(rps), int(concurrency)),
		cache: cache.New(cache.Config{
			Backend:  cfg.CacheBackend,
			Capacity: cfg.CacheCapacity,
			Redis:    cfg.Redis,
		}),
		breaker:  resilience.NewCircuitBreaker("resolver.tmdb", 3, 5, 60*time.Second, 30*time.Second),
		language: language,
		cacheTTL: 30 * time.Minute,
	}
}

// Match is Stage B: query the provider's movie or tv endpoint (selected by
// guess.Type) by (title, year?) and take the first result. A nil Match
// with a nil error means the search returned empty — the caller interprets
// that as NO_MATCH per §4.3.
func (c *Client) Match(ctx context.Context, guess resolver.Guess) (*resolver.Match, error) {
	cacheKey := cacheKeyFor(guess)
	if cached, ok := c.cache.Get(cacheKey); ok {
		metrics.ResolverCacheResult.WithLabelValues("tmdb", "hit").Inc()
		m, _ := cached.(*resolver.Match)
		return m, nil
	}
	metrics.ResolverCacheResult.WithLabelValues("tmdb", "miss").Inc()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	logger := log.WithComponentFromContext(ctx, "resolver.tmdb")
	logger.Info().Str("title", guess.Title).Str("type", guess.Type).Msg("tmdb cache miss, calling provider")

	ctx, span := telemetry.Tracer("resolver.tmdb").Start(ctx, "tmdb.Match",
		trace.WithAttributes(
			attribute.String("tmdb.title", guess.Title),
			attribute.String("tmdb.type", guess.Type),
		),
	)
	match, err := c.matchWithRetry(ctx, guess)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	span.End()

	c.cache.Set(cacheKey, match, c.cacheTTL)
	return match, nil
}

func (c *Client) matchWithRetry(ctx context.Context, guess resolver.Guess) (*resolver.Match, error) {
	const maxAttempts = 3
	var lastErr error

	opts := map[string]string{"language": c.language}
	if guess.Year != nil {
		if guess.Type == "tv" {
			opts["first_air_date_year"] = strconv.Itoa(*guess.Year)
		} else {
			opts["year"] = strconv.Itoa(*guess.Year)
		}
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		start := time.Now()
		var match *resolver.Match
		err := c.breaker.Execute(func() error {
			var callErr error
			match, callErr = c.search(guess, opts)
			return callErr
		})
		metrics.ProviderRequestDuration.WithLabelValues("tmdb", outcomeLabel(err)).Observe(time.Since(start).Seconds())

		if err != nil {
			lastErr = err
			if errors.Is(err, resilience.ErrCircuitOpen) || !retryable(err) {
				return nil, err
			}
			continue
		}
		return match, nil
	}

	return nil, fmt.Errorf("tmdb: exhausted retries: %w", lastErr)
}

func (c *Client) search(guess resolver.Guess, opts map[string]string) (*resolver.Match, error) {
	if guess.Type == "tv" {
		results, err := c.api.SearchTVShows(guess.Title, opts)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, nil
		}
		first := results[0]
		return &resolver.Match{
			TMDBID:    first.ID,
			MediaType: "tv",
			ProcessedData: planner.ProcessedData{
				Name:         first.Name,
				FirstAirDate: first.FirstAirDate,
			},
		}, nil
	}

	results, err := c.api.SearchMovies(guess.Title, opts)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	first := results[0]
	return &resolver.Match{
		TMDBID:    first.ID,
		MediaType: "movie",
		ProcessedData: planner.ProcessedData{
			Title:       first.Title,
			ReleaseDate: first.ReleaseDate,
		},
	}, nil
}

func cacheKeyFor(guess resolver.Guess) string {
	year := "?"
	if guess.Year != nil {
		year = strconv.Itoa(*guess.Year)
	}
	return guess.Type + ":" + guess.Title + ":" + year
}

// retryable reports whether err looks like a transport failure, timeout, or
// rate-limit/5xx response rather than a permanent 4xx search miss. The SDK
// surfaces HTTP errors as plain formatted errors rather than a typed status
// code, so this matches on the status text it embeds.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "504")
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return "error"
}

// backoffDelay mirrors Stage A's schedule: exponential base 2, floor 1s,
// ceiling 10s.
func backoffDelay(attempt int) time.Duration {
	secs := 2 * math.Pow(2, float64(attempt-1))
	if secs < 1 {
		secs = 1
	}
	if secs > 10 {
		secs = 10
	}
	return time.Duration(secs * float64(time.Second))
}
