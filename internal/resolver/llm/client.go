// Package llm implements Identity Resolver Stage A: turning a bare filename
// into a structured title/year/type/season/episode guess via a chat
// completion model, grounded on the original's backend/app/core/llm.py
// prompt contract and tolerant-JSON response parsing.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zhinengfan/clearmedia-go/internal/cache"
	"github.com/zhinengfan/clearmedia-go/internal/log"
	"github.com/zhinengfan/clearmedia-go/internal/metrics"
	"github.com/zhinengfan/clearmedia-go/internal/resilience"
	"github.com/zhinengfan/clearmedia-go/internal/resolver"
	"github.com/zhinengfan/clearmedia-go/internal/telemetry"
)

// ErrParse signals that the LLM response could not be turned into a guess:
// empty input, empty response, or no valid JSON object after extraction.
var ErrParse = errors.New("llm: could not parse filename analysis")

const systemPrompt = `You are a professional media filename analyst. Extract key information from a movie or TV show filename and return it as JSON with fields:
- title: the work's title (required)
- year: release year if identifiable
- type: "movie" or "tv"
- season: season number (TV only)
- episode: episode number (TV only)

Strip resolution, codec, release-group, and extension noise before extracting the title. Map trailing isolated numbers of two or more digits, or explicit S/E markers, to season/episode; default season to 1 when episodes are present but no season marker is found.

Example output:
{"title": "Breaking Bad", "year": 2008, "type": "tv", "season": 1, "episode": 1}`

// chatClient is the subset of the OpenAI chat completions API this package
// depends on, so tests can supply a fake without a live API key.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client is the Stage A LLM client: retried, cached, and circuit-broken.
type Client struct {
	chat    chatClient
	model   string
	baseURL string
	cache   cache.Cache
	breaker *resilience.CircuitBreaker
	cacheTTL time.Duration
}

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// CacheCapacity bounds the number of remembered filename analyses;
	// 0 uses the default of 128 entries per §4.3.
	CacheCapacity int
	// CacheBackend is "memory" (default) or "redis"; see internal/cache.Config.
	CacheBackend string
	Redis        cache.RedisConfig
}

// New constructs a Client backed by a real OpenAI-compatible endpoint.
func New(cfg Config) *Client {
	oaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaiCfg.BaseURL = cfg.BaseURL
	}
	return NewWithChatClient(openai.NewClientWithConfig(oaiCfg), cfg)
}

// NewWithChatClient builds a Client around a caller-supplied chatClient,
// used by tests to avoid a live API dependency.
func NewWithChatClient(chat chatClient, cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{
		chat:    chat,
		model:   model,
		baseURL: cfg.BaseURL,
		cache: cache.New(cache.Config{
			Backend:  cfg.CacheBackend,
			Capacity: cfg.CacheCapacity,
			Redis:    cfg.Redis,
		}),
		breaker:  resilience.NewCircuitBreaker("resolver.llm", 3, 5, 60*time.Second, 30*time.Second),
		cacheTTL: 30 * time.Minute,
	}
}

// Analyze is Stage A: parse filename into a Guess, retried on transport
// errors/timeouts/rate limits and cached on success keyed on the exact
// filename, per §4.3.
func (c *Client) Analyze(ctx context.Context, filename string) (resolver.Guess, error) {
	if strings.TrimSpace(filename) == "" {
		return resolver.Guess{}, fmt.Errorf("%w: empty filename", ErrParse)
	}

	if cached, ok := c.cache.Get(filename); ok {
		metrics.ResolverCacheResult.WithLabelValues("llm", "hit").Inc()
		return cached.(resolver.Guess), nil
	}
	metrics.ResolverCacheResult.WithLabelValues("llm", "miss").Inc()

	logger := log.WithComponentFromContext(ctx, "resolver.llm")
	logger.Info().Str("filename", filename).Msg("llm cache miss, calling provider")

	ctx, span := telemetry.Tracer("resolver.llm").Start(ctx, "llm.Analyze",
		trace.WithAttributes(attribute.String("llm.model", c.model)),
	)
	guess, err := c.analyzeWithRetry(ctx, filename)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return resolver.Guess{}, err
	}
	span.End()

	c.cache.Set(filename, guess, c.cacheTTL)
	return guess, nil
}

func (c *Client) analyzeWithRetry(ctx context.Context, filename string) (resolver.Guess, error) {
	const maxAttempts = 3
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return resolver.Guess{}, ctx.Err()
			}
		}

		start := time.Now()
		var resp openai.ChatCompletionResponse
		err := c.breaker.Execute(func() error {
			var callErr error
			resp, callErr = c.chat.CreateChatCompletion(ctx, c.buildRequest(filename))
			return callErr
		})
		metrics.ProviderRequestDuration.WithLabelValues("llm", outcomeLabel(err)).Observe(time.Since(start).Seconds())

		if err != nil {
			lastErr = err
			if errors.Is(err, resilience.ErrCircuitOpen) || !retryable(err) {
				return resolver.Guess{}, err
			}
			continue
		}

		guess, parseErr := parseResponse(resp)
		if parseErr != nil {
			// JSON/validation failures are not retryable.
			return resolver.Guess{}, parseErr
		}
		return guess, nil
	}

	return resolver.Guess{}, fmt.Errorf("llm: exhausted retries: %w", lastErr)
}

func (c *Client) buildRequest(filename string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Analyze this filename: " + filename},
		},
		Temperature: 0.1,
	}
	if strings.Contains(c.baseURL, "api.openai.com") || c.baseURL == "" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return req
}

// retryable reports whether err is a transport error, timeout, or rate
// limit response rather than a permanent 4xx/validation failure.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return "error"
}

// backoffDelay is attempt*2 exponential, base 2, floor 1s, ceiling 10s,
// matching the original's wait_exponential(multiplier=2, min=1, max=10).
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

var thinkTagPattern = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)

// parseResponse implements the original's tolerant JSON extraction: strip
// fenced code markers and <think> blocks, slice between the first '{' and
// last '}', decode, default type to "movie" if missing/invalid.
func parseResponse(resp openai.ChatCompletionResponse) (resolver.Guess, error) {
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return resolver.Guess{}, fmt.Errorf("%w: empty response", ErrParse)
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimSuffix(raw, "```")
	raw = thinkTagPattern.ReplaceAllString(raw, "")

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first == -1 || last == -1 || last < first {
		return resolver.Guess{}, fmt.Errorf("%w: no JSON object found in response", ErrParse)
	}

	var decoded struct {
		Title   string `json:"title"`
		Year    *int   `json:"year"`
		Type    string `json:"type"`
		Season  *int   `json:"season"`
		Episode *int   `json:"episode"`
	}
	if err := json.Unmarshal([]byte(raw[first:last+1]), &decoded); err != nil {
		return resolver.Guess{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if decoded.Title == "" {
		return resolver.Guess{}, fmt.Errorf("%w: missing title field", ErrParse)
	}

	mediaType := decoded.Type
	if mediaType != "movie" && mediaType != "tv" {
		mediaType = "movie"
	}

	guess := resolver.Guess{
		Title:   decoded.Title,
		Type:    mediaType,
		Year:    decoded.Year,
		Episode: decoded.Episode,
	}
	if decoded.Season != nil {
		guess.Season = *decoded.Season
	}
	return guess, nil
}
