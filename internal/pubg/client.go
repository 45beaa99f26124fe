package pubg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public PUBG API
	DefaultBaseURL = "https://api.pubg.com"
	DefaultShard   = "steam"

	// Free tier allows 10 requests per minute on rate limited endpoints
	DefaultSampleRPM = 10

	defaultTimeout = 30 * time.Second
	mediaType      = "application/vnd.api+json"

	// Samples are only served for timestamps at least a day old and
	// within roughly the last two weeks
	sampleMinAge      = 24 * time.Hour
	sampleSpreadHours = 312
)

var (
	ErrUnauthorized = errors.New("api key rejected")
	ErrNotFound     = errors.New("resource not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrMalformed    = errors.New("malformed response")
)

// StatusError is returned for any non-2xx response
type StatusError struct {
	StatusCode int
	URL        string
	RateLimit  RateLimit
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return nil
	}
}

// Client talks to the PUBG match API
type Client struct {
	apiKey     string
	shard      string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger

	// Spaces out sample calls; nil means unlimited
	sampleLimiter *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing)
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithSampleRate caps sample requests per minute. Zero disables pacing.
func WithSampleRate(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.sampleLimiter = nil
			return
		}
		c.sampleLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new PUBG API client for the given shard
func NewClient(apiKey, shard string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key cannot be empty")
	}
	if shard == "" {
		shard = DefaultShard
	}

	c := &Client{
		apiKey:  apiKey,
		shard:   shard,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		log: slog.Default(),
	}
	WithSampleRate(DefaultSampleRPM)(c)

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Shard returns the shard the client queries
func (c *Client) Shard() string {
	return c.shard
}

// RandomSampleTime picks a sample instant between one day and ~two weeks ago
func RandomSampleTime(now time.Time, rng *rand.Rand) time.Time {
	hours := rng.Intn(sampleSpreadHours)
	return now.UTC().Add(-sampleMinAge).Add(-time.Duration(hours) * time.Hour)
}

// Sample fetches match references created after the given instant.
// Pacing honours ctx so a shutdown is not held up by the limiter.
func (c *Client) Sample(ctx context.Context, createdAfter time.Time) (*SampleResponse, error) {
	if c.sampleLimiter != nil {
		if err := c.sampleLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("sample pacing: %w", err)
		}
	}

	q := url.Values{}
	q.Set("filter[createdAt-start]", createdAfter.UTC().Format(time.RFC3339))
	u := fmt.Sprintf("%s/shards/%s/samples?%s", c.baseURL, url.PathEscape(c.shard), q.Encode())

	var sample SampleResponse
	header, err := c.doRequest(ctx, u, true, &sample)
	if err != nil {
		return nil, err
	}
	sample.RateLimit = ParseRateLimit(header)
	if sample.Data.ID == "" && len(sample.Data.Relationships.Matches.Data) == 0 {
		return nil, fmt.Errorf("sample: %w", ErrMalformed)
	}
	return &sample, nil
}

// GetMatch fetches match details
func (c *Client) GetMatch(ctx context.Context, matchID string) (*MatchDetail, error) {
	u := fmt.Sprintf("%s/shards/%s/matches/%s", c.baseURL, url.PathEscape(c.shard), url.PathEscape(matchID))

	var match MatchDetail
	if _, err := c.doRequest(ctx, u, true, &match); err != nil {
		return nil, err
	}
	if match.Data.ID == "" {
		return nil, fmt.Errorf("match %s: %w", matchID, ErrMalformed)
	}
	return &match, nil
}

// ResolveRegion downloads a telemetry asset and extracts the server region
// from the first event that carries a MatchId. ok is false when no event
// carries one or the id has no recognised PC region token.
func (c *Client) ResolveRegion(ctx context.Context, telemetryURL string) (region Region, ok bool, err error) {
	var events []TelemetryEvent
	// Telemetry lives on a CDN and takes no credentials
	if _, err := c.doRequest(ctx, telemetryURL, false, &events); err != nil {
		return "", false, err
	}

	for _, ev := range events {
		if ev.MatchID == "" {
			continue
		}
		region, ok = ExtractRegion(ev.MatchID)
		return region, ok, nil
	}
	return "", false, nil
}

// doRequest performs a GET and decodes a JSON body into result
func (c *Client) doRequest(ctx context.Context, u string, auth bool, result any) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if auth {
		req.Header.Set("Accept", mediaType)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        redact(u),
			RateLimit:  ParseRateLimit(resp.Header),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.Header, fmt.Errorf("decode %s: %w: %v", redact(u), ErrMalformed, err)
	}

	c.log.Debug("request complete", slog.String("url", redact(u)), slog.Int("status", resp.StatusCode))
	return resp.Header, nil
}

// ParseRateLimit reads x-ratelimit-remaining and x-ratelimit-reset
func ParseRateLimit(h http.Header) RateLimit {
	var rl RateLimit
	if h == nil {
		return rl
	}
	if v := h.Get("X-Ratelimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rl.Remaining = &n
		}
	}
	if v := h.Get("X-Ratelimit-Reset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			rl.Reset = &n
		}
	}
	return rl
}

// redact drops the query string, telemetry URLs can carry signed tokens
func redact(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	if parsed.Host == "" {
		return u
	}
	return parsed.Scheme + "://" + parsed.Host + parsed.Path
}
