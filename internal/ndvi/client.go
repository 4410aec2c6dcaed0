package ndvi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/satfarm/farmcarbon/internal/metrics"
)

// ErrUpstream is wrapped by every error returned from Fetch.
var ErrUpstream = errors.New("ndvi classification service unavailable")

const (
	// DefaultMaxAttempts is the number of requests made before giving up.
	DefaultMaxAttempts = 3

	// DefaultBackoff is the base wait between attempts; attempt n waits n × Backoff.
	DefaultBackoff = 400 * time.Millisecond

	// DefaultTimeout bounds a single request. Image processing upstream is slow.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody is how much of a non-2xx body is quoted in the error.
	maxErrorBody = 140

	processPath = "/process-image"
)

// Fetcher returns the latest before/after classification for a farm.
type Fetcher interface {
	Fetch(ctx context.Context, farmerID string) (*ChangeResult, error)
}

// Config configures a Client. Zero values select the defaults.
type Config struct {
	// BaseURL is the service root, e.g. "https://satellitefarm.example.com".
	BaseURL string

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client

	MaxAttempts int

	// Backoff is the base wait between attempts. Negative disables waiting.
	Backoff time.Duration

	Timeout time.Duration
}

// Client calls the classification service over HTTP with retry and linear
// backoff.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	maxAttempts int
	backoff     time.Duration
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewClient validates cfg and returns a Client. m may be nil.
func NewClient(cfg Config, logger zerolog.Logger, m *metrics.Metrics) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("ndvi base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ndvi base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid ndvi base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	backoff := cfg.Backoff
	if backoff < 0 {
		backoff = 0
	} else if backoff == 0 {
		backoff = DefaultBackoff
	}

	return &Client{
		baseURL:     base,
		http:        httpClient,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
		metrics:     m,
	}, nil
}

// Fetch requests the classification for farmerID. Transport failures, non-2xx
// responses and undecodable bodies are retried up to the configured number of
// attempts; attempt n is followed by a wait of n × backoff. Cancelling ctx
// stops retrying immediately.
func (c *Client) Fetch(ctx context.Context, farmerID string) (*ChangeResult, error) {
	endpoint := c.endpoint(farmerID)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err := c.fetchOnce(ctx, endpoint)
		if err == nil {
			c.metrics.ObserveFetch(metrics.OutcomeOK)
			return result, nil
		}
		c.metrics.ObserveFetch(metrics.OutcomeError)
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrUpstream, ctx.Err())
		}

		c.logger.Warn().
			Str("farmer_id", farmerID).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Err(err).
			Msg("ndvi fetch failed")

		if attempt < c.maxAttempts {
			if err := sleep(ctx, time.Duration(attempt)*c.backoff); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
			}
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrUpstream, c.maxAttempts, lastErr)
}

func (c *Client) endpoint(farmerID string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + processPath
	q := u.Query()
	q.Set("farmerId", farmerID)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) (*ChangeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The body may be an HTML error page
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if text := truncate(strings.TrimSpace(string(body)), maxErrorBody); text != "" {
			msg += ": " + text
		}
		return nil, errors.New(msg)
	}

	var result ChangeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.New("failed to parse JSON response")
	}
	return &result, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
