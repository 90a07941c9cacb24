// Package telegram provides the HTTP client for the tdlib gateway that
// exposes channel resolution and capped participant listing, with flood
// gating, retries, and error classification.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/channelvisor/tg-members/pkg/cache"
	"github.com/channelvisor/tg-members/pkg/governor"
)

// Prometheus metrics for gateway client operations.
var (
	tgRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_requests_total",
		Help: "Total gateway requests by endpoint and status",
	}, []string{"endpoint", "status"})

	tgRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tg_request_duration_seconds",
		Help:    "Gateway request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	tgErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_errors_total",
		Help: "Total gateway errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the gateway base URL, e.g. "http://localhost:8109".
	BaseURL string

	// Token authorizes requests against the gateway (Bearer token).
	Token string

	// Redis enables shared flood-wait state and channel info caching
	// across processes. Optional; nil keeps both features local/off.
	Redis *redis.Client

	// ChannelCacheTTL bounds how long resolved channel info is cached.
	// Only used when Redis is set.
	ChannelCacheTTL time.Duration

	// Retry controls retry behavior for recoverable request failures.
	Retry RetryConfig

	// HTTPTimeout is the per-request timeout.
	HTTPTimeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:         baseURL,
		Token:           token,
		ChannelCacheTTL: 10 * time.Minute,
		Retry:           DefaultRetryConfig(),
		HTTPTimeout:     30 * time.Second,
	}
}

// Client talks to the member-listing gateway.
type Client struct {
	httpClient *http.Client
	config     Config
	tracker    *governor.Tracker
	cache      *cache.Manager
	logger     zerolog.Logger
}

// New creates a new gateway client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("gateway token is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse gateway base URL: %w", err)
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.ChannelCacheTTL <= 0 {
		cfg.ChannelCacheTTL = 10 * time.Minute
	}

	logger := log.With().Str("component", "tg-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		config: cfg,
		logger: logger,
	}
	if cfg.Redis != nil {
		c.tracker = governor.NewTracker(cfg.Redis, logger)
		c.cache = cache.NewManager(cfg.Redis)
	}
	return c, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// ResolveChannel resolves a channel reference (username, invite link, or
// numeric id) into channel metadata. Resolution failures are fatal to an
// enumeration run: a channel that cannot be resolved here cannot be listed.
func (c *Client) ResolveChannel(ctx context.Context, ref string) (*ChannelInfo, error) {
	cacheKey := cache.Key("channel", ref)
	if c.cache != nil {
		var cached ChannelInfo
		err := c.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			c.logger.Debug().Str("ref", ref).Msg("Channel info cache hit")
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("ref", ref).Msg("Channel cache get error")
		}
	}

	endpoint := "/v1/channels/" + url.PathEscape(ref)
	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var info ChannelInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode channel info: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, &info, c.config.ChannelCacheTTL); err != nil {
			c.logger.Warn().Err(err).Str("ref", ref).Msg("Failed to cache channel info")
		}
	}

	return &info, nil
}

// ListMembers fetches one page of participants matching the search filter.
// An empty filter matches every participant the server is willing to
// return; any filter's total yield is capped server-side, which is why
// enumeration issues many filtered queries. Fewer than limit results
// (including zero) signal the end of the filter.
func (c *Client) ListMembers(ctx context.Context, ref, filter string, offset, limit int) ([]Member, error) {
	endpoint := "/v1/channels/" + url.PathEscape(ref) + "/participants"
	query := url.Values{}
	query.Set("q", filter)
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	var resp participantsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}

	c.logger.Debug().
		Str("ref", ref).
		Str("filter", filter).
		Int("offset", offset).
		Int("returned", len(resp.Users)).
		Msg("Fetched participants page")

	return resp.Users, nil
}

// get performs a GET request against the gateway with flood gating,
// retry, and error classification. Returns the response body on success.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		tgRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if c.tracker != nil {
		allowed, err := c.tracker.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Flood state check failed, proceeding without gate")
		} else if !allowed {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request blocked by flood gate")
			tgRequestsTotal.WithLabelValues(endpoint, "flood_blocked").Inc()
			return nil, &APIError{
				StatusCode: http.StatusTooManyRequests,
				ErrorClass: ErrorClassRateLimit,
				Message:    "blocked by pending flood wait",
			}
		}
	}

	requestURL := c.config.BaseURL + endpoint
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var body []byte
	retryErr := retryWithBackoff(ctx, c.config.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			tgErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			tgRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &APIError{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        err,
			}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return c.handleErrorResponse(ctx, endpoint, resp)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			tgErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &APIError{
				ErrorClass: ErrorClassNetwork,
				Message:    "read response body",
				Err:        err,
			}
		}

		tgRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return body, nil
}

// handleErrorResponse classifies a non-2xx response, records the flood
// wait hint if one is present, and returns the typed error.
func (c *Client) handleErrorResponse(ctx context.Context, endpoint string, resp *http.Response) error {
	errClass := classifyStatus(resp.StatusCode)
	tgErrorsTotal.WithLabelValues(string(errClass)).Inc()
	tgRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: errClass,
		Message:    resp.Status,
	}

	if errClass == ErrorClassRateLimit {
		apiErr.RetryAfter = parseRetryAfter(resp.Header)
		if c.tracker != nil && apiErr.RetryAfter > 0 {
			if err := c.tracker.RecordFloodWait(ctx, apiErr.RetryAfter); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to record flood wait")
			}
		}
	}

	c.logger.Warn().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("error_class", string(errClass)).
		Dur("retry_after", apiErr.RetryAfter).
		Msg("Gateway request error")

	return apiErr
}

// parseRetryAfter reads the Retry-After header as a delay in seconds.
func parseRetryAfter(headers http.Header) time.Duration {
	value := headers.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
