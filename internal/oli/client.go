// Package oli is a client for the Open Labels Initiative backend API.
package oli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Aghostraa/oli-frontend/internal/circuitbreaker"
	"github.com/Aghostraa/oli-frontend/internal/errors"
	"github.com/Aghostraa/oli-frontend/internal/logging"
	"github.com/Aghostraa/oli-frontend/internal/ratelimit"
	"github.com/Aghostraa/oli-frontend/internal/retry"
	"github.com/Aghostraa/oli-frontend/internal/search"
)

const (
	// DefaultTimeout bounds a single backend request
	DefaultTimeout = 60 * time.Second

	maxErrorBody = 64 << 10
)

// Config configures a Client
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables client-side throttling
	MaxAttempts       int
	HTTPClient        *http.Client
	Retry             *retry.Config
	Breaker           *circuitbreaker.Config
	Budget            RequestBudget // optional budget shared with other replicas
}

// RequestBudget admits backend requests by priority
type RequestBudget interface {
	Wait(ctx context.Context, priority ratelimit.Priority) error
}

// Client calls the OLI backend. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	budget     RequestBudget
	breaker    *circuitbreaker.CircuitBreaker
	retry      *retry.Config
}

// NewClient creates a new OLI API client
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid OLI base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	retryConfig := cfg.Retry
	if retryConfig == nil {
		retryConfig = retry.DefaultConfig()
	}
	rc := *retryConfig
	if cfg.MaxAttempts > 0 {
		rc.MaxAttempts = cfg.MaxAttempts
	}
	if rc.ShouldRetry == nil {
		rc.ShouldRetry = shouldRetry
	}

	breakerConfig := cfg.Breaker
	if breakerConfig == nil {
		breakerConfig = circuitbreaker.DefaultConfig("oli-api")
	}
	bc := *breakerConfig
	if bc.IsFailure == nil {
		bc.IsFailure = isUpstreamFailure
	}

	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		limiter:    limiter,
		budget:     cfg.Budget,
		breaker:    circuitbreaker.NewCircuitBreaker(&bc),
		retry:      &rc,
	}, nil
}

// HasAPIKey reports whether an API key was configured
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// BreakerStats exposes the upstream circuit breaker state for health checks
func (c *Client) BreakerStats() *circuitbreaker.Stats {
	return c.breaker.GetStats()
}

// CheckBreaker is a health check that fails while calls to the backend are
// being short-circuited. It passes again as soon as the open breaker is due
// for a trial call.
func (c *Client) CheckBreaker(_ context.Context) error {
	stats := c.breaker.GetStats()
	if stats.State != circuitbreaker.StateOpen || !time.Now().Before(stats.RetryAt) {
		return nil
	}
	return fmt.Errorf("circuit open since %s after %d consecutive failures, retrying at %s",
		stats.LastStateChange.UTC().Format(time.RFC3339), stats.ConsecutiveFails, stats.RetryAt.UTC().Format(time.RFC3339))
}

// SearchAddressesByTag returns addresses carrying tag_id (optionally with tag_value)
func (c *Client) SearchAddressesByTag(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	query := url.Values{}
	query.Set("tag_id", params.TagID)
	setIfNotEmpty(query, "tag_value", params.TagValue)
	setIfNotEmpty(query, "chain_id", params.ChainID)
	setIfPositive(query, "limit", params.Limit)

	var out SearchResponse
	if err := c.get(ctx, "address search", "/addresses/search", query, ratelimit.PriorityHigh, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []search.Hit{}
	}
	return &out, nil
}

// GetLabels returns the labels attached to an address
func (c *Client) GetLabels(ctx context.Context, params LabelsParams) (*LabelsResponse, error) {
	query := url.Values{}
	query.Set("address", params.Address)
	setIfNotEmpty(query, "chain_id", params.ChainID)
	setIfPositive(query, "limit", params.Limit)
	if params.IncludeAll {
		query.Set("include_all", "true")
	}

	var out LabelsResponse
	if err := c.get(ctx, "labels", "/labels", query, ratelimit.PriorityHigh, &out); err != nil {
		return nil, err
	}
	if out.Labels == nil {
		out.Labels = []Label{}
	}
	return &out, nil
}

// GetAttestations returns raw attestation rows matching params
func (c *Client) GetAttestations(ctx context.Context, params AttestationParams) (*AttestationsResponse, error) {
	query := url.Values{}
	setIfNotEmpty(query, "recipient", params.Recipient)
	setIfNotEmpty(query, "attester", params.Attester)
	setIfNotEmpty(query, "data_contains", params.DataContains)
	setIfNotEmpty(query, "chain_id", params.ChainID)
	setIfPositive(query, "limit", params.Limit)
	setIfNotEmpty(query, "order", string(params.Order))

	var out AttestationsResponse
	if err := c.get(ctx, "attestations", "/attestations", query, ratelimit.PriorityHigh, &out); err != nil {
		return nil, err
	}
	if out.Attestations == nil {
		out.Attestations = []json.RawMessage{}
	}
	return &out, nil
}

// GetAttesterAnalytics returns the attester leaderboard as the backend sent it
func (c *Client) GetAttesterAnalytics(ctx context.Context, params AnalyticsParams) (json.RawMessage, error) {
	query := url.Values{}
	setIfPositive(query, "limit", params.Limit)
	setIfNotEmpty(query, "order_by", string(params.OrderBy))
	setIfNotEmpty(query, "chain_id", params.ChainID)

	if !c.HasAPIKey() {
		return nil, errors.NewNotConfiguredError("OLI_API_KEY",
			"Set OLI_API_KEY (or NEXT_PUBLIC_OLI_API_KEY) to enable analytics.")
	}

	var out json.RawMessage
	if err := c.get(ctx, "analytics", "/analytics/attesters", query, ratelimit.PriorityLow, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// get issues a throttled, retried, circuit-protected GET and decodes the
// JSON body into out
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, priority ratelimit.Priority, out interface{}) error {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path
	endpoint.RawQuery = query.Encode()
	target := endpoint.String()

	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"operation": operation,
		"path":      path,
	})

	result := retry.WithExponentialBackoff(ctx, c.retry, func(ctx context.Context, attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return classifyTransportError(ctx, operation, err)
		}
		if c.budget != nil {
			if err := c.budget.Wait(ctx, priority); err != nil {
				return classifyTransportError(ctx, operation, err)
			}
		}
		return c.breaker.Execute(ctx, func() error {
			return c.do(ctx, operation, target, out)
		})
	})

	if result.Success {
		logger.WithFields(map[string]interface{}{
			"attempts": result.Attempts,
			"duration": result.TotalDuration.String(),
		}).Debug("OLI request completed")
		return nil
	}

	err := result.LastError
	if stderrors.Is(err, circuitbreaker.ErrCircuitOpen) || stderrors.Is(err, circuitbreaker.ErrTooManyRequests) {
		err = errors.NewServiceUnavailableError("oli-api")
	}
	logger.WithError(err).Warn("OLI request failed")
	return err
}

func (c *Client) do(ctx context.Context, operation, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.NewInternalError("failed to create OLI request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		body := decodeErrorBody(raw)
		return errors.NewUpstreamError(operation, resp.StatusCode, body, &APIError{
			StatusCode: resp.StatusCode,
			Body:       body,
			Wait:       parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return classifyTransportError(ctx, operation, err)
		}
		return errors.NewUpstreamError(operation, http.StatusBadGateway, nil, fmt.Errorf("failed to parse OLI response: %w", err))
	}
	return nil
}

// parseRetryAfter reads delay-seconds or an HTTP date; anything else is 0
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// decodeErrorBody returns the error body as JSON when it parses, else as text
func decodeErrorBody(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var body interface{}
	if err := json.Unmarshal(raw, &body); err == nil {
		return body
	}
	return string(raw)
}

func classifyTransportError(ctx context.Context, operation string, err error) error {
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewUpstreamTimeoutError(operation)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewUpstreamTimeoutError(operation)
	}
	return errors.NewUpstreamUnavailableError(operation, err)
}

func shouldRetry(err error) bool {
	if stderrors.Is(err, circuitbreaker.ErrCircuitOpen) || stderrors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	return errors.IsRetryable(err)
}

// isUpstreamFailure counts 5xx answers, transport failures and timeouts
// against the backend; 4xx answers are the caller's problem
func isUpstreamFailure(err error) bool {
	catErr := errors.Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.Category == errors.CategoryUpstream &&
		(catErr.StatusCode >= 500 || catErr.StatusCode == http.StatusRequestTimeout)
}

func setIfNotEmpty(query url.Values, key, value string) {
	if value != "" {
		query.Set(key, value)
	}
}

func setIfPositive(query url.Values, key string, value int) {
	if value > 0 {
		query.Set(key, strconv.Itoa(value))
	}
}
