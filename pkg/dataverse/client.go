package dataverse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

// Config contains the connection settings for a Dataverse environment.
type Config struct {
	// URL is the environment URL, e.g. "https://org.crm.dynamics.com".
	URL string

	// APIVersion is the Web API version. Default: "9.2"
	APIVersion string

	// Timeout bounds a single HTTP request. Default: 60s
	Timeout time.Duration

	// MaxRetries is the number of retries for network errors, 5xx and
	// 429 responses.
	MaxRetries int

	// RetryBackoff is the base backoff, doubled on each attempt. Default: 1s
	RetryBackoff time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// UserAgent is sent on every request.
	UserAgent string

	// RequestsPerSecond paces requests, retries included. 0 disables it.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once before pacing
	// starts. Default: RequestsPerSecond rounded up
	Burst int
}

// WhoAmI is the identity of the authenticated caller.
type WhoAmI struct {
	UserID         string `json:"UserId"`
	BusinessUnitID string `json:"BusinessUnitId"`
	OrganizationID string `json:"OrganizationId"`
}

// Client talks to the Dataverse Web API. It is safe for concurrent use.
type Client struct {
	config  Config
	baseURL *url.URL
	client  *http.Client
	tokens  oauth2.TokenSource
	logger  *slog.Logger
	tracer  trace.Tracer

	// throttle is nil when pacing is disabled
	throttle *throttle

	// entities caches entity definitions by logical name
	entitiesMu sync.Mutex
	entities   map[string]*entityDefinition
}

// NewClient creates a client with connection pooling. tokens may be nil for
// unauthenticated test servers.
func NewClient(cfg Config, tokens oauth2.TokenSource, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("dataverse url is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "9.2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 10
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	base, err := url.Parse(strings.TrimRight(cfg.URL, "/") + "/api/data/v" + cfg.APIVersion + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid dataverse url %q: %w", cfg.URL, err)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config:   cfg,
		baseURL:  base,
		client:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		tokens:   tokens,
		logger:   logger.With("component", "dataverse"),
		tracer:   otel.Tracer("mercator-hq/viewexport/dataverse"),
		entities: make(map[string]*entityDefinition),
		throttle: newThrottle(cfg.RequestsPerSecond, cfg.Burst),
	}, nil
}

// Connect verifies the connection by calling WhoAmI.
func (c *Client) Connect(ctx context.Context) (*WhoAmI, error) {
	var who WhoAmI
	if err := c.getJSON(ctx, "WhoAmI", nil, &who); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "connected to dataverse",
		"url", c.config.URL,
		"user_id", who.UserID,
		"organization_id", who.OrganizationID,
	)
	return &who, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// getJSON performs a GET against a path relative to the API root and
// decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &ParseError{RawResponse: truncate(string(body), 512), Cause: err}
	}
	return nil
}

// doRequest performs an HTTP request with retry logic and returns the
// response body. Network errors and 5xx responses are retried with
// exponential backoff. A 429 is retried after its Retry-After delay when
// that is longer than the backoff.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, headers map[string]string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "dataverse.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("dataverse.path", path),
		),
	)
	defer span.End()

	// Parsing the joined string keeps OData key syntax such as
	// EntityDefinitions(LogicalName='account') unescaped.
	target, err := url.Parse(c.baseURL.String() + path)
	if err != nil {
		return nil, c.fail(span, fmt.Errorf("invalid request path %q: %w", path, err))
	}
	if len(query) > 0 {
		target.RawQuery = encodeQuery(query)
	}

	var (
		lastErr    error
		retryAfter time.Duration
	)
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.config.RetryBackoff
			if retryAfter > backoff {
				backoff = retryAfter
			}
			retryAfter = 0
			c.logger.DebugContext(ctx, "retrying request",
				"path", path,
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, c.fail(span, ctx.Err())
			case <-time.After(backoff):
			}
		}

		if c.throttle != nil {
			if err := c.throttle.Wait(ctx); err != nil {
				return nil, c.fail(span, err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
		if err != nil {
			return nil, c.fail(span, fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("OData-MaxVersion", "4.0")
		req.Header.Set("OData-Version", "4.0")
		if c.config.UserAgent != "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
		if c.tokens != nil {
			tok, err := c.tokens.Token()
			if err != nil {
				return nil, c.fail(span, &AuthError{Message: "token acquisition failed", Cause: err})
			}
			tok.SetAuthHeader(req)
		}

		c.logger.DebugContext(ctx, "sending request", "method", method, "path", path)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.fail(span, &TimeoutError{Timeout: c.config.Timeout, Cause: ctx.Err()})
			}
			lastErr = &RequestError{Method: method, Path: path, Cause: err}
			c.logger.WarnContext(ctx, "request failed, will retry",
				"path", path,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, c.fail(span, &ParseError{Cause: fmt.Errorf("failed to read response: %w", readErr)})
			}
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
			return body, nil
		}

		code, message := parseServiceError(body)

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, c.fail(span, &AuthError{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, message)})

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			lastErr = &RateLimitError{RetryAfter: retryAfter, Message: message}
			c.logger.WarnContext(ctx, "service protection limit hit, will retry",
				"path", path,
				"retry_after", retryAfter,
				"attempt", attempt+1,
			)

		case resp.StatusCode < 500:
			return nil, c.fail(span, &RequestError{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Code:       code,
				Message:    message,
			})

		default:
			lastErr = &RequestError{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Code:       code,
				Message:    message,
			}
			c.logger.WarnContext(ctx, "request returned error status, will retry",
				"path", path,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	return nil, c.fail(span, lastErr)
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// parseServiceError extracts the OData error code and message from an error
// body, falling back to the raw body.
func parseServiceError(body []byte) (code, message string) {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Code, envelope.Error.Message
	}
	return "", truncate(strings.TrimSpace(string(body)), 512)
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}

// encodeQuery encodes OData system query options. Spaces are sent as %20,
// which the service requires inside $filter expressions.
func encodeQuery(query url.Values) string {
	return strings.ReplaceAll(query.Encode(), "+", "%20")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
