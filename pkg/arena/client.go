package arena

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var (
	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests sent to the arena backend.",
		Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "status"})

	upstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "upstream",
		Name:      "request_failures_total",
		Help:      "Number of arena backend requests that failed or returned non-2xx.",
	}, []string{"method", "status"})
)

// UnauthorizedHook is invoked when the upstream answers 401 for a token.
type UnauthorizedHook func(ctx context.Context, token string)

// Config defines the options for the arena backend client.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RPS            float64
	Burst          int
	HTTPClient     *http.Client
	OnUnauthorized UnauthorizedHook
	Logger         zerolog.Logger
}

// Client is a thin JSON REST client for the arena backend.
type Client struct {
	baseURL        string
	http           *http.Client
	limiter        *rate.Limiter
	onUnauthorized UnauthorizedHook
	tracer         trace.Tracer
	logger         zerolog.Logger
}

// New builds a client from cfg.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("arena base url is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:        base,
		http:           httpClient,
		limiter:        rate.NewLimiter(limit, burst),
		onUnauthorized: cfg.OnUnauthorized,
		tracer:         otel.Tracer("github.com/noah-isme/gema-arena/pkg/arena"),
		logger:         cfg.Logger.With().Str("component", "arena_client").Logger(),
	}, nil
}

// SetUnauthorizedHook replaces the 401 hook. It must be called before the
// client is shared between goroutines.
func (c *Client) SetUnauthorizedHook(hook UnauthorizedHook) {
	c.onUnauthorized = hook
}

// Get issues a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Ping reports whether the backend answers at all. Client errors still prove
// it is reachable, so only transport failures and 5xx responses count.
func (c *Client) Ping(ctx context.Context) error {
	err := c.Get(ctx, "/challenges/current", nil)
	if apiErr, ok := AsAPIError(err); ok && apiErr.StatusCode < http.StatusInternalServerError {
		return nil
	}
	return err
}

// Do performs a request against the backend. Non-2xx responses are returned
// as *APIError; an empty 2xx body leaves out untouched.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "arena."+strings.ToLower(method), trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("arena.path", path),
	))
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("arena rate limit: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token := TokenFromContext(ctx)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if correlation := CorrelationFromContext(ctx); correlation != "" {
		req.Header.Set("X-Correlation-ID", correlation)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		upstreamFailures.WithLabelValues(method, "transport").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrUnreachable, err)
	}
	defer resp.Body.Close()

	status := fmt.Sprintf("%d", resp.StatusCode)
	upstreamDuration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("read %s %s: %w: %w", method, path, ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstreamFailures.WithLabelValues(method, status).Inc()
		apiErr := decodeAPIError(resp, raw)
		span.SetStatus(codes.Error, apiErr.Message)

		if resp.StatusCode == http.StatusUnauthorized && token != "" && c.onUnauthorized != nil {
			c.onUnauthorized(ctx, token)
		}

		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("arena request rejected")
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		span.RecordError(err)
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	return nil
}

func decodeAPIError(resp *http.Response, raw []byte) *APIError {
	var envelope struct {
		StatusCode int             `json:"statusCode"`
		Message    json.RawMessage `json:"message"`
		Error      string          `json:"error"`
	}
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &envelope) == nil {
		if message := envelopeMessage(envelope.Message); message != "" {
			status := envelope.StatusCode
			if status == 0 {
				status = resp.StatusCode
			}
			return &APIError{StatusCode: status, Message: message, Kind: envelope.Error}
		}
	}

	message := http.StatusText(resp.StatusCode)
	if message == "" {
		message = "An error occurred"
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

// envelopeMessage accepts both a plain message and the list form produced by
// upstream field validation.
func envelopeMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return strings.TrimSpace(strings.Join(many, "; "))
	}

	return ""
}
