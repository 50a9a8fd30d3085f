// Package upstream is the REST client for the voice-AI backend that owns
// calls, contacts, and call scripts. The server proxies browser requests
// through this client, forwarding the caller's bearer token.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/boostedcalls/boostedcalls/internal/apperr"
	"github.com/boostedcalls/boostedcalls/internal/logger"
	"github.com/boostedcalls/boostedcalls/internal/resilience"
)

const defaultTimeout = 30 * time.Second

// Config configures the upstream client.
type Config struct {
	// BaseURL is the base URL of the voice-AI backend API.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout is the per-request timeout. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// AssistantID is the default assistant used when a call request
	// does not name one.
	AssistantID string `yaml:"assistant_id" mapstructure:"assistant_id"`

	// PhoneNumberID is the default outbound phone number used when a
	// call request does not name one.
	PhoneNumberID string `yaml:"phone_number_id" mapstructure:"phone_number_id"`

	// Retry configures retry behavior. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-"`

	// CircuitBreaker configures circuit breaker behavior. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("upstream: base_url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("upstream: timeout must be positive")
	}
	return nil
}

// DefaultRetryConfig returns a retry config that retries only errors the
// backend marked transient.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// IsRetryable reports whether an upstream error is worth retrying.
func IsRetryable(err error) bool {
	appErr, ok := apperr.AsAppError(err)
	return ok && appErr.Retryable
}

// Client talks to the voice-AI backend.
type Client struct {
	httpClient *http.Client
	cfg        Config
	cb         *resilience.CircuitBreaker
	log        *logger.Logger
}

// New creates an upstream client.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		log:        log.WithComponent("upstream"),
	}
	if cfg.CircuitBreaker != nil {
		c.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	return c, nil
}

// CircuitState reports the breaker state for the health endpoint. Returns
// "disabled" when no breaker is configured.
func (c *Client) CircuitState() string {
	if c.cb == nil {
		return "disabled"
	}
	return c.cb.State().String()
}

// Request describes a request to the backend. Token is the caller's bearer
// token, forwarded verbatim.
type Request struct {
	Method string
	Path   string
	Token  string
	Query  url.Values
	Body   any
}

// Do executes a request and returns the raw JSON response body. Errors are
// always *apperr.AppError.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	if c.cfg.Retry != nil {
		return resilience.Retry(ctx, *c.cfg.Retry, func() (json.RawMessage, error) {
			return c.doOnce(ctx, req)
		})
	}
	return c.doOnce(ctx, req)
}

func (c *Client) doOnce(ctx context.Context, req Request) (json.RawMessage, error) {
	if c.cb == nil {
		return c.execute(ctx, req)
	}
	var body json.RawMessage
	var execErr error
	err := c.cb.Execute(func() error {
		body, execErr = c.execute(ctx, req)
		// Caller errors must not trip the breaker.
		if appErr, ok := apperr.AsAppError(execErr); ok && !appErr.Retryable {
			return nil
		}
		return execErr
	})
	if err == resilience.ErrCircuitOpen {
		return nil, apperr.ConnectionFailed("voice-AI backend", err)
	}
	if execErr != nil {
		return nil, execErr
	}
	return body, nil
}

func (c *Client) execute(ctx context.Context, req Request) (json.RawMessage, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Timeout(req.Method+" "+req.Path, err)
		}
		c.log.Warn("upstream request failed", logger.Fields(
			"method", req.Method, "path", req.Path, logger.FieldError, err.Error()))
		return nil, apperr.ConnectionFailed("voice-AI backend", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.ConnectionFailed("voice-AI backend", err)
	}

	c.log.Debug("upstream request", logger.Fields(
		"method", req.Method,
		"path", req.Path,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDuration, time.Since(start).Milliseconds()))

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, apperr.Unauthorized("")
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.Upstream(resp.StatusCode, messageFromBody(body))
	}
	return body, nil
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")

	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("encode request body: %w", err))
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, bodyReader)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("create request: %w", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	return httpReq, nil
}

// messageFromBody extracts the backend's error message, if any.
func messageFromBody(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Detail != "" {
			return parsed.Detail
		}
	}
	return ""
}
