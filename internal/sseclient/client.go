package sseclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/boostedcalls/boostedcalls/internal/events"
	"github.com/boostedcalls/boostedcalls/internal/logger"
)

const (
	defaultBaseDelay = 1 * time.Second
	defaultMaxDelay  = 30 * time.Second
)

// Handler receives every decoded event except the reserved "connected"
// acknowledgment. It runs on the client's connection goroutine; it must not
// block for long or frames will back up.
type Handler func(payload events.Payload)

// Config configures a Client.
type Config struct {
	// URL is the stream endpoint, e.g. "http://host/api/events/stream".
	URL string
	// Channels is the channel list to subscribe to. Empty means the client
	// never connects.
	Channels []string
	// Handler receives decoded events.
	Handler Handler
	// Enabled gates connection attempts. A disabled client's Start is a
	// no-op, matching a consumer whose page does not need live updates.
	Enabled bool
	// HTTPClient overrides the transport. Defaults to a client without a
	// global timeout, since the stream is long-lived and cancellation is
	// context-driven.
	HTTPClient *http.Client
	// BaseDelay and MaxDelay bound the reconnect backoff. Defaults: 1s, 30s.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Logger for connection lifecycle events.
	Logger *logger.Logger
}

func (c *Config) applyDefaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.Logger == nil {
		c.Logger = logger.GetGlobalLogger()
	}
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("sseclient: url is required")
	}
	if c.Handler == nil {
		return errors.New("sseclient: handler is required")
	}
	return nil
}

// Client is a reconnecting stream consumer. One Start/Stop cycle per client;
// Stop cancels any pending reconnect and closes the open connection, after
// which the handler is never invoked again.
type Client struct {
	cfg    Config
	log    *logger.Logger
	cancel context.CancelFunc
	done   chan struct{}

	// attempt counts consecutive failed connection cycles. It resets only
	// when a connected acknowledgment arrives, not on raw transport
	// connect: a connection that opens but dies before the ack still backs
	// off further. Touched only by the run goroutine.
	attempt int
}

// New creates a stream client from config.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &Client{
		cfg: cfg,
		log: cfg.Logger.WithComponent("sseclient"),
	}, nil
}

// Start begins the connect loop. It returns immediately; frames are
// dispatched from a background goroutine. Disabled clients and clients with
// no channels do not connect.
func (c *Client) Start() {
	if !c.cfg.Enabled || len(c.cfg.Channels) == 0 {
		return
	}
	if c.done != nil {
		return // already started
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

// Stop tears the client down: the pending reconnect timer is cancelled and
// any open connection is closed. It blocks until the run loop has exited, so
// no handler invocation happens after Stop returns. Safe to call on a
// never-started or already-stopped client.
func (c *Client) Stop() {
	if c.done == nil {
		return
	}
	c.cancel()
	<-c.done
	c.done = nil
	c.cancel = nil
}

// run is the connect/reconnect loop.
func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	for {
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return
		}

		delay := backoffDelay(c.attempt, c.cfg.BaseDelay, c.cfg.MaxDelay)
		c.attempt++
		c.log.Debug("Stream connection lost, reconnecting", map[string]interface{}{
			"error":    errString(err),
			"attempt":  c.attempt,
			"delay_ms": delay.Milliseconds(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connect opens one connection and consumes frames until it fails.
func (c *Client) connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("sseclient: unexpected status %d", resp.StatusCode)
	}

	reader := newFrameReader(resp.Body)
	defer reader.Close()

	for {
		f, err := reader.Next()
		if err != nil {
			return err
		}

		var payload events.Payload
		if err := json.Unmarshal([]byte(f.Data), &payload); err != nil {
			// A malformed frame is dropped; the connection stays open.
			c.log.Warn("Dropping unparseable frame", logger.Fields("error", err.Error()))
			continue
		}

		if payload.Type() == events.TypeConnected {
			// The ack is the liveness signal: only here does backoff reset.
			c.attempt = 0
			c.log.Debug("Stream connected", logger.Fields("channels", payload["channels"]))
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.cfg.Handler(payload)
	}
}

func (c *Client) streamURL() string {
	return c.cfg.URL + "?channels=" + url.QueryEscape(strings.Join(c.cfg.Channels, ","))
}

// backoffDelay computes min(base * 2^attempt, max).
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
