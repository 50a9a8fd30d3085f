package stream

import (
	"sync"

	"github.com/boostedcalls/boostedcalls/internal/logger"
)

// queueSize bounds the per-connection outbound buffer. A client that cannot
// drain this many frames is considered too slow and loses events rather than
// blocking the emitting goroutine.
const queueSize = 256

// connection holds the mutable state of one open stream: the outbound frame
// queue, the retained subscription cancel handles, and the active flag that
// makes late deliveries after close a safe no-op.
type connection struct {
	queue   chan []byte
	log     *logger.Logger
	onDrop  func()
	mu      sync.Mutex
	cancels []func()
	closed  bool
	once    sync.Once
}

func newConnection(log *logger.Logger) *connection {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &connection{
		queue: make(chan []byte, queueSize),
		log:   log,
	}
}

// retain records a subscription cancel handle for teardown.
func (c *connection) retain(cancel func()) {
	c.mu.Lock()
	c.cancels = append(c.cancels, cancel)
	c.mu.Unlock()
}

// send enqueues a frame for the write loop. Sends after close, and sends
// that would overflow the queue, are dropped.
func (c *connection) send(frame []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	select {
	case c.queue <- frame:
	default:
		c.log.Warn("Connection queue full, dropping frame")
		if c.onDrop != nil {
			c.onDrop()
		}
	}
}

// close tears the connection down exactly once: marks it inactive and
// cancels every retained subscription. Safe to call multiple times.
func (c *connection) close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		cancels := c.cancels
		c.cancels = nil
		c.mu.Unlock()

		for _, cancel := range cancels {
			cancel()
		}
	})
}
