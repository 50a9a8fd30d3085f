// Package events implements the in-process publish/subscribe hub that fans
// call-status events out to connected stream handlers. Delivery is
// at-most-once and only to subscribers registered at emit time; there is no
// persistence and no cross-process fan-out (a single-process deployment
// limitation, by scope).
package events

import (
	"sync"

	"github.com/boostedcalls/boostedcalls/internal/logger"
)

// Callback receives a payload published on a subscribed channel.
type Callback func(payload Payload)

// registration pairs a callback with a unique id so the same callback can be
// registered multiple times and each cancel handle removes exactly one entry.
type registration struct {
	id int64
	fn Callback
}

// Hub is a process-wide mapping from channel name to subscriber
// registrations. One instance is constructed by the composition root and
// injected into every stream handler and the webhook trigger.
type Hub struct {
	mu       sync.RWMutex
	channels map[string][]registration
	nextID   int64
	log      *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Hub{
		channels: make(map[string][]registration),
		log:      log.WithComponent("events"),
	}
}

// Subscribe registers fn under channel and returns a cancel function that
// removes exactly that registration. Cancel is idempotent: invoking it more
// than once is a no-op.
func (h *Hub) Subscribe(channel string, fn Callback) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.channels[channel] = append(h.channels[channel], registration{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.unsubscribe(channel, id)
		})
	}
}

// unsubscribe removes the registration with the given id. The channel entry
// is pruned when its last registration goes away; pruning happens under the
// same lock as Subscribe, so it can never race a new subscription.
func (h *Hub) unsubscribe(channel string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	regs, ok := h.channels[channel]
	if !ok {
		return
	}
	for i, r := range regs {
		if r.id == id {
			h.channels[channel] = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	if len(h.channels[channel]) == 0 {
		delete(h.channels, channel)
	}
}

// Emit synchronously invokes every registration for channel in registration
// order. A panicking callback is logged and does not prevent delivery to the
// remaining subscribers. Emitting on a channel with no subscribers is a no-op.
func (h *Hub) Emit(channel string, payload Payload) {
	h.mu.RLock()
	regs := h.channels[channel]
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	h.mu.RUnlock()

	for _, r := range snapshot {
		h.invoke(channel, r, payload)
	}
}

func (h *Hub) invoke(channel string, r registration, payload Payload) {
	defer func() {
		if err := recover(); err != nil {
			h.log.Error("Subscriber callback panicked", map[string]interface{}{
				"channel": channel,
				"error":   err,
			})
		}
	}()
	r.fn(payload)
}

// Broadcast emits the payload to each channel in the list, with the same
// per-callback isolation guarantee as Emit.
func (h *Hub) Broadcast(channels []string, payload Payload) {
	for _, channel := range channels {
		h.Emit(channel, payload)
	}
}

// SubscriberCount returns the number of registrations on a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// ChannelCount returns the number of channels with at least one subscriber.
func (h *Hub) ChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}
