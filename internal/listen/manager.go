// Package listen owns the two notification event-stream subscriptions for
// the lifetime of a session.
package listen

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// Handles holds the subscription handles of one session. Exactly one handle
// exists per stream; a nil slot means that stream's subscription failed.
type Handles struct {
	mu        sync.Mutex
	received  push.Subscription
	responded push.Subscription
	released  bool
}

// Active returns the number of live subscriptions.
func (h *Handles) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return 0
	}
	n := 0
	if h.received != nil {
		n++
	}
	if h.responded != nil {
		n++
	}
	return n
}

// take clears the handle slots exactly once and returns what was held.
func (h *Handles) take() (received, responded push.Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, nil
	}
	h.released = true
	received, responded = h.received, h.responded
	h.received, h.responded = nil, nil
	return received, responded
}

type Manager struct {
	source push.EventSource
	logger *slog.Logger
}

func NewManager(source push.EventSource, logger *slog.Logger) *Manager {
	return &Manager{
		source: source,
		logger: logger.With("component", "ListenerManager"),
	}
}

// Start subscribes to both streams. The streams are independent: a failed
// subscription is fatal to that stream only, and the other is still
// attempted. Partial listening capability is preferable to none, so Start
// never returns an error; failures are logged and leave a nil handle slot.
func (m *Manager) Start(ctx context.Context, onReceived func(push.Notification), onResponded func(push.Response)) *Handles {
	h := &Handles{}

	received, err := m.source.SubscribeReceived(ctx, onReceived)
	if err != nil {
		m.logger.Error("Received-stream subscription failed; continuing without it.", "err", err)
	} else {
		h.received = received
		m.logger.Debug("Received stream subscribed.", "handle", received.ID())
	}

	responded, err := m.source.SubscribeResponded(ctx, onResponded)
	if err != nil {
		m.logger.Error("Responded-stream subscription failed; continuing without it.", "err", err)
	} else {
		h.responded = responded
		m.logger.Debug("Responded stream subscribed.", "handle", responded.ID())
	}

	return h
}

// Stop releases every live handle. Safe to call with nil or partially
// populated handles, and idempotent: a second call finds nothing to release.
func (m *Manager) Stop(ctx context.Context, h *Handles) {
	if h == nil {
		return
	}
	received, responded := h.take()

	if received != nil {
		if err := received.Unsubscribe(ctx); err != nil {
			m.logger.Warn("Received-stream unsubscribe failed.", "handle", received.ID(), "err", err)
		}
	}
	if responded != nil {
		if err := responded.Unsubscribe(ctx); err != nil {
			m.logger.Warn("Responded-stream unsubscribe failed.", "handle", responded.ID(), "err", err)
		}
	}
}
