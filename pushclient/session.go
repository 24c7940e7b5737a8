// Package pushclient turns a bare process into a registered, addressable
// endpoint for a push notification service and keeps that registration
// synchronized with the backend for the lifetime of a session.
package pushclient

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-push-client/internal/acquire"
	"github.com/tinywideclouds/go-push-client/internal/listen"
	"github.com/tinywideclouds/go-push-client/internal/probe"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// Hooks are the application callbacks invoked on incoming events. Both are
// optional. OnResponded is the navigation integration point; the navigation
// itself is the application's business.
type Hooks struct {
	OnReceived  func(push.Notification)
	OnResponded func(push.Response)
}

// Session is the lifecycle controller: one instance per session, from mount
// to teardown. It owns the registration token and the latest-notification
// observables; external components read them but never mutate them.
type Session struct {
	appID      urn.URN
	prober     *probe.Prober
	acquisitor *acquire.Acquisitor
	registrar  push.Registrar
	listeners  *listen.Manager
	hooks      Hooks
	logger     *slog.Logger

	mu           sync.Mutex
	state        push.SessionState
	token        push.Token
	latest       *push.Notification
	handles      *listen.Handles
	handlesReady bool

	settled chan struct{}
}

func NewSession(
	appID urn.URN,
	prober *probe.Prober,
	acquisitor *acquire.Acquisitor,
	registrar push.Registrar,
	listeners *listen.Manager,
	hooks Hooks,
	logger *slog.Logger,
) *Session {
	return &Session{
		appID:      appID,
		prober:     prober,
		acquisitor: acquisitor,
		registrar:  registrar,
		listeners:  listeners,
		hooks:      hooks,
		logger:     logger.With("component", "Session"),
		state:      push.StateIdle,
		settled:    make(chan struct{}),
	}
}

// Start runs the session flow: probe, then token acquisition and listener
// setup in parallel. It returns once the listeners are up; acquisition and
// backend sync continue in the background and their results are discarded if
// the session is torn down first. Listener setup is unconditional, so
// incoming notifications are observed even when no token could be acquired.
func (s *Session) Start(ctx context.Context) {
	if !s.transition(push.StateIdle, push.StateProbing) {
		s.logger.Warn("Start called on a session that already ran; ignoring.")
		return
	}

	capability := s.prober.Probe(ctx)
	s.transition(push.StateProbing, push.StateAcquiring)

	go s.acquireAndSync(ctx, capability)

	handles := s.listeners.Start(ctx, s.handleReceived, s.handleResponded)

	s.mu.Lock()
	if s.state == push.StateTornDown {
		// Torn down while we were subscribing; release immediately.
		s.mu.Unlock()
		s.listeners.Stop(ctx, handles)
		return
	}
	s.handles = handles
	s.handlesReady = true
	s.maybeListenLocked()
	s.mu.Unlock()
}

// acquireAndSync resolves the token and pushes it to the backend. Every state
// update is guarded by a liveness check: a session torn down mid-flight
// absorbs the result silently.
func (s *Session) acquireAndSync(ctx context.Context, capability probe.Capability) {
	defer close(s.settled)

	token, ok := s.acquisitor.Acquire(ctx, capability.PushCapable, s.appID)

	if !ok {
		s.advanceAfterAcquisition(push.StateSyncSkipped, "")
		return
	}

	// The token is observable as soon as it exists; sync failure never
	// reverts it.
	if !s.advanceAfterAcquisition(push.StateSynced, token) {
		s.logger.Debug("Session torn down during acquisition; discarding token.")
		return
	}

	if err := s.registrar.Register(ctx, token); err != nil {
		s.logger.Error("Backend token registration failed; continuing unregistered.", "err", err)
	}
}

// advanceAfterAcquisition records the terminal acquisition state and the
// token, unless the session has been torn down.
func (s *Session) advanceAfterAcquisition(terminal push.SessionState, token push.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == push.StateTornDown {
		return false
	}
	s.token = token
	s.state = terminal
	s.maybeListenLocked()
	return true
}

// maybeListenLocked settles the machine into Listening once acquisition has
// a terminal state and listener setup has run. Either side can finish first.
func (s *Session) maybeListenLocked() {
	if !s.handlesReady {
		return
	}
	if s.state == push.StateSynced || s.state == push.StateSyncSkipped {
		s.state = push.StateListening
	}
}

func (s *Session) handleReceived(n push.Notification) {
	s.mu.Lock()
	if s.state == push.StateTornDown {
		s.mu.Unlock()
		return
	}
	s.latest = &n
	hook := s.hooks.OnReceived
	s.mu.Unlock()

	s.logger.Debug("Notification received.", "id", n.ID, "title", n.Title)
	if hook != nil {
		hook(n)
	}
}

func (s *Session) handleResponded(r push.Response) {
	s.mu.Lock()
	if s.state == push.StateTornDown {
		s.mu.Unlock()
		return
	}
	hook := s.hooks.OnResponded
	s.mu.Unlock()

	s.logger.Debug("Notification responded.", "id", r.Notification.ID, "action", r.ActionID)
	if hook != nil {
		hook(r)
	}
}

// Teardown ends the session: both listener handles are released
// synchronously, regardless of how acquisition or sync concluded. In-flight
// acquisition is not cancelled; its eventual result is discarded. Idempotent.
func (s *Session) Teardown(ctx context.Context) {
	s.mu.Lock()
	if s.state == push.StateTornDown {
		s.mu.Unlock()
		return
	}
	s.state = push.StateTornDown
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	s.listeners.Stop(ctx, handles)
	s.logger.Info("Session torn down.")
}

// Settled is closed once token acquisition and backend sync have resolved,
// successfully or not. Observers needing a stable token should wait on it.
func (s *Session) Settled() <-chan struct{} {
	return s.settled
}

// State returns the controller's current lifecycle state.
func (s *Session) State() push.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentToken returns the session token, if one was acquired. Set at most
// once per session.
func (s *Session) CurrentToken() (push.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, !s.token.IsZero()
}

// LatestNotification returns the most recently received notification. There
// is no history buffer; each received event replaces the previous value.
func (s *Session) LatestNotification() (push.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return push.Notification{}, false
	}
	return *s.latest, true
}

// ActiveSubscriptions reports how many event-stream handles are live.
func (s *Session) ActiveSubscriptions() int {
	s.mu.Lock()
	handles := s.handles
	s.mu.Unlock()
	if handles == nil {
		return 0
	}
	return handles.Active()
}

// transition performs a compare-and-set on the state machine.
func (s *Session) transition(from, to push.SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}
