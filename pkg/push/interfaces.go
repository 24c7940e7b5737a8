package push

import (
	"context"

	"github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// CapabilitySource answers whether the running environment can receive push
// notifications at all (a simulator or stripped-down install cannot).
type CapabilitySource interface {
	IsPushCapable(ctx context.Context) (bool, error)
}

// ChannelConfigurator creates delivery channels on platforms that require
// them. EnsureChannel must be idempotent; creating an existing channel is a
// no-op.
type ChannelConfigurator interface {
	EnsureChannel(ctx context.Context, channel Channel) error
}

// PermissionService queries and requests user consent for notifications.
type PermissionService interface {
	// Status returns the current consent state without prompting.
	Status(ctx context.Context) (PermissionState, error)
	// Request prompts the user for consent and returns the resulting state.
	Request(ctx context.Context) (PermissionState, error)
}

// TokenService issues registration tokens from the platform's push delivery
// service, scoped by the stable application identity.
type TokenService interface {
	Token(ctx context.Context, appID urn.URN) (Token, error)
}

// Registrar transmits an issued token to the backend registration endpoint.
// Re-registering the same token is always safe; idempotency is a backend
// contract this client depends on but does not enforce.
type Registrar interface {
	Register(ctx context.Context, token Token) error
}

// EventSource is the platform's event delivery system. Each Subscribe call
// yields exactly one live Subscription; the two streams are independent and
// one failing to subscribe must not prevent the other.
type EventSource interface {
	SubscribeReceived(ctx context.Context, handler func(Notification)) (Subscription, error)
	SubscribeResponded(ctx context.Context, handler func(Response)) (Subscription, error)
}

// Subscription is the opaque handle for one active event-stream listener.
// A leaked handle causes duplicate or orphaned delivery on the next session,
// so every handle must be released at session end.
type Subscription interface {
	ID() string
	// Unsubscribe releases the handle. Idempotent.
	Unsubscribe(ctx context.Context) error
}
