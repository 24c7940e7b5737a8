// Package push contains the public domain models and collaborator interfaces
// for the push subscription client.
package push

import "time"

// Token is the opaque registration token issued by the platform's push
// delivery service. It is scoped to one (device, installation) pair and is
// immutable within a session; a new one is acquired each session start.
type Token string

// IsZero reports whether no token has been issued.
func (t Token) IsZero() bool { return t == "" }

func (t Token) String() string { return string(t) }

// PermissionState is the user's consent for receiving notifications.
// The only transitions this client performs are undetermined -> denied|granted
// and denied -> granted via an explicit consent request; revocation happens
// outside the client and is observed fresh on the next session.
type PermissionState string

const (
	PermissionUndetermined PermissionState = "undetermined"
	PermissionDenied       PermissionState = "denied"
	PermissionGranted      PermissionState = "granted"
)

// Stream identifies one of the two independent notification event streams.
type Stream string

const (
	// StreamReceived fires when a notification arrives while the session is active.
	StreamReceived Stream = "received"
	// StreamResponded fires when the user interacts with a delivered
	// notification. Responded events can arrive long after the session that
	// received the notification, so no ordering relative to StreamReceived
	// (or to token acquisition) may be assumed.
	StreamResponded Stream = "responded"
)

// Notification is a single delivered notification. Immutable once created.
type Notification struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data,omitempty"`
	ReceivedAt time.Time         `json:"receivedAt"`
}

// Response is the payload of a responded event: the notification the user
// acted on, plus the action they chose (empty for a plain tap).
type Response struct {
	Notification Notification `json:"notification"`
	ActionID     string       `json:"actionId,omitempty"`
}

// Channel describes a delivery channel on platforms that require one.
type Channel struct {
	Name             string
	Importance       ChannelImportance
	VibrationPattern []int
	Color            string
}

// SessionState is the lifecycle controller's position in its state machine:
// Idle -> Probing -> Acquiring -> (Synced | SyncSkipped) -> Listening ->
// TornDown. No transition ever leaves TornDown.
type SessionState string

const (
	StateIdle        SessionState = "idle"
	StateProbing     SessionState = "probing"
	StateAcquiring   SessionState = "acquiring"
	StateSynced      SessionState = "synced"
	StateSyncSkipped SessionState = "sync_skipped"
	StateListening   SessionState = "listening"
	StateTornDown    SessionState = "torn_down"
)

// ChannelImportance mirrors the platform channel importance levels.
type ChannelImportance int

const (
	ImportanceDefault ChannelImportance = iota
	ImportanceHigh
	ImportanceMax
)
