package listen_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinywideclouds/go-push-client/internal/listen"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// --- Fakes ---

type fakeSubscription struct {
	id       string
	released atomic.Int32
}

func (s *fakeSubscription) ID() string { return s.id }

func (s *fakeSubscription) Unsubscribe(context.Context) error {
	s.released.Add(1)
	return nil
}

type fakeSource struct {
	receivedErr  error
	respondedErr error
	received     *fakeSubscription
	responded    *fakeSubscription
}

func (f *fakeSource) SubscribeReceived(ctx context.Context, h func(push.Notification)) (push.Subscription, error) {
	if f.receivedErr != nil {
		return nil, f.receivedErr
	}
	f.received = &fakeSubscription{id: "sub-received"}
	return f.received, nil
}

func (f *fakeSource) SubscribeResponded(ctx context.Context, h func(push.Response)) (push.Subscription, error) {
	if f.respondedErr != nil {
		return nil, f.respondedErr
	}
	f.responded = &fakeSubscription{id: "sub-responded"}
	return f.responded, nil
}

func newManager(source push.EventSource) *listen.Manager {
	return listen.NewManager(source, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// --- Tests ---

func TestStartStop_BothStreams(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{}
	m := newManager(source)

	h := m.Start(ctx, func(push.Notification) {}, func(push.Response) {})
	assert.Equal(t, 2, h.Active())

	m.Stop(ctx, h)
	assert.Equal(t, 0, h.Active())
	assert.Equal(t, int32(1), source.received.released.Load())
	assert.Equal(t, int32(1), source.responded.released.Load())
}

func TestStart_PartialFailureStillSubscribesOther(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{receivedErr: errors.New("stream down")}
	m := newManager(source)

	h := m.Start(ctx, func(push.Notification) {}, func(push.Response) {})

	assert.Equal(t, 1, h.Active())
	assert.NotNil(t, source.responded)

	// Stop with a partially populated handle releases the one live stream.
	m.Stop(ctx, h)
	assert.Equal(t, 0, h.Active())
	assert.Equal(t, int32(1), source.responded.released.Load())
}

func TestStop_Idempotent(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{}
	m := newManager(source)

	h := m.Start(ctx, func(push.Notification) {}, func(push.Response) {})
	m.Stop(ctx, h)
	m.Stop(ctx, h)

	// No duplicate release attempts.
	assert.Equal(t, int32(1), source.received.released.Load())
	assert.Equal(t, int32(1), source.responded.released.Load())
}

func TestStop_NilHandles(t *testing.T) {
	m := newManager(&fakeSource{})
	m.Stop(context.Background(), nil) // must not panic
}
