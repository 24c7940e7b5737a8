package acquire_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-push-client/internal/acquire"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// --- Mocks ---

type MockPermissionService struct {
	mock.Mock
}

func (m *MockPermissionService) Status(ctx context.Context) (push.PermissionState, error) {
	args := m.Called(ctx)
	return args.Get(0).(push.PermissionState), args.Error(1)
}

func (m *MockPermissionService) Request(ctx context.Context) (push.PermissionState, error) {
	args := m.Called(ctx)
	return args.Get(0).(push.PermissionState), args.Error(1)
}

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Token(ctx context.Context, appID urn.URN) (push.Token, error) {
	args := m.Called(ctx, appID)
	return args.Get(0).(push.Token), args.Error(1)
}

func setup(t *testing.T) (*acquire.Acquisitor, *MockPermissionService, *MockTokenService, urn.URN) {
	t.Helper()
	perms := new(MockPermissionService)
	tokens := new(MockTokenService)
	appID, err := urn.Parse("urn:tc:app:home-watch")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return acquire.NewAcquisitor(perms, tokens, logger), perms, tokens, appID
}

// --- Tests ---

func TestAcquire_NotCapableShortCircuits(t *testing.T) {
	acq, perms, tokens, appID := setup(t)

	token, ok := acq.Acquire(context.Background(), false, appID)

	assert.False(t, ok)
	assert.True(t, token.IsZero())
	perms.AssertNotCalled(t, "Status", mock.Anything)
	tokens.AssertNotCalled(t, "Token", mock.Anything, mock.Anything)
}

func TestAcquire_AlreadyGranted(t *testing.T) {
	acq, perms, tokens, appID := setup(t)
	ctx := context.Background()

	perms.On("Status", ctx).Return(push.PermissionGranted, nil)
	tokens.On("Token", ctx, appID).Return(push.Token("tok-123"), nil)

	token, ok := acq.Acquire(ctx, true, appID)

	assert.True(t, ok)
	assert.Equal(t, push.Token("tok-123"), token)
	// Granted state must not trigger a consent prompt.
	perms.AssertNotCalled(t, "Request", mock.Anything)
}

func TestAcquire_UndeterminedThenGranted(t *testing.T) {
	acq, perms, tokens, appID := setup(t)
	ctx := context.Background()

	perms.On("Status", ctx).Return(push.PermissionUndetermined, nil)
	perms.On("Request", ctx).Return(push.PermissionGranted, nil).Once()
	tokens.On("Token", ctx, appID).Return(push.Token("tok-456"), nil)

	token, ok := acq.Acquire(ctx, true, appID)

	assert.True(t, ok)
	assert.Equal(t, push.Token("tok-456"), token)
	perms.AssertExpectations(t)
	perms.AssertNumberOfCalls(t, "Request", 1)
}

func TestAcquire_DeniedAfterRequest(t *testing.T) {
	acq, perms, tokens, appID := setup(t)
	ctx := context.Background()

	perms.On("Status", ctx).Return(push.PermissionUndetermined, nil)
	perms.On("Request", ctx).Return(push.PermissionDenied, nil)

	token, ok := acq.Acquire(ctx, true, appID)

	assert.False(t, ok)
	assert.True(t, token.IsZero())
	tokens.AssertNotCalled(t, "Token", mock.Anything, mock.Anything)
}

func TestAcquire_IssuanceFailureIsAbsorbed(t *testing.T) {
	acq, perms, tokens, appID := setup(t)
	ctx := context.Background()

	perms.On("Status", ctx).Return(push.PermissionGranted, nil)
	tokens.On("Token", ctx, appID).Return(push.Token(""), errors.New("platform unavailable"))

	token, ok := acq.Acquire(ctx, true, appID)

	assert.False(t, ok)
	assert.True(t, token.IsZero())
}

func TestAcquire_StatusErrorIsAbsorbed(t *testing.T) {
	acq, perms, tokens, appID := setup(t)
	ctx := context.Background()

	perms.On("Status", ctx).Return(push.PermissionUndetermined, errors.New("settings store locked"))

	_, ok := acq.Acquire(ctx, true, appID)

	assert.False(t, ok)
	perms.AssertNotCalled(t, "Request", mock.Anything)
	tokens.AssertNotCalled(t, "Token", mock.Anything, mock.Anything)
}
