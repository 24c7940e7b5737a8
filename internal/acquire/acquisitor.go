// Package acquire obtains user consent and a registration token from the
// platform's push delivery service.
package acquire

import (
	"context"
	"log/slog"

	"github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

type Acquisitor struct {
	permissions push.PermissionService
	tokens      push.TokenService
	logger      *slog.Logger
}

func NewAcquisitor(permissions push.PermissionService, tokens push.TokenService, logger *slog.Logger) *Acquisitor {
	return &Acquisitor{
		permissions: permissions,
		tokens:      tokens,
		logger:      logger.With("component", "Acquisitor"),
	}
}

// Acquire returns a registration token for this installation, or ok=false
// when none could be obtained. A missing token is a normal outcome, never an
// error: non-capable environments, declined consent, and platform failures
// all land here, are logged, and are not retried within the session.
func (a *Acquisitor) Acquire(ctx context.Context, capable bool, appID urn.URN) (push.Token, bool) {
	if !capable {
		a.logger.Debug("Skipping token acquisition on non-capable device.")
		return "", false
	}

	state, err := a.permissions.Status(ctx)
	if err != nil {
		a.logger.Warn("Permission status query failed; continuing without token.", "err", err)
		return "", false
	}

	if state != push.PermissionGranted {
		// Consent is requested at most once per session.
		state, err = a.permissions.Request(ctx)
		if err != nil {
			a.logger.Warn("Permission request failed; continuing without token.", "err", err)
			return "", false
		}
	}

	if state != push.PermissionGranted {
		a.logger.Info("Notification permission not granted; continuing without token.", "state", state)
		return "", false
	}

	token, err := a.tokens.Token(ctx, appID)
	if err != nil {
		a.logger.Error("Token issuance failed; continuing without token.", "err", err)
		return "", false
	}

	a.logger.Info("Registration token acquired.", "app_id", appID.String())
	return token, true
}
