// Package api exposes the session's observable state over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// StateSource is the read-only view of a session the API needs.
type StateSource interface {
	State() push.SessionState
	CurrentToken() (push.Token, bool)
	LatestNotification() (push.Notification, bool)
	ActiveSubscriptions() int
}

type StatusAPI struct {
	Session StateSource
	Logger  *slog.Logger
}

func NewStatusAPI(session StateSource, logger *slog.Logger) *StatusAPI {
	return &StatusAPI{
		Session: session,
		Logger:  logger,
	}
}

type statusResponse struct {
	State               push.SessionState  `json:"state"`
	Token               string             `json:"token,omitempty"`
	LatestNotification  *push.Notification `json:"latestNotification,omitempty"`
	ActiveSubscriptions int                `json:"activeSubscriptions"`
}

// Status reports the session's lifecycle state and observables. Readers get
// a snapshot; they never mutate session state through this surface.
func (api *StatusAPI) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		State:               api.Session.State(),
		ActiveSubscriptions: api.Session.ActiveSubscriptions(),
	}
	if token, ok := api.Session.CurrentToken(); ok {
		resp.Token = token.String()
	}
	if latest, ok := api.Session.LatestNotification(); ok {
		resp.LatestNotification = &latest
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		api.Logger.Error("failed to encode status response", "err", err)
	}
}
