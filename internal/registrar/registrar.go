// Package registrar transmits acquired registration tokens to the backend so
// it can target this installation.
package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tinywideclouds/go-push-client/pkg/push"
)

const registerPath = "/api/register-push-token"

type registerRequest struct {
	Token string `json:"token"`
}

// HTTPRegistrar posts tokens to {baseURL}/api/register-push-token.
// Any non-2xx response is an error; the caller decides whether to absorb it.
// The backend treats re-registration of the same token as an upsert, so the
// call is safe to repeat.
type HTTPRegistrar struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPRegistrar builds a registrar for the given backend base URL.
// httpClient may be nil, in which case a client with a sane timeout is used.
func NewHTTPRegistrar(baseURL string, httpClient *http.Client, logger *slog.Logger) *HTTPRegistrar {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRegistrar{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With("component", "HTTPRegistrar"),
	}
}

func (r *HTTPRegistrar) Register(ctx context.Context, token push.Token) error {
	payload, err := json.Marshal(registerRequest{Token: token.String()})
	if err != nil {
		return fmt.Errorf("failed to marshal register request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+registerPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build register request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("register-push-token transport failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("register-push-token rejected: status %d", resp.StatusCode)
	}

	r.logger.Debug("Token registered with backend.", "status", resp.StatusCode)
	return nil
}
