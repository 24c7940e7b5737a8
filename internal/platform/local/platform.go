// Package local realizes the platform collaborator interfaces for a headless
// device agent: install state persisted to a yaml file, consent delegated to
// a pluggable hook, and token issuance via the push gateway HTTP API.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinywideclouds/go-platform/pkg/net/v1"
	"gopkg.in/yaml.v3"

	"github.com/tinywideclouds/go-push-client/pkg/push"
)

const tokenPath = "/api/v1/device-tokens"

// installState is the on-disk shape of the per-install state file.
type installState struct {
	InstallationID  string               `yaml:"installation_id"`
	Permission      push.PermissionState `yaml:"permission"`
	ChannelsCreated []string             `yaml:"channels_created,omitempty"`
}

// ConsentFunc is the device UI integration point: it prompts whoever owns
// the device and reports whether consent was given.
type ConsentFunc func(ctx context.Context) (bool, error)

type Option func(*Platform)

// WithConsentFunc installs the consent prompt. Without one, every consent
// request resolves to denied.
func WithConsentFunc(fn ConsentFunc) Option {
	return func(p *Platform) { p.consent = fn }
}

// WithHTTPClient overrides the gateway HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Platform) { p.httpClient = client }
}

// WithCapabilityCheck overrides the push-capability decision.
func WithCapabilityCheck(fn func() bool) Option {
	return func(p *Platform) { p.capable = fn }
}

// Platform is the local realization of the platform services. It satisfies
// push.CapabilitySource, push.ChannelConfigurator, push.PermissionService
// and push.TokenService.
type Platform struct {
	path       string
	gatewayURL string
	httpClient *http.Client
	consent    ConsentFunc
	capable    func() bool
	logger     *slog.Logger

	mu    sync.Mutex
	state installState
}

// New loads the install state from statePath, initializing it (with a fresh
// installation ID) on first run.
func New(statePath, gatewayURL string, logger *slog.Logger, opts ...Option) (*Platform, error) {
	p := &Platform{
		path:       statePath,
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		capable:    defaultCapabilityCheck,
		logger:     logger.With("component", "LocalPlatform"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

func defaultCapabilityCheck() bool {
	// Simulated devices advertise themselves; everything else is assumed
	// push capable.
	return os.Getenv("PUSH_SIMULATOR") == ""
}

// --- push.CapabilitySource ---

func (p *Platform) IsPushCapable(_ context.Context) (bool, error) {
	return p.capable(), nil
}

// --- push.ChannelConfigurator ---

// EnsureChannel records the channel in the install state. Side-effecting only
// on the first invocation per install.
func (p *Platform) EnsureChannel(_ context.Context, channel push.Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, name := range p.state.ChannelsCreated {
		if name == channel.Name {
			return nil
		}
	}
	p.state.ChannelsCreated = append(p.state.ChannelsCreated, channel.Name)
	if err := p.saveLocked(); err != nil {
		return fmt.Errorf("failed to persist channel %q: %w", channel.Name, err)
	}
	p.logger.Info("Delivery channel created.", "channel", channel.Name)
	return nil
}

// --- push.PermissionService ---

func (p *Platform) Status(_ context.Context) (push.PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Permission, nil
}

func (p *Platform) Request(ctx context.Context) (push.PermissionState, error) {
	p.mu.Lock()
	if p.state.Permission == push.PermissionGranted {
		p.mu.Unlock()
		return push.PermissionGranted, nil
	}
	consent := p.consent
	p.mu.Unlock()

	granted := false
	if consent != nil {
		var err error
		granted, err = consent(ctx)
		if err != nil {
			return push.PermissionUndetermined, fmt.Errorf("consent prompt failed: %w", err)
		}
	}

	state := push.PermissionDenied
	if granted {
		state = push.PermissionGranted
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Permission = state
	if err := p.saveLocked(); err != nil {
		return state, fmt.Errorf("failed to persist permission state: %w", err)
	}
	return state, nil
}

// --- push.TokenService ---

type tokenRequest struct {
	InstallationID string `json:"installationId"`
	ApplicationID  string `json:"applicationId"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Token requests a registration token from the push gateway, scoped by the
// application identity.
func (p *Platform) Token(ctx context.Context, appID urn.URN) (push.Token, error) {
	p.mu.Lock()
	installID := p.state.InstallationID
	p.mu.Unlock()

	payload, err := json.Marshal(tokenRequest{
		InstallationID: installID,
		ApplicationID:  appID.String(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.gatewayURL+tokenPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request transport failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("token request rejected: status %d", resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.Token == "" {
		return "", errors.New("gateway returned an empty token")
	}
	return push.Token(body.Token), nil
}

// InstallationID returns the stable per-install identifier.
func (p *Platform) InstallationID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.InstallationID
}

// --- state persistence ---

func (p *Platform) load() error {
	raw, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		p.state = installState{
			InstallationID: uuid.NewString(),
			Permission:     push.PermissionUndetermined,
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read install state: %w", err)
	}

	if err := yaml.Unmarshal(raw, &p.state); err != nil {
		return fmt.Errorf("failed to unmarshal install state: %w", err)
	}
	if p.state.InstallationID == "" {
		p.state.InstallationID = uuid.NewString()
	}
	if p.state.Permission == "" {
		p.state.Permission = push.PermissionUndetermined
	}
	return nil
}

func (p *Platform) saveLocked() error {
	raw, err := yaml.Marshal(&p.state)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, raw, 0o600)
}
