// Package probe decides whether the running device can receive push
// notifications and prepares the default delivery channel where one is needed.
package probe

import (
	"context"
	"log/slog"

	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// Capability is the result of a probe.
type Capability struct {
	PushCapable bool
}

// DefaultChannel is the delivery channel every install gets. Creating it is
// idempotent, so repeating it on every session start is harmless.
func DefaultChannel() push.Channel {
	return push.Channel{
		Name:             "default",
		Importance:       push.ImportanceMax,
		VibrationPattern: []int{0, 250, 250, 250},
		Color:            "#FF231F7C",
	}
}

type Prober struct {
	caps     push.CapabilitySource
	channels push.ChannelConfigurator
	logger   *slog.Logger
}

// NewProber wires the platform capability query and, optionally, the channel
// configurator. channels may be nil on platforms without delivery channels.
func NewProber(caps push.CapabilitySource, channels push.ChannelConfigurator, logger *slog.Logger) *Prober {
	return &Prober{
		caps:     caps,
		channels: channels,
		logger:   logger.With("component", "Prober"),
	}
}

// Probe queries device capability and ensures the default channel exists.
// Channel setup is best effort: a failure is logged and swallowed, never
// propagated, so probing can never block the session flow. A failed
// capability query is treated as "not capable".
func (p *Prober) Probe(ctx context.Context) Capability {
	if p.channels != nil {
		if err := p.channels.EnsureChannel(ctx, DefaultChannel()); err != nil {
			p.logger.Warn("Default channel setup failed; continuing without it.", "err", err)
		}
	}

	capable, err := p.caps.IsPushCapable(ctx)
	if err != nil {
		p.logger.Warn("Capability query failed; treating device as not push capable.", "err", err)
		return Capability{PushCapable: false}
	}
	if !capable {
		p.logger.Info("Device is not push capable; token acquisition will be skipped.")
	}
	return Capability{PushCapable: capable}
}
