package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// EventSourceKind selects which platform event delivery adapter the agent
// uses.
type EventSourceKind string

const (
	EventSourcePubsub    EventSourceKind = "pubsub"
	EventSourceRedis     EventSourceKind = "redis"
	EventSourceWebsocket EventSourceKind = "websocket"
)

type PubsubConfig struct {
	ProjectID               string
	ReceivedTopicID         string
	RespondedTopicID        string
	ReceivedSubscriptionID  string
	RespondedSubscriptionID string
	NumWorkers              int
}

type RedisConfig struct {
	Addr             string
	Password         string
	DB               int
	ReceivedChannel  string
	RespondedChannel string
}

type WebsocketConfig struct {
	GatewayURL string
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	AppID          urn.URN
	ListenAddr     string
	BackendBaseURL string
	PushGatewayURL string
	StatePath      string
	AutoGrant      bool

	EventSource EventSourceKind
	CorsConfig  middleware.CorsConfig
	Pubsub      PubsubConfig
	Redis       RedisConfig
	Websocket   WebsocketConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("APP_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "APP_ID", "source", "env")
		appID, err := urn.Parse(val)
		if err != nil {
			return nil, fmt.Errorf("APP_ID is not a valid urn: %w", err)
		}
		cfg.AppID = appID
	}
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("BACKEND_BASE_URL"); val != "" {
		logger.Debug("Overriding config value", "key", "BACKEND_BASE_URL", "source", "env")
		cfg.BackendBaseURL = val
	}
	if val := os.Getenv("PUSH_GATEWAY_URL"); val != "" {
		logger.Debug("Overriding config value", "key", "PUSH_GATEWAY_URL", "source", "env")
		cfg.PushGatewayURL = val
	}
	if val := os.Getenv("STATE_PATH"); val != "" {
		cfg.StatePath = val
	}
	if val := os.Getenv("AUTO_GRANT"); val != "" {
		autoGrant, _ := strconv.ParseBool(val)
		cfg.AutoGrant = autoGrant
	}
	if val := os.Getenv("EVENT_SOURCE"); val != "" {
		logger.Debug("Overriding config value", "key", "EVENT_SOURCE", "source", "env")
		cfg.EventSource = EventSourceKind(val)
	}

	// Pubsub overrides
	if val := os.Getenv("PROJECT_ID"); val != "" {
		cfg.Pubsub.ProjectID = val
	}
	if val := os.Getenv("RECEIVED_SUBSCRIPTION_ID"); val != "" {
		cfg.Pubsub.ReceivedSubscriptionID = val
	}
	if val := os.Getenv("RESPONDED_SUBSCRIPTION_ID"); val != "" {
		cfg.Pubsub.RespondedSubscriptionID = val
	}
	if val := os.Getenv("NUM_STREAM_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil && workers > 0 {
			cfg.Pubsub.NumWorkers = workers
		}
	}

	// Redis overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}

	// Websocket overrides
	if val := os.Getenv("WS_GATEWAY_URL"); val != "" {
		cfg.Websocket.GatewayURL = val
	}

	// CORS overrides
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug("Overriding config value", "key", "CORS_ALLOWED_ORIGINS", "source", "env")
		rawOrigins := strings.Split(corsOrigins, ",")
		var cleanOrigins []string
		for _, o := range rawOrigins {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cleanOrigins = append(cleanOrigins, trimmed)
			}
		}
		cfg.CorsConfig.AllowedOrigins = cleanOrigins
	}

	// Final validation
	if cfg.AppID.String() == "" {
		return nil, fmt.Errorf("app_id is required (set via YAML or APP_ID env var)")
	}
	if cfg.BackendBaseURL == "" {
		return nil, fmt.Errorf("backend_base_url is required (set via YAML or BACKEND_BASE_URL env var)")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.StatePath == "" {
		cfg.StatePath = "push-install-state.yaml"
	}
	if cfg.EventSource == "" {
		cfg.EventSource = EventSourcePubsub
	}
	switch cfg.EventSource {
	case EventSourcePubsub, EventSourceRedis, EventSourceWebsocket:
	default:
		return nil, fmt.Errorf("unknown event_source %q", cfg.EventSource)
	}
	if cfg.Pubsub.NumWorkers <= 0 {
		cfg.Pubsub.NumWorkers = 1
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
