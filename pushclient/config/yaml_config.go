package config

import (
	"fmt"
	"log/slog"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-platform/pkg/net/v1"
)

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	Role           string   `yaml:"role"`
}

type YamlPubsubConfig struct {
	ProjectID               string `yaml:"project_id"`
	ReceivedTopicID         string `yaml:"received_topic_id"`
	RespondedTopicID        string `yaml:"responded_topic_id"`
	ReceivedSubscriptionID  string `yaml:"received_subscription_id"`
	RespondedSubscriptionID string `yaml:"responded_subscription_id"`
	NumWorkers              int    `yaml:"num_workers"`
}

type YamlRedisConfig struct {
	Addr             string `yaml:"addr"`
	Password         string `yaml:"password"`
	DB               int    `yaml:"db"`
	ReceivedChannel  string `yaml:"received_channel"`
	RespondedChannel string `yaml:"responded_channel"`
}

type YamlWebsocketConfig struct {
	GatewayURL string `yaml:"gateway_url"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	AppID          string              `yaml:"app_id"`
	ListenAddr     string              `yaml:"listen_addr"`
	BackendBaseURL string              `yaml:"backend_base_url"`
	PushGatewayURL string              `yaml:"push_gateway_url"`
	StatePath      string              `yaml:"state_path"`
	AutoGrant      bool                `yaml:"auto_grant"`
	EventSource    string              `yaml:"event_source"`
	CorsConfig     YamlCorsConfig      `yaml:"cors"`
	PubsubConfig   YamlPubsubConfig    `yaml:"pubsub"`
	RedisConfig    YamlRedisConfig     `yaml:"redis"`
	WsConfig       YamlWebsocketConfig `yaml:"websocket"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	var appID urn.URN
	if baseCfg.AppID != "" {
		parsed, err := urn.Parse(baseCfg.AppID)
		if err != nil {
			return nil, fmt.Errorf("app_id is not a valid urn: %w", err)
		}
		appID = parsed
	}

	cfg := &Config{
		AppID:          appID,
		ListenAddr:     baseCfg.ListenAddr,
		BackendBaseURL: baseCfg.BackendBaseURL,
		PushGatewayURL: baseCfg.PushGatewayURL,
		StatePath:      baseCfg.StatePath,
		AutoGrant:      baseCfg.AutoGrant,
		EventSource:    EventSourceKind(baseCfg.EventSource),
		CorsConfig: middleware.CorsConfig{
			AllowedOrigins: baseCfg.CorsConfig.AllowedOrigins,
			Role:           middleware.CorsRole(baseCfg.CorsConfig.Role),
		},
		Pubsub: PubsubConfig{
			ProjectID:               baseCfg.PubsubConfig.ProjectID,
			ReceivedTopicID:         baseCfg.PubsubConfig.ReceivedTopicID,
			RespondedTopicID:        baseCfg.PubsubConfig.RespondedTopicID,
			ReceivedSubscriptionID:  baseCfg.PubsubConfig.ReceivedSubscriptionID,
			RespondedSubscriptionID: baseCfg.PubsubConfig.RespondedSubscriptionID,
			NumWorkers:              baseCfg.PubsubConfig.NumWorkers,
		},
		Redis: RedisConfig{
			Addr:             baseCfg.RedisConfig.Addr,
			Password:         baseCfg.RedisConfig.Password,
			DB:               baseCfg.RedisConfig.DB,
			ReceivedChannel:  baseCfg.RedisConfig.ReceivedChannel,
			RespondedChannel: baseCfg.RedisConfig.RespondedChannel,
		},
		Websocket: WebsocketConfig{
			GatewayURL: baseCfg.WsConfig.GatewayURL,
		},
	}

	logger.Debug("YAML config mapping complete",
		"app_id", cfg.AppID.String(),
		"listen_addr", cfg.ListenAddr,
		"event_source", cfg.EventSource,
	)

	return cfg, nil
}
