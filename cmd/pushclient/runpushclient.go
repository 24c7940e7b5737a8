// --- File: cmd/pushclient/runpushclient.go ---
package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"

	"cloud.google.com/go/pubsub/v2"

	"github.com/tinywideclouds/go-push-client/internal/acquire"
	"github.com/tinywideclouds/go-push-client/internal/listen"
	"github.com/tinywideclouds/go-push-client/internal/platform/local"
	"github.com/tinywideclouds/go-push-client/internal/platform/pubsubstream"
	"github.com/tinywideclouds/go-push-client/internal/platform/redisstream"
	"github.com/tinywideclouds/go-push-client/internal/platform/wsstream"
	"github.com/tinywideclouds/go-push-client/internal/probe"
	"github.com/tinywideclouds/go-push-client/internal/registrar"
	"github.com/tinywideclouds/go-push-client/pkg/push"

	"github.com/tinywideclouds/go-push-client/pushclient"
	"github.com/tinywideclouds/go-push-client/pushclient/config"

	"gopkg.in/yaml.v3"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "go-push-client")
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, err := config.NewConfigFromYaml(&yamlCfg, logger)
	if err != nil {
		logger.Error("Config mapping failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Device Platform ---
	var platformOpts []local.Option
	if cfg.AutoGrant {
		logger.Warn("AUTO_GRANT enabled: permission prompts answer themselves. Dev use only.")
		platformOpts = append(platformOpts, local.WithConsentFunc(func(_ context.Context) (bool, error) {
			return true, nil
		}))
	}
	devicePlatform, err := local.New(cfg.StatePath, cfg.PushGatewayURL, logger, platformOpts...)
	if err != nil {
		logger.Error("Device platform failed", "err", err)
		os.Exit(1)
	}

	// --- Event Source ---
	var source push.EventSource
	switch cfg.EventSource {
	case config.EventSourcePubsub:
		psClient, err := pubsub.NewClient(ctx, cfg.Pubsub.ProjectID)
		if err != nil {
			logger.Error("PubSub client failed", "err", err)
			os.Exit(1)
		}
		defer psClient.Close()
		source = pubsubstream.New(psClient, pubsubstream.Config{
			ProjectID:               cfg.Pubsub.ProjectID,
			ReceivedTopicID:         cfg.Pubsub.ReceivedTopicID,
			RespondedTopicID:        cfg.Pubsub.RespondedTopicID,
			ReceivedSubscriptionID:  cfg.Pubsub.ReceivedSubscriptionID,
			RespondedSubscriptionID: cfg.Pubsub.RespondedSubscriptionID,
			NumWorkers:              cfg.Pubsub.NumWorkers,
		}, logger)
		logger.Info("Event source initialized", "type", "pubsub", "project", cfg.Pubsub.ProjectID)
	case config.EventSourceRedis:
		redisSource, err := redisstream.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisstream.Config{
			ReceivedChannel:  cfg.Redis.ReceivedChannel,
			RespondedChannel: cfg.Redis.RespondedChannel,
		}, logger)
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisSource.Close()
		source = redisSource
		logger.Info("Event source initialized", "type", "redis", "addr", cfg.Redis.Addr)
	case config.EventSourceWebsocket:
		source = wsstream.New(cfg.Websocket.GatewayURL, logger)
		logger.Info("Event source initialized", "type", "websocket", "gateway", cfg.Websocket.GatewayURL)
	default:
		logger.Error("Unknown event source", "event_source", cfg.EventSource)
		os.Exit(1)
	}

	// --- Session ---
	hooks := pushclient.Hooks{
		OnReceived: func(n push.Notification) {
			logger.Info("Notification received", "id", n.ID, "title", n.Title)
		},
		OnResponded: func(r push.Response) {
			logger.Info("Notification responded", "id", r.Notification.ID, "action", r.ActionID)
		},
	}

	session := pushclient.NewSession(
		cfg.AppID,
		probe.NewProber(devicePlatform, devicePlatform, logger),
		acquire.NewAcquisitor(devicePlatform, devicePlatform, logger),
		registrar.NewHTTPRegistrar(cfg.BackendBaseURL, nil, logger),
		listen.NewManager(source, logger),
		hooks,
		logger,
	)

	service, err := pushclient.New(cfg, session, logger)
	if err != nil {
		logger.Error("Service creation failed", "err", err)
		os.Exit(1)
	}

	logger.Info("Starting service...")
	if err := service.Start(ctx); err != nil {
		logger.Error("Service shutdown with error", "err", err)
		os.Exit(1)
	}
}
