// Package pubsubstream delivers notification events over Google Pub/Sub.
// Each stream (received, responded) is one subscription consumed through a
// dataflow streaming service; the subscription handle wraps the running
// pipeline and tears it down on unsubscribe.
package pubsubstream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// Config names the per-stream Pub/Sub resources. Topics are optional; when
// set, the subscription is created against them on first subscribe.
type Config struct {
	ProjectID               string
	ReceivedTopicID         string
	RespondedTopicID        string
	ReceivedSubscriptionID  string
	RespondedSubscriptionID string
	NumWorkers              int
}

type Source struct {
	client *pubsub.Client
	cfg    Config
	logger *slog.Logger
}

func New(client *pubsub.Client, cfg Config, logger *slog.Logger) *Source {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	return &Source{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "PubsubEventSource"),
	}
}

func (s *Source) SubscribeReceived(ctx context.Context, handler func(push.Notification)) (push.Subscription, error) {
	processor := func(_ context.Context, _ messagepipeline.Message, n *push.Notification) error {
		handler(*n)
		return nil
	}
	return subscribe(ctx, s, s.cfg.ReceivedSubscriptionID, s.cfg.ReceivedTopicID, NotificationTransformer, processor)
}

func (s *Source) SubscribeResponded(ctx context.Context, handler func(push.Response)) (push.Subscription, error) {
	processor := func(_ context.Context, _ messagepipeline.Message, r *push.Response) error {
		handler(*r)
		return nil
	}
	return subscribe(ctx, s, s.cfg.RespondedSubscriptionID, s.cfg.RespondedTopicID, ResponseTransformer, processor)
}

func subscribe[T any](
	ctx context.Context,
	s *Source,
	subID, topicID string,
	transformer func(context.Context, *messagepipeline.Message) (*T, bool, error),
	processor messagepipeline.StreamProcessor[T],
) (push.Subscription, error) {
	if subID == "" {
		return nil, fmt.Errorf("no subscription configured")
	}

	if err := s.ensureSubscription(ctx, subID, topicID); err != nil {
		return nil, err
	}

	consumer, err := messagepipeline.NewGooglePubsubConsumer(
		messagepipeline.NewGooglePubsubConsumerDefaults(s.subscriptionName(subID)), s.client, s.logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for %s: %w", subID, err)
	}

	service, err := messagepipeline.NewStreamingService(
		messagepipeline.StreamingServiceConfig{NumWorkers: s.cfg.NumWorkers},
		consumer,
		transformer,
		processor,
		s.logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming service for %s: %w", subID, err)
	}

	if err := service.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start streaming service for %s: %w", subID, err)
	}

	return &subscription{id: uuid.NewString(), stop: service.Stop}, nil
}

// ensureSubscription creates the subscription if it does not exist yet.
// An AlreadyExists response is the steady state after the first session.
func (s *Source) ensureSubscription(ctx context.Context, subID, topicID string) error {
	if topicID == "" {
		return nil
	}
	subConfig := &pubsubpb.Subscription{
		Name:               s.subscriptionName(subID),
		Topic:              fmt.Sprintf("projects/%s/topics/%s", s.cfg.ProjectID, topicID),
		AckDeadlineSeconds: 10,
		// Per-device subscriptions must not outlive the device: let the
		// server reap them after a day of inactivity.
		ExpirationPolicy: &pubsubpb.ExpirationPolicy{
			Ttl: durationpb.New(24 * time.Hour),
		},
	}
	s.logger.Debug("Ensuring subscription exists", "sub", subConfig.Name, "topic", subConfig.Topic)
	_, err := s.client.SubscriptionAdminClient.CreateSubscription(ctx, subConfig)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			s.logger.Debug("Subscription already exists, skipping creation", "sub", subConfig.Name)
			return nil
		}
		return fmt.Errorf("could not create subscription %s: %w", subID, err)
	}
	return nil
}

func (s *Source) subscriptionName(subID string) string {
	return fmt.Sprintf("projects/%s/subscriptions/%s", s.cfg.ProjectID, subID)
}

type subscription struct {
	id   string
	once sync.Once
	stop func(context.Context) error
}

func (s *subscription) ID() string { return s.id }

func (s *subscription) Unsubscribe(ctx context.Context) error {
	var err error
	s.once.Do(func() { err = s.stop(ctx) })
	return err
}
