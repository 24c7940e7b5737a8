//go:build integration

package pubsubstream_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/google/uuid"
	"github.com/illmade-knight/go-test/emulators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-push-client/internal/platform/pubsubstream"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

func TestPubsubSource_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	projectID := "test-project-pushclient"

	pubsubConn := emulators.SetupPubsubEmulator(t, ctx, emulators.GetDefaultPubsubConfig(projectID))
	psClient, err := pubsub.NewClient(ctx, projectID, pubsubConn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = psClient.Close() })

	receivedTopic := "push-received-" + uuid.NewString()
	respondedTopic := "push-responded-" + uuid.NewString()
	createTopic(t, ctx, psClient, projectID, receivedTopic)
	createTopic(t, ctx, psClient, projectID, respondedTopic)

	source := pubsubstream.New(psClient, pubsubstream.Config{
		ProjectID:               projectID,
		ReceivedTopicID:         receivedTopic,
		RespondedTopicID:        respondedTopic,
		ReceivedSubscriptionID:  receivedTopic + "-sub",
		RespondedSubscriptionID: respondedTopic + "-sub",
		NumWorkers:              1,
	}, logger)

	var mu sync.Mutex
	var gotNotifications []push.Notification
	var gotResponses []push.Response

	receivedSub, err := source.SubscribeReceived(ctx, func(n push.Notification) {
		mu.Lock()
		defer mu.Unlock()
		gotNotifications = append(gotNotifications, n)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = receivedSub.Unsubscribe(context.Background()) })

	respondedSub, err := source.SubscribeResponded(ctx, func(r push.Response) {
		mu.Lock()
		defer mu.Unlock()
		gotResponses = append(gotResponses, r)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = respondedSub.Unsubscribe(context.Background()) })

	notification := push.Notification{ID: "n-1", Title: "Person at door", ReceivedAt: time.Now().UTC()}
	payload, _ := json.Marshal(notification)
	_, err = psClient.Publisher(receivedTopic).Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	require.NoError(t, err)

	response := push.Response{Notification: notification, ActionID: "view"}
	payload, _ = json.Marshal(response)
	_, err = psClient.Publisher(respondedTopic).Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(gotNotifications) == 1 && len(gotResponses) == 1
	}, 10*time.Second, 100*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Person at door", gotNotifications[0].Title)
	assert.Equal(t, "view", gotResponses[0].ActionID)

	// Double release is a no-op.
	require.NoError(t, receivedSub.Unsubscribe(context.Background()))
	require.NoError(t, receivedSub.Unsubscribe(context.Background()))
}

func createTopic(t *testing.T, ctx context.Context, client *pubsub.Client, projectID, topicID string) {
	t.Helper()
	topicName := fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
	_, err := client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: topicName})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.TopicAdminClient.DeleteTopic(context.Background(), &pubsubpb.DeleteTopicRequest{Topic: topicName})
	})
}
