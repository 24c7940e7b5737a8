package pubsubstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-push-client/pkg/push"
)

// NotificationTransformer unmarshals a raw received-stream payload into a
// push.Notification. Malformed payloads are skipped so the streaming service
// can apply its Nack/DLQ handling instead of looping on them.
func NotificationTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*push.Notification, bool, error) {
	var n push.Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal notification from message %s: %w", msg.ID, err)
	}
	if n.ID == "" {
		n.ID = msg.ID
	}
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = time.Now().UTC()
	}
	return &n, false, nil
}

// ResponseTransformer unmarshals a raw responded-stream payload into a
// push.Response.
func ResponseTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*push.Response, bool, error) {
	var r push.Response
	if err := json.Unmarshal(msg.Payload, &r); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal response from message %s: %w", msg.ID, err)
	}
	if r.Notification.ID == "" {
		return nil, true, fmt.Errorf("response in message %s has no notification id", msg.ID)
	}
	return &r, false, nil
}
