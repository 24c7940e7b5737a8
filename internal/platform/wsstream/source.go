// Package wsstream delivers notification events over a websocket push
// gateway, one socket per stream.
package wsstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tinywideclouds/go-push-client/pkg/push"
)

type Source struct {
	gatewayURL string
	dialer     *websocket.Dialer
	logger     *slog.Logger
}

// New builds a source for the given gateway base URL (http, https, ws or wss
// scheme; http(s) is rewritten to the websocket equivalent).
func New(gatewayURL string, logger *slog.Logger) *Source {
	return &Source{
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		dialer:     websocket.DefaultDialer,
		logger:     logger.With("component", "WebsocketEventSource"),
	}
}

func (s *Source) SubscribeReceived(ctx context.Context, handler func(push.Notification)) (push.Subscription, error) {
	return s.subscribe(ctx, push.StreamReceived, func(payload []byte) error {
		var n push.Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			return err
		}
		handler(n)
		return nil
	})
}

func (s *Source) SubscribeResponded(ctx context.Context, handler func(push.Response)) (push.Subscription, error) {
	return s.subscribe(ctx, push.StreamResponded, func(payload []byte) error {
		var r push.Response
		if err := json.Unmarshal(payload, &r); err != nil {
			return err
		}
		handler(r)
		return nil
	})
}

func (s *Source) subscribe(ctx context.Context, stream push.Stream, deliver func([]byte) error) (push.Subscription, error) {
	endpoint, err := s.streamURL(stream)
	if err != nil {
		return nil, err
	}

	conn, resp, err := s.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s failed with status %d: %w", endpoint, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s failed: %w", endpoint, err)
	}

	go func() {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				// Normal on unsubscribe; anything else means the gateway
				// dropped us and this stream goes quiet for the session.
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Warn("Stream read ended.", "stream", stream, "err", err)
				}
				return
			}
			if err := deliver(payload); err != nil {
				s.logger.Warn("Dropping malformed event payload.", "stream", stream, "err", err)
			}
		}
	}()

	s.logger.Debug("Stream connected.", "stream", stream, "url", endpoint)
	return &subscription{id: uuid.NewString(), conn: conn}, nil
}

func (s *Source) streamURL(stream push.Stream) (string, error) {
	u, err := url.Parse(s.gatewayURL + "/streams/" + string(stream))
	if err != nil {
		return "", fmt.Errorf("invalid gateway url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported gateway scheme %q", u.Scheme)
	}
	return u.String(), nil
}

type subscription struct {
	id   string
	once sync.Once
	conn *websocket.Conn
}

func (s *subscription) ID() string { return s.id }

func (s *subscription) Unsubscribe(context.Context) error {
	var err error
	s.once.Do(func() {
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
	})
	return err
}
