// Package notify delivers domain events to the real-time transport. Delivery
// is fire-and-forget: a failed publish is logged and swallowed, it never
// fails the mutation that produced the event.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/events"
)

// Sink is the publish contract the real-time layer consumes.
type Sink interface {
	Publish(ctx context.Context, userID string, eventType events.EventType, payload any) error
}

// RedisSink publishes JSON messages to per-user redis channels, which the
// websocket gateway fans out to connected clients.
type RedisSink struct {
	client        *redis.Client
	channelPrefix string
	logger        *zap.Logger
}

// NewRedisSink builds a sink on an existing client.
func NewRedisSink(client *redis.Client, channelPrefix string, logger *zap.Logger) *RedisSink {
	if channelPrefix == "" {
		channelPrefix = "user"
	}
	return &RedisSink{client: client, channelPrefix: channelPrefix, logger: logger}
}

type message struct {
	Type events.EventType `json:"type"`
	Data any              `json:"data"`
}

// Publish sends one notification to the user's channel.
func (s *RedisSink) Publish(ctx context.Context, userID string, eventType events.EventType, payload any) error {
	if s.client == nil {
		return nil
	}
	body, err := json.Marshal(message{Type: eventType, Data: payload})
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("%s:%s", s.channelPrefix, userID)
	if err := s.client.Publish(ctx, channel, body).Err(); err != nil {
		s.logger.Warn("notification publish failed",
			zap.String("channel", channel),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
		return err
	}
	return nil
}

// NopSink drops every notification. Used when redis is not configured.
type NopSink struct{}

func (NopSink) Publish(ctx context.Context, userID string, eventType events.EventType, payload any) error {
	return nil
}
