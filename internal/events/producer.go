package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wgdash/wg-dashboard/internal/logging"
)

const (
	UserSignup       = "user.signup"
	UserLogin        = "user.login"
	UserDelete       = "user.delete"
	TokenRefresh     = "token.refresh"
	TokenReuseDetect = "token.reuse_detected"
	PeerCreate       = "peer.create"
	PeerDelete       = "peer.delete"
	PasswordChange   = "user.password_change"
)

type Event struct {
	Type string         `json:"type"`
	At   time.Time      `json:"at"`
	Data map[string]any `json:"data,omitempty"`
}

// Producer publishes audit events. A nil Producer is valid and drops
// everything, so callers never need to care whether kafka is configured.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Publish is fire-and-forget: a broker outage must never fail the request
// that produced the event, so errors only get logged.
func (p *Producer) Publish(ctx context.Context, eventType, key string, data map[string]any) {
	if p == nil {
		return
	}

	payload, err := json.Marshal(Event{Type: eventType, At: time.Now().UTC(), Data: data})
	if err != nil {
		logging.FromContext(ctx).Error("event_marshal_failed", "type", eventType, "error", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", eventType, "error", fmt.Sprintf("%v", err))
	}
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
