package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"energy_usage/internal/models"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertPublisher writes alert events to the energy-alerts topic.
type AlertPublisher struct {
	w messageWriter
}

func NewAlertPublisher(brokers []string, topic string) *AlertPublisher {
	return &AlertPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 5 * time.Millisecond,
		Async:        false,
	}}
}

// Publish sends one alert keyed by user id so a user's alerts stay ordered.
func (p *AlertPublisher) Publish(ctx context.Context, e models.AlertEvent) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal alert for user %d: %w", e.UserID, err)
	}
	msg := kafka.Message{Key: []byte(strconv.FormatInt(e.UserID, 10)), Value: b, Time: time.Now()}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert for user %d: %w", e.UserID, err)
	}
	return nil
}

func (p *AlertPublisher) Close() error { return p.w.Close() }
