package bus

import (
	"context"
	"fmt"
	"time"

	"energy_usage/internal/logger"
	"energy_usage/internal/metrics"
	"energy_usage/internal/models"

	"github.com/segmentio/kafka-go"
)

// ReadingHandler persists one reading. A returned error leaves the message
// uncommitted so it is delivered again.
type ReadingHandler func(ctx context.Context, r models.Reading) error

// messageReader is the part of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReadingConsumer consumes the energy-usage topic with a consumer group.
type ReadingConsumer struct {
	newReader func() messageReader
	backoff   time.Duration
	log       *logger.Logger
}

// ConsumerConfig names the topic and group to join.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

const defaultRetryBackoff = time.Second

func NewReadingConsumer(cfg ConsumerConfig, log *logger.Logger) *ReadingConsumer {
	newReader := func() messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  500 * time.Millisecond,
		})
	}
	return newReadingConsumer(newReader, defaultRetryBackoff, log)
}

func newReadingConsumer(newReader func() messageReader, backoff time.Duration, log *logger.Logger) *ReadingConsumer {
	if log == nil {
		log = logger.Nop()
	}
	return &ReadingConsumer{newReader: newReader, backoff: backoff, log: log.With("component", "reading-consumer")}
}

// Run consumes until ctx is canceled. When the handler fails the reader is
// reopened so the group resumes from the last committed offset.
func (c *ReadingConsumer) Run(ctx context.Context, handle ReadingHandler) {
	for ctx.Err() == nil {
		r := c.newReader()
		err := c.consume(ctx, r, handle)
		if cerr := r.Close(); cerr != nil {
			c.log.Warnw("kafka_reader_close_failed", "err", cerr)
		}
		if ctx.Err() != nil {
			return
		}
		c.log.Warnw("reading_consumer_restart", "err", err, "backoff", c.backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff):
		}
	}
}

// consume processes messages until a fetch or handler error.
func (c *ReadingConsumer) consume(ctx context.Context, r messageReader, handle ReadingHandler) error {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			return err
		}
		if err := c.handleMessage(ctx, m, handle); err != nil {
			return err
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			return err
		}
	}
}

// handleMessage decodes and persists one message. Malformed messages are
// dropped (nil error) so they are committed and never retried.
func (c *ReadingConsumer) handleMessage(ctx context.Context, m kafka.Message, handle ReadingHandler) error {
	reading, err := DecodeReading(m.Value)
	if err != nil {
		metrics.ReadingsIngested.WithLabelValues(metrics.ResultMalformed).Inc()
		c.log.Warnw("reading_malformed", "partition", m.Partition, "offset", m.Offset, "err", err)
		return nil
	}
	if err := handle(ctx, reading); err != nil {
		metrics.ReadingsIngested.WithLabelValues(metrics.ResultFailed).Inc()
		c.log.Errorw("reading_persist_failed", "deviceId", reading.DeviceID, "offset", m.Offset, "err", err)
		return fmt.Errorf("persist reading for device %d: %w", reading.DeviceID, err)
	}
	metrics.ReadingsIngested.WithLabelValues(metrics.ResultOK).Inc()
	return nil
}
