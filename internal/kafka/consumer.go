package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/portfolio-service/internal/models"
)

// Recomputer reacts to portfolio events
type Recomputer interface {
	Recompute(ctx context.Context, accountID string) error
	RecomputeAll(ctx context.Context) error
	ReloadTickers(ctx context.Context) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer triggers recomputation from portfolio events. Messages are handled
// one at a time, so a recomputation always runs to completion before the next
// event is read.
type Consumer struct {
	reader  messageReader
	topic   string
	handler Recomputer
	log     zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for portfolio events
func NewConsumer(brokers []string, topic, groupID string, handler Recomputer, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:  reader,
		topic:   topic,
		handler: handler,
		log:     log,
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.topic).Msg("starting kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.log.Error().Err(err).Msg("error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("error processing message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PortfolioEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal portfolio event: %w", err)
	}

	log := c.log.With().Str("event_type", event.EventType).Str("account_id", event.AccountID).Logger()

	switch event.EventType {
	case models.EventHoldingsChanged:
		if event.AccountID == "" {
			return fmt.Errorf("%s event without account_id", event.EventType)
		}
		log.Debug().Msg("recomputing account")
		return c.handler.Recompute(ctx, event.AccountID)

	case models.EventRefreshRequested:
		if event.AccountID != "" {
			return c.handler.Recompute(ctx, event.AccountID)
		}
		return c.handler.RecomputeAll(ctx)

	case models.EventTickersRefreshed:
		if err := c.handler.ReloadTickers(ctx); err != nil {
			return fmt.Errorf("failed to reload tickers: %w", err)
		}
		return c.handler.RecomputeAll(ctx)

	default:
		log.Debug().Msg("ignoring event")
		return nil
	}
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
