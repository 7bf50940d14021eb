package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/portfolio-service/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes holding and performance events
type Producer struct {
	events      messageWriter
	performance messageWriter
}

// NewProducer creates a producer writing holding events to eventsTopic and
// performance summaries to performanceTopic
func NewProducer(brokers []string, eventsTopic, performanceTopic string) *Producer {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		}
	}
	return &Producer{
		events:      newWriter(eventsTopic),
		performance: newWriter(performanceTopic),
	}
}

// PublishHoldingAdded publishes a holding added event
func (p *Producer) PublishHoldingAdded(ctx context.Context, h *models.Holding) error {
	return p.publishHolding(ctx, models.EventHoldingAdded, h.AccountID, h.ID, h)
}

// PublishHoldingUpdated publishes a holding updated event
func (p *Producer) PublishHoldingUpdated(ctx context.Context, h *models.Holding) error {
	return p.publishHolding(ctx, models.EventHoldingUpdated, h.AccountID, h.ID, h)
}

// PublishHoldingRemoved publishes a holding removed event
func (p *Producer) PublishHoldingRemoved(ctx context.Context, accountID, holdingID string) error {
	return p.publishHolding(ctx, models.EventHoldingRemoved, accountID, holdingID, nil)
}

// PublishHoldingsChanged asks every instance to recompute the account
func (p *Producer) PublishHoldingsChanged(ctx context.Context, accountID string) error {
	event := models.PortfolioEvent{
		EventType: models.EventHoldingsChanged,
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
	}
	return publish(ctx, p.events, accountID, event)
}

// PublishPerformance publishes a computed summary
func (p *Producer) PublishPerformance(ctx context.Context, summary *models.PerformanceSummary) error {
	event := models.PerformanceEvent{
		EventType: models.EventPerformanceComputed,
		AccountID: summary.AccountID,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	}
	return publish(ctx, p.performance, summary.AccountID, event)
}

func (p *Producer) publishHolding(ctx context.Context, eventType, accountID, holdingID string, h *models.Holding) error {
	event := models.HoldingEvent{
		EventType: eventType,
		AccountID: accountID,
		HoldingID: holdingID,
		Holding:   h,
		Timestamp: time.Now().UTC(),
	}
	return publish(ctx, p.events, accountID, event)
}

func publish(ctx context.Context, w messageWriter, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close closes both writers
func (p *Producer) Close() error {
	err := p.events.Close()
	if perr := p.performance.Close(); err == nil {
		err = perr
	}
	return err
}
