package publisher

import (
	"context"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	OrderEventsTopic = "order-events"
	batchSize        = 100
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller publishes outbox events written by checkout to Kafka and
// marks them processed. Delivery is at least once: an event whose mark fails
// is published again on the next tick.
type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	repo      repository.OutboxRepository
	writer    messageWriter
}

func NewOutboxPoller(repo repository.OutboxRepository, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  OrderEventsTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		timeout:   time.Second * 5,
		eventTick: time.Second,
		repo:      repo,
		writer:    w,
	}
}

// Run polls until ctx is cancelled, then closes the writer.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	defer func() {
		if err := p.writer.Close(); err != nil {
			zap.L().Warn("failed to close kafka writer", zap.Error(err))
		}
	}()

	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		zap.L().Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			zap.L().Error("failed to publish event", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			zap.L().Error("failed to mark event as processed", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}
		zap.L().Debug("event published",
			zap.Int64("event_id", event.ID),
			zap.String("type", event.EventType),
			zap.String("aggregate_id", event.AggregateID))
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event domain.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps an order's events on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	}

	return p.writer.WriteMessages(ctx, msg)
}
