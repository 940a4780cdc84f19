package publisher

import (
	"context"
	"time"

	"github.com/fjod/squeeze/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TransfersTopic carries one message per completed ledger transfer.
const TransfersTopic = "ledger-transfers"

const batchSize = 100

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller publishes ledger outbox events to Kafka and marks them
// processed. Delivery is at least once.
type OutboxPoller struct {
	eventTick time.Duration
	repo      repository.LedgerRepository
	writer    messageWriter
	logger    *zap.Logger
}

func NewOutboxPoller(repo repository.LedgerRepository, logger *zap.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TransfersTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{eventTick: time.Second, repo: repo, writer: w, logger: logger}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.logger.Warn("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.logger.Warn("failed to publish event", zap.Int("event_id", event.ID), zap.Error(err))
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Warn("failed to mark event as processed", zap.Int("event_id", event.ID), zap.Error(err))
			continue
		}
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateId), // transfer id
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
