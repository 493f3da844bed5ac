package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/marketplace-checkout/internal/adapters/crdb"
	"github.com/robertarktes/marketplace-checkout/internal/adapters/rabbit"
	"github.com/robertarktes/marketplace-checkout/internal/observability"
)

// Publisher drains NEW outbox rows to the broker. Every order transition
// produces a row in the ledger transaction that made it, so events can lag
// but never contradict durable state.
type Publisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.publishBatch(ctx); err != nil {
				p.logger.Error("outbox publish batch failed: ", err)
			}
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) error {
	records, err := p.repo.GetUnpublishedOutbox(ctx, 50)
	if err != nil {
		return err
	}
	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
			p.logger.WithField("event_type", rec.EventType).Error("failed to publish outbox record: ", err)
			continue
		}
		if err := p.repo.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
			p.logger.Error("failed to mark outbox record published: ", err)
			continue
		}
		observability.OutboxLag.Set(time.Since(rec.CreatedAt).Seconds())
	}
	return nil
}
