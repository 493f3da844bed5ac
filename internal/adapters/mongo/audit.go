package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/marketplace-checkout/internal/domain"
	"github.com/robertarktes/marketplace-checkout/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	ActorID   uuid.UUID `bson:"actor_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, actorID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		ActorID:   actorID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

// LogTransition records a state change on an order together with who drove it.
func (a *AuditLogger) LogTransition(ctx context.Context, order domain.Order, action string) error {
	data := map[string]interface{}{
		"order_id":   order.ID,
		"product_id": order.ProductID,
		"status":     string(order.Status),
		"total":      order.Pricing.TotalAmount,
	}
	return a.LogEvent(ctx, action, order.BuyerID, data)
}
