package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/procura/internal/auth"
	"github.com/Additional-Code/procura/internal/entity"
)

// Event types published on the orders topic.
const (
	EventCreated  = "order.created"
	EventUpdated  = "order.updated"
	EventApproved = "order.approved"
	EventDeleted  = "order.deleted"
)

// Event is emitted after an order mutation commits.
type Event struct {
	Type       string             `json:"type"`
	OrderID    int64              `json:"order_id"`
	Status     entity.OrderStatus `json:"status"`
	Total      string             `json:"total"`
	ActorID    int64              `json:"actor_id"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// EventKey is the partition key used for an order's events.
func EventKey(orderID int64) []byte {
	return []byte(fmt.Sprintf("order-%d", orderID))
}

func (s *Service) publish(ctx context.Context, eventType string, order *entity.Order, actor auth.Identity) {
	if !s.messaging.enabled || s.publisher == nil || order == nil {
		return
	}
	event := Event{
		Type:       eventType,
		OrderID:    order.ID,
		Status:     order.Status,
		Total:      order.Total.StringFixed(2),
		ActorID:    actor.UserID,
		OccurredAt: s.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, EventKey(order.ID), payload); err != nil {
		s.logger.Error("publish order event", zap.String("type", eventType), zap.Int64("id", order.ID), zap.Error(err))
	}
}
