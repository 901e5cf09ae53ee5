package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// 订单事件类型
const (
	EventOrderPlaced   = "order.placed"
	EventOrderCanceled = "order.canceled"
)

// OrderEvent 是写入 Redis Stream / Kafka 的订单事件。
type OrderEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id"`
	SessionID  string    `json:"session_id,omitempty"`
	Status     string    `json:"status"`
	TotalPrice int64     `json:"total_price"` // 分
	OccurredAt time.Time `json:"occurred_at"`
}

// NewOrderEvent 生成带新 event_id 的事件。
func NewOrderEvent(typ string, orderID int64, status string) OrderEvent {
	return OrderEvent{
		EventID:    uuid.New().String(),
		Type:       typ,
		OrderID:    orderID,
		Status:     status,
		OccurredAt: time.Now().UTC(),
	}
}

// Validate 做最小字段校验，防止消费者处理脏消息。
func (e OrderEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	switch e.Type {
	case EventOrderPlaced, EventOrderCanceled:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.OrderID <= 0 {
		return fmt.Errorf("order_id must be > 0")
	}
	if e.Status == "" {
		return fmt.Errorf("status is required")
	}
	if e.TotalPrice < 0 {
		return fmt.Errorf("total_price must be >= 0")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}
	return nil
}
