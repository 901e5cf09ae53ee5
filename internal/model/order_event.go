package model

import "time"

// OrderEvent 是订单事件的审计记录，由 Kafka 消费者落库。
// EventID 唯一，重复投递直接忽略。
type OrderEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	EventID    string    `gorm:"size:64;uniqueIndex;not null" json:"event_id"`
	Type       string    `gorm:"size:32;not null;index" json:"type"`
	OrderID    int64     `gorm:"not null;index" json:"order_id"`
	SessionID  string    `gorm:"size:128" json:"session_id"`
	Status     string    `gorm:"size:32" json:"status"`
	TotalPrice int64     `gorm:"not null;default:0" json:"total_price"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
}

func (OrderEvent) TableName() string { return "order_events" }
