package model

import "time"

// 追踪状态是开放集合，核心只认识这几个。
const (
	OrderStatusInProgress = "in progress"
	OrderStatusCanceled   = "canceled"
	OrderStatusDelivered  = "delivered"
)

// OrderTracking 每个订单一行状态，只会被取消操作修改，从不删除。
type OrderTracking struct {
	OrderID   int64     `gorm:"column:order_id;primaryKey;autoIncrement:false" json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Status string `gorm:"size:32;not null;index" json:"status"`
}

func (OrderTracking) TableName() string { return "order_tracking" }
