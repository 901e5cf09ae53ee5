package model

import "time"

// OrderLine 已完成订单的一行明细。同一 order_id 下可以有多行。
type OrderLine struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID    int64   `gorm:"column:order_id;not null;index" json:"order_id"`
	ItemID     uint    `gorm:"column:item_id;not null;index" json:"item_id"`
	Quantity   float64 `gorm:"not null" json:"quantity"`
	TotalPrice int64   `gorm:"not null" json:"total_price"` // 单价 × 数量，单位分
}

// 明细表沿用 orders 这个表名
func (OrderLine) TableName() string { return "orders" }
