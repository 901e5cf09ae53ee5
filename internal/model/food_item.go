package model

// FoodItem 菜单条目：名称唯一，价格单位为分。
type FoodItem struct {
	ItemID uint   `gorm:"column:item_id;primaryKey" json:"item_id"`
	Name   string `gorm:"size:128;not null;uniqueIndex" json:"name"`
	Price  int64  `gorm:"not null" json:"price"` // 单位：分
}

func (FoodItem) TableName() string { return "food_items" }
