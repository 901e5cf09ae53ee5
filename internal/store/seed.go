package store

import (
	"context"
	"fmt"

	"eatery/internal/model"

	"gorm.io/gorm"
)

// DefaultMenu 是店里的默认菜单，价格单位分。
var DefaultMenu = []model.FoodItem{
	{Name: "Pav Bhaji", Price: 600},
	{Name: "Chole Bhature", Price: 700},
	{Name: "Pizza", Price: 800},
	{Name: "Mango Lassi", Price: 500},
	{Name: "Masala Dosa", Price: 600},
	{Name: "Vegetable Biryani", Price: 900},
	{Name: "Vada Pav", Price: 600},
	{Name: "Rava Dosa", Price: 700},
	{Name: "Samosa", Price: 500},
}

// SeedCatalog 仅在菜单表为空时写入 items，返回写入条数。
func SeedCatalog(ctx context.Context, db *gorm.DB, items []model.FoodItem) (int, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&model.FoodItem{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count food items: %w", err)
	}
	if n > 0 || len(items) == 0 {
		return 0, nil
	}
	// Create 会回填主键，复制一份避免改到调用方的切片
	rows := make([]model.FoodItem, len(items))
	copy(rows, items)
	if err := db.WithContext(ctx).Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("seed food items: %w", err)
	}
	return len(rows), nil
}
