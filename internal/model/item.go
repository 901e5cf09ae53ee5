package model

import "fmt"

// Item 是一条「菜品 × 数量」，数量允许小数但必须 > 0。
type Item struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// UnknownFoodItemError 表示菜单里查不到该菜品。
type UnknownFoodItemError struct {
	Name string
}

func (e *UnknownFoodItemError) Error() string {
	return fmt.Sprintf("unknown food item %q", e.Name)
}
