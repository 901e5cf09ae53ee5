// Package reply 负责把订单状态和存储结果渲染成 fulfillmentText。
package reply

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"eatery/internal/model"
)

const (
	clarifyText         = "Sorry, I didn't get that. Please specify the quantities clearly."
	backendErrorText    = "Some backend error. Please try again."
	unknownIntentText   = "Sorry, I can't help with that request."
	badRequestText      = "Sorry, I couldn't read that request."
	tooManyRequestsText = "You're going a bit fast. Please wait a moment and try again."
	invalidOrderIDText  = "Please enter a valid order ID."
)

// FormatQuantity 整数量不带小数点，小数量按最短形式输出；超出精确整数范围的用科学计数法。
func FormatQuantity(q float64) string {
	const exact = 1 << 53
	switch {
	case math.Abs(q) >= exact:
		return strconv.FormatFloat(q, 'g', -1, 64)
	case q == math.Trunc(q):
		return strconv.FormatInt(int64(q), 10)
	default:
		return strconv.FormatFloat(q, 'f', -1, 64)
	}
}

// FormatPrice 分转元，保留两位小数。按无符号取绝对值，MinInt64 也不会溢出。
func FormatPrice(cents int64) string {
	sign := ""
	abs := uint64(cents)
	if cents < 0 {
		sign = "-"
		abs = -abs
	}
	return fmt.Sprintf("%s%d.%02d", sign, abs/100, abs%100)
}

// FormatItems 渲染为 "2 Pizza, 1 Mango Lassi"。
func FormatItems(items []model.Item) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, FormatQuantity(it.Quantity)+" "+it.Name)
	}
	return strings.Join(parts, ", ")
}

func Clarify() string { return clarifyText }

func BackendError() string { return backendErrorText }

func UnknownIntent() string { return unknownIntentText }

func BadRequest() string { return badRequestText }

func TooManyRequests() string { return tooManyRequestsText }

func InvalidOrderID() string { return invalidOrderIDText }

// SoFar 是加菜后的整单摘要。
func SoFar(items []model.Item) string {
	return fmt.Sprintf("So far you have: %s. Do you need anything else? If yes, please specify item name and quantity.",
		FormatItems(items))
}

func RemoveWithoutOrder() string {
	return "I'm having a trouble finding your order. Sorry! Can you place a new order please?"
}

// Removal 同时报告已删除、未找到和剩余内容。
func Removal(removed []model.Item, notFound []string, remaining []model.Item) string {
	var parts []string
	if len(removed) > 0 {
		parts = append(parts, fmt.Sprintf("Removed %s from your order!", FormatItems(removed)))
	}
	if len(notFound) > 0 {
		parts = append(parts, fmt.Sprintf("Your current order does not have %s.", strings.Join(notFound, ", ")))
	}
	if len(remaining) == 0 {
		parts = append(parts, "Your order is empty!")
	} else {
		parts = append(parts, fmt.Sprintf("Here is what is left in your order: %s", FormatItems(remaining)))
	}
	return strings.Join(parts, " ")
}

func CompleteWithoutOrder() string {
	return "Couldn't find your order. Please place your order again."
}

func CompleteEmptyOrder() string {
	return "Your order is empty. Please add some items before completing it."
}

func Placed(orderID, total int64) string {
	return fmt.Sprintf("Awesome. We have placed your order. Here is your order id # %d. "+
		"Your order total is %s which you can pay at the time of delivery!", orderID, FormatPrice(total))
}

// PlacedWithoutTotal 订单已落库但总价查询失败时使用。
func PlacedWithoutTotal(orderID int64) string {
	return fmt.Sprintf("Awesome. We have placed your order. Here is your order id # %d. "+
		"You can pay at the time of delivery!", orderID)
}

func PlaceFailed() string {
	return "Sorry I couldn't process your order due to some error. Your items are still saved, please try completing the order again."
}

func UnknownFoodItem(name string) string {
	return fmt.Sprintf("Sorry, we don't serve %s. Please remove it from your order and try again.", name)
}

func Cleared(items []model.Item) string {
	return fmt.Sprintf("Your previous order %s has been cleared. Please tell me what you would like to order.",
		FormatItems(items))
}

func NothingToClear() string {
	return "You don't have an order in progress. Please tell me what you would like to order."
}

func OrderStatus(orderID int64, status string) string {
	return fmt.Sprintf("The order status for order id: %d is: %s", orderID, status)
}

func NoOrderFound(orderID int64) string {
	return fmt.Sprintf("No order found with order id: %d", orderID)
}

func CannotCancel(orderID int64, status string) string {
	return fmt.Sprintf("Order %d cannot be canceled as its status is '%s'.", orderID, status)
}

func Canceled(orderID int64) string {
	return fmt.Sprintf("Order %d has been successfully canceled.", orderID)
}
