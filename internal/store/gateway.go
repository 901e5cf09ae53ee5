package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"

	"eatery/internal/model"
	"eatery/pkg/logger"

	"gorm.io/gorm"
)

// ErrEmptyOrder 没有任何明细的订单不允许落库。
var ErrEmptyOrder = errors.New("order has no items")

// ErrLineTotalOutOfRange 单行金额超出可存储范围。
var ErrLineTotalOutOfRange = errors.New("line total out of range")

// Gateway 封装订单库的全部读写。
type Gateway struct {
	db  *gorm.DB
	log *logger.Logger

	// allocMu 串行化「分配订单号 + 写明细」，避免并发完成拿到同一个 order_id。
	// order_tracking 的主键是第二道防线。
	allocMu sync.Mutex
}

func NewGateway(db *gorm.DB, log *logger.Logger) *Gateway {
	return &Gateway{db: db, log: log.WithComponent("order_store")}
}

// NextOrderID 返回 max(order_id)+1，没有订单时返回 1。纯读。
func (g *Gateway) NextOrderID(ctx context.Context) (int64, error) {
	return nextOrderID(g.db.WithContext(ctx))
}

func nextOrderID(tx *gorm.DB) (int64, error) {
	var maxID sql.NullInt64
	if err := tx.Model(&model.OrderLine{}).Select("MAX(order_id)").Row().Scan(&maxID); err != nil {
		return 0, fmt.Errorf("query max order_id: %w", err)
	}
	if !maxID.Valid {
		return 1, nil
	}
	return maxID.Int64 + 1, nil
}

// InsertOrderItem 按菜名查出菜品与单价，写一行明细。失败时整个语句事务回滚。
func (g *Gateway) InsertOrderItem(ctx context.Context, item string, quantity float64, orderID int64) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertOrderItem(tx, item, quantity, orderID)
	})
	if err != nil {
		g.log.Warn("insert order item failed", "order_id", orderID, "item", item, "error", err)
	}
	return err
}

func insertOrderItem(tx *gorm.DB, item string, quantity float64, orderID int64) error {
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return fmt.Errorf("invalid quantity %v for %q", quantity, item)
	}
	var food model.FoodItem
	if err := tx.Where("LOWER(name) = LOWER(?)", item).First(&food).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.UnknownFoodItemError{Name: item}
		}
		return fmt.Errorf("lookup food item %q: %w", item, err)
	}
	total, err := lineTotal(food.Price, quantity)
	if err != nil {
		return fmt.Errorf("%q x %v: %w", item, quantity, err)
	}
	line := &model.OrderLine{
		OrderID:    orderID,
		ItemID:     food.ItemID,
		Quantity:   quantity,
		TotalPrice: total,
	}
	if err := tx.Create(line).Error; err != nil {
		return fmt.Errorf("insert order line: %w", err)
	}
	return nil
}

// maxLineTotal 是 float64 能精确表示的最大整数分，汇总时也留足余量。
const maxLineTotal = 1 << 53

// lineTotal 单价（分）× 数量，四舍五入到分；超出 maxLineTotal 时报错。
func lineTotal(price int64, quantity float64) (int64, error) {
	v := math.Round(float64(price) * quantity)
	if math.IsNaN(v) || v < 0 || v > maxLineTotal {
		return 0, ErrLineTotalOutOfRange
	}
	return int64(v), nil
}

// GetTotalOrderPrice 汇总订单所有明细的总价（分）。
func (g *Gateway) GetTotalOrderPrice(ctx context.Context, orderID int64) (int64, error) {
	var total int64
	err := g.db.WithContext(ctx).Model(&model.OrderLine{}).
		Select("COALESCE(SUM(total_price), 0)").
		Where("order_id = ?", orderID).
		Row().Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum order %d: %w", orderID, err)
	}
	return total, nil
}

// InsertOrderTracking 写入追踪状态，返回即已提交。
func (g *Gateway) InsertOrderTracking(ctx context.Context, orderID int64, status string) error {
	row := &model.OrderTracking{OrderID: orderID, Status: status}
	if err := g.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("insert tracking for order %d: %w", orderID, err)
	}
	return nil
}

// GetOrderStatus 查询追踪状态，found=false 表示没有这个订单。
func (g *Gateway) GetOrderStatus(ctx context.Context, orderID int64) (string, bool, error) {
	var row model.OrderTracking
	err := g.db.WithContext(ctx).Where("order_id = ?", orderID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get status of order %d: %w", orderID, err)
	}
	return row.Status, true, nil
}

// CancelOrder 条件更新：仅当当前状态在 cancellable 中才改为 canceled。
// 返回是否真的改动了一行。
func (g *Gateway) CancelOrder(ctx context.Context, orderID int64, cancellable []string) (bool, error) {
	if len(cancellable) == 0 {
		return false, nil
	}
	res := g.db.WithContext(ctx).Model(&model.OrderTracking{}).
		Where("order_id = ? AND status IN ?", orderID, cancellable).
		Update("status", model.OrderStatusCanceled)
	if res.Error != nil {
		return false, fmt.Errorf("cancel order %d: %w", orderID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// OrderExists 判断是否有该订单的明细。
func (g *Gateway) OrderExists(ctx context.Context, orderID int64) (bool, error) {
	var n int64
	if err := g.db.WithContext(ctx).Model(&model.OrderLine{}).Where("order_id = ?", orderID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check order %d: %w", orderID, err)
	}
	return n > 0, nil
}

// PlaceOrder 在一个事务里完成：分配订单号 → 写全部明细 → 写追踪状态。
// 任一步失败整体回滚，不会留下半个订单。
func (g *Gateway) PlaceOrder(ctx context.Context, items []model.Item, status string) (int64, error) {
	if len(items) == 0 {
		return 0, ErrEmptyOrder
	}

	g.allocMu.Lock()
	defer g.allocMu.Unlock()

	var orderID int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextOrderID(tx)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := insertOrderItem(tx, it.Name, it.Quantity, id); err != nil {
				return err
			}
		}
		if err := tx.Create(&model.OrderTracking{OrderID: id, Status: status}).Error; err != nil {
			return fmt.Errorf("insert tracking for order %d: %w", id, err)
		}
		orderID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	g.log.Info("order persisted", "order_id", orderID, "lines", len(items))
	return orderID, nil
}
