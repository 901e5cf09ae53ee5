package order

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"eatery/internal/model"
)

// 参数校验错误：只回复澄清话术，不算故障。
var (
	ErrQuantityMismatch = errors.New("food item and quantity counts differ")
	ErrNoItems          = errors.New("no food items given")
	ErrInvalidQuantity  = errors.New("quantity must be in (0, 1e6]")
	ErrEmptyItemName    = errors.New("food item name is empty")
)

// MaxQuantity 单个菜品一次最多的份数。
const MaxQuantity = 1e6

// NewBatch 把并行的名称/数量列表配对成有序的 (name, qty) 序列。
// 长度不一致时整批拒绝。
func NewBatch(names []string, quantities []float64) ([]model.Item, error) {
	if len(names) != len(quantities) {
		return nil, ErrQuantityMismatch
	}
	if len(names) == 0 {
		return nil, ErrNoItems
	}
	out := make([]model.Item, 0, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, ErrEmptyItemName
		}
		q := quantities[i]
		if math.IsNaN(q) || q <= 0 || q > MaxQuantity {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidQuantity, name, q)
		}
		out = append(out, model.Item{Name: name, Quantity: q})
	}
	return out, nil
}

// Order 是一个会话正在攒的订单：菜品 → 数量，保留首次加入的顺序。
// 不变量：不会存在数量 <= 0 的条目。
type Order struct {
	items []model.Item
}

// Items 返回副本。
func (o Order) Items() []model.Item {
	out := make([]model.Item, len(o.items))
	copy(out, o.items)
	return out
}

func (o Order) Len() int { return len(o.items) }

func (o Order) IsEmpty() bool { return len(o.items) == 0 }

// Quantity 返回某菜品当前数量。
func (o Order) Quantity(name string) (float64, bool) {
	if i := o.index(name); i >= 0 {
		return o.items[i].Quantity, true
	}
	return 0, false
}

func (o Order) clone() Order {
	return Order{items: o.Items()}
}

func (o Order) index(name string) int {
	for i, it := range o.items {
		if it.Name == name {
			return i
		}
	}
	return -1
}

func (o *Order) add(name string, q float64) {
	if i := o.index(name); i >= 0 {
		o.items[i].Quantity += q
		return
	}
	o.items = append(o.items, model.Item{Name: name, Quantity: q})
}

// take 按删除规则扣减，返回实际删掉的数量；菜品不存在时 ok=false。
func (o *Order) take(name string, q float64) (removed float64, ok bool) {
	i := o.index(name)
	if i < 0 {
		return 0, false
	}
	current := o.items[i].Quantity
	if current > q {
		o.items[i].Quantity = current - q
		return q, true
	}
	// current <= q：整条删掉，按当前数量计为已删除
	o.items = append(o.items[:i], o.items[i+1:]...)
	return current, true
}

// RemoveResult 描述一次删除的结果。
type RemoveResult struct {
	Removed   []model.Item
	NotFound  []string
	Remaining Order
}
