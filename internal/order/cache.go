package order

import (
	"sync"

	"eatery/internal/model"
)

// Cache 是进程内的 session → 进行中订单 映射。
// 内部锁只保证 map 本身的并发安全；同一 session 的读改写串行由 Locker 负责。
type Cache struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

func NewCache() *Cache {
	return &Cache{orders: make(map[string]*Order)}
}

// Upsert 把 items 合并进会话订单，不存在则新建。返回合并后的快照。
func (c *Cache) Upsert(session string, items []model.Item) Order {
	c.mu.Lock()
	defer c.mu.Unlock()

	o, ok := c.orders[session]
	if !ok {
		o = &Order{}
		c.orders[session] = o
	}
	for _, it := range items {
		o.add(it.Name, it.Quantity)
	}
	return o.clone()
}

// Reset 用 items 整体替换会话订单。
func (c *Cache) Reset(session string, items []model.Item) Order {
	c.mu.Lock()
	defer c.mu.Unlock()

	o := &Order{}
	for _, it := range items {
		o.add(it.Name, it.Quantity)
	}
	c.orders[session] = o
	return o.clone()
}

// Remove 按顺序处理每个 (item, qty)。会话不存在时返回 false，不做任何修改。
// 删空后保留空订单，直到 Clear。
func (c *Cache) Remove(session string, items []model.Item) (RemoveResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	o, ok := c.orders[session]
	if !ok {
		return RemoveResult{}, false
	}
	var res RemoveResult
	for _, it := range items {
		removed, found := o.take(it.Name, it.Quantity)
		if !found {
			res.NotFound = append(res.NotFound, it.Name)
			continue
		}
		res.Removed = append(res.Removed, model.Item{Name: it.Name, Quantity: removed})
	}
	res.Remaining = o.clone()
	return res, true
}

// Get 返回会话订单的副本。
func (c *Cache) Get(session string) (Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	o, ok := c.orders[session]
	if !ok {
		return Order{}, false
	}
	return o.clone(), true
}

// Clear 删除会话订单并返回被删内容；不存在时是 no-op。
func (c *Cache) Clear(session string) (Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	o, ok := c.orders[session]
	if !ok {
		return Order{}, false
	}
	delete(c.orders, session)
	return *o, true
}

// Len 返回活跃会话数。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.orders)
}
