package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"eatery/internal/model"
	"eatery/internal/queue"
	"eatery/internal/reply"
	"eatery/pkg/logger"
)

// Store 是引擎需要的订单存储能力，由 store.Gateway 实现。
type Store interface {
	// PlaceOrder 在一个事务里分配订单号、写入全部明细和追踪状态。
	PlaceOrder(ctx context.Context, items []model.Item, status string) (int64, error)
	GetTotalOrderPrice(ctx context.Context, orderID int64) (int64, error)
	GetOrderStatus(ctx context.Context, orderID int64) (string, bool, error)
	CancelOrder(ctx context.Context, orderID int64, cancellable []string) (bool, error)
}

// Options 引擎可调参数。
type Options struct {
	// CancellableStatuses 允许取消的追踪状态，默认只有 "in progress"。
	CancellableStatuses []string
	// LockTimeout 等待会话锁的上限，<= 0 表示只受请求 ctx 约束。
	LockTimeout time.Duration
}

// Engine 实现会话订单的状态机：Absent ⇄ Accumulating。
// 所有会改动缓存的操作都在会话锁内完成。
type Engine struct {
	cache  *Cache
	locks  Locker
	store  Store
	events queue.Publisher
	log    *logger.Logger

	cancellable []string
	lockTimeout time.Duration
}

func NewEngine(cache *Cache, locks Locker, store Store, events queue.Publisher, opts Options, log *logger.Logger) *Engine {
	if events == nil {
		events = queue.NopPublisher{}
	}
	cancellable := opts.CancellableStatuses
	if len(cancellable) == 0 {
		cancellable = []string{model.OrderStatusInProgress}
	}
	return &Engine{
		cache:       cache,
		locks:       locks,
		store:       store,
		events:      events,
		log:         log.WithComponent("order_engine"),
		cancellable: slices.Clone(cancellable),
		lockTimeout: opts.LockTimeout,
	}
}

func (e *Engine) lockSession(ctx context.Context, session string) (func(), error) {
	if e.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.lockTimeout)
		defer cancel()
	}
	unlock, err := e.locks.Lock(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w", session, err)
	}
	return unlock, nil
}

// AddItems 合并 items 到会话订单（不存在则创建），返回整单摘要。
func (e *Engine) AddItems(ctx context.Context, session string, items []model.Item) (string, error) {
	unlock, err := e.lockSession(ctx, session)
	if err != nil {
		return "", err
	}
	defer unlock()

	o := e.cache.Upsert(session, items)
	e.log.Debug("items added", "session", session, "items", len(items), "order_size", o.Len())
	return reply.SoFar(o.Items()), nil
}

// RemoveItems 按删除规则扣减；会话不存在时提示重新下单。
func (e *Engine) RemoveItems(ctx context.Context, session string, items []model.Item) (string, error) {
	unlock, err := e.lockSession(ctx, session)
	if err != nil {
		return "", err
	}
	defer unlock()

	res, ok := e.cache.Remove(session, items)
	if !ok {
		return reply.RemoveWithoutOrder(), nil
	}
	e.log.Debug("items removed", "session", session, "removed", len(res.Removed), "not_found", len(res.NotFound))
	return reply.Removal(res.Removed, res.NotFound, res.Remaining.Items()), nil
}

// CompleteOrder 把会话订单整体落库。落库失败时保留会话订单，用户可以重试。
func (e *Engine) CompleteOrder(ctx context.Context, session string) (string, error) {
	unlock, err := e.lockSession(ctx, session)
	if err != nil {
		return "", err
	}
	defer unlock()

	o, ok := e.cache.Get(session)
	if !ok {
		return reply.CompleteWithoutOrder(), nil
	}
	if o.IsEmpty() {
		return reply.CompleteEmptyOrder(), nil
	}

	orderID, err := e.store.PlaceOrder(ctx, o.Items(), model.OrderStatusInProgress)
	if err != nil {
		var unknown *model.UnknownFoodItemError
		if errors.As(err, &unknown) {
			e.log.Info("order rejected", "session", session, "item", unknown.Name)
			return reply.UnknownFoodItem(unknown.Name), nil
		}
		e.log.Error("place order failed", "session", session, "error", err)
		return reply.PlaceFailed(), nil
	}

	// 订单已落库，此后无论总价是否查到都要清掉会话。
	e.cache.Clear(session)

	ev := queue.NewOrderEvent(queue.EventOrderPlaced, orderID, model.OrderStatusInProgress)
	ev.SessionID = session

	total, err := e.store.GetTotalOrderPrice(ctx, orderID)
	if err != nil {
		e.log.Error("get order total failed", "order_id", orderID, "error", err)
		e.publish(ctx, ev)
		return reply.PlacedWithoutTotal(orderID), nil
	}
	ev.TotalPrice = total
	e.publish(ctx, ev)

	e.log.Info("order completed", "session", session, "order_id", orderID, "total", total)
	return reply.Placed(orderID, total), nil
}

// NewOrder 无条件清空会话订单。
func (e *Engine) NewOrder(ctx context.Context, session string) (string, error) {
	unlock, err := e.lockSession(ctx, session)
	if err != nil {
		return "", err
	}
	defer unlock()

	o, ok := e.cache.Clear(session)
	if !ok || o.IsEmpty() {
		return reply.NothingToClear(), nil
	}
	return reply.Cleared(o.Items()), nil
}

// HasOrder 会话当前是否有订单（含空订单），只读。
func (e *Engine) HasOrder(session string) bool {
	_, ok := e.cache.Get(session)
	return ok
}

// TrackOrder 查询追踪状态，无状态操作。
func (e *Engine) TrackOrder(ctx context.Context, orderID int64) (string, error) {
	status, ok, err := e.store.GetOrderStatus(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("get status of order %d: %w", orderID, err)
	}
	if !ok {
		return reply.NoOrderFound(orderID), nil
	}
	return reply.OrderStatus(orderID, status), nil
}

// CancelOrder 仅当状态在可取消集合内时才取消，且以实际更新行数为准。
func (e *Engine) CancelOrder(ctx context.Context, orderID int64) (string, error) {
	status, ok, err := e.store.GetOrderStatus(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("get status of order %d: %w", orderID, err)
	}
	if !ok {
		return reply.NoOrderFound(orderID), nil
	}
	if !e.IsCancellable(status) {
		return reply.CannotCancel(orderID, status), nil
	}

	changed, err := e.store.CancelOrder(ctx, orderID, e.cancellable)
	if err != nil {
		return "", fmt.Errorf("cancel order %d: %w", orderID, err)
	}
	if !changed {
		// 查询与更新之间状态被改掉了
		e.log.Warn("cancel affected no rows", "order_id", orderID, "status", status)
		return reply.BackendError(), nil
	}

	e.publish(ctx, queue.NewOrderEvent(queue.EventOrderCanceled, orderID, model.OrderStatusCanceled))
	e.log.Info("order canceled", "order_id", orderID)
	return reply.Canceled(orderID), nil
}

// IsCancellable 判断某状态是否允许取消。
func (e *Engine) IsCancellable(status string) bool {
	return slices.Contains(e.cancellable, status)
}

// publish 事件投递失败只记日志，不影响回复。
func (e *Engine) publish(ctx context.Context, ev queue.OrderEvent) {
	if err := e.events.Publish(ctx, ev); err != nil {
		e.log.Warn("publish order event failed", "type", ev.Type, "order_id", ev.OrderID, "error", err)
	}
}
