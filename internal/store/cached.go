package store

import (
	"context"
	"slices"
	"time"

	"eatery/internal/model"
	"eatery/pkg/logger"
	rediskey "eatery/pkg/redis"

	rd "github.com/redis/go-redis/v9"
)

// StatusCachedGateway 在 Gateway 前加一层 Redis 追踪状态缓存。
// 可取消的状态还会被本服务改掉，一律不缓存，直接读库；
// 只缓存不可取消的状态，取消成功后仍删一次 key。Redis 出错时降级直查数据库。
type StatusCachedGateway struct {
	*Gateway
	rdb         *rd.Client
	ttl         time.Duration
	cancellable []string
	log         *logger.Logger
}

func NewStatusCachedGateway(g *Gateway, rdb *rd.Client, ttl time.Duration, cancellable []string, log *logger.Logger) *StatusCachedGateway {
	if len(cancellable) == 0 {
		cancellable = []string{model.OrderStatusInProgress}
	}
	return &StatusCachedGateway{
		Gateway:     g,
		rdb:         rdb,
		ttl:         ttl,
		cancellable: slices.Clone(cancellable),
		log:         log.WithComponent("status_cache"),
	}
}

func (c *StatusCachedGateway) cacheable(status string) bool {
	return !slices.Contains(c.cancellable, status)
}

func (c *StatusCachedGateway) GetOrderStatus(ctx context.Context, orderID int64) (string, bool, error) {
	cached, ok, err := rediskey.GetOrderStatus(ctx, c.rdb, orderID)
	switch {
	case err != nil:
		c.log.Warn("status cache read failed", "order_id", orderID, "error", err)
	case ok && c.cacheable(cached.Status):
		return cached.Status, true, nil
	}

	status, found, err := c.Gateway.GetOrderStatus(ctx, orderID)
	if err != nil || !found || !c.cacheable(status) {
		return status, found, err
	}
	if err := rediskey.PutOrderStatus(ctx, c.rdb, orderID, status, c.ttl); err != nil {
		c.log.Warn("status cache write failed", "order_id", orderID, "error", err)
	}
	return status, true, nil
}

func (c *StatusCachedGateway) CancelOrder(ctx context.Context, orderID int64, cancellable []string) (bool, error) {
	changed, err := c.Gateway.CancelOrder(ctx, orderID, cancellable)
	if err != nil || !changed {
		return changed, err
	}
	if err := rediskey.DeleteOrderStatus(ctx, c.rdb, orderID); err != nil {
		c.log.Warn("status cache invalidate failed", "order_id", orderID, "error", err)
	}
	return true, nil
}
