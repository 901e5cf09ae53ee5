package redis

import (
	"context"
	"strconv"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// CachedStatus 对应 Redis 内缓存的订单状态。
type CachedStatus struct {
	OrderID  int64
	Status   string
	CachedAt time.Time
}

// GetOrderStatus 读取缓存。found=false 表示 key 不存在或已过期。
func GetOrderStatus(ctx context.Context, rdb *rd.Client, orderID int64) (CachedStatus, bool, error) {
	m, err := rdb.HGetAll(ctx, OrderStatusKey(orderID)).Result()
	if err != nil {
		return CachedStatus{}, false, err
	}
	if len(m) == 0 || m["status"] == "" {
		return CachedStatus{}, false, nil
	}

	out := CachedStatus{OrderID: orderID, Status: m["status"]}
	if sec, err := strconv.ParseInt(m["cached_at"], 10, 64); err == nil {
		out.CachedAt = time.Unix(sec, 0)
	}
	return out, true, nil
}

// PutOrderStatus 写入缓存并刷新 TTL。
func PutOrderStatus(ctx context.Context, rdb *rd.Client, orderID int64, status string, ttl time.Duration) error {
	key := OrderStatusKey(orderID)
	pipe := rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"order_id", orderID,
		"status", status,
		"cached_at", time.Now().Unix(),
	)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteOrderStatus 状态变更后让缓存失效。
func DeleteOrderStatus(ctx context.Context, rdb *rd.Client, orderID int64) error {
	return rdb.Del(ctx, OrderStatusKey(orderID)).Err()
}
