package queue

import (
	"context"
	"strconv"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// outboxMaxLen 限制 Stream 长度，Relay 长时间不可用时避免无限增长。
const outboxMaxLen = 100000

// StreamOutbox 把事件写入 Redis Stream，由 Relay 异步转发到 Kafka。
// 请求路径只依赖 Redis，Kafka 抖动不影响下单回复。
type StreamOutbox struct {
	rdb    *rd.Client
	stream string
}

func NewStreamOutbox(rdb *rd.Client, stream string) *StreamOutbox {
	return &StreamOutbox{rdb: rdb, stream: stream}
}

func (o *StreamOutbox) Publish(ctx context.Context, ev OrderEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	return o.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: o.stream,
		MaxLen: outboxMaxLen,
		Approx: true,
		Values: streamValues(ev),
	}).Err()
}

// streamValues 与 parseOrderEvent 互为逆操作。
func streamValues(ev OrderEvent) map[string]interface{} {
	return map[string]interface{}{
		"event_id":    ev.EventID,
		"type":        ev.Type,
		"order_id":    strconv.FormatInt(ev.OrderID, 10),
		"session_id":  ev.SessionID,
		"status":      ev.Status,
		"total_price": strconv.FormatInt(ev.TotalPrice, 10),
		"occurred_at": ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}
