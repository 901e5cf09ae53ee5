package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"eatery/pkg/logger"

	rd "github.com/redis/go-redis/v9"
)

// RelayOptions 描述 outbox stream 与消费组。零值字段取默认值。
type RelayOptions struct {
	Stream   string
	Group    string
	Consumer string

	BatchSize int64         // 单次读取条数，默认 16
	Block     time.Duration // 等待新消息的阻塞时长，默认 2s
	MinIdle   time.Duration // 别的消费者 pending 超过该时长就认领过来，默认 30s
	Backoff   time.Duration // 出错后的退避，默认 300ms
}

func (o RelayOptions) withDefaults() RelayOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 16
	}
	if o.Block <= 0 {
		o.Block = 2 * time.Second
	}
	if o.MinIdle <= 0 {
		o.MinIdle = 30 * time.Second
	}
	if o.Backoff <= 0 {
		o.Backoff = 300 * time.Millisecond
	}
	return o
}

// Relay 把 outbox stream 里的订单事件转投给 sink（通常是 Kafka Producer）。
// sink 成功后才 XACK + XDEL，失败的消息留在 PEL 里下轮重投。
type Relay struct {
	rdb  *rd.Client
	sink Publisher
	log  *logger.Logger
	opts RelayOptions

	relayed atomic.Int64
	dropped atomic.Int64
}

func NewRelay(rdb *rd.Client, sink Publisher, opts RelayOptions, log *logger.Logger) *Relay {
	opts = opts.withDefaults()
	return &Relay{
		rdb:  rdb,
		sink: sink,
		opts: opts,
		log:  log.WithComponent("relay").With("stream", opts.Stream, "consumer", opts.Consumer),
	}
}

// Stats 返回已转投与丢弃（格式错误）的事件数。
func (r *Relay) Stats() (relayed, dropped int64) {
	return r.relayed.Load(), r.dropped.Load()
}

// Run 阻塞直到 ctx 结束。
func (r *Relay) Run(ctx context.Context) {
	if err := r.createGroup(ctx); err != nil {
		r.log.Error("create consumer group", "group", r.opts.Group, "error", err)
		return
	}
	r.log.Info("relay started", "group", r.opts.Group)
	defer func() {
		relayed, dropped := r.Stats()
		r.log.Info("relay stopped", "relayed", relayed, "dropped", dropped)
	}()

	for ctx.Err() == nil {
		msgs, err := r.nextBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Warn("read outbox", "error", err)
			sleepCtx(ctx, r.opts.Backoff)
			continue
		}

		for _, xm := range msgs {
			if err := r.forward(ctx, xm); err != nil {
				// 保序：本批剩余消息等下一轮
				r.log.Warn("forward order event", "id", xm.ID, "error", err)
				sleepCtx(ctx, r.opts.Backoff)
				break
			}
		}
	}
}

// nextBatch 依次尝试：自己的 pending → 认领别人超时的 pending → 阻塞读新消息。
func (r *Relay) nextBatch(ctx context.Context) ([]rd.XMessage, error) {
	msgs, err := r.read(ctx, "0", -1)
	if err != nil || len(msgs) > 0 {
		return msgs, err
	}

	claimed, _, err := r.rdb.XAutoClaim(ctx, &rd.XAutoClaimArgs{
		Stream:   r.opts.Stream,
		Group:    r.opts.Group,
		Consumer: r.opts.Consumer,
		MinIdle:  r.opts.MinIdle,
		Start:    "0-0",
		Count:    r.opts.BatchSize,
	}).Result()
	if err != nil && !errors.Is(err, rd.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if len(claimed) > 0 {
		r.log.Info("claimed stale events", "count", len(claimed))
		return claimed, nil
	}

	return r.read(ctx, ">", r.opts.Block)
}

func (r *Relay) createGroup(ctx context.Context) error {
	err := r.rdb.XGroupCreateMkStream(ctx, r.opts.Stream, r.opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// read 中 block < 0 表示不阻塞。
func (r *Relay) read(ctx context.Context, id string, block time.Duration) ([]rd.XMessage, error) {
	res, err := r.rdb.XReadGroup(ctx, &rd.XReadGroupArgs{
		Group:    r.opts.Group,
		Consumer: r.opts.Consumer,
		Streams:  []string{r.opts.Stream, id},
		Count:    r.opts.BatchSize,
		Block:    block,
	}).Result()
	if errors.Is(err, rd.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s: %w", id, err)
	}

	var msgs []rd.XMessage
	for _, s := range res {
		msgs = append(msgs, s.Messages...)
	}
	return msgs, nil
}

func (r *Relay) forward(ctx context.Context, xm rd.XMessage) error {
	ev, err := parseOrderEvent(xm.Values)
	if err != nil {
		// 格式错误的事件重投也没用，确认后丢掉
		r.dropped.Add(1)
		r.log.Warn("drop malformed order event", "id", xm.ID, "error", err)
		return r.ack(ctx, xm.ID)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.sink.Publish(pubCtx, ev); err != nil {
		return fmt.Errorf("publish %s for order %d: %w", ev.Type, ev.OrderID, err)
	}
	if err := r.ack(ctx, xm.ID); err != nil {
		return err
	}
	r.relayed.Add(1)
	return nil
}

func (r *Relay) ack(ctx context.Context, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(p rd.Pipeliner) error {
		p.XAck(ctx, r.opts.Stream, r.opts.Group, id)
		p.XDel(ctx, r.opts.Stream, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ack %s: %w", id, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// streamFields 顺序读取 stream 字段，只保留第一个错误。
type streamFields struct {
	values map[string]interface{}
	err    error
}

func (f *streamFields) str(key string) string {
	if f.err != nil {
		return ""
	}
	s, err := fieldString(f.values, key)
	f.err = err
	return s
}

func (f *streamFields) optional(key string) string {
	if _, ok := f.values[key]; !ok || f.err != nil {
		return ""
	}
	return f.str(key)
}

func (f *streamFields) integer(key string) int64 {
	s := f.str(key)
	if f.err != nil {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f.err = fmt.Errorf("invalid %s %q", key, s)
	}
	return n
}

func (f *streamFields) timestamp(key string) time.Time {
	s := f.str(key)
	if f.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		f.err = fmt.Errorf("invalid %s %q", key, s)
	}
	return t
}

// parseOrderEvent 是 streamValues 的逆操作。
func parseOrderEvent(values map[string]interface{}) (OrderEvent, error) {
	f := &streamFields{values: values}
	ev := OrderEvent{
		EventID:    f.str("event_id"),
		Type:       f.str("type"),
		OrderID:    f.integer("order_id"),
		SessionID:  f.optional("session_id"),
		Status:     f.str("status"),
		TotalPrice: f.integer("total_price"),
		OccurredAt: f.timestamp("occurred_at"),
	}
	if f.err != nil {
		return OrderEvent{}, f.err
	}
	if err := ev.Validate(); err != nil {
		return OrderEvent{}, err
	}
	return ev, nil
}

func fieldString(values map[string]interface{}, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing field %s", key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("field %s has unsupported type %T", key, v)
	}
}
