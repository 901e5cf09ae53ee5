package queue

import "context"

// Publisher 投递订单事件。实现有直连 Kafka 的 Producer 和写 Redis Stream 的 StreamOutbox。
type Publisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

// NopPublisher 未配置消息系统时使用。
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
