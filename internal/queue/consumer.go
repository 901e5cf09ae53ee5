package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"eatery/internal/model"
	"eatery/pkg/logger"

	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

// Consumer 订阅订单事件并落审计表 order_events。
type Consumer struct {
	r   *kafka.Reader
	db  *gorm.DB
	log *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, db *gorm.DB, log *logger.Logger) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		db:  db,
		log: log.WithComponent("consumer"),
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.log.Warn("consumer read", "error", err)
			}
			return // ctx cancel / 连接断开等
		}

		if err := c.handle(ctx, m.Value); err != nil {
			c.log.Warn("consumer handle", "offset", m.Offset, "error", err)
		}
	}
}

// handle 解析并落库一条事件。重复事件（event_id 冲突）视为成功。
func (c *Consumer) handle(ctx context.Context, value []byte) error {
	var ev OrderEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return err
	}
	if err := ev.Validate(); err != nil {
		return err
	}

	row := auditRow(ev)
	err := c.db.WithContext(ctx).Create(&row).Error
	if err != nil && errorsLikeUnique(err) {
		return nil
	}
	return err
}

func auditRow(ev OrderEvent) model.OrderEvent {
	return model.OrderEvent{
		EventID:    ev.EventID,
		Type:       ev.Type,
		OrderID:    ev.OrderID,
		SessionID:  ev.SessionID,
		Status:     ev.Status,
		TotalPrice: ev.TotalPrice,
		OccurredAt: ev.OccurredAt,
	}
}

func errorsLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique") || strings.Contains(s, "Duplicate entry")
}
