package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"eatery/internal/model"
	"eatery/internal/store"
	"eatery/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuditConsumer(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	db, err := store.Open(store.Options{Driver: store.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &Consumer{db: db, log: logger.Nop()}, db
}

func TestConsumerHandleIsIdempotent(t *testing.T) {
	c, db := newAuditConsumer(t)
	ctx := context.Background()

	ev := NewOrderEvent(EventOrderPlaced, 9, "in progress")
	ev.SessionID = "s1"
	ev.TotalPrice = 1600
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, c.handle(ctx, raw))
	require.NoError(t, c.handle(ctx, raw), "redelivery is not an error")

	var rows []model.OrderEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, ev.EventID, rows[0].EventID)
	assert.Equal(t, int64(9), rows[0].OrderID)
	assert.Equal(t, int64(1600), rows[0].TotalPrice)
	assert.Equal(t, "s1", rows[0].SessionID)
}

func TestConsumerHandleRejectsGarbage(t *testing.T) {
	c, db := newAuditConsumer(t)
	ctx := context.Background()

	assert.Error(t, c.handle(ctx, []byte("{not json")))
	assert.Error(t, c.handle(ctx, []byte(`{"event_id":"x","type":"order.placed"}`)))

	var n int64
	require.NoError(t, db.Model(&model.OrderEvent{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestErrorsLikeUnique(t *testing.T) {
	assert.True(t, errorsLikeUnique(gorm.ErrDuplicatedKey))
	assert.True(t, errorsLikeUnique(errors.New("UNIQUE constraint failed: order_events.event_id")))
	assert.True(t, errorsLikeUnique(errors.New("Error 1062: Duplicate entry 'x' for key 'event_id'")))
	assert.False(t, errorsLikeUnique(errors.New("database is locked")))
	assert.False(t, errorsLikeUnique(nil))
}
