package intent

import (
	"context"
	"errors"
	"testing"

	"eatery/internal/model"
	"eatery/internal/order"
	"eatery/internal/reply"
	"eatery/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op      string
	session string
	items   []model.Item
	orderID int64
}

// stubEngine 记录调用，返回固定文本。
type stubEngine struct {
	calls    []call
	err      error
	sessions map[string]bool
}

func (s *stubEngine) HasOrder(session string) bool { return s.sessions[session] }

func (s *stubEngine) record(c call) (string, error) {
	s.calls = append(s.calls, c)
	if s.err != nil {
		return "", s.err
	}
	return c.op + " ok", nil
}

func (s *stubEngine) AddItems(_ context.Context, session string, items []model.Item) (string, error) {
	return s.record(call{op: "add", session: session, items: items})
}

func (s *stubEngine) RemoveItems(_ context.Context, session string, items []model.Item) (string, error) {
	return s.record(call{op: "remove", session: session, items: items})
}

func (s *stubEngine) CompleteOrder(_ context.Context, session string) (string, error) {
	return s.record(call{op: "complete", session: session})
}

func (s *stubEngine) NewOrder(_ context.Context, session string) (string, error) {
	return s.record(call{op: "new", session: session})
}

func (s *stubEngine) TrackOrder(_ context.Context, orderID int64) (string, error) {
	return s.record(call{op: "track", orderID: orderID})
}

func (s *stubEngine) CancelOrder(_ context.Context, orderID int64) (string, error) {
	return s.record(call{op: "cancel", orderID: orderID})
}

func TestResolveDefaultNames(t *testing.T) {
	d := NewDispatcher(&stubEngine{}, nil, logger.Nop())

	for name, want := range DefaultNames {
		got, err := d.Resolve(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := d.Resolve("4. addorder - context: ongoing-order")
	var unknown *UnknownIntentError
	assert.ErrorAs(t, err, &unknown, "names are case sensitive")
}

func TestDispatchRoutesToEngine(t *testing.T) {
	eng := &stubEngine{}
	d := NewDispatcher(eng, nil, logger.Nop())
	ctx := context.Background()

	reqs := []Request{
		{Intent: "4. AddOrder - context: ongoing-order", Session: "s1",
			Params: Params{ParamFoodItems: []any{"Pizza"}, ParamNumber: []any{2.0}}},
		{Intent: "5. RemoveOrder - context: ongoing-order", Session: "s1",
			Params: Params{ParamFoodItems: []any{"Pizza"}}},
		{Intent: "6. CompleteOrder - context: ongoing-order", Session: "s1", Params: Params{}},
		{Intent: "7.1. TrackMultipleOrder - context: ongoing-tracking", Session: "s1",
			Params: Params{ParamNumber: 41.0}},
		{Intent: "8. CancelOrder", Session: "s1", Params: Params{ParamNumber: "41"}},
		{Intent: "3. NewOrder", Session: "s1", Params: Params{}},
	}
	for _, req := range reqs {
		_, err := d.Dispatch(ctx, req)
		require.NoError(t, err, req.Intent)
	}

	require.Len(t, eng.calls, 6)
	assert.Equal(t, call{op: "add", session: "s1", items: []model.Item{{Name: "Pizza", Quantity: 2}}}, eng.calls[0])
	assert.Equal(t, call{op: "remove", session: "s1", items: []model.Item{{Name: "Pizza", Quantity: 1}}}, eng.calls[1])
	assert.Equal(t, call{op: "complete", session: "s1"}, eng.calls[2])
	assert.Equal(t, call{op: "track", orderID: 41}, eng.calls[3])
	assert.Equal(t, call{op: "cancel", orderID: 41}, eng.calls[4])
	assert.Equal(t, call{op: "new", session: "s1"}, eng.calls[5])
}

func TestFulfillUnknownIntent(t *testing.T) {
	eng := &stubEngine{}
	d := NewDispatcher(eng, nil, logger.Nop())

	text := d.Fulfill(context.Background(), Request{Intent: "Default Welcome Intent", Session: "s1"})
	assert.Equal(t, reply.UnknownIntent(), text)
	assert.Empty(t, eng.calls)
}

func TestFulfillClarifiesMalformedBatch(t *testing.T) {
	eng := &stubEngine{sessions: map[string]bool{"s1": true}}
	d := NewDispatcher(eng, nil, logger.Nop())

	text := d.Fulfill(context.Background(), Request{
		Intent:  "4. AddOrder - context: ongoing-order",
		Session: "s1",
		Params:  Params{ParamFoodItems: []any{"Pizza", "Samosa"}, ParamNumber: []any{1.0}},
	})
	assert.Equal(t, reply.Clarify(), text)
	assert.Empty(t, eng.calls)
}

func TestFulfillInvalidOrderID(t *testing.T) {
	eng := &stubEngine{}
	d := NewDispatcher(eng, nil, logger.Nop())

	text := d.Fulfill(context.Background(), Request{Intent: "8. CancelOrder", Session: "s1", Params: Params{ParamNumber: -1.0}})
	assert.Equal(t, reply.InvalidOrderID(), text)
	assert.Empty(t, eng.calls)
}

func TestFulfillHidesEngineErrors(t *testing.T) {
	eng := &stubEngine{err: errors.New("db is down")}
	d := NewDispatcher(eng, nil, logger.Nop())

	text := d.Fulfill(context.Background(), Request{Intent: "7.1. TrackMultipleOrder - context: ongoing-tracking", Session: "s1", Params: Params{ParamNumber: 3.0}})
	assert.Equal(t, reply.BackendError(), text)
}

func TestCustomNames(t *testing.T) {
	eng := &stubEngine{}
	d := NewDispatcher(eng, map[string]Kind{"order.new": KindNewOrder}, logger.Nop())

	assert.Equal(t, "new ok", d.Fulfill(context.Background(), Request{Intent: "order.new", Session: "s1"}))
	assert.Equal(t, reply.UnknownIntent(), d.Fulfill(context.Background(), Request{Intent: "3. NewOrder", Session: "s1"}))
}

func TestMismatchLeavesSessionUnchanged(t *testing.T) {
	cache := order.NewCache()
	eng := order.NewEngine(cache, order.NewKeyedMutex(), nil, nil, order.Options{}, logger.Nop())
	d := NewDispatcher(eng, nil, logger.Nop())
	ctx := context.Background()

	add := "4. AddOrder - context: ongoing-order"
	d.Fulfill(ctx, Request{Intent: add, Session: "s1", Params: Params{ParamFoodItems: []any{"Pizza"}, ParamNumber: []any{2.0}}})
	text := d.Fulfill(ctx, Request{Intent: add, Session: "s1", Params: Params{ParamFoodItems: []any{"Pizza", "Samosa"}, ParamNumber: []any{1.0}}})
	assert.Equal(t, reply.Clarify(), text)

	o, ok := cache.Get("s1")
	require.True(t, ok)
	assert.Equal(t, []model.Item{{Name: "Pizza", Quantity: 2}}, o.Items())
}

func TestFulfillClarifiesOversizedQuantity(t *testing.T) {
	eng := &stubEngine{}
	d := NewDispatcher(eng, nil, logger.Nop())

	text := d.Fulfill(context.Background(), Request{
		Intent:  "4. AddOrder - context: ongoing-order",
		Session: "s1",
		Params:  Params{ParamFoodItems: []any{"Pizza"}, ParamNumber: []any{1e300}},
	})
	assert.Equal(t, reply.Clarify(), text)
	assert.Empty(t, eng.calls)
}

func TestRemoveWithoutOrderBeforeClarify(t *testing.T) {
	eng := &stubEngine{sessions: map[string]bool{"s2": true}}
	d := NewDispatcher(eng, nil, logger.Nop())
	ctx := context.Background()
	bad := Params{ParamFoodItems: []any{"Pizza", "Samosa"}, ParamNumber: []any{1.0}}
	remove := "5. RemoveOrder - context: ongoing-order"

	text := d.Fulfill(ctx, Request{Intent: remove, Session: "s1", Params: bad})
	assert.Equal(t, reply.RemoveWithoutOrder(), text)

	text = d.Fulfill(ctx, Request{Intent: remove, Session: "s2", Params: bad})
	assert.Equal(t, reply.Clarify(), text)
	assert.Empty(t, eng.calls)
}

func TestEngineHasOrder(t *testing.T) {
	cache := order.NewCache()
	eng := order.NewEngine(cache, order.NewKeyedMutex(), nil, nil, order.Options{}, logger.Nop())
	assert.False(t, eng.HasOrder("s1"))
	cache.Reset("s1", nil)
	assert.True(t, eng.HasOrder("s1"))
}
