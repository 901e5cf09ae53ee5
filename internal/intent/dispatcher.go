package intent

import (
	"context"
	"errors"
	"fmt"

	"eatery/internal/model"
	"eatery/internal/reply"
	"eatery/pkg/logger"
)

// Kind 是引擎能处理的意图种类，封闭集合。
type Kind int

const (
	KindUnknown Kind = iota
	KindAddItems
	KindRemoveItems
	KindCompleteOrder
	KindTrackOrder
	KindCancelOrder
	KindNewOrder
)

func (k Kind) String() string {
	switch k {
	case KindAddItems:
		return "add_items"
	case KindRemoveItems:
		return "remove_items"
	case KindCompleteOrder:
		return "complete_order"
	case KindTrackOrder:
		return "track_order"
	case KindCancelOrder:
		return "cancel_order"
	case KindNewOrder:
		return "new_order"
	default:
		return "unknown"
	}
}

// DefaultNames 是上游 NLU 配置里的 intent displayName，大小写与标点都必须一致。
var DefaultNames = map[string]Kind{
	"4. AddOrder - context: ongoing-order":                KindAddItems,
	"5. RemoveOrder - context: ongoing-order":             KindRemoveItems,
	"6. CompleteOrder - context: ongoing-order":           KindCompleteOrder,
	"7.1. TrackMultipleOrder - context: ongoing-tracking": KindTrackOrder,
	"8. CancelOrder":                                      KindCancelOrder,
	"3. NewOrder":                                         KindNewOrder,
}

// UnknownIntentError 表示 displayName 没有对应的处理器。
type UnknownIntentError struct {
	Name string
}

func (e *UnknownIntentError) Error() string {
	return fmt.Sprintf("no handler for intent %q", e.Name)
}

// Engine 是分发目标，*order.Engine 实现了它。
type Engine interface {
	AddItems(ctx context.Context, session string, items []model.Item) (string, error)
	RemoveItems(ctx context.Context, session string, items []model.Item) (string, error)
	CompleteOrder(ctx context.Context, session string) (string, error)
	NewOrder(ctx context.Context, session string) (string, error)
	TrackOrder(ctx context.Context, orderID int64) (string, error)
	CancelOrder(ctx context.Context, orderID int64) (string, error)
	HasOrder(session string) bool
}

// Request 是从 webhook 里抽出来的一次调用。
type Request struct {
	Intent  string
	Session string
	Params  Params
}

// HandlerFunc 处理一种意图，返回 fulfillmentText。
type HandlerFunc func(ctx context.Context, req Request) (string, error)

// Dispatcher 在启动时建好 displayName → Kind → Handler 的映射。
type Dispatcher struct {
	names    map[string]Kind
	handlers map[Kind]HandlerFunc
	log      *logger.Logger
}

// NewDispatcher 为每个 Kind 绑定处理器。names 为 nil 时使用 DefaultNames。
func NewDispatcher(engine Engine, names map[string]Kind, log *logger.Logger) *Dispatcher {
	if names == nil {
		names = DefaultNames
	}
	copied := make(map[string]Kind, len(names))
	for name, kind := range names {
		copied[name] = kind
	}

	return &Dispatcher{
		names: copied,
		handlers: map[Kind]HandlerFunc{
			KindAddItems:      addItems(engine),
			KindRemoveItems:   removeItems(engine),
			KindCompleteOrder: completeOrder(engine),
			KindTrackOrder:    trackOrder(engine),
			KindCancelOrder:   cancelOrder(engine),
			KindNewOrder:      newOrder(engine),
		},
		log: log.WithComponent("dispatcher"),
	}
}

// Resolve 把 displayName 解析成 Kind。
func (d *Dispatcher) Resolve(name string) (Kind, error) {
	kind, ok := d.names[name]
	if !ok || kind == KindUnknown {
		return KindUnknown, &UnknownIntentError{Name: name}
	}
	return kind, nil
}

// Dispatch 调用对应处理器，错误原样返回。
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (string, error) {
	kind, err := d.Resolve(req.Intent)
	if err != nil {
		return "", err
	}
	h, ok := d.handlers[kind]
	if !ok {
		return "", &UnknownIntentError{Name: req.Intent}
	}
	return h(ctx, req)
}

// Fulfill 是处理器边界：任何错误都转成面向用户的话术，不会把原始错误交给传输层。
func (d *Dispatcher) Fulfill(ctx context.Context, req Request) string {
	text, err := d.Dispatch(ctx, req)
	if err == nil {
		return text
	}

	var unknown *UnknownIntentError
	if errors.As(err, &unknown) {
		d.log.Warn("unknown intent", "intent", unknown.Name, "session", req.Session)
		return reply.UnknownIntent()
	}
	d.log.Error("intent handler failed", "intent", req.Intent, "session", req.Session, "error", err)
	return reply.BackendError()
}

func addItems(engine Engine) HandlerFunc {
	return func(ctx context.Context, req Request) (string, error) {
		items, err := req.Params.Batch(false)
		if err != nil {
			return clarify(err)
		}
		return engine.AddItems(ctx, req.Session, items)
	}
}

func removeItems(engine Engine) HandlerFunc {
	return func(ctx context.Context, req Request) (string, error) {
		// 没说数量时每样默认删 1 份
		items, err := req.Params.Batch(true)
		if err != nil {
			// 没有订单时先提示重新下单，参数再错也一样
			if isValidationError(err) && !engine.HasOrder(req.Session) {
				return reply.RemoveWithoutOrder(), nil
			}
			return clarify(err)
		}
		return engine.RemoveItems(ctx, req.Session, items)
	}
}

func completeOrder(engine Engine) HandlerFunc {
	return func(ctx context.Context, req Request) (string, error) {
		return engine.CompleteOrder(ctx, req.Session)
	}
}

func newOrder(engine Engine) HandlerFunc {
	return func(ctx context.Context, req Request) (string, error) {
		return engine.NewOrder(ctx, req.Session)
	}
}

func trackOrder(engine Engine) HandlerFunc {
	return func(ctx context.Context, req Request) (string, error) {
		id, err := req.Params.OrderID()
		if err != nil {
			return reply.InvalidOrderID(), nil
		}
		return engine.TrackOrder(ctx, id)
	}
}

func cancelOrder(engine Engine) HandlerFunc {
	return func(ctx context.Context, req Request) (string, error) {
		id, err := req.Params.OrderID()
		if err != nil {
			return reply.InvalidOrderID(), nil
		}
		return engine.CancelOrder(ctx, id)
	}
}

// clarify 参数形状不对只回澄清话术，不算故障。
func clarify(err error) (string, error) {
	if isValidationError(err) {
		return reply.Clarify(), nil
	}
	return "", err
}
