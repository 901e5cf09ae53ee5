package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"eatery/internal/model"
	"eatery/internal/order"
)

// 上游参数名
const (
	ParamFoodItems = "FoodItem-AddOrder"
	ParamNumber    = "number"
)

var (
	ErrInvalidOrderID = errors.New("invalid order id")
	// ErrMalformedParam 参数类型既不是标量也不是列表。
	ErrMalformedParam = errors.New("malformed parameter")
)

// Params 是 NLU 给的参数包，数字按 JSON 解码为 float64。
type Params map[string]any

// Batch 把并行的 FoodItem-AddOrder / number 规整成 (name, qty) 序列。
// 标量会被当成单元素列表；defaultQty 为 true 时缺失的数量按每样 1 份补齐。
func (p Params) Batch(defaultQty bool) ([]model.Item, error) {
	names, err := stringList(p[ParamFoodItems])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ParamFoodItems, err)
	}
	quantities, err := numberList(p[ParamNumber])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ParamNumber, err)
	}
	if defaultQty && len(quantities) == 0 {
		quantities = make([]float64, len(names))
		for i := range quantities {
			quantities[i] = 1
		}
	}
	return order.NewBatch(names, quantities)
}

// OrderID 读取 number 作为订单号，接受数字、数字字符串或单元素列表。
func (p Params) OrderID() (int64, error) {
	nums, err := numberList(p[ParamNumber])
	if err != nil || len(nums) != 1 {
		return 0, ErrInvalidOrderID
	}
	n := nums[0]
	if n <= 0 || n != math.Trunc(n) || n >= math.MaxInt64 {
		return 0, ErrInvalidOrderID
	}
	return int64(n), nil
}

func isValidationError(err error) bool {
	return errors.Is(err, order.ErrQuantityMismatch) ||
		errors.Is(err, order.ErrNoItems) ||
		errors.Is(err, order.ErrInvalidQuantity) ||
		errors.Is(err, order.ErrEmptyItemName) ||
		errors.Is(err, ErrMalformedParam)
}

func stringList(v any) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{x}, nil
	case []string:
		return x, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: element %T", ErrMalformedParam, e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrMalformedParam, v)
	}
}

func numberList(v any) ([]float64, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []float64:
		return x, nil
	case string:
		// 没给数量时上游会传空串
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		n, err := number(x)
		if err != nil {
			return nil, err
		}
		return []float64{n}, nil
	case []any:
		out := make([]float64, 0, len(x))
		for _, e := range x {
			n, err := number(e)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	default:
		n, err := number(v)
		if err != nil {
			return nil, err
		}
		return []float64{n}, nil
	}
}

func number(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedParam, x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrMalformedParam, v)
	}
}
