package reply

import (
	"math"
	"testing"

	"eatery/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "2", FormatQuantity(2))
	assert.Equal(t, "0.5", FormatQuantity(0.5))
	assert.Equal(t, "1.25", FormatQuantity(1.25))
	assert.Equal(t, "1000000", FormatQuantity(1e6))
	assert.Equal(t, "1e+300", FormatQuantity(1e300))
	assert.Equal(t, "-1e+20", FormatQuantity(-1e20))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "0.00", FormatPrice(0))
	assert.Equal(t, "16.00", FormatPrice(1600))
	assert.Equal(t, "4.05", FormatPrice(405))
	assert.Equal(t, "-1.50", FormatPrice(-150))
	assert.Equal(t, "92233720368547758.07", FormatPrice(math.MaxInt64))
	assert.Equal(t, "-92233720368547758.08", FormatPrice(math.MinInt64))
}

func TestFormatItems(t *testing.T) {
	items := []model.Item{{Name: "Pizza", Quantity: 2}, {Name: "Mango Lassi", Quantity: 1}}
	assert.Equal(t, "2 Pizza, 1 Mango Lassi", FormatItems(items))
	assert.Equal(t, "", FormatItems(nil))
}

func TestRemoval(t *testing.T) {
	removed := []model.Item{{Name: "Pizza", Quantity: 1}}
	remaining := []model.Item{{Name: "Pizza", Quantity: 1}}

	got := Removal(removed, []string{"Samosa"}, remaining)
	assert.Equal(t, "Removed 1 Pizza from your order! Your current order does not have Samosa. "+
		"Here is what is left in your order: 1 Pizza", got)

	got = Removal(removed, nil, nil)
	assert.Equal(t, "Removed 1 Pizza from your order! Your order is empty!", got)
}

func TestPlaced(t *testing.T) {
	assert.Contains(t, Placed(7, 2500), "order id # 7")
	assert.Contains(t, Placed(7, 2500), "25.00")
}
