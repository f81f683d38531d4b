package firestoresource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
)

func TestOrderFromData(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, time.January, 10, 15, 0, 0, 0, time.FixedZone("IST", 19800))
	order := orderFromData(" ord-1 ", map[string]any{
		"name":        "Asha Rao",
		"phone":       int64(9876543210),
		"status":      "completed",
		"totalAmount": int64(1250),
		"createdAt":   created,
		"products": []any{
			map[string]any{"name": "Linen Shirt", "price": 999.5, "selectedSize": "M"},
			"garbage",
		},
	})

	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, "9876543210", order.Phone)
	assert.Equal(t, orders.StatusCompleted, order.Status)
	assert.Equal(t, 1250.0, order.TotalAmount)
	assert.Equal(t, time.UTC, order.CreatedAt.Location())
	assert.True(t, created.Equal(order.CreatedAt))
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, orders.LineItem{Name: "Linen Shirt", Price: 999.5, SelectedSize: "M"}, order.LineItems[0])
}

func TestOrderFromDataStatusFallbacks(t *testing.T) {
	t.Parallel()

	assert.Equal(t, orders.StatusPending, orderFromData("a", map[string]any{}).Status)
	assert.Equal(t, orders.Status("Shipped"), orderFromData("b", map[string]any{"status": " Shipped "}).Status)
	assert.Equal(t, 12.5, orderFromData("c", map[string]any{"totalAmount": "12.5"}).TotalAmount)
	assert.Zero(t, orderFromData("d", map[string]any{"totalAmount": "n/a"}).TotalAmount)
	assert.True(t, orderFromData("e", map[string]any{"createdAt": "not a date"}).CreatedAt.IsZero())
}

func TestOrderFromDataTimestampFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  any
		want time.Time
	}{
		{"2025-02-05", time.Date(2025, time.February, 5, 0, 0, 0, 0, time.UTC)},
		{"2025-02-05T10:00:00", time.Date(2025, time.February, 5, 10, 0, 0, 0, time.UTC)},
		{"2025-02-05T10:00:00.250Z", time.Date(2025, time.February, 5, 10, 0, 0, 250000000, time.UTC)},
		{int64(1736500000000), time.Date(2025, time.January, 10, 9, 6, 40, 0, time.UTC)},
		{float64(1736500000000), time.Date(2025, time.January, 10, 9, 6, 40, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := orderFromData("t", map[string]any{"createdAt": tc.raw}).CreatedAt
		assert.Equal(t, tc.want, got, "%v", tc.raw)
	}
}

func TestProductDataRoundTrip(t *testing.T) {
	t.Parallel()

	stock := 3
	data := productData(products.Input{Name: "Cap", Description: "Cotton", Price: 250, Stock: &stock}, "gs://bucket/products/p1/cap.png")
	assert.Equal(t, int64(3), data["stock"])

	product := productFromData("p1", data)
	assert.Equal(t, products.Product{
		ID:          "p1",
		Name:        "Cap",
		Description: "Cotton",
		Price:       250,
		Stock:       3,
		ImageRef:    "gs://bucket/products/p1/cap.png",
	}, product)

	withoutStock := productData(products.Input{Name: "Cap"}, "")
	assert.NotContains(t, withoutStock, "stock")
	assert.NotContains(t, withoutStock, "image")
}

func TestReviewFromData(t *testing.T) {
	t.Parallel()

	review := reviewFromData("r1", map[string]any{"productName": "Cap", "userName": "Asha", "rating": 4.0, "comment": "Nice"})
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, "Nice", review.Comment)
}

func TestNewRequiresProvider(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil)
	require.Error(t, err)
}
