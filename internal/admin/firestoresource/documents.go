package firestoresource

import (
	"strconv"
	"strings"
	"time"

	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
	"github.com/kflex/dashboard/internal/admin/reviews"
)

// Documents are read as loose maps because the storefront writes numbers as integers,
// doubles or strings depending on the client that created them.

func orderFromData(id string, data map[string]any) orders.Order {
	rawStatus := stringField(data, "status")
	status, ok := orders.ParseStatus(rawStatus)
	switch {
	case ok:
	case strings.TrimSpace(rawStatus) == "":
		status = orders.StatusPending
	default:
		status = orders.Status(strings.TrimSpace(rawStatus))
	}

	var items []orders.LineItem
	if raw, ok := data["products"].([]any); ok {
		items = make([]orders.LineItem, 0, len(raw))
		for _, entry := range raw {
			fields, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			items = append(items, orders.LineItem{
				Name:         stringField(fields, "name"),
				Price:        floatField(fields, "price"),
				SelectedSize: stringField(fields, "selectedSize"),
				ImageRef:     stringField(fields, "image"),
			})
		}
	}

	return orders.Order{
		ID:           strings.TrimSpace(id),
		CustomerName: stringField(data, "name"),
		Phone:        stringField(data, "phone"),
		Email:        stringField(data, "email"),
		Address:      stringField(data, "address"),
		Status:       status,
		TotalAmount:  floatField(data, "totalAmount"),
		CreatedAt:    timeField(data, "createdAt"),
		LineItems:    items,
	}
}

func productFromData(id string, data map[string]any) products.Product {
	return products.Product{
		ID:          strings.TrimSpace(id),
		Name:        stringField(data, "name"),
		Description: stringField(data, "description"),
		Price:       floatField(data, "price"),
		Stock:       int(floatField(data, "stock")),
		ImageRef:    stringField(data, "image"),
		UnitsSold:   int(floatField(data, "sold")),
	}
}

func reviewFromData(id string, data map[string]any) reviews.Review {
	return reviews.Review{
		ID:          strings.TrimSpace(id),
		ProductName: stringField(data, "productName"),
		UserName:    stringField(data, "userName"),
		Rating:      int(floatField(data, "rating")),
		Comment:     stringField(data, "comment"),
	}
}

func productData(input products.Input, imageRef string) map[string]any {
	data := map[string]any{
		"name":        input.Name,
		"description": input.Description,
		"price":       input.Price,
	}
	if input.Stock != nil {
		data["stock"] = int64(*input.Stock)
	}
	if imageRef != "" {
		data["image"] = imageRef
	}
	return data
}

func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func floatField(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case float64:
		return v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func timeField(data map[string]any, key string) time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return v.UTC()
	case string:
		return orders.ParseTimestamp(v)
	case int64:
		return time.UnixMilli(v).UTC()
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Time{}
}
