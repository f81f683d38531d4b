package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
	"github.com/kflex/dashboard/internal/admin/reviews"
)

// looseFloat accepts JSON numbers, numeric strings and null. Anything else decodes as 0.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	*f = looseFloat(parseLooseFloat(data))
	return nil
}

// looseInt behaves like looseFloat and truncates towards zero.
type looseInt int

func (i *looseInt) UnmarshalJSON(data []byte) error {
	*i = looseInt(int(parseLooseFloat(data)))
	return nil
}

// looseString accepts strings, numbers and booleans. Objects and arrays decode as "".
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*s = ""
	case trimmed[0] == '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*s = looseString(value)
	case trimmed[0] == '{', trimmed[0] == '[':
		*s = ""
	default:
		*s = looseString(trimmed)
	}
	return nil
}

// looseTime accepts timestamp strings in any of orders.TimestampLayouts and epoch
// milliseconds. Anything else decodes as the zero time.
type looseTime time.Time

func (t *looseTime) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*t = looseTime{}
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*t = looseTime(orders.ParseTimestamp(raw))
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if millis := parseLooseFloat(trimmed); millis != 0 {
			*t = looseTime(time.UnixMilli(int64(millis)).UTC())
		}
	}
	return nil
}

// lineItems accepts an array of line items, skipping entries that are not objects. Any
// other value decodes as no items.
type lineItems []lineItemRecord

func (l *lineItems) UnmarshalJSON(data []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	for _, entry := range raw {
		var item lineItemRecord
		if err := json.Unmarshal(entry, &item); err != nil {
			continue
		}
		*l = append(*l, item)
	}
	return nil
}

func parseLooseFloat(data []byte) float64 {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0
	}
	raw := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return 0
		}
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return value
}

type orderRecord struct {
	ID          looseString `json:"_id"`
	Name        looseString `json:"name"`
	Phone       looseString `json:"phone"`
	Email       looseString `json:"email"`
	Address     looseString `json:"address"`
	Status      looseString `json:"status"`
	TotalAmount looseFloat  `json:"totalAmount"`
	CreatedAt   looseTime   `json:"createdAt"`
	Products    lineItems   `json:"products"`
}

type lineItemRecord struct {
	Name         looseString `json:"name"`
	Price        looseFloat  `json:"price"`
	SelectedSize looseString `json:"selectedSize"`
	Image        looseString `json:"image"`
}

func (r orderRecord) toDomain() orders.Order {
	rawStatus := strings.TrimSpace(string(r.Status))
	status, ok := orders.ParseStatus(rawStatus)
	switch {
	case ok:
	case rawStatus == "":
		status = orders.StatusPending
	default:
		status = orders.Status(rawStatus)
	}

	items := make([]orders.LineItem, 0, len(r.Products))
	for _, item := range r.Products {
		items = append(items, orders.LineItem{
			Name:         string(item.Name),
			Price:        float64(item.Price),
			SelectedSize: string(item.SelectedSize),
			ImageRef:     string(item.Image),
		})
	}

	return orders.Order{
		ID:           strings.TrimSpace(string(r.ID)),
		CustomerName: string(r.Name),
		Phone:        string(r.Phone),
		Email:        string(r.Email),
		Address:      string(r.Address),
		Status:       status,
		TotalAmount:  float64(r.TotalAmount),
		CreatedAt:    time.Time(r.CreatedAt),
		LineItems:    items,
	}
}

type productRecord struct {
	ID          looseString `json:"_id"`
	Name        looseString `json:"name"`
	Description looseString `json:"description"`
	Price       looseFloat  `json:"price"`
	Stock       looseInt    `json:"stock"`
	Image       looseString `json:"image"`
	Sold        looseInt    `json:"sold"`
}

func (r productRecord) toDomain() products.Product {
	return products.Product{
		ID:          strings.TrimSpace(string(r.ID)),
		Name:        string(r.Name),
		Description: string(r.Description),
		Price:       float64(r.Price),
		Stock:       int(r.Stock),
		ImageRef:    string(r.Image),
		UnitsSold:   int(r.Sold),
	}
}

type reviewRecord struct {
	ID          looseString `json:"_id"`
	ProductName looseString `json:"productName"`
	UserName    looseString `json:"userName"`
	Rating      looseInt    `json:"rating"`
	Comment     looseString `json:"comment"`
}

func (r reviewRecord) toDomain() reviews.Review {
	return reviews.Review{
		ID:          strings.TrimSpace(string(r.ID)),
		ProductName: string(r.ProductName),
		UserName:    string(r.UserName),
		Rating:      int(r.Rating),
		Comment:     string(r.Comment),
	}
}

// decodeRecords decodes each element of raw on its own. Elements that are not objects of the
// expected shape are dropped and reported as ErrMalformedRecord.
func decodeRecords[T any](raw []json.RawMessage) ([]T, []error) {
	out := make([]T, 0, len(raw))
	var dropped []error
	for i, element := range raw {
		var record T
		if err := json.Unmarshal(element, &record); err != nil {
			dropped = append(dropped, fmt.Errorf("%w: element %d: %v", orders.ErrMalformedRecord, i, err))
			continue
		}
		out = append(out, record)
	}
	return out, dropped
}
