package products

import (
	"errors"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// LowStockThreshold is the stock level at or below which a product needs restocking.
const LowStockThreshold = 5

const maxImageBytes = 5 << 20

var (
	// ErrProductNotFound is returned when a product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrMalformedRecord marks a fetched product that lacks an identifier.
	ErrMalformedRecord = errors.New("malformed product record")
)

// Product is a catalogue item.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	ImageRef    string  `json:"imageRef,omitempty"`
	UnitsSold   int     `json:"unitsSold"`
}

// IsLowStock reports whether the product is at or below LowStockThreshold. Products
// without a recorded stock level count as zero.
func (p Product) IsLowStock() bool {
	return p.Stock <= LowStockThreshold
}

// Image is an uploaded product image.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Input carries the editable fields of a product. Stock is optional because the catalogue
// form only sends it when inventory is tracked.
type Input struct {
	Name        string
	Description string
	Price       float64
	Stock       *int
	Image       *Image
}

// ValidationError indicates validation issues with a product form.
type ValidationError struct {
	Message     string
	FieldErrors map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return "invalid product"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "invalid product"
	}
	return msg
}

var descriptionPolicy = bluemonday.StrictPolicy()

// Normalize trims fields and strips markup from the description.
func (in Input) Normalize() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(descriptionPolicy.Sanitize(in.Description))
	if in.Image != nil {
		image := *in.Image
		image.Filename = strings.TrimSpace(image.Filename)
		in.Image = &image
	}
	return in
}

// Validate checks the input and returns a *ValidationError listing every failing field.
func (in Input) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if math.IsNaN(in.Price) || in.Price < 0 {
		fields["price"] = "price must be zero or greater"
	}
	if in.Stock != nil && *in.Stock < 0 {
		fields["stock"] = "stock must be zero or greater"
	}
	if in.Image != nil {
		switch {
		case len(in.Image.Data) == 0:
			fields["image"] = "image is empty"
		case len(in.Image.Data) > maxImageBytes:
			fields["image"] = "image exceeds 5 MiB"
		case in.Image.ContentType != "" && !strings.HasPrefix(in.Image.ContentType, "image/"):
			fields["image"] = "image must be an image file"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Message: "product form has errors", FieldErrors: fields}
}

// LowStock returns the products at or below LowStockThreshold in their original order.
func LowStock(items []Product) []Product {
	out := make([]Product, 0)
	for _, item := range items {
		if item.IsLowStock() {
			out = append(out, item)
		}
	}
	return out
}
