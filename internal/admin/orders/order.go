package orders

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Status represents the lifecycle state of an order.
type Status string

const (
	// StatusPending is the initial state assigned when an order is placed.
	StatusPending Status = "Pending"
	// StatusCompleted marks a fulfilled order whose amount counts as earnings.
	StatusCompleted Status = "Completed"
	// StatusCancelled marks a cancelled order. Cancellation can be undone.
	StatusCancelled Status = "Cancelled"
)

// Statuses lists the known statuses in display order.
var Statuses = []Status{StatusPending, StatusCompleted, StatusCancelled}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// ParseStatus matches raw case-insensitively against the known statuses.
func ParseStatus(raw string) (Status, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, status := range Statuses {
		if strings.EqualFold(trimmed, string(status)) {
			return status, true
		}
	}
	return "", false
}

var (
	// ErrOrderNotFound is returned when an order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned when a requested status change is not permitted.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrMalformedRecord marks a fetched record that lacks an identifier or cannot be decoded.
	ErrMalformedRecord = errors.New("malformed order record")
	// ErrExportNoOrders indicates there were no orders matching the export criteria.
	ErrExportNoOrders = errors.New("no orders to export")
	// ErrExportNotConfigured indicates no export bucket was configured.
	ErrExportNotConfigured = errors.New("order export bucket not configured")
)

// Order is a customer purchase as known to the dashboard.
type Order struct {
	ID           string     `json:"id"`
	CustomerName string     `json:"customerName"`
	Phone        string     `json:"phone,omitempty"`
	Email        string     `json:"email,omitempty"`
	Address      string     `json:"address,omitempty"`
	Status       Status     `json:"status"`
	TotalAmount  float64    `json:"totalAmount"`
	CreatedAt    time.Time  `json:"createdAt"`
	LineItems    []LineItem `json:"lineItems"`
}

// LineItem is a product line captured when the order was placed.
type LineItem struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	SelectedSize string  `json:"selectedSize,omitempty"`
	ImageRef     string  `json:"imageRef,omitempty"`
}

func (o Order) clone() Order {
	o.LineItems = slices.Clone(o.LineItems)
	if o.LineItems == nil {
		o.LineItems = []LineItem{}
	}
	return o
}

// StatusTransitionError represents a validation failure for a requested status change.
type StatusTransitionError struct {
	From   Status
	To     Status
	Reason string
}

// Error implements the error interface.
func (e *StatusTransitionError) Error() string {
	reason := e.Reason
	if strings.TrimSpace(reason) == "" {
		reason = "transition not permitted"
	}
	return "order status transition from " + string(e.From) + " to " + string(e.To) + ": " + reason
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *StatusTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// TimestampLayouts are the creation time formats accepted from record sources.
var TimestampLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseTimestamp parses raw with the first matching layout in TimestampLayouts and returns
// the zero time when none matches.
func ParseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range TimestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
