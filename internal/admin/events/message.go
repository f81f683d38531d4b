package events

import (
	"strings"
	"time"

	"github.com/kflex/dashboard/internal/admin/orders"
)

// Message is the JSON payload emitted for an order event.
type Message struct {
	EventID        string         `json:"eventId"`
	Type           string         `json:"type"`
	OrderID        string         `json:"orderId"`
	PreviousStatus string         `json:"previousStatus,omitempty"`
	CurrentStatus  string         `json:"currentStatus,omitempty"`
	TotalAmount    float64        `json:"totalAmount"`
	ActorID        string         `json:"actorId,omitempty"`
	OccurredAt     time.Time      `json:"occurredAt"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewMessage converts an order event into its wire payload.
func NewMessage(event orders.Event) Message {
	return Message{
		EventID:        strings.TrimSpace(event.ID),
		Type:           strings.TrimSpace(event.Type),
		OrderID:        strings.TrimSpace(event.OrderID),
		PreviousStatus: string(event.PreviousStatus),
		CurrentStatus:  string(event.CurrentStatus),
		TotalAmount:    event.TotalAmount,
		ActorID:        strings.TrimSpace(event.ActorID),
		OccurredAt:     event.OccurredAt.UTC(),
		Metadata:       event.Metadata,
	}
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
