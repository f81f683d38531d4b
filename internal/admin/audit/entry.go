package audit

import (
	"strings"
	"time"

	"github.com/kflex/dashboard/internal/admin/orders"
)

// Document is the stored shape of an order audit entry.
type Document struct {
	OrderID    string    `firestore:"orderId"`
	Action     string    `firestore:"action"`
	ActorID    string    `firestore:"actorId,omitempty"`
	ActorEmail string    `firestore:"actorEmail,omitempty"`
	FromStatus string    `firestore:"fromStatus,omitempty"`
	ToStatus   string    `firestore:"toStatus,omitempty"`
	Note       string    `firestore:"note,omitempty"`
	OccurredAt time.Time `firestore:"occurredAt"`
}

func buildDocument(entry orders.AuditLogEntry, now time.Time) Document {
	occurred := entry.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	return Document{
		OrderID:    sanitizeText(entry.OrderID, 128),
		Action:     sanitizeText(entry.Action, 120),
		ActorID:    sanitizeText(entry.ActorID, 128),
		ActorEmail: sanitizeText(strings.ToLower(entry.ActorEmail), 254),
		FromStatus: sanitizeText(string(entry.FromStatus), 32),
		ToStatus:   sanitizeText(string(entry.ToStatus), 32),
		Note:       sanitizeText(entry.Note, 512),
		OccurredAt: occurred.UTC(),
	}
}

// sanitizeText trims input, drops control characters other than whitespace and caps the
// result at limit bytes.
func sanitizeText(input string, limit int) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	var builder strings.Builder
	for _, r := range input {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		builder.WriteRune(r)
		if builder.Len() >= limit {
			break
		}
	}
	return builder.String()
}
