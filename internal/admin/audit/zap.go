package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/platform/observability"
)

// ZapLogger writes audit entries to the structured log. Used when no Firestore project is
// configured.
type ZapLogger struct {
	logger *zap.Logger
	clock  func() time.Time
}

// NewZapLogger wraps logger; a nil logger falls back to the request-scoped one.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: logger, clock: time.Now}
}

// Record logs the entry at info level.
func (l *ZapLogger) Record(ctx context.Context, entry orders.AuditLogEntry) error {
	logger := l.logger
	if logger == nil {
		logger = observability.FromContext(ctx)
	}
	doc := buildDocument(entry, l.clock())
	logger.Info("order audit",
		zap.String("auditId", entry.ID),
		zap.String("orderId", doc.OrderID),
		zap.String("action", doc.Action),
		zap.String("actorId", doc.ActorID),
		zap.String("actorEmail", doc.ActorEmail),
		zap.String("fromStatus", doc.FromStatus),
		zap.String("toStatus", doc.ToStatus),
		zap.String("note", doc.Note),
		zap.Time("occurredAt", doc.OccurredAt),
	)
	return nil
}
