package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kflex/dashboard/internal/admin/orders"
	pfirestore "github.com/kflex/dashboard/internal/platform/firestore"
)

const defaultCollection = "auditLogs"

// FirestoreLogger appends order audit entries to a Firestore collection.
type FirestoreLogger struct {
	provider   *pfirestore.Provider
	collection string
	clock      func() time.Time
	newID      func() string
}

// NewFirestoreLogger constructs an audit logger writing to collection (auditLogs when empty).
func NewFirestoreLogger(provider *pfirestore.Provider, collection string) (*FirestoreLogger, error) {
	if provider == nil {
		return nil, errors.New("audit logger requires firestore provider")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = defaultCollection
	}
	return &FirestoreLogger{
		provider:   provider,
		collection: collection,
		clock:      time.Now,
		newID:      func() string { return ulid.Make().String() },
	}, nil
}

// Record stores entry under its id, generating one when empty. Existing documents are never
// overwritten.
func (l *FirestoreLogger) Record(ctx context.Context, entry orders.AuditLogEntry) error {
	client, err := l.provider.Client(ctx)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		id = l.newID()
	}
	doc := buildDocument(entry, l.clock())
	if _, err := client.Collection(l.collection).Doc(id).Create(ctx, doc); err != nil {
		return pfirestore.WrapError("auditLogs.append", err)
	}
	return nil
}
