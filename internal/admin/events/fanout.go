package events

import (
	"context"
	"errors"

	"github.com/kflex/dashboard/internal/admin/orders"
)

// Fanout delivers each event to every configured publisher.
type Fanout []orders.EventPublisher

// NewFanout drops nil publishers.
func NewFanout(publishers ...orders.EventPublisher) Fanout {
	out := make(Fanout, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// PublishOrderEvent publishes to every target. A failing target does not stop the others;
// the failures are joined.
func (f Fanout) PublishOrderEvent(ctx context.Context, event orders.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishOrderEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
