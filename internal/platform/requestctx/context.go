// Package requestctx carries per-request values through the admin API: the scoped logger,
// Cloud Trace metadata and the staff member acting on the request.
package requestctx

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type valuesKey struct{}

var noopLogger = zap.NewNop()

// TraceInfo captures trace metadata propagated through request context.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// Actor is the authenticated staff member behind a request.
type Actor struct {
	ID    string
	Email string
}

// actorSlot is shared by every context derived after TrackActor, so an actor recorded by
// inner middleware is visible to outer middleware once the handler returns.
type actorSlot struct {
	mu    sync.RWMutex
	actor Actor
	set   bool
}

// values is copied on every With* call; only the actor slot is shared.
type values struct {
	logger *zap.Logger
	trace  *TraceInfo
	actor  *actorSlot
}

func load(ctx context.Context) values {
	if ctx == nil {
		return values{}
	}
	v, _ := ctx.Value(valuesKey{}).(values)
	return v
}

func store(ctx context.Context, v values) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, valuesKey{}, v)
}

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = noopLogger
	}
	v := load(ctx)
	v.logger = logger
	return store(ctx, v)
}

// Logger retrieves the zap logger from context or returns a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if logger := load(ctx).logger; logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger exposes the shared noop logger.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores trace metadata on the context.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	v := load(ctx)
	v.trace = &info
	return store(ctx, v)
}

// Trace retrieves the trace metadata from context when available.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if t := load(ctx).trace; t != nil {
		return *t, true
	}
	return TraceInfo{}, false
}

// TraceID extracts the trace identifier from context when present.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// TrackActor prepares ctx to record the actor resolved later in the middleware chain.
func TrackActor(ctx context.Context) context.Context {
	v := load(ctx)
	v.actor = &actorSlot{}
	return store(ctx, v)
}

// SetActor records the actor for the request. It reports false when ctx was not prepared
// with TrackActor; the returned context carries the actor either way.
func SetActor(ctx context.Context, actor Actor) (context.Context, bool) {
	v := load(ctx)
	if v.actor != nil {
		v.actor.mu.Lock()
		v.actor.actor = actor
		v.actor.set = true
		v.actor.mu.Unlock()
		return ctx, true
	}
	v.actor = &actorSlot{actor: actor, set: true}
	return store(ctx, v), false
}

// ActorFrom returns the actor recorded for the request.
func ActorFrom(ctx context.Context) (Actor, bool) {
	slot := load(ctx).actor
	if slot == nil {
		return Actor{}, false
	}
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	return slot.actor, slot.set
}
