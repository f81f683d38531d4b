package orders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kflex/dashboard/internal/platform/storage"
)

const instrumentationName = "github.com/kflex/dashboard/internal/admin/orders"

// Event types emitted by the service.
const (
	EventStatusChanged = "order.status_changed"
	EventDeleted       = "order.deleted"
)

// Backend is the remote system of record for orders.
type Backend interface {
	FetchOrders(ctx context.Context) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status Status) error
	DeleteOrder(ctx context.Context, id string) error
}

// EventPublisher publishes order domain events for downstream consumers.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event Event) error
}

// Event captures metadata for emitted order domain events.
type Event struct {
	ID             string
	Type           string
	OrderID        string
	PreviousStatus Status
	CurrentStatus  Status
	TotalAmount    float64
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// AuditLogger records audit trail entries for order operations.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditLogEntry) error
}

// AuditLogEntry describes a structured audit record for an order mutation.
type AuditLogEntry struct {
	ID         string
	OrderID    string
	Action     string
	ActorID    string
	ActorEmail string
	FromStatus Status
	ToStatus   Status
	Note       string
	OccurredAt time.Time
}

// ExportUploader stores rendered exports.
type ExportUploader interface {
	Upload(ctx context.Context, object, contentType string, write func(io.Writer) error) (storage.ObjectRef, error)
}

// Actor identifies the staff member performing a mutation.
type Actor struct {
	ID    string
	Email string
}

// Query captures filters and pagination arguments for listing orders.
type Query struct {
	Status StatusFilter
	Search string
	Page   int
}

// ListResult represents a paginated orders response.
type ListResult struct {
	Orders             []Order       `json:"orders"`
	Pagination         Pagination    `json:"pagination"`
	StatusDistribution []StatusCount `json:"statusDistribution"`
}

// StatusUpdateRequest captures a requested status change.
type StatusUpdateRequest struct {
	Status Status
	Note   string
	Actor  Actor
}

// StatusUpdateResult is returned after a status change request.
type StatusUpdateResult struct {
	Order                Order    `json:"order"`
	Previous             Status   `json:"previousStatus"`
	Changed              bool     `json:"changed"`
	AvailableTransitions []Status `json:"availableTransitions"`
}

// ExportResult describes an export written to the bucket.
type ExportResult struct {
	Object storage.ObjectRef `json:"object"`
	Count  int               `json:"count"`
}

// ServiceDeps bundles collaborators required to construct the order service.
type ServiceDeps struct {
	Backend     Backend
	Store       *Store
	Events      EventPublisher
	Audit       AuditLogger
	Exports     ExportUploader
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
	Meter       metric.Meter
	Tracer      trace.Tracer
}

// Service coordinates the order store with the remote backend and side channels.
type Service struct {
	backend Backend
	store   *Store
	events  EventPublisher
	audit   AuditLogger
	exports ExportUploader
	clock   func() time.Time
	newID   func() string
	logger  func(context.Context, string, map[string]any)
	tracer  trace.Tracer

	transitions metric.Int64Counter
	refreshMu   sync.Mutex
}

// NewService wires dependencies into a Service.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Backend == nil {
		return nil, errors.New("order service: backend is required")
	}

	store := deps.Store
	if store == nil {
		store = NewStore()
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	transitions, err := meter.Int64Counter(
		"orders.status_transitions",
		metric.WithDescription("Count of order status change requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("order service: register transition metric: %w", err)
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	return &Service{
		backend: deps.Backend,
		store:   store,
		events:  deps.Events,
		audit:   deps.Audit,
		exports: deps.Exports,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:       idGen,
		logger:      logger,
		tracer:      tracer,
		transitions: transitions,
	}, nil
}

// Refresh reloads the store from the backend. Malformed records are dropped and logged.
func (s *Service) Refresh(ctx context.Context) (LoadReport, error) {
	ctx, span := s.tracer.Start(ctx, "orders.Refresh")
	defer span.End()

	records, err := s.backend.FetchOrders(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch orders")
		return LoadReport{}, fmt.Errorf("orders: refresh: %w", err)
	}

	report := s.store.Load(records)
	for _, dropped := range report.Dropped {
		s.logger(ctx, "order.record.dropped", map[string]any{"error": dropped.Error()})
	}
	s.logger(ctx, "order.refresh", map[string]any{
		"loaded":     report.Loaded,
		"dropped":    len(report.Dropped),
		"duplicates": report.Duplicates,
	})
	span.SetAttributes(attribute.Int("orders.loaded", report.Loaded))
	return report, nil
}

// Orders returns every order in insertion order, loading from the backend on first use.
func (s *Service) Orders(ctx context.Context) ([]Order, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.store.Snapshot(), nil
}

// List returns the requested page of orders matching the query.
func (s *Service) List(ctx context.Context, query Query) (ListResult, error) {
	all, err := s.Orders(ctx)
	if err != nil {
		return ListResult{}, err
	}

	view := NewView()
	view.SetStatusFilter(query.Status)
	view.SetQuery(query.Search)
	page := query.Page
	if page == 0 {
		page = 1
	}
	view.SetPage(page)

	matches := view.Matches(all)
	pageOrders, pagination := Paginate(matches, view.Page(), PageSize)
	return ListResult{
		Orders:             pageOrders,
		Pagination:         pagination,
		StatusDistribution: statusDistribution(matches),
	}, nil
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return Order{}, err
	}
	order, ok := s.store.Get(strings.TrimSpace(id))
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return order, nil
}

// StatusOptions returns the statuses the order can move to next.
func (s *Service) StatusOptions(ctx context.Context, id string) ([]Status, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return AvailableTransitions(order.Status), nil
}

// UpdateStatus validates the change locally, forwards it to the backend and applies it to
// the store. Requests for the current status succeed without contacting the backend.
func (s *Service) UpdateStatus(ctx context.Context, id string, req StatusUpdateRequest) (StatusUpdateResult, error) {
	id = strings.TrimSpace(id)
	ctx, span := s.tracer.Start(ctx, "orders.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status.target", string(req.Status)),
	))
	defer span.End()

	current, err := s.Get(ctx, id)
	if err != nil {
		return StatusUpdateResult{}, err
	}
	if err := ValidateTransition(current.Status, req.Status); err != nil {
		s.recordTransition(ctx, current.Status, req.Status, "rejected")
		return StatusUpdateResult{}, err
	}
	if current.Status == req.Status {
		s.recordTransition(ctx, current.Status, req.Status, "noop")
		return StatusUpdateResult{
			Order:                current,
			Previous:             current.Status,
			AvailableTransitions: AvailableTransitions(current.Status),
		}, nil
	}

	if err := s.backend.UpdateOrderStatus(ctx, id, req.Status); err != nil {
		s.recordTransition(ctx, current.Status, req.Status, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend update")
		return StatusUpdateResult{}, fmt.Errorf("orders: update status %s: %w", id, err)
	}

	result, err := s.store.Transition(id, req.Status)
	if err != nil {
		s.recordTransition(ctx, current.Status, req.Status, "failed")
		return StatusUpdateResult{}, err
	}
	s.recordTransition(ctx, result.Previous, req.Status, "applied")

	now := s.clock()
	s.publishEvent(ctx, Event{
		Type:           EventStatusChanged,
		OrderID:        id,
		PreviousStatus: result.Previous,
		CurrentStatus:  result.Order.Status,
		TotalAmount:    result.Order.TotalAmount,
		ActorID:        req.Actor.ID,
		OccurredAt:     now,
	})
	s.recordAudit(ctx, AuditLogEntry{
		OrderID:    id,
		Action:     EventStatusChanged,
		ActorID:    req.Actor.ID,
		ActorEmail: req.Actor.Email,
		FromStatus: result.Previous,
		ToStatus:   result.Order.Status,
		Note:       strings.TrimSpace(req.Note),
		OccurredAt: now,
	})

	return StatusUpdateResult{
		Order:                result.Order,
		Previous:             result.Previous,
		Changed:              true,
		AvailableTransitions: AvailableTransitions(result.Order.Status),
	}, nil
}

// Delete removes the order remotely and then from the store.
func (s *Service) Delete(ctx context.Context, id string, actor Actor) error {
	id = strings.TrimSpace(id)
	ctx, span := s.tracer.Start(ctx, "orders.Delete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteOrder(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend delete")
		return fmt.Errorf("orders: delete %s: %w", id, err)
	}
	if _, err := s.store.Remove(id); err != nil && !errors.Is(err, ErrOrderNotFound) {
		return err
	}

	now := s.clock()
	s.publishEvent(ctx, Event{
		Type:           EventDeleted,
		OrderID:        id,
		PreviousStatus: current.Status,
		TotalAmount:    current.TotalAmount,
		ActorID:        actor.ID,
		OccurredAt:     now,
	})
	s.recordAudit(ctx, AuditLogEntry{
		OrderID:    id,
		Action:     EventDeleted,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		FromStatus: current.Status,
		OccurredAt: now,
	})
	return nil
}

// Export writes every order matching criteria as CSV and returns the row count.
func (s *Service) Export(ctx context.Context, criteria Criteria, w io.Writer) (int, error) {
	all, err := s.Orders(ctx)
	if err != nil {
		return 0, err
	}
	matches := Filter(all, criteria)
	if err := WriteCSV(w, matches); err != nil {
		return 0, err
	}
	return len(matches), nil
}

// ExportToBucket renders the matching orders and uploads them to the exports bucket.
func (s *Service) ExportToBucket(ctx context.Context, criteria Criteria, actor Actor) (ExportResult, error) {
	if s.exports == nil {
		return ExportResult{}, ErrExportNotConfigured
	}
	ctx, span := s.tracer.Start(ctx, "orders.ExportToBucket")
	defer span.End()

	all, err := s.Orders(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	matches := Filter(all, criteria)
	if len(matches) == 0 {
		return ExportResult{}, ErrExportNoOrders
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, matches); err != nil {
		return ExportResult{}, err
	}
	object := storage.ExportObjectName("orders", string(ExportFormatCSV), s.clock())
	ref, err := s.exports.Upload(ctx, object, "text/csv", func(w io.Writer) error {
		_, err := buf.WriteTo(w)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload export")
		return ExportResult{}, fmt.Errorf("orders: export upload: %w", err)
	}

	s.logger(ctx, "order.export.uploaded", map[string]any{
		"object": ref.Object,
		"count":  len(matches),
		"actor":  actor.ID,
		"status": string(criteria.statusFilter()),
	})
	return ExportResult{Object: ref, Count: len(matches)}, nil
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.store.Loaded() {
		return nil
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if s.store.Loaded() {
		return nil
	}
	_, err := s.Refresh(ctx)
	return err
}

func (s *Service) recordTransition(ctx context.Context, from, to Status, outcome string) {
	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
		attribute.String("outcome", outcome),
	))
}

func (s *Service) publishEvent(ctx context.Context, event Event) {
	if s.events == nil {
		return
	}
	if event.ID == "" {
		event.ID = s.newID()
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": string(event.CurrentStatus),
		})
	}
}

func (s *Service) recordAudit(ctx context.Context, entry AuditLogEntry) {
	if s.audit == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = s.newID()
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger(ctx, "order.audit.failed", map[string]any{
			"action": entry.Action,
			"order":  entry.OrderID,
			"error":  err.Error(),
		})
	}
}
