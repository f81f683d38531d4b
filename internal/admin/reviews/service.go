package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Backend is the remote system of record for reviews.
type Backend interface {
	FetchReviews(ctx context.Context) ([]Review, error)
	DeleteReview(ctx context.Context, id string) error
}

// ServiceDeps bundles collaborators required to construct the review service.
type ServiceDeps struct {
	Backend Backend
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

// Service exposes review moderation for the admin API.
type Service struct {
	backend Backend
	logger  func(context.Context, string, map[string]any)
}

// NewService wires dependencies into a Service.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Backend == nil {
		return nil, errors.New("review service: backend is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Service{backend: deps.Backend, logger: logger}, nil
}

// List returns the reviews matching query. Records without an id are skipped.
func (s *Service) List(ctx context.Context, query string) ([]Review, error) {
	items, err := s.backend.FetchReviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("reviews: list: %w", err)
	}
	valid := make([]Review, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			s.logger(ctx, "review.record.dropped", map[string]any{"product": item.ProductName})
			continue
		}
		valid = append(valid, item)
	}
	return Filter(valid, query), nil
}

// Delete removes a review.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrReviewNotFound)
	}
	if err := s.backend.DeleteReview(ctx, id); err != nil {
		return fmt.Errorf("reviews: delete %s: %w", id, err)
	}
	s.logger(ctx, "review.deleted", map[string]any{"review": id})
	return nil
}
