package products

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Backend is the remote system of record for the catalogue.
type Backend interface {
	FetchProducts(ctx context.Context) ([]Product, error)
	CreateProduct(ctx context.Context, input Input) (Product, error)
	UpdateProduct(ctx context.Context, id string, input Input) (Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// ServiceDeps bundles collaborators required to construct the product service.
type ServiceDeps struct {
	Backend Backend
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

// Service exposes catalogue management for the admin API.
type Service struct {
	backend Backend
	logger  func(context.Context, string, map[string]any)
}

// NewService wires dependencies into a Service.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Backend == nil {
		return nil, errors.New("product service: backend is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Service{backend: deps.Backend, logger: logger}, nil
}

// List returns every product. Records without an id are dropped.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	items, err := s.backend.FetchProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("products: list: %w", err)
	}
	out := make([]Product, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, item := range items {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			s.logger(ctx, "product.record.dropped", map[string]any{"error": ErrMalformedRecord.Error(), "name": item.Name})
			continue
		}
		item = normaliseProduct(item)
		if pos, ok := seen[item.ID]; ok {
			out[pos] = item
			continue
		}
		seen[item.ID] = len(out)
		out = append(out, item)
	}
	return out, nil
}

// LowStock returns the products that need restocking.
func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return LowStock(items), nil
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, input Input) (Product, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return Product{}, err
	}
	created, err := s.backend.CreateProduct(ctx, input)
	if err != nil {
		return Product{}, fmt.Errorf("products: create: %w", err)
	}
	s.logger(ctx, "product.created", map[string]any{"product": created.ID, "name": created.Name})
	return normaliseProduct(created), nil
}

// Update validates and replaces the editable fields of a product.
func (s *Service) Update(ctx context.Context, id string, input Input) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, fmt.Errorf("%w: empty id", ErrProductNotFound)
	}
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return Product{}, err
	}
	updated, err := s.backend.UpdateProduct(ctx, id, input)
	if err != nil {
		return Product{}, fmt.Errorf("products: update %s: %w", id, err)
	}
	s.logger(ctx, "product.updated", map[string]any{"product": id})
	return normaliseProduct(updated), nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrProductNotFound)
	}
	if err := s.backend.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("products: delete %s: %w", id, err)
	}
	s.logger(ctx, "product.deleted", map[string]any{"product": id})
	return nil
}

func normaliseProduct(p Product) Product {
	if p.Price < 0 {
		p.Price = 0
	}
	if p.Stock < 0 {
		p.Stock = 0
	}
	if p.UnitsSold < 0 {
		p.UnitsSold = 0
	}
	return p
}
