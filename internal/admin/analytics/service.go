package analytics

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
)

// OrderSource supplies the current order set.
type OrderSource interface {
	Orders(ctx context.Context) ([]orders.Order, error)
}

// ProductSource supplies the current catalogue.
type ProductSource interface {
	List(ctx context.Context) ([]products.Product, error)
}

// ServiceDeps bundles collaborators required to construct the analytics service.
type ServiceDeps struct {
	Orders   OrderSource
	Products ProductSource
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

// Service computes dashboard summaries from live data.
type Service struct {
	orders   OrderSource
	products ProductSource
	logger   func(context.Context, string, map[string]any)
}

// NewService wires dependencies into a Service.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Orders == nil {
		return nil, errors.New("analytics service: order source is required")
	}
	if deps.Products == nil {
		return nil, errors.New("analytics service: product source is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Service{orders: deps.Orders, products: deps.Products, logger: logger}, nil
}

// Dashboard loads orders and products concurrently and summarises them. The result is
// computed on every call.
func (s *Service) Dashboard(ctx context.Context) (Summary, error) {
	var (
		orderSet   []orders.Order
		productSet []products.Product
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		orderSet, err = s.orders.Orders(groupCtx)
		if err != nil {
			return fmt.Errorf("analytics: load orders: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		productSet, err = s.products.List(groupCtx)
		if err != nil {
			return fmt.Errorf("analytics: load products: %w", err)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		s.logger(ctx, "analytics.dashboard.failed", map[string]any{"error": err.Error()})
		return Summary{}, err
	}

	summary := Summarize(orderSet, productSet)
	s.logger(ctx, "analytics.dashboard", map[string]any{
		"orders":   summary.TotalOrders,
		"products": summary.ProductCount,
	})
	return summary, nil
}
