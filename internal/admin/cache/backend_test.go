package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
	"github.com/kflex/dashboard/internal/admin/reviews"
)

type mockRedis struct {
	mock.Mock
}

func (m *mockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.StringCmd)
}

func (m *mockRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.StatusCmd)
}

func (m *mockRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*redis.IntCmd)
}

type stubSource struct {
	fetchOrdersCalls int

	fetchOrdersFn   func(context.Context) ([]orders.Order, error)
	updateStatusFn  func(context.Context, string, orders.Status) error
	deleteOrderFn   func(context.Context, string) error
	fetchProductsFn func(context.Context) ([]products.Product, error)
	createFn        func(context.Context, products.Input) (products.Product, error)
	updateFn        func(context.Context, string, products.Input) (products.Product, error)
	deleteProductFn func(context.Context, string) error
	fetchReviewsFn  func(context.Context) ([]reviews.Review, error)
	deleteReviewFn  func(context.Context, string) error
}

func (s *stubSource) FetchOrders(ctx context.Context) ([]orders.Order, error) {
	s.fetchOrdersCalls++
	if s.fetchOrdersFn != nil {
		return s.fetchOrdersFn(ctx)
	}
	return nil, nil
}

func (s *stubSource) UpdateOrderStatus(ctx context.Context, id string, status orders.Status) error {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (s *stubSource) DeleteOrder(ctx context.Context, id string) error {
	if s.deleteOrderFn != nil {
		return s.deleteOrderFn(ctx, id)
	}
	return nil
}

func (s *stubSource) FetchProducts(ctx context.Context) ([]products.Product, error) {
	if s.fetchProductsFn != nil {
		return s.fetchProductsFn(ctx)
	}
	return nil, nil
}

func (s *stubSource) CreateProduct(ctx context.Context, input products.Input) (products.Product, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return products.Product{}, nil
}

func (s *stubSource) UpdateProduct(ctx context.Context, id string, input products.Input) (products.Product, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, input)
	}
	return products.Product{}, nil
}

func (s *stubSource) DeleteProduct(ctx context.Context, id string) error {
	if s.deleteProductFn != nil {
		return s.deleteProductFn(ctx, id)
	}
	return nil
}

func (s *stubSource) FetchReviews(ctx context.Context) ([]reviews.Review, error) {
	if s.fetchReviewsFn != nil {
		return s.fetchReviewsFn(ctx)
	}
	return nil, nil
}

func (s *stubSource) DeleteReview(ctx context.Context, id string) error {
	if s.deleteReviewFn != nil {
		return s.deleteReviewFn(ctx, id)
	}
	return nil
}

var sampleOrders = []orders.Order{{
	ID:           "ord-1",
	CustomerName: "Asha",
	Status:       orders.StatusPending,
	TotalAmount:  100,
	CreatedAt:    time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
	LineItems:    []orders.LineItem{{Name: "Cap", Price: 100}},
}}

func TestFetchOrdersServesCachedList(t *testing.T) {
	t.Parallel()

	payload, err := json.Marshal(sampleOrders)
	require.NoError(t, err)

	client := new(mockRedis)
	client.On("Get", mock.Anything, "kflex:admin:orders").Return(redis.NewStringResult(string(payload), nil))

	source := &stubSource{}
	backend, err := New(source, client)
	require.NoError(t, err)

	got, err := backend.FetchOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleOrders, got)
	assert.Zero(t, source.fetchOrdersCalls)
	client.AssertExpectations(t)
}

func TestFetchOrdersFillsCacheOnMiss(t *testing.T) {
	t.Parallel()

	client := new(mockRedis)
	client.On("Get", mock.Anything, "test:orders").Return(redis.NewStringResult("", redis.Nil))
	client.On("Set", mock.Anything, "test:orders", mock.AnythingOfType("[]uint8"), 30*time.Second).
		Return(redis.NewStatusResult("OK", nil))

	source := &stubSource{fetchOrdersFn: func(context.Context) ([]orders.Order, error) { return sampleOrders, nil }}
	backend, err := New(source, client, WithPrefix("test:"), WithTTL(30*time.Second))
	require.NoError(t, err)

	got, err := backend.FetchOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleOrders, got)
	assert.Equal(t, 1, source.fetchOrdersCalls)
	client.AssertExpectations(t)
}

func TestRedisFailuresAreBypassed(t *testing.T) {
	t.Parallel()

	down := errors.New("connection refused")
	client := new(mockRedis)
	client.On("Get", mock.Anything, "kflex:admin:reviews").Return(redis.NewStringResult("", down))
	client.On("Set", mock.Anything, "kflex:admin:reviews", mock.Anything, defaultTTL).Return(redis.NewStatusResult("", down))
	client.On("Del", mock.Anything, []string{"kflex:admin:reviews"}).Return(redis.NewIntResult(0, down))

	want := []reviews.Review{{ID: "r1", ProductName: "Cap", UserName: "Asha", Rating: 5}}
	source := &stubSource{fetchReviewsFn: func(context.Context) ([]reviews.Review, error) { return want, nil }}
	backend, err := New(source, client)
	require.NoError(t, err)

	got, err := backend.FetchReviews(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	require.NoError(t, backend.DeleteReview(context.Background(), "r1"))
	client.AssertExpectations(t)
}

func TestMutationsInvalidateOnlyOnSuccess(t *testing.T) {
	t.Parallel()

	client := new(mockRedis)
	client.On("Del", mock.Anything, []string{"kflex:admin:orders"}).Return(redis.NewIntResult(1, nil)).Once()
	client.On("Del", mock.Anything, []string{"kflex:admin:products"}).Return(redis.NewIntResult(1, nil)).Once()

	source := &stubSource{
		deleteOrderFn: func(context.Context, string) error { return orders.ErrOrderNotFound },
		createFn: func(_ context.Context, input products.Input) (products.Product, error) {
			return products.Product{ID: "p1", Name: input.Name}, nil
		},
	}
	backend, err := New(source, client)
	require.NoError(t, err)

	require.NoError(t, backend.UpdateOrderStatus(context.Background(), "ord-1", orders.StatusCompleted))
	require.ErrorIs(t, backend.DeleteOrder(context.Background(), "ord-1"), orders.ErrOrderNotFound)

	created, err := backend.CreateProduct(context.Background(), products.Input{Name: "Cap"})
	require.NoError(t, err)
	assert.Equal(t, "p1", created.ID)
	client.AssertExpectations(t)
}

func TestUndecodableEntryRefetches(t *testing.T) {
	t.Parallel()

	client := new(mockRedis)
	client.On("Get", mock.Anything, "kflex:admin:products").Return(redis.NewStringResult("{not json", nil))
	client.On("Set", mock.Anything, "kflex:admin:products", mock.Anything, defaultTTL).Return(redis.NewStatusResult("OK", nil))

	source := &stubSource{fetchProductsFn: func(context.Context) ([]products.Product, error) {
		return []products.Product{{ID: "p1", Name: "Cap", Stock: 2}}, nil
	}}
	backend, err := New(source, client)
	require.NoError(t, err)

	got, err := backend.FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := New(nil, new(mockRedis))
	require.Error(t, err)
	_, err = New(&stubSource{}, nil)
	require.Error(t, err)
}
