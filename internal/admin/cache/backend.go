package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
	"github.com/kflex/dashboard/internal/admin/reviews"
)

const (
	defaultTTL    = time.Minute
	defaultPrefix = "kflex:admin:"

	ordersKey   = "orders"
	productsKey = "products"
	reviewsKey  = "reviews"
)

// Client is the subset of the Redis client used by the cache.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Source is a full record source: orders, products and reviews.
type Source interface {
	orders.Backend
	products.Backend
	reviews.Backend
}

// Backend caches record lists from Source in Redis. Mutations pass straight through and
// invalidate the affected list. Redis failures are logged and never surface to callers.
type Backend struct {
	source Source
	client Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// Option customises the Backend.
type Option func(*Backend)

// WithTTL sets how long cached lists stay fresh.
func WithTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

// WithPrefix namespaces cache keys.
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			b.prefix = prefix
		}
	}
}

// WithLogger sets the logger used for cache failures.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New wraps source with a Redis-backed list cache.
func New(source Source, client Client, opts ...Option) (*Backend, error) {
	if source == nil {
		return nil, errors.New("cache: source is required")
	}
	if client == nil {
		return nil, errors.New("cache: redis client is required")
	}
	b := &Backend{
		source: source,
		client: client,
		ttl:    defaultTTL,
		prefix: defaultPrefix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

// FetchOrders returns the cached order list, refilling it from the source on a miss.
func (b *Backend) FetchOrders(ctx context.Context) ([]orders.Order, error) {
	return cachedList(ctx, b, ordersKey, b.source.FetchOrders)
}

// UpdateOrderStatus updates the order at the source and drops the cached order list.
func (b *Backend) UpdateOrderStatus(ctx context.Context, id string, status orders.Status) error {
	if err := b.source.UpdateOrderStatus(ctx, id, status); err != nil {
		return err
	}
	b.invalidate(ctx, ordersKey)
	return nil
}

// DeleteOrder deletes the order at the source and drops the cached order list.
func (b *Backend) DeleteOrder(ctx context.Context, id string) error {
	if err := b.source.DeleteOrder(ctx, id); err != nil {
		return err
	}
	b.invalidate(ctx, ordersKey)
	return nil
}

// FetchProducts returns the cached product list.
func (b *Backend) FetchProducts(ctx context.Context) ([]products.Product, error) {
	return cachedList(ctx, b, productsKey, b.source.FetchProducts)
}

// CreateProduct creates the product at the source.
func (b *Backend) CreateProduct(ctx context.Context, input products.Input) (products.Product, error) {
	product, err := b.source.CreateProduct(ctx, input)
	if err != nil {
		return products.Product{}, err
	}
	b.invalidate(ctx, productsKey)
	return product, nil
}

// UpdateProduct updates the product at the source.
func (b *Backend) UpdateProduct(ctx context.Context, id string, input products.Input) (products.Product, error) {
	product, err := b.source.UpdateProduct(ctx, id, input)
	if err != nil {
		return products.Product{}, err
	}
	b.invalidate(ctx, productsKey)
	return product, nil
}

// DeleteProduct deletes the product at the source.
func (b *Backend) DeleteProduct(ctx context.Context, id string) error {
	if err := b.source.DeleteProduct(ctx, id); err != nil {
		return err
	}
	b.invalidate(ctx, productsKey)
	return nil
}

// FetchReviews returns the cached review list.
func (b *Backend) FetchReviews(ctx context.Context) ([]reviews.Review, error) {
	return cachedList(ctx, b, reviewsKey, b.source.FetchReviews)
}

// DeleteReview deletes the review at the source.
func (b *Backend) DeleteReview(ctx context.Context, id string) error {
	if err := b.source.DeleteReview(ctx, id); err != nil {
		return err
	}
	b.invalidate(ctx, reviewsKey)
	return nil
}

// Invalidate drops every cached list.
func (b *Backend) Invalidate(ctx context.Context) {
	b.invalidate(ctx, ordersKey, productsKey, reviewsKey)
}

func cachedList[T any](ctx context.Context, b *Backend, name string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	key := b.prefix + name

	raw, err := b.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var items []T
		if err := json.Unmarshal(raw, &items); err == nil {
			return items, nil
		}
		b.logger.Warn("cache entry undecodable", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		b.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	items, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(items)
	if err != nil {
		b.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return items, nil
	}
	if err := b.client.Set(ctx, key, payload, b.ttl).Err(); err != nil {
		b.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return items, nil
}

func (b *Backend) invalidate(ctx context.Context, names ...string) {
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, b.prefix+name)
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		b.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
