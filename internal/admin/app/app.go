// Package app assembles the admin services from configuration. The HTTP server and the
// command line tool share it so both see the same record source, cache and side channels.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kflex/dashboard/internal/admin/analytics"
	"github.com/kflex/dashboard/internal/admin/audit"
	"github.com/kflex/dashboard/internal/admin/backend"
	"github.com/kflex/dashboard/internal/admin/cache"
	"github.com/kflex/dashboard/internal/admin/events"
	"github.com/kflex/dashboard/internal/admin/firestoresource"
	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
	"github.com/kflex/dashboard/internal/admin/reviews"
	"github.com/kflex/dashboard/internal/platform/config"
	pfirestore "github.com/kflex/dashboard/internal/platform/firestore"
	"github.com/kflex/dashboard/internal/platform/observability"
	"github.com/kflex/dashboard/internal/platform/storage"
)

// Source is the system of record behind every service.
type Source interface {
	orders.Backend
	products.Backend
	reviews.Backend
}

// App holds the wired services and the clients they own.
type App struct {
	Orders    *orders.Service
	Products  *products.Service
	Reviews   *reviews.Service
	Analytics *analytics.Service
	// Cache is nil unless Redis is configured.
	Cache *cache.Backend

	logger  *zap.Logger
	closers []func() error
}

// Build connects the configured record source and side channels and constructs the
// services. Optional integrations that fail to connect are logged and skipped.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	var provider *pfirestore.Provider
	if cfg.Firestore.ProjectID != "" {
		provider = pfirestore.NewProvider(cfg.Firestore)
		a.onClose(provider.Close)
	}

	var uploader *storage.Uploader
	if cfg.Storage.ExportsBucket != "" {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			logger.Warn("storage client unavailable; exports and image uploads disabled", zap.Error(err))
		} else {
			a.onClose(client.Close)
			uploader, err = storage.NewUploader(client, cfg.Storage.ExportsBucket)
			if err != nil {
				return nil, err
			}
		}
	}

	source, err := buildSource(cfg, provider, uploader, logger)
	if err != nil {
		return nil, err
	}

	var data Source = source
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.onClose(client.Close)
		cached, err := cache.New(source, client,
			cache.WithTTL(cfg.Redis.TTL),
			cache.WithLogger(logger.Named("cache")),
		)
		if err != nil {
			return nil, err
		}
		a.Cache = cached
		data = cached
	}

	publisher := a.buildPublishers(ctx, cfg)

	var auditLogger orders.AuditLogger
	if provider != nil {
		fsAudit, err := audit.NewFirestoreLogger(provider, cfg.Firestore.AuditCollection)
		if err != nil {
			return nil, err
		}
		auditLogger = fsAudit
	} else {
		auditLogger = audit.NewZapLogger(logger.Named("audit"))
	}

	orderDeps := orders.ServiceDeps{
		Backend: data,
		Audit:   auditLogger,
		Logger:  observability.EventLogger(logger.Named("orders")),
	}
	if publisher != nil {
		orderDeps.Events = publisher
	}
	if uploader != nil {
		orderDeps.Exports = uploader
	}
	a.Orders, err = orders.NewService(orderDeps)
	if err != nil {
		return nil, err
	}

	a.Products, err = products.NewService(products.ServiceDeps{
		Backend: data,
		Logger:  observability.EventLogger(logger.Named("products")),
	})
	if err != nil {
		return nil, err
	}

	a.Reviews, err = reviews.NewService(reviews.ServiceDeps{
		Backend: data,
		Logger:  observability.EventLogger(logger.Named("reviews")),
	})
	if err != nil {
		return nil, err
	}

	a.Analytics, err = analytics.NewService(analytics.ServiceDeps{
		Orders:   a.Orders,
		Products: a.Products,
		Logger:   observability.EventLogger(logger.Named("analytics")),
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// Close releases every client in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func buildSource(cfg config.Config, provider *pfirestore.Provider, uploader *storage.Uploader, logger *zap.Logger) (Source, error) {
	switch cfg.Source.Kind {
	case config.SourceFirestore:
		if provider == nil {
			return nil, errors.New("app: firestore source requires a project id")
		}
		var images firestoresource.ImageStore
		if uploader != nil {
			images = uploader
		}
		return firestoresource.New(provider, images)
	case config.SourceREST, "":
		return backend.New(cfg.Backend.BaseURL,
			backend.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
			backend.WithToken(cfg.Backend.AuthToken),
			backend.WithMaxRetries(cfg.Backend.MaxRetries),
			backend.WithLogger(logger.Named("backend")),
		)
	default:
		return nil, fmt.Errorf("app: unknown record source %q", cfg.Source.Kind)
	}
}

func (a *App) buildPublishers(ctx context.Context, cfg config.Config) orders.EventPublisher {
	var publishers []orders.EventPublisher

	if cfg.PubSub.OrderEventsTopic != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			a.logger.Warn("pubsub client unavailable; order events not published to pubsub", zap.Error(err))
		} else if pub := a.attachPubSub(client, client.Topic(cfg.PubSub.OrderEventsTopic)); pub != nil {
			publishers = append(publishers, pub)
		}
	}

	if cfg.AMQP.URL != "" {
		pub, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			a.logger.Warn("amqp unavailable; order events not published to amqp", zap.Error(err))
		} else {
			a.onClose(pub.Close)
			publishers = append(publishers, pub)
		}
	}

	fanout := events.NewFanout(publishers...)
	if len(fanout) == 0 {
		return nil
	}
	return fanout
}

// attachPubSub builds the publisher for topic and ties its shutdown to client. client is
// closed right away when the publisher cannot be built.
func (a *App) attachPubSub(client io.Closer, topic *pubsub.Topic) orders.EventPublisher {
	pub, err := events.NewPubSubPublisher(topic)
	if err != nil {
		a.logger.Warn("pubsub publisher unavailable; order events not published to pubsub", zap.Error(err))
		if closeErr := client.Close(); closeErr != nil {
			a.logger.Warn("pubsub client close error", zap.Error(closeErr))
		}
		return nil
	}
	a.onClose(func() error {
		pub.Stop()
		return client.Close()
	})
	return pub
}
