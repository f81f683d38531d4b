package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kflex/dashboard/internal/admin/backend"
	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
	"github.com/kflex/dashboard/internal/admin/reviews"
	pfirestore "github.com/kflex/dashboard/internal/platform/firestore"
	"github.com/kflex/dashboard/internal/platform/httpx"
	"github.com/kflex/dashboard/internal/platform/requestctx"
)

const maxJSONBodySize = 16 * 1024

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var transitionErr *orders.StatusTransitionError
	var validationErr *products.ValidationError
	var statusErr *backend.StatusError

	switch {
	case errors.As(err, &transitionErr):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", transitionErr.Error(), http.StatusConflict).WithDetails(map[string]any{
			"from": string(transitionErr.From),
			"to":   string(transitionErr.To),
		}))
	case errors.As(err, &validationErr):
		details := map[string]any{}
		if len(validationErr.FieldErrors) > 0 {
			details["fields"] = validationErr.FieldErrors
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_product", validationErr.Error(), http.StatusBadRequest).WithDetails(details))
	case errors.Is(err, orders.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, products.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, reviews.ErrReviewNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("review_not_found", "review not found", http.StatusNotFound))
	case errors.Is(err, orders.ErrExportNoOrders):
		httpx.WriteError(ctx, w, httpx.NewError("export_empty", "no orders match the export filters", http.StatusBadRequest))
	case errors.Is(err, orders.ErrExportNotConfigured):
		httpx.WriteError(ctx, w, httpx.NewError("export_unavailable", "order export bucket is not configured", http.StatusServiceUnavailable))
	case errors.As(err, &statusErr) && statusErr.Retryable(),
		pfirestore.IsUnavailable(err),
		errors.Is(err, context.DeadlineExceeded):
		requestctx.Logger(ctx).Warn("upstream unavailable", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("upstream_unavailable", "record source unavailable, try again shortly", http.StatusServiceUnavailable))
	default:
		requestctx.Logger(ctx).Error("request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process request", http.StatusInternalServerError))
	}
}

func writeBadRequest(ctx context.Context, w http.ResponseWriter, message string) {
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", message, http.StatusBadRequest))
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errEmptyBody):
		writeBadRequest(ctx, w, "request body is required")
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		writeBadRequest(ctx, w, err.Error())
	}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}
