package httpserver

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kflex/dashboard/internal/admin/analytics"
	"github.com/kflex/dashboard/internal/admin/backend"
	custommw "github.com/kflex/dashboard/internal/admin/httpserver/middleware"
	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
	"github.com/kflex/dashboard/internal/admin/reviews"
)

var fixedNow = time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)

type tokenAuthenticator map[string]*custommw.User

func (a tokenAuthenticator) Authenticate(_ *http.Request, token string) (*custommw.User, error) {
	user, ok := a[token]
	if !ok {
		return nil, custommw.NewAuthError(custommw.ReasonTokenInvalid, custommw.ErrUnauthorized)
	}
	return user, nil
}

type memOrders struct {
	mu      sync.Mutex
	records []orders.Order
	fetchFn func(context.Context) ([]orders.Order, error)
	updates map[string]orders.Status
	deleted []string
}

func (m *memOrders) FetchOrders(ctx context.Context) ([]orders.Order, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]orders.Order(nil), m.records...), nil
}

func (m *memOrders) UpdateOrderStatus(_ context.Context, id string, status orders.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updates == nil {
		m.updates = map[string]orders.Status{}
	}
	m.updates[id] = status
	return nil
}

func (m *memOrders) DeleteOrder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

type stubProducts struct {
	listFn   func(context.Context) ([]products.Product, error)
	createFn func(context.Context, products.Input) (products.Product, error)
	updateFn func(context.Context, string, products.Input) (products.Product, error)
	deleteFn func(context.Context, string) error
}

func (s *stubProducts) List(ctx context.Context) ([]products.Product, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *stubProducts) Create(ctx context.Context, input products.Input) (products.Product, error) {
	if err := input.Validate(); err != nil {
		return products.Product{}, err
	}
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return products.Product{ID: "p-new", Name: input.Name, Price: input.Price}, nil
}

func (s *stubProducts) Update(ctx context.Context, id string, input products.Input) (products.Product, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, input)
	}
	return products.Product{ID: id, Name: input.Name}, nil
}

func (s *stubProducts) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

type stubReviews struct {
	items []reviews.Review
}

func (s *stubReviews) List(_ context.Context, query string) ([]reviews.Review, error) {
	return reviews.Filter(s.items, query), nil
}

func (s *stubReviews) Delete(_ context.Context, id string) error {
	for _, item := range s.items {
		if item.ID == id {
			return nil
		}
	}
	return reviews.ErrReviewNotFound
}

type stubDashboard struct {
	summary analytics.Summary
	err     error
}

func (s *stubDashboard) Dashboard(context.Context) (analytics.Summary, error) {
	return s.summary, s.err
}

type countingCache struct {
	calls int
}

func (c *countingCache) Invalidate(context.Context) {
	c.calls++
}

type testServer struct {
	handler  http.Handler
	orders   *memOrders
	products *stubProducts
	cache    *countingCache
	dash     *stubDashboard
}

func sampleOrders() []orders.Order {
	base := time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)
	out := make([]orders.Order, 0, 7)
	for i, name := range []string{"Ana", "Ben", "Cara", "Dan", "Eve", "Finn", "Gus"} {
		status := orders.StatusPending
		if i%3 == 1 {
			status = orders.StatusCompleted
		}
		out = append(out, orders.Order{
			ID:           "ord-" + string(rune('a'+i)),
			CustomerName: name,
			Email:        strings.ToLower(name) + "@example.com",
			Status:       status,
			TotalAmount:  float64(10 * (i + 1)),
			CreatedAt:    base.AddDate(0, 0, i),
		})
	}
	return out
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mem := &memOrders{records: sampleOrders()}
	orderSvc, err := orders.NewService(orders.ServiceDeps{
		Backend: mem,
		Clock:   func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	prods := &stubProducts{}
	cache := &countingCache{}
	dash := &stubDashboard{}
	handler, err := NewHandler(Config{
		BasePath: "admin/",
		Clock:    func() time.Time { return fixedNow },
		Authenticator: tokenAuthenticator{
			"admin-token":   {UID: "u-admin", Email: "admin@example.com", Roles: []string{"admin"}},
			"ops-token":     {UID: "u-ops", Roles: []string{"ops"}},
			"support-token": {UID: "u-support", Roles: []string{"support"}},
		},
	}, Services{
		Orders:   orderSvc,
		Products: prods,
		Reviews: &stubReviews{items: []reviews.Review{
			{ID: "r1", UserName: "Ana", Comment: "Great fit", ProductName: "Linen Shirt"},
			{ID: "r2", UserName: "Ben", Comment: "Too small", ProductName: "Wool Coat"},
		}},
		Dashboard: dash,
		Cache:     cache,
	})
	require.NoError(t, err)

	return &testServer{handler: handler, orders: mem, products: prods, cache: cache, dash: dash}
}

func (s *testServer) do(t *testing.T, method, target, token string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	return payload
}

func TestNewHandlerRequiresServices(t *testing.T) {
	t.Parallel()

	_, err := NewHandler(Config{}, Services{})
	require.Error(t, err)
}

func TestHealthzSkipsAuth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/healthz", "", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])
}

func TestAdminRoutesRequireToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/admin/orders", "", nil, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, custommw.ReasonMissingToken, decodeBody(t, rr)["error"])
}

func TestListOrders(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	t.Run("second page", func(t *testing.T) {
		rr := srv.do(t, http.MethodGet, "/admin/orders?page=2", "support-token", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)

		var result orders.ListResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		require.Len(t, result.Orders, 2)
		assert.Equal(t, "ord-f", result.Orders[0].ID)
		assert.Equal(t, 2, result.Pagination.Page)
		assert.Equal(t, 2, result.Pagination.TotalPages)
		assert.Equal(t, 7, result.Pagination.TotalItems)
	})

	t.Run("status filter and search", func(t *testing.T) {
		rr := srv.do(t, http.MethodGet, "/admin/orders?status=completed&q=BEN", "support-token", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)

		var result orders.ListResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		require.Len(t, result.Orders, 1)
		assert.Equal(t, "ord-b", result.Orders[0].ID)
	})

	t.Run("unknown status filter", func(t *testing.T) {
		rr := srv.do(t, http.MethodGet, "/admin/orders?status=Shipped", "support-token", nil, "")
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid_request", decodeBody(t, rr)["error"])
	})

	t.Run("page not a number", func(t *testing.T) {
		rr := srv.do(t, http.MethodGet, "/admin/orders?page=two", "support-token", nil, "")
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGetOrder(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rr := srv.do(t, http.MethodGet, "/admin/orders/ord-a", "ops-token", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var detail orderDetailResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.Equal(t, "Ana", detail.Order.CustomerName)
	assert.Equal(t, []orders.Status{orders.StatusCompleted, orders.StatusCancelled}, detail.AvailableTransitions)

	rr = srv.do(t, http.MethodGet, "/admin/orders/missing", "ops-token", nil, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "order_not_found", decodeBody(t, rr)["error"])
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rr := srv.do(t, http.MethodPost, "/admin/orders/ord-a/status", "ops-token", []byte(`{"status":"completed","note":"shipped"}`), "application/json")
	require.Equal(t, http.StatusOK, rr.Code)
	var result orders.StatusUpdateResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Changed)
	assert.Equal(t, orders.StatusPending, result.Previous)
	assert.Equal(t, orders.StatusCompleted, result.Order.Status)
	assert.Equal(t, orders.StatusCompleted, srv.orders.updates["ord-a"])

	t.Run("completed cannot reopen", func(t *testing.T) {
		rr := srv.do(t, http.MethodPost, "/admin/orders/ord-a/status", "ops-token", []byte(`{"status":"Pending"}`), "application/json")
		require.Equal(t, http.StatusConflict, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "invalid_transition", body["error"])
		assert.Equal(t, "Completed", body["from"])
		assert.Equal(t, "Pending", body["to"])
	})

	t.Run("unknown target", func(t *testing.T) {
		rr := srv.do(t, http.MethodPost, "/admin/orders/ord-c/status", "ops-token", []byte(`{"status":"Shipped"}`), "application/json")
		require.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("support lacks capability", func(t *testing.T) {
		rr := srv.do(t, http.MethodPost, "/admin/orders/ord-c/status", "support-token", []byte(`{"status":"Cancelled"}`), "application/json")
		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		rr := srv.do(t, http.MethodPost, "/admin/orders/ord-c/status", "ops-token", nil, "application/json")
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDeleteOrder(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rr := srv.do(t, http.MethodDelete, "/admin/orders/ord-b", "ops-token", nil, "")
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, srv.orders.deleted)

	rr = srv.do(t, http.MethodDelete, "/admin/orders/ord-b", "admin-token", nil, "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"ord-b"}, srv.orders.deleted)

	rr = srv.do(t, http.MethodGet, "/admin/orders/ord-b", "admin-token", nil, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestExportOrders(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rr := srv.do(t, http.MethodGet, "/admin/orders/export?status=Completed", "ops-token", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="orders-20240305T093000Z.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "2", rr.Header().Get("X-Export-Count"))

	rows, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "ord-b", rows[1][0])
	assert.Equal(t, "ord-e", rows[2][0])

	t.Run("bucket export without uploader", func(t *testing.T) {
		rr := srv.do(t, http.MethodPost, "/admin/orders/export", "admin-token", nil, "")
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "export_unavailable", decodeBody(t, rr)["error"])
	})

	t.Run("support cannot export", func(t *testing.T) {
		rr := srv.do(t, http.MethodGet, "/admin/orders/export", "support-token", nil, "")
		require.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestRefreshInvalidatesCache(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.orders.records = append(srv.orders.records, orders.Order{CustomerName: "no id"})

	rr := srv.do(t, http.MethodPost, "/admin/refresh", "ops-token", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.EqualValues(t, 7, body["loaded"])
	assert.EqualValues(t, 1, body["dropped"])
	assert.Equal(t, 1, srv.cache.calls)
}

func TestUpstreamFailureMapsTo503(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.orders.fetchFn = func(context.Context) ([]orders.Order, error) {
		return nil, &backend.StatusError{StatusCode: http.StatusBadGateway}
	}

	rr := srv.do(t, http.MethodGet, "/admin/orders", "ops-token", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "upstream_unavailable", decodeBody(t, rr)["error"])
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.dash.summary = analytics.Summary{
		TotalEarnings: 125.5,
		TotalOrders:   3,
		Display:       analytics.Display{TotalEarnings: "$125.50"},
	}

	rr := srv.do(t, http.MethodGet, "/admin/dashboard", "support-token", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.InDelta(t, 125.5, body["totalEarnings"], 0.001)

	rr = srv.do(t, http.MethodGet, "/admin/analytics", "support-token", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	body = decodeBody(t, rr)
	assert.InDelta(t, 125.5, body["totalEarnings"], 0.001)
	assert.NotContains(t, body, "totalOrders")

	srv.dash.err = errors.New("boom")
	rr = srv.do(t, http.MethodGet, "/admin/dashboard", "support-token", nil, "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal_error", decodeBody(t, rr)["error"])
}

func TestProducts(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.products.listFn = func(context.Context) ([]products.Product, error) {
		return []products.Product{
			{ID: "p1", Name: "Shirt", Stock: 2},
			{ID: "p2", Name: "Coat", Stock: 40},
		}, nil
	}

	t.Run("low stock filter", func(t *testing.T) {
		rr := srv.do(t, http.MethodGet, "/admin/products?lowStock=true", "support-token", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		var body struct {
			Products []products.Product `json:"products"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Len(t, body.Products, 1)
		assert.Equal(t, "p1", body.Products[0].ID)
	})

	t.Run("create from multipart form", func(t *testing.T) {
		var captured products.Input
		srv.products.createFn = func(_ context.Context, input products.Input) (products.Product, error) {
			captured = input
			return products.Product{ID: "p3", Name: input.Name, Price: input.Price}, nil
		}

		var buf bytes.Buffer
		form := multipart.NewWriter(&buf)
		require.NoError(t, form.WriteField("name", "Scarf"))
		require.NoError(t, form.WriteField("price", "19.99"))
		require.NoError(t, form.WriteField("stock", "4"))
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="scarf.png"`)
		header.Set("Content-Type", "image/png")
		part, err := form.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("png-bytes"))
		require.NoError(t, err)
		require.NoError(t, form.Close())

		rr := srv.do(t, http.MethodPost, "/admin/products", "ops-token", buf.Bytes(), form.FormDataContentType())
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "Scarf", captured.Name)
		assert.InDelta(t, 19.99, captured.Price, 0.0001)
		require.NotNil(t, captured.Stock)
		assert.Equal(t, 4, *captured.Stock)
		require.NotNil(t, captured.Image)
		assert.Equal(t, "scarf.png", captured.Image.Filename)
		assert.Equal(t, "image/png", captured.Image.ContentType)
		assert.Equal(t, []byte("png-bytes"), captured.Image.Data)
	})

	t.Run("json validation errors", func(t *testing.T) {
		rr := srv.do(t, http.MethodPost, "/admin/products", "ops-token", []byte(`{"name":"","price":-1}`), "application/json")
		require.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "invalid_product", body["error"])
		fields, ok := body["fields"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "price")
	})

	t.Run("update missing product", func(t *testing.T) {
		srv.products.updateFn = func(context.Context, string, products.Input) (products.Product, error) {
			return products.Product{}, products.ErrProductNotFound
		}
		rr := srv.do(t, http.MethodPut, "/admin/products/gone", "ops-token", []byte(`{"name":"Hat","price":5}`), "application/json")
		require.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "product_not_found", decodeBody(t, rr)["error"])
	})

	t.Run("support cannot manage catalogue", func(t *testing.T) {
		rr := srv.do(t, http.MethodDelete, "/admin/products/p1", "support-token", nil, "")
		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rr := srv.do(t, http.MethodDelete, "/admin/products/p1", "admin-token", nil, "")
		require.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestReviews(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	rr := srv.do(t, http.MethodGet, "/admin/reviews?q=coat", "ops-token", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Reviews []reviews.Review `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Reviews, 1)
	assert.Equal(t, "r2", body.Reviews[0].ID)

	rr = srv.do(t, http.MethodDelete, "/admin/reviews/r1", "ops-token", nil, "")
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = srv.do(t, http.MethodDelete, "/admin/reviews/r1", "support-token", nil, "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = srv.do(t, http.MethodDelete, "/admin/reviews/zzz", "support-token", nil, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}
