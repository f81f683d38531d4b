package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"

	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
	"github.com/kflex/dashboard/internal/admin/reviews"
)

const (
	ordersPath   = "/api/orders"
	productsPath = "/api/products"
	reviewsPath  = "/api/reviews"

	maxErrorBody = 1 << 16
)

var errDecode = errors.New("backend: decode response")

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the storefront REST API that owns orders, products and reviews.
type Client struct {
	base       *url.URL
	client     HTTPClient
	token      string
	maxRetries int
	backoff    gax.Backoff
	logger     *zap.Logger
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithToken sends the token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff overrides the retry backoff.
func WithBackoff(bo gax.Backoff) Option {
	return func(c *Client) {
		c.backoff = bo
	}
}

// WithLogger sets the logger used for retry diagnostics and dropped records.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("backend: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("backend: parse base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("backend: unsupported scheme %q", parsed.Scheme)
	}
	c := &Client{
		base:       parsed,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff: gax.Backoff{
			Initial:    200 * time.Millisecond,
			Max:        2 * time.Second,
			Multiplier: 2,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchOrders returns every order known to the backend. Records without an id are kept
// with an empty ID so the order store can report them; elements that do not decode as an
// order are dropped and logged.
func (c *Client) FetchOrders(ctx context.Context) ([]orders.Order, error) {
	records, err := fetchList[orderRecord](ctx, c, ordersPath)
	if err != nil {
		return nil, err
	}
	out := make([]orders.Order, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// UpdateOrderStatus persists a status change.
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status orders.Status) error {
	body, err := encodeJSON(map[string]string{"status": string(status)})
	if err != nil {
		return err
	}
	err = c.send(ctx, http.MethodPut, resourcePath(ordersPath, id), body, "application/json", nil)
	return mapNotFound(err, orders.ErrOrderNotFound)
}

// DeleteOrder removes an order.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	err := c.send(ctx, http.MethodDelete, resourcePath(ordersPath, id), nil, "", nil)
	return mapNotFound(err, orders.ErrOrderNotFound)
}

// FetchProducts returns the catalogue.
func (c *Client) FetchProducts(ctx context.Context) ([]products.Product, error) {
	records, err := fetchList[productRecord](ctx, c, productsPath)
	if err != nil {
		return nil, err
	}
	out := make([]products.Product, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// CreateProduct uploads a new product as a multipart form.
func (c *Client) CreateProduct(ctx context.Context, input products.Input) (products.Product, error) {
	body, contentType, err := encodeProductForm(input)
	if err != nil {
		return products.Product{}, err
	}
	var record productRecord
	if err := c.send(ctx, http.MethodPost, productsPath, body, contentType, &record); err != nil {
		return products.Product{}, err
	}
	return productFromResponse(record, "", input), nil
}

// UpdateProduct replaces the editable fields of a product.
func (c *Client) UpdateProduct(ctx context.Context, id string, input products.Input) (products.Product, error) {
	body, contentType, err := encodeProductForm(input)
	if err != nil {
		return products.Product{}, err
	}
	var record productRecord
	if err := c.send(ctx, http.MethodPut, resourcePath(productsPath, id), body, contentType, &record); err != nil {
		return products.Product{}, mapNotFound(err, products.ErrProductNotFound)
	}
	return productFromResponse(record, id, input), nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	err := c.send(ctx, http.MethodDelete, resourcePath(productsPath, id), nil, "", nil)
	return mapNotFound(err, products.ErrProductNotFound)
}

// FetchReviews returns every review.
func (c *Client) FetchReviews(ctx context.Context) ([]reviews.Review, error) {
	records, err := fetchList[reviewRecord](ctx, c, reviewsPath)
	if err != nil {
		return nil, err
	}
	out := make([]reviews.Review, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// DeleteReview removes a review.
func (c *Client) DeleteReview(ctx context.Context, id string) error {
	err := c.send(ctx, http.MethodDelete, resourcePath(reviewsPath, id), nil, "", nil)
	return mapNotFound(err, reviews.ErrReviewNotFound)
}

// fetchList reads a JSON array from endpoint and decodes its elements one by one, so a
// single malformed record cannot fail the whole listing.
func fetchList[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	var raw []json.RawMessage
	if err := c.send(ctx, http.MethodGet, endpoint, nil, "", &raw); err != nil {
		return nil, err
	}
	records, dropped := decodeRecords[T](raw)
	for _, err := range dropped {
		c.logger.Warn("backend: dropped undecodable record", zap.String("endpoint", endpoint), zap.Error(err))
	}
	return records, nil
}

// send performs the request, retrying transient failures. body is replayed on every attempt.
func (c *Client) send(ctx context.Context, method, endpoint string, body []byte, contentType string, out any) error {
	retryer := &limitedRetryer{
		inner:  gax.OnErrorFunc(c.backoff, isRetryable),
		max:    c.maxRetries,
		logger: c.logger.With(zap.String("method", method), zap.String("endpoint", endpoint)),
	}
	return gax.Invoke(ctx, func(ctx context.Context, _ gax.CallSettings) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := c.newRequest(ctx, method, endpoint, reader, contentType)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("backend: %s %s: %w", method, endpoint, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return errorFromResponse(method, endpoint, resp)
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s %s: %v", errDecode, method, endpoint, err)
		}
		return nil
	}, gax.WithRetry(func() gax.Retryer { return retryer }))
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader, contentType string) (*http.Request, error) {
	ref, err := url.Parse("./" + strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: resolve %s: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

type limitedRetryer struct {
	inner    gax.Retryer
	max      int
	attempts int
	logger   *zap.Logger
}

func (r *limitedRetryer) Retry(err error) (time.Duration, bool) {
	if r.attempts >= r.max {
		return 0, false
	}
	pause, ok := r.inner.Retry(err)
	if !ok {
		return 0, false
	}
	r.attempts++
	r.logger.Debug("backend: retrying request", zap.Int("attempt", r.attempts), zap.Duration("pause", pause), zap.Error(err))
	return pause, true
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errDecode) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func resourcePath(collection, id string) string {
	return path.Join(collection, url.PathEscape(strings.TrimSpace(id)))
}

func encodeJSON(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("backend: encode payload: %w", err)
	}
	return buf.Bytes(), nil
}

func productFromResponse(record productRecord, id string, input products.Input) products.Product {
	product := record.toDomain()
	if product.ID != "" {
		return product
	}
	// Some endpoints answer with a status message instead of the stored record.
	product = products.Product{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	return product
}
