package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kflex/dashboard/internal/admin/analytics"
	"github.com/kflex/dashboard/internal/admin/products"
	"github.com/kflex/dashboard/internal/platform/httpx"
)

// Image uploads are capped at 5 MiB by validation; the form limit leaves room for fields.
const maxProductFormSize = 6 << 20

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       *int    `json:"stock"`
}

type analyticsResponse struct {
	EarningsByMonth []analytics.MonthlyEarnings `json:"earningsByMonth"`
	StatusBreakdown analytics.StatusBreakdown   `json:"orderStatusBreakdown"`
	TopSellers      []products.Product          `json:"topSellers"`
	TotalEarnings   float64                     `json:"totalEarnings"`
	Display         analytics.Display           `json:"display"`
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.services.Dashboard.Dashboard(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summary)
}

func (h *handlers) analyticsReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.services.Dashboard.Dashboard(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, analyticsResponse{
		EarningsByMonth: summary.EarningsByMonth,
		StatusBreakdown: summary.StatusBreakdown,
		TopSellers:      summary.TopSellers,
		TotalEarnings:   summary.TotalEarnings,
		Display:         summary.Display,
	})
}

func (h *handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.services.Products.List(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if r.URL.Query().Get("lowStock") == "true" {
		items = products.LowStock(items)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": items})
}

func (h *handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	input, err := decodeProductInput(w, r)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	created, err := h.services.Products.Create(ctx, input)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *handlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	input, err := decodeProductInput(w, r)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	updated, err := h.services.Products.Update(ctx, chi.URLParam(r, "productID"), input)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *handlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.services.Products.Delete(ctx, chi.URLParam(r, "productID")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.services.Reviews.List(ctx, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"reviews": items})
}

func (h *handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.services.Reviews.Delete(ctx, chi.URLParam(r, "reviewID")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeProductInput accepts the catalogue form as multipart (with an optional "image"
// file) or as a JSON object without an image.
func decodeProductInput(w http.ResponseWriter, r *http.Request) (products.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		body, err := readLimitedBody(r, maxJSONBodySize)
		if err != nil {
			return products.Input{}, err
		}
		var req productRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return products.Input{}, errors.New("invalid JSON payload")
		}
		return products.Input{Name: req.Name, Description: req.Description, Price: req.Price, Stock: req.Stock}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProductFormSize)
	if err := r.ParseMultipartForm(maxProductFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return products.Input{}, errBodyTooLarge
		}
		return products.Input{}, errors.New("invalid multipart form")
	}

	input := products.Input{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}
	if raw := strings.TrimSpace(r.FormValue("price")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return products.Input{}, errors.New("price must be a number")
		}
		input.Price = price
	}
	if raw := strings.TrimSpace(r.FormValue("stock")); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return products.Input{}, errors.New("stock must be an integer")
		}
		input.Stock = &stock
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return input, nil
	case err != nil:
		return products.Input{}, errors.New("invalid image upload")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return products.Input{}, errors.New("invalid image upload")
	}
	input.Image = &products.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	return input, nil
}
