package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/platform/httpx"
)

type orderDetailResponse struct {
	Order                orders.Order    `json:"order"`
	AvailableTransitions []orders.Status `json:"availableTransitions"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	criteria, ok := parseCriteria(w, r)
	if !ok {
		return
	}

	page := 1
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(ctx, w, "page must be an integer")
			return
		}
		page = parsed
	}

	result, err := h.services.Orders.List(ctx, orders.Query{Status: criteria.Status, Search: criteria.Query, Page: page})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order, err := h.services.Orders.Get(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderDetailResponse{
		Order:                order,
		AvailableTransitions: orders.AvailableTransitions(order.Status),
	})
}

func (h *handlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := readLimitedBody(r, maxJSONBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req statusUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeBadRequest(ctx, w, "invalid JSON payload")
		return
	}

	// Unknown targets are passed through so the transition engine reports them as 409.
	target, ok := orders.ParseStatus(req.Status)
	if !ok {
		target = orders.Status(strings.TrimSpace(req.Status))
	}
	result, err := h.services.Orders.UpdateStatus(ctx, chi.URLParam(r, "orderID"), orders.StatusUpdateRequest{
		Status: target,
		Note:   req.Note,
		Actor:  actorFromContext(ctx),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *handlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.services.Orders.Delete(ctx, chi.URLParam(r, "orderID"), actorFromContext(ctx)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) exportOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	criteria, ok := parseCriteria(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	count, err := h.services.Orders.Export(ctx, criteria, &buf)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	filename := fmt.Sprintf("orders-%s.csv", h.clock().UTC().Format("20060102T150405Z"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Export-Count", strconv.Itoa(count))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handlers) exportOrdersToBucket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	criteria, ok := parseCriteria(w, r)
	if !ok {
		return
	}
	result, err := h.services.Orders.ExportToBucket(ctx, criteria, actorFromContext(ctx))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, result)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.services.Cache != nil {
		h.services.Cache.Invalidate(ctx)
	}
	report, err := h.services.Orders.Refresh(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"loaded":     report.Loaded,
		"duplicates": report.Duplicates,
		"dropped":    len(report.Dropped),
	})
}

func parseCriteria(w http.ResponseWriter, r *http.Request) (orders.Criteria, bool) {
	values := r.URL.Query()
	filter, err := orders.ParseStatusFilter(values.Get("status"))
	if err != nil {
		writeBadRequest(r.Context(), w, err.Error())
		return orders.Criteria{}, false
	}
	return orders.Criteria{Status: filter, Query: values.Get("q")}, true
}
