package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"foodDeliveryPlatform/internal/orderflow"
	"foodDeliveryPlatform/models"
)

// OrdersHandler exposes the customer-facing order lifecycle.
type OrdersHandler struct {
	Orders *orderflow.Service
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listMyOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Post("/orders/{id}/reorder", h.reorder)
	r.Put("/orders/{id}/status", h.updateStatus)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req orderflow.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.Orders.Create(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	o, err := h.Orders.GetByID(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// listMyOrders pages the caller's own orders newest first with a keyset
// cursor (after_ts unix seconds + after_id).
func (h *OrdersHandler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	afterTS, _ := strconv.ParseInt(q.Get("after_ts"), 10, 64)
	afterID, _ := strconv.ParseInt(q.Get("after_id"), 10, 64)
	out, err := h.Orders.ListMine(r.Context(), actor, pageSize, afterTS, afterID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	o, err := h.Orders.Cancel(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) reorder(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	o, err := h.Orders.Reorder(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

type updateStatusReq struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req updateStatusReq
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.Orders.UpdateStatus(r.Context(), actor, id, models.OrderStatus(req.Status), req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
