package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodDeliveryPlatform/internal/pickup"
)

// PickupHandler exposes in-person pickup code verification and completion.
type PickupHandler struct {
	Pickup *pickup.Service
}

func (h *PickupHandler) Register(r chi.Router) {
	r.Post("/orders/{id}/pickup/verify", h.verifyCode)
	r.Post("/orders/{id}/pickup/complete", h.completePickup)
}

type pickupReq struct {
	Code string `json:"code"`
}

func (h *PickupHandler) verifyCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req pickupReq
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.Pickup.VerifyPickupCode(r.Context(), actor, id, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *PickupHandler) completePickup(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req pickupReq
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.Pickup.CompletePickup(r.Context(), actor, id, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
