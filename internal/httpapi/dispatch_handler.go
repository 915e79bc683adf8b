package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodDeliveryPlatform/internal/dispatch"
)

// DispatchHandler exposes agent-facing dispatch operations and the agent
// profile endpoints.
type DispatchHandler struct {
	Dispatch *dispatch.Service
}

func (h *DispatchHandler) Register(r chi.Router) {
	r.Post("/agents", h.registerAgent)
	r.Put("/agents/availability", h.setAvailability)
	r.Put("/agents/location", h.updateLocation)
	r.Put("/agents/{id}/verify", h.verifyAgent)

	r.Get("/dispatch/orders/nearby", h.listNearby)
	r.Get("/dispatch/orders/confirmed", h.listConfirmed)
	r.Post("/dispatch/orders/{id}/accept", h.acceptOrder)
	r.Post("/dispatch/orders/{id}/reject", h.rejectOrder)
	r.Post("/dispatch/orders/{id}/complete", h.completeDelivery)

	r.Post("/orders/{id}/assign", h.assignByAdmin)
	r.Post("/orders/{id}/rate", h.rateAgent)
}

type registerAgentReq struct {
	VehicleType   string `json:"vehicle_type"`
	VehicleNumber string `json:"vehicle_number"`
}

func (h *DispatchHandler) registerAgent(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req registerAgentReq
	if !decodeJSON(w, r, &req) {
		return
	}
	agent, err := h.Dispatch.RegisterAgent(r.Context(), actor, req.VehicleType, req.VehicleNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

type availabilityReq struct {
	Available *bool `json:"available"`
}

func (h *DispatchHandler) setAvailability(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req availabilityReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Available == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "available is required"})
		return
	}
	agent, err := h.Dispatch.SetAvailability(r.Context(), actor, *req.Available)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

type locationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *DispatchHandler) updateLocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req locationReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Dispatch.UpdateAgentLocation(r.Context(), actor, req.Lat, req.Lng); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type verifyAgentReq struct {
	Verified *bool `json:"verified"`
}

func (h *DispatchHandler) verifyAgent(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req verifyAgentReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Verified == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "verified is required"})
		return
	}
	if err := h.Dispatch.VerifyAgent(r.Context(), actor, id, *req.Verified); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *DispatchHandler) listNearby(w http.ResponseWriter, r *http.Request) {
	h.listCandidates(w, r, false)
}

func (h *DispatchHandler) listConfirmed(w http.ResponseWriter, r *http.Request) {
	h.listCandidates(w, r, true)
}

func (h *DispatchHandler) listCandidates(w http.ResponseWriter, r *http.Request, includeAll bool) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := h.Dispatch.ListNearbyOrders(r.Context(), actor, includeAll)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []dispatch.Candidate{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DispatchHandler) acceptOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	o, err := h.Dispatch.AcceptOrder(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *DispatchHandler) rejectOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Dispatch.RejectOrder(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *DispatchHandler) completeDelivery(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	o, err := h.Dispatch.CompleteDelivery(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type assignReq struct {
	AgentID int64 `json:"agent_id"`
}

func (h *DispatchHandler) assignByAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req assignReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agent_id is required"})
		return
	}
	o, err := h.Dispatch.AssignAgentByAdmin(r.Context(), actor, id, req.AgentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type rateReq struct {
	Rating float64 `json:"rating"`
}

func (h *DispatchHandler) rateAgent(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req rateReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Dispatch.RateAgent(r.Context(), actor, id, req.Rating); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rated"})
}
