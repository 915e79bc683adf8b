package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"foodDeliveryPlatform/internal/live"
	"foodDeliveryPlatform/repository"
)

// NotificationsHandler exposes the durable notification feed and the live
// connection registration used by realtime gateways. LiveDir may be nil when
// no directory is configured; the connection endpoints then answer 503.
type NotificationsHandler struct {
	Notifs  repository.NotificationRepositoryI
	LiveDir live.Directory
}

func (h *NotificationsHandler) Register(r chi.Router) {
	r.Get("/notifications", h.list)
	r.Put("/notifications/{id}/read", h.markRead)
	r.Post("/live/connections", h.registerConnection)
	r.Delete("/live/connections", h.unregisterConnection)
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.Notifs.ListByRecipient(r.Context(), actor.UserID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *NotificationsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Notifs.MarkRead(r.Context(), id, actor.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type connectionReq struct {
	Handle string `json:"handle"`
}

// registerConnection records where live pushes for the caller should go. The
// handle is whatever the realtime gateway uses to address the connection; it
// expires on its own if the gateway stops refreshing it.
func (h *NotificationsHandler) registerConnection(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req connectionReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Handle == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "handle is required"})
		return
	}
	if h.LiveDir == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "live directory not configured"})
		return
	}
	if err := h.LiveDir.Register(r.Context(), actor.UserID, req.Handle); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

func (h *NotificationsHandler) unregisterConnection(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	if h.LiveDir == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "live directory not configured"})
		return
	}
	if err := h.LiveDir.Unregister(r.Context(), actor.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unregistered"})
}
