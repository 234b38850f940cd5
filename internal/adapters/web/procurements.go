package web

import (
	"net/http"

	"order-desk/internal/app"
)

// apiListProcurements handles GET /api/procurements?status=.
func (h *Handler) apiListProcurements(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProcurements(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Procurements)
}

// apiGetProcurement handles GET /api/procurements/{id}.
func (h *Handler) apiGetProcurement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetProcurement(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// apiUpdateProcurement handles PUT /api/procurements/{id}.
// Body: { status, notes? }. Moving to ARRIVED restocks the variant once.
func (h *Handler) apiUpdateProcurement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.UpdateProcurementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ProcurementID = id
	p, err := h.svc.UpdateProcurement(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}
