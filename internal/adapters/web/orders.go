package web

import (
	"net/http"

	"order-desk/internal/app"
	"order-desk/internal/core"

	"github.com/go-chi/chi/v5"
)

// apiListOrders handles GET /api/orders?customer_id=&payment_status=&packing_status=&limit=.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := queryInt(w, r, "customer_id")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	q := r.URL.Query()
	result, err := h.svc.ListOrders(r.Context(), app.ListOrdersRequest{
		CustomerID:    customerID,
		PaymentStatus: q.Get("payment_status"),
		PackingStatus: q.Get("packing_status"),
		Limit:         limit,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

// orderResponse adds the derived totals to an order.
type orderResponse struct {
	*core.Order
	ItemsTotal int64 `json:"items_total"`
	GrandTotal int64 `json:"grand_total"`
}

func newOrderResponse(res *app.OrderResult) orderResponse {
	return orderResponse{
		Order:      res.Order,
		ItemsTotal: res.Order.ItemsTotal(),
		GrandTotal: res.Order.GrandTotal(),
	}
}

// apiPlaceOrder handles POST /api/orders.
// Body: { customer_id, currency?, payment_type?, delivery_fee?, notes?, items: [{variant_id, quantity}] }
// A new order answers 201; a replayed Idempotency-Key answers 200 with the original order.
func (h *Handler) apiPlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req app.PlaceOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	result, err := h.svc.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		status = http.StatusOK
	}
	writeJSONStatus(w, status, newOrderResponse(result))
}

// apiGetOrder handles GET /api/orders/{ref}; ref is a numeric ID or an order number.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, newOrderResponse(result))
}

// apiUpdateOrder handles PUT /api/orders/{id}.
// Body: { payment_status?, packing_status?, notes?, delivery_fee? }
func (h *Handler) apiUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req app.UpdateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.OrderID = id
	result, err := h.svc.UpdateOrder(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, newOrderResponse(result))
}

// apiDraftOrder handles POST /api/orders/draft.
// Body: { message }. The draft is returned for review and never placed.
func (h *Handler) apiDraftOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Message == "" {
		writeErrorResponse(w, r, errorResponse{Error: "message is required", Code: "VALIDATION_ERROR", Field: "message"}, http.StatusBadRequest)
		return
	}
	draft, err := h.svc.DraftOrder(r.Context(), body.Message)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, draft)
}
