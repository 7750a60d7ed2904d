package http

import (
	"encoding/json"
	"net/http"

	"github.com/fjod/go_storefront/internal/order/domain"
	"github.com/fjod/go_storefront/internal/order/service"
)

type AdminHandler struct {
	orders *service.OrderService
}

func NewAdminHandler(orders *service.OrderService) *AdminHandler {
	return &AdminHandler{orders: orders}
}

type DecisionRequestDTO struct {
	Approved bool   `json:"approved"`
	Note     string `json:"note,omitempty"`
}

// ListOrders serves ?scope=pending (default) and ?scope=all, the latter
// optionally narrowed with ?status=.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var (
		orders []*domain.Order
		err    error
	)

	switch scope := r.URL.Query().Get("scope"); scope {
	case "", "pending":
		orders, err = h.orders.ListPending(r.Context(), identity)
	case "all":
		orders, err = h.orders.ListAll(r.Context(), identity, domain.OrderStatus(r.URL.Query().Get("status")))
	default:
		respondError(w, http.StatusBadRequest, "invalid_scope", "scope must be pending or all")
		return
	}

	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrders(orders))
}

func (h *AdminHandler) Decide(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	orderID, ok := orderIDFromURL(w, r)
	if !ok {
		return
	}

	var req DecisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.Decide(r.Context(), identity, orderID, req.Approved, req.Note)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	stats, err := h.orders.Stats(r.Context(), identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
