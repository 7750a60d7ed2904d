package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_storefront/internal/cart/domain"
	"github.com/fjod/go_storefront/internal/cart/service"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	carts *service.CartService
}

func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CartItemDTO struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

// CartResponseDTO doubles as the pre-invoice view: current items, the
// authoritative total and an issue timestamp.
type CartResponseDTO struct {
	Items    []CartItemDTO `json:"items"`
	Total    int64         `json:"total"`
	IssuedAt time.Time     `json:"issued_at"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	if err := h.carts.AddOrUpdate(r.Context(), identity.UserID, req.ProductID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondSnapshot(w, r, identity.UserID, http.StatusOK)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	if err := h.carts.Remove(r.Context(), identity.UserID, productID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondSnapshot(w, r, identity.UserID, http.StatusOK)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	h.respondSnapshot(w, r, identity.UserID, http.StatusOK)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	if err := h.carts.Clear(r.Context(), identity.UserID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.respondSnapshot(w, r, identity.UserID, http.StatusOK)
}

func (h *CartHandler) respondSnapshot(w http.ResponseWriter, r *http.Request, ownerID string, status int) {
	snapshot, err := h.carts.Snapshot(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, status, convertSnapshot(snapshot))
}

func convertSnapshot(snapshot *domain.Snapshot) CartResponseDTO {
	items := make([]CartItemDTO, len(snapshot.Items))
	for i, item := range snapshot.Items {
		items[i] = CartItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.UnitPrice * int64(item.Quantity),
		}
	}
	return CartResponseDTO{
		Items:    items,
		Total:    snapshot.Total,
		IssuedAt: snapshot.IssuedAt,
	}
}
