package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/blob"
	cartsvc "github.com/fjod/go_storefront/internal/cart/service"
	catalogrepo "github.com/fjod/go_storefront/internal/catalog/repository"
	orderrepo "github.com/fjod/go_storefront/internal/order/repository"
	ordersvc "github.com/fjod/go_storefront/internal/order/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleServiceError maps domain sentinel errors to HTTP status codes.
// InvalidTransition and EmptyCart are conflicts, not server faults.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid session token")
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, ordersvc.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "operation not permitted")
	case errors.Is(err, cartsvc.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be a positive integer")
	case errors.Is(err, ordersvc.ErrNoteRequired):
		respondError(w, http.StatusBadRequest, "note_required", "rejection requires a note")
	case errors.Is(err, ordersvc.ErrUnsupportedReceipt):
		respondError(w, http.StatusBadRequest, "unsupported_receipt", "receipt must be an image or a PDF")
	case errors.Is(err, catalogrepo.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, orderrepo.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, blob.ErrNotFound):
		respondError(w, http.StatusNotFound, "receipt_not_found", "no receipt on this order")
	case errors.Is(err, ordersvc.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", "cart is empty")
	case errors.Is(err, ordersvc.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", "order status does not allow this operation")
	case errors.Is(err, blob.ErrStorage):
		respondError(w, http.StatusBadGateway, "storage_error", "receipt storage failed, order unchanged")
	case errors.Is(err, auth.ErrEmailTaken):
		respondError(w, http.StatusConflict, "email_taken", "email already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
