package http

import (
	"net/http"

	"github.com/fjod/go_storefront/internal/catalog/repository"
	"github.com/fjod/go_storefront/internal/config"
)

type CatalogHandler struct {
	products repository.ProductRepository
	payment  config.PaymentConfig
}

func NewCatalogHandler(products repository.ProductRepository, payment config.PaymentConfig) *CatalogHandler {
	return &CatalogHandler{
		products: products,
		payment:  payment,
	}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, products)
}

type PaymentInstructionsDTO struct {
	CardHolder string `json:"card_holder"`
	CardNumber string `json:"card_number"`
}

// PaymentInstructions returns the shop's own transfer card for the manual
// card-to-card payment. Nothing customer-specific is involved.
func (h *CatalogHandler) PaymentInstructions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, PaymentInstructionsDTO{
		CardHolder: h.payment.CardHolder,
		CardNumber: h.payment.CardNumber,
	})
}
