package http

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/order/domain"
	"github.com/fjod/go_storefront/internal/order/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orders        *service.OrderService
	maxUploadSize int64
}

func NewOrderHandler(orders *service.OrderService, maxUploadSize int64) *OrderHandler {
	return &OrderHandler{
		orders:        orders,
		maxUploadSize: maxUploadSize,
	}
}

type OrderItemDTO struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type ReceiptDTO struct {
	ID          string    `json:"id"`
	StoragePath string    `json:"storage_path"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type OrderResponseDTO struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"owner_id"`
	Items         []OrderItemDTO `json:"items"`
	Total         int64          `json:"total"`
	Status        string         `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	Receipt       *ReceiptDTO    `json:"receipt,omitempty"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty"`
	DecidedBy     string         `json:"decided_by,omitempty"`
	RejectionNote string         `json:"rejection_note,omitempty"`
}

type CreateOrderResponseDTO struct {
	OrderID string `json:"order_id"`
	Total   int64  `json:"total"`
	Status  string `json:"status"`
}

type UploadReceiptResponseDTO struct {
	ReceiptID string `json:"receipt_id"`
	Status    string `json:"status"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	order, err := h.orders.CreateOrder(r.Context(), identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CreateOrderResponseDTO{
		OrderID: order.ID.String(),
		Total:   order.Total,
		Status:  order.Status.String(),
	})
}

// UploadReceipt reads the multipart "receipt" part and hands the bytes to
// the order machine. The order only moves to PENDING_VERIFICATION when both
// blob persistence and the status transition succeed.
func (h *OrderHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	orderID, ok := orderIDFromURL(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing receipt file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read receipt file")
		return
	}

	receipt, err := h.orders.UploadReceipt(r.Context(), identity, orderID, data, header.Header.Get("Content-Type"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, UploadReceiptResponseDTO{
		ReceiptID: receipt.ID.String(),
		Status:    domain.OrderStatusPendingVerification.String(),
	})
}

// DownloadReceipt streams the stored receipt back with its original
// content type. Owners see their own receipt; admins see any.
func (h *OrderHandler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	orderID, ok := orderIDFromURL(w, r)
	if !ok {
		return
	}

	data, contentType, err := h.orders.OpenReceipt(r.Context(), identity, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("failed to write receipt response: %v", err)
	}
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	orderID, ok := orderIDFromURL(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), identity, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	orders, err := h.orders.ListMine(r.Context(), identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrders(orders))
}

func orderIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a uuid")
		return uuid.Nil, false
	}
	return orderID, true
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}

	dto := OrderResponseDTO{
		ID:            o.ID.String(),
		OwnerID:       o.OwnerID,
		Items:         items,
		Total:         o.Total,
		Status:        o.Status.String(),
		CreatedAt:     o.CreatedAt,
		DecidedAt:     o.DecidedAt,
		DecidedBy:     o.DecidedBy,
		RejectionNote: o.RejectionNote,
	}

	if o.Receipt != nil {
		dto.Receipt = &ReceiptDTO{
			ID:          o.Receipt.ID.String(),
			StoragePath: o.Receipt.StoragePath,
			ContentType: o.Receipt.ContentType,
			UploadedAt:  o.Receipt.UploadedAt,
		}
	}

	return dto
}

func convertOrders(orders []*domain.Order) []OrderResponseDTO {
	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}
	return dtos
}
