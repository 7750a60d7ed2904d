package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a cart line frozen into the order at creation time.
type OrderItem struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Order is append-only: Items and Total never change after creation. Only
// Status, Receipt and the decision fields mutate, through guarded
// transitions.
type Order struct {
	ID            uuid.UUID
	OwnerID       string
	Items         []OrderItem
	Total         int64
	Status        OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Receipt       *Receipt
	DecidedAt     *time.Time
	DecidedBy     string
	RejectionNote string
}

// Receipt is the customer's uploaded payment evidence. At most one per
// order; superseding uploads are rejected, not merged.
type Receipt struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	UploadedBy  string
	StoragePath string
	ContentType string
	UploadedAt  time.Time
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	TotalUsers          int   `json:"total_users"`
	TotalOrders         int   `json:"total_orders"`
	TotalRevenue        int64 `json:"total_revenue"`
	PendingVerification int   `json:"pending_verification"`
	TotalProducts       int   `json:"total_products"`
}
