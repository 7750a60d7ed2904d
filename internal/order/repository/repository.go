package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_storefront/internal/order/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrTransitionConflict means the compare-and-set update matched no row
	// because the order's status no longer equals the expected source
	// status. This is the normal outcome of a lost race, not a failure.
	ErrTransitionConflict = errors.New("order status changed concurrently")
)

// Decision is the admin verdict applied to a PENDING_VERIFICATION order.
// EventPayload, when set, is written to the outbox in the same transaction
// as the status change.
type Decision struct {
	Status        domain.OrderStatus
	DecidedBy     string
	RejectionNote string
	EventType     string
	EventPayload  []byte
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByOwner(ctx context.Context, ownerID string) ([]*domain.Order, error)
	// ListOrders filters by status; the empty status means all orders.
	ListOrders(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error)
	AttachReceipt(ctx context.Context, receipt *domain.Receipt) error
	DecideOrder(ctx context.Context, orderID uuid.UUID, decision Decision) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	OrderStats(ctx context.Context) (*domain.Stats, error)
}
