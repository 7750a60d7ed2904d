package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/blob"
	cartdomain "github.com/fjod/go_storefront/internal/cart/domain"
	cartsvc "github.com/fjod/go_storefront/internal/cart/service"
	"github.com/fjod/go_storefront/internal/order/domain"
	r "github.com/fjod/go_storefront/internal/order/repository"
	"github.com/google/uuid"
)

// EventTypeOrderCompleted marks the outbox events that feed realized
// revenue into any external reporting consumer. Only approval produces one.
const EventTypeOrderCompleted = "order-completed"

// CartCheckout is the slice of the cart aggregator the order machine needs:
// an indivisible snapshot+commit+clear per owner.
type CartCheckout interface {
	Checkout(ctx context.Context, ownerID string, commit func(*cartdomain.Snapshot) error) error
}

type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

type ProductCounter interface {
	CountProducts(ctx context.Context) (int, error)
}

type OrderService struct {
	repo     r.OrderRepository
	carts    CartCheckout
	blobs    blob.Store
	users    UserCounter
	products ProductCounter
}

func NewOrderService(repo r.OrderRepository, carts CartCheckout, blobs blob.Store, users UserCounter, products ProductCounter) *OrderService {
	return &OrderService{
		repo:     repo,
		carts:    carts,
		blobs:    blobs,
		users:    users,
		products: products,
	}
}

// CreateOrder freezes the caller's cart into a new AWAITING_RECEIPT order
// and clears the cart. The whole step runs under the owner's cart lock, so
// concurrent cart mutations are neither folded in nor lost.
func (s *OrderService) CreateOrder(ctx context.Context, identity *auth.Identity) (*domain.Order, error) {
	if identity.Role != auth.RoleCustomer {
		return nil, ErrForbidden
	}

	var order *domain.Order
	err := s.carts.Checkout(ctx, identity.UserID, func(snapshot *cartdomain.Snapshot) error {
		items := make([]domain.OrderItem, len(snapshot.Items))
		for i, item := range snapshot.Items {
			items[i] = domain.OrderItem{
				ProductID: item.ProductID,
				Title:     item.Title,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
			}
		}

		order = &domain.Order{
			ID:      uuid.New(),
			OwnerID: identity.UserID,
			Items:   items,
			Total:   snapshot.Total,
			Status:  domain.OrderStatusAwaitingReceipt,
		}
		return s.repo.CreateOrder(ctx, order)
	})
	if err != nil {
		if errors.Is(err, cartsvc.ErrEmptyCart) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}

	return order, nil
}

// UploadReceipt persists the blob first and only then attempts the
// AWAITING_RECEIPT -> PENDING_VERIFICATION transition together with the
// receipt row, so slow storage never holds order state and a storage
// failure leaves the order untouched.
func (s *OrderService) UploadReceipt(ctx context.Context, identity *auth.Identity, orderID uuid.UUID, data []byte, contentType string) (*domain.Receipt, error) {
	if identity.Role != auth.RoleCustomer {
		return nil, ErrForbidden
	}
	if !strings.HasPrefix(contentType, "image/") && contentType != "application/pdf" {
		return nil, ErrUnsupportedReceipt
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OwnerID != identity.UserID {
		return nil, ErrForbidden
	}
	if !domain.CanTransitionTo(order.Status, domain.OrderStatusPendingVerification) {
		return nil, fmt.Errorf("order is %s: %w", order.Status, ErrInvalidTransition)
	}

	ref, err := s.blobs.Store(ctx, data, contentType)
	if err != nil {
		return nil, err
	}

	receipt := &domain.Receipt{
		ID:          uuid.New(),
		OrderID:     orderID,
		UploadedBy:  identity.UserID,
		StoragePath: ref,
		ContentType: contentType,
		UploadedAt:  time.Now(),
	}

	if err := s.repo.AttachReceipt(ctx, receipt); err != nil {
		// The status check above is only advisory; the transition itself is
		// the compare-and-set. A lost race leaves an orphaned blob, removed
		// best effort.
		if delErr := s.blobs.Delete(ctx, ref); delErr != nil {
			log.Printf("failed to delete orphaned receipt blob %s: %v", ref, delErr)
		}
		if errors.Is(err, r.ErrTransitionConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	return receipt, nil
}

// Decide applies the admin verdict. At most one Decide succeeds per order:
// the transition is a compare-and-set against PENDING_VERIFICATION and the
// loser of a race gets ErrInvalidTransition.
func (s *OrderService) Decide(ctx context.Context, identity *auth.Identity, orderID uuid.UUID, approved bool, note string) (*domain.Order, error) {
	if identity.Role != auth.RoleAdmin {
		return nil, ErrForbidden
	}
	if !approved && strings.TrimSpace(note) == "" {
		return nil, ErrNoteRequired
	}

	decision := r.Decision{
		DecidedBy: identity.UserID,
	}
	if approved {
		decision.Status = domain.OrderStatusCompleted
	} else {
		decision.Status = domain.OrderStatusRejected
		decision.RejectionNote = note
	}

	if approved {
		order, err := s.repo.GetOrderByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !domain.CanTransitionTo(order.Status, decision.Status) {
			return nil, fmt.Errorf("order is %s: %w", order.Status, ErrInvalidTransition)
		}

		payload, err := json.Marshal(map[string]interface{}{
			"order_id":     orderID.String(),
			"owner_id":     order.OwnerID,
			"items":        order.Items,
			"total":        order.Total,
			"completed_at": time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal order payload: %w", err)
		}
		decision.EventType = EventTypeOrderCompleted
		decision.EventPayload = payload
	}

	if err := s.repo.DecideOrder(ctx, orderID, decision); err != nil {
		if errors.Is(err, r.ErrTransitionConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	return s.repo.GetOrderByID(ctx, orderID)
}

// OpenReceipt returns the stored receipt bytes for the order's owner or an
// admin reviewing the verification queue.
func (s *OrderService) OpenReceipt(ctx context.Context, identity *auth.Identity, orderID uuid.UUID) ([]byte, string, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	if identity.Role != auth.RoleAdmin && order.OwnerID != identity.UserID {
		return nil, "", ErrForbidden
	}
	if order.Receipt == nil {
		return nil, "", blob.ErrNotFound
	}
	return s.blobs.Open(ctx, order.Receipt.StoragePath)
}

func (s *OrderService) GetOrder(ctx context.Context, identity *auth.Identity, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if identity.Role != auth.RoleAdmin && order.OwnerID != identity.UserID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) ListMine(ctx context.Context, identity *auth.Identity) ([]*domain.Order, error) {
	if identity.Role != auth.RoleCustomer {
		return nil, ErrForbidden
	}
	return s.repo.ListOrdersByOwner(ctx, identity.UserID)
}

func (s *OrderService) ListPending(ctx context.Context, identity *auth.Identity) ([]*domain.Order, error) {
	if identity.Role != auth.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.repo.ListOrders(ctx, domain.OrderStatusPendingVerification)
}

func (s *OrderService) ListAll(ctx context.Context, identity *auth.Identity, status domain.OrderStatus) ([]*domain.Order, error) {
	if identity.Role != auth.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.repo.ListOrders(ctx, status)
}

func (s *OrderService) Stats(ctx context.Context, identity *auth.Identity) (*domain.Stats, error) {
	if identity.Role != auth.RoleAdmin {
		return nil, ErrForbidden
	}

	stats, err := s.repo.OrderStats(ctx)
	if err != nil {
		return nil, err
	}

	if stats.TotalUsers, err = s.users.CountUsers(ctx); err != nil {
		return nil, err
	}
	if stats.TotalProducts, err = s.products.CountProducts(ctx); err != nil {
		return nil, err
	}

	return stats, nil
}
