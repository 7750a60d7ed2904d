package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/cart/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
)

// CartRepository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	UpsertItem(ctx context.Context, ownerID string, item domain.CartItem) error
	RemoveItem(ctx context.Context, ownerID string, productID int64) error
	DeleteCart(ctx context.Context, ownerID string) error
}
