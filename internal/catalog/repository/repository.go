package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/catalog/domain"
)

var ErrProductNotFound = errors.New("product not found")

// PriceSource is the read-only catalog view the cart consults when items
// are added. Prices are frozen into the cart line at that point.
type PriceSource interface {
	Product(ctx context.Context, id int64) (*domain.Product, error)
}

type ProductRepository interface {
	PriceSource
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	CountProducts(ctx context.Context) (int, error)
}
