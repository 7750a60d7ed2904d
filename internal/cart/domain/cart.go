package domain

import (
	"errors"
	"math"
	"time"
)

var ErrTotalOverflow = errors.New("cart total overflows int64")

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"-"`
	OwnerID   string     `bson:"owner_id" json:"owner_id"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

// CartItem carries the unit price captured from the catalog at add time.
// Prices are in the smallest currency unit and are not re-queried later.
type CartItem struct {
	ProductID int64     `bson:"product_id" json:"product_id"`
	Title     string    `bson:"title" json:"title"`
	UnitPrice int64     `bson:"unit_price" json:"unit_price"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// Snapshot is the frozen view of a cart handed to order creation.
type Snapshot struct {
	Items    []CartItem `json:"items"`
	Total    int64      `json:"total"`
	IssuedAt time.Time  `json:"issued_at"`
}

// Total sums unit_price * quantity over items with integer arithmetic,
// failing instead of wrapping on overflow.
func Total(items []CartItem) (int64, error) {
	var total int64
	for _, item := range items {
		if item.UnitPrice < 0 || item.Quantity < 0 {
			return 0, errors.New("negative price or quantity in cart")
		}
		line := item.UnitPrice * int64(item.Quantity)
		if item.UnitPrice != 0 && line/item.UnitPrice != int64(item.Quantity) {
			return 0, ErrTotalOverflow
		}
		if total > math.MaxInt64-line {
			return 0, ErrTotalOverflow
		}
		total += line
	}
	return total, nil
}
