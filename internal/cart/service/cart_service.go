package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/cart/cache"
	"github.com/fjod/go_storefront/internal/cart/domain"
	"github.com/fjod/go_storefront/internal/cart/repository"
	catalogrepo "github.com/fjod/go_storefront/internal/catalog/repository"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrEmptyCart       = errors.New("cart is empty")
)

type CartService struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	prices catalogrepo.PriceSource
	sfg    singleflight.Group // Prevents cache stampede

	mu     sync.Mutex
	owners map[string]*sync.Mutex
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, prices catalogrepo.PriceSource) *CartService {
	return &CartService{
		repo:   repo,
		cache:  cache,
		prices: prices,
		owners: make(map[string]*sync.Mutex),
	}
}

// ownerLock serializes all mutations of a single owner's cart so that
// snapshot+clear during order creation is indivisible. Carts of different
// owners proceed independently.
func (s *CartService) ownerLock(ownerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.owners[ownerID]
	if !ok {
		l = &sync.Mutex{}
		s.owners[ownerID] = l
	}
	return l
}

func (s *CartService) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(ownerID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, ownerID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v \n", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, ownerID)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) { // not found cart return empty cart
			return &domain.Cart{
				OwnerID:   ownerID,
				Items:     nil,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), ownerID, cart)
			if errSet != nil {
				log.Printf("cache set error: %v \n", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddOrUpdate sets the quantity of a product line. An existing line's
// quantity is replaced, not incremented. The unit price and title are
// captured from the catalog here and never re-queried.
func (s *CartService) AddOrUpdate(ctx context.Context, ownerID string, productID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	product, err := s.prices.Product(ctx, productID)
	if err != nil {
		return err
	}
	if !product.Available {
		return catalogrepo.ErrProductNotFound
	}

	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()

	item := domain.CartItem{
		ProductID: product.ID,
		Title:     product.Title,
		UnitPrice: product.UnitPrice,
		Quantity:  quantity,
	}
	if errAdd := s.repo.UpsertItem(ctx, ownerID, item); errAdd != nil {
		log.Printf("repo upsert item error: %v \n", errAdd)
		return errAdd
	}

	s.invalidateCache(ownerID)
	return nil
}

// Remove deletes a product line. Removing an absent item or from an absent
// cart is a no-op.
func (s *CartService) Remove(ctx context.Context, ownerID string, productID int64) error {
	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()

	errRemove := s.repo.RemoveItem(ctx, ownerID, productID)
	if errRemove != nil {
		if errors.Is(errRemove, repository.ErrCartNotFound) || errors.Is(errRemove, repository.ErrItemNotFound) {
			return nil
		}
		log.Printf("repo remove item error: %v \n", errRemove)
		return errRemove
	}

	s.invalidateCache(ownerID)
	return nil
}

// Snapshot returns the current items with the total recomputed from them.
func (s *CartService) Snapshot(ctx context.Context, ownerID string) (*domain.Snapshot, error) {
	cart, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return snapshotOf(cart)
}

// Checkout takes the authoritative snapshot, invokes commit with it, and
// clears the cart, all under the owner's lock. A concurrent AddOrUpdate on
// the same cart waits; it is neither folded into the snapshot nor lost.
// An empty cart fails with ErrEmptyCart before commit runs.
func (s *CartService) Checkout(ctx context.Context, ownerID string, commit func(*domain.Snapshot) error) error {
	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.repo.GetCart(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return ErrEmptyCart
		}
		return err
	}
	if len(cart.Items) == 0 {
		return ErrEmptyCart
	}

	snapshot, err := snapshotOf(cart)
	if err != nil {
		return err
	}

	if err := commit(snapshot); err != nil {
		return err
	}

	if errDelete := s.repo.DeleteCart(ctx, ownerID); errDelete != nil && !errors.Is(errDelete, repository.ErrCartNotFound) {
		// The order is committed; a stale cart is recoverable, a lost order
		// is not. Surface the error after the fact.
		log.Printf("repo delete cart after checkout error: %v \n", errDelete)
		return fmt.Errorf("order created but cart not cleared: %w", errDelete)
	}

	s.invalidateCache(ownerID)
	return nil
}

func (s *CartService) Clear(ctx context.Context, ownerID string) error {
	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()

	errDelete := s.repo.DeleteCart(ctx, ownerID)
	if errDelete != nil && !errors.Is(errDelete, repository.ErrCartNotFound) {
		log.Printf("repo delete cart error: %v \n", errDelete)
		return errDelete
	}

	s.invalidateCache(ownerID)
	return nil
}

func snapshotOf(cart *domain.Cart) (*domain.Snapshot, error) {
	total, err := domain.Total(cart.Items)
	if err != nil {
		return nil, err
	}
	items := make([]domain.CartItem, len(cart.Items))
	copy(items, cart.Items)
	return &domain.Snapshot{
		Items:    items,
		Total:    total,
		IssuedAt: time.Now(),
	}, nil
}

func (s *CartService) invalidateCache(ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errInvalidate := s.cache.Delete(ctx, ownerID)
	if errInvalidate != nil {
		log.Printf("cache invalidate error: %v \n", errInvalidate)
	}
}
