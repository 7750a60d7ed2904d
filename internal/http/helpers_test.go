package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/blob"
	"github.com/fjod/go_storefront/internal/cart/cache"
	cartdomain "github.com/fjod/go_storefront/internal/cart/domain"
	cartrepo "github.com/fjod/go_storefront/internal/cart/repository"
	cartsvc "github.com/fjod/go_storefront/internal/cart/service"
	catalogdomain "github.com/fjod/go_storefront/internal/catalog/domain"
	catalogrepo "github.com/fjod/go_storefront/internal/catalog/repository"
	"github.com/fjod/go_storefront/internal/config"
	orderdomain "github.com/fjod/go_storefront/internal/order/domain"
	orderrepo "github.com/fjod/go_storefront/internal/order/repository"
	ordersvc "github.com/fjod/go_storefront/internal/order/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// The handler tests run real services over in-memory stores behind the
// same routes main wires up, so status codes are exercised end to end.

type memorySessions struct {
	m         sync.Mutex
	byToken   map[string]*auth.Identity
	nextToken int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{byToken: make(map[string]*auth.Identity)}
}

func (s *memorySessions) Issue(_ context.Context, identity *auth.Identity) (string, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.nextToken++
	token := fmt.Sprintf("token-%d", s.nextToken)
	s.byToken[token] = identity
	return token, nil
}

func (s *memorySessions) Revoke(_ context.Context, token string) error {
	s.m.Lock()
	defer s.m.Unlock()
	delete(s.byToken, token)
	return nil
}

func (s *memorySessions) Resolve(_ context.Context, token string) (*auth.Identity, error) {
	s.m.Lock()
	defer s.m.Unlock()
	identity, ok := s.byToken[token]
	if !ok {
		return nil, auth.ErrUnauthenticated
	}
	return identity, nil
}

type memoryCarts struct {
	m     sync.Mutex
	carts map[string]*cartdomain.Cart
}

func (m *memoryCarts) GetCart(_ context.Context, ownerID string) (*cartdomain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[ownerID]
	if !ok {
		return nil, cartrepo.ErrCartNotFound
	}
	copied := *cart
	copied.Items = append([]cartdomain.CartItem(nil), cart.Items...)
	return &copied, nil
}

func (m *memoryCarts) UpsertItem(_ context.Context, ownerID string, item cartdomain.CartItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[ownerID]
	if !ok {
		cart = &cartdomain.Cart{OwnerID: ownerID, CreatedAt: time.Now()}
		m.carts[ownerID] = cart
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i] = item
			return nil
		}
	}
	cart.Items = append(cart.Items, item)
	return nil
}

func (m *memoryCarts) RemoveItem(_ context.Context, ownerID string, productID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	cart, ok := m.carts[ownerID]
	if !ok {
		return cartrepo.ErrCartNotFound
	}
	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memoryCarts) DeleteCart(_ context.Context, ownerID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, ownerID)
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*cartdomain.Cart, error) {
	return nil, cache.ErrCacheMiss
}
func (noopCache) Set(context.Context, string, *cartdomain.Cart) error { return nil }
func (noopCache) Delete(context.Context, string) error                { return nil }

type staticCatalog struct {
	products map[int64]*catalogdomain.Product
}

func (c *staticCatalog) Product(_ context.Context, id int64) (*catalogdomain.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, catalogrepo.ErrProductNotFound
	}
	return p, nil
}

func (c *staticCatalog) ListProducts(context.Context) ([]*catalogdomain.Product, error) {
	out := make([]*catalogdomain.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

func (c *staticCatalog) CountProducts(context.Context) (int, error) {
	return len(c.products), nil
}

type memoryOrders struct {
	m      sync.Mutex
	orders map[uuid.UUID]*orderdomain.Order
	events []*orderrepo.OutboxEvent
	nextID int64
}

func newMemoryOrders() *memoryOrders {
	return &memoryOrders{orders: make(map[uuid.UUID]*orderdomain.Order)}
}

func (m *memoryOrders) CreateOrder(_ context.Context, order *orderdomain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	copied := *order
	copied.CreatedAt = time.Now()
	copied.UpdatedAt = copied.CreatedAt
	m.orders[order.ID] = &copied
	return nil
}

func (m *memoryOrders) GetOrderByID(_ context.Context, id uuid.UUID) (*orderdomain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, orderrepo.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *memoryOrders) ListOrdersByOwner(_ context.Context, ownerID string) ([]*orderdomain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var out []*orderdomain.Order
	for _, order := range m.orders {
		if order.OwnerID == ownerID {
			copied := *order
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryOrders) ListOrders(_ context.Context, status orderdomain.OrderStatus) ([]*orderdomain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var out []*orderdomain.Order
	for _, order := range m.orders {
		if status == "" || order.Status == status {
			copied := *order
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryOrders) AttachReceipt(_ context.Context, receipt *orderdomain.Receipt) error {
	m.m.Lock()
	defer m.m.Unlock()
	order, ok := m.orders[receipt.OrderID]
	if !ok {
		return orderrepo.ErrOrderNotFound
	}
	if order.Status != orderdomain.OrderStatusAwaitingReceipt {
		return orderrepo.ErrTransitionConflict
	}
	copied := *receipt
	order.Receipt = &copied
	order.Status = orderdomain.OrderStatusPendingVerification
	return nil
}

func (m *memoryOrders) DecideOrder(_ context.Context, orderID uuid.UUID, decision orderrepo.Decision) error {
	m.m.Lock()
	defer m.m.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return orderrepo.ErrOrderNotFound
	}
	if order.Status != orderdomain.OrderStatusPendingVerification {
		return orderrepo.ErrTransitionConflict
	}
	now := time.Now()
	order.Status = decision.Status
	order.DecidedAt = &now
	order.DecidedBy = decision.DecidedBy
	order.RejectionNote = decision.RejectionNote
	if decision.EventType != "" {
		m.nextID++
		m.events = append(m.events, &orderrepo.OutboxEvent{
			ID:          m.nextID,
			AggregateID: orderID.String(),
			EventType:   decision.EventType,
			Payload:     decision.EventPayload,
			CreatedAt:   now,
		})
	}
	return nil
}

func (m *memoryOrders) GetUnprocessedEvents(_ context.Context, limit int) ([]*orderrepo.OutboxEvent, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if limit > len(m.events) {
		limit = len(m.events)
	}
	return append([]*orderrepo.OutboxEvent(nil), m.events[:limit]...), nil
}

func (m *memoryOrders) MarkEventAsProcessed(context.Context, int64) error { return nil }

func (m *memoryOrders) OrderStats(context.Context) (*orderdomain.Stats, error) {
	m.m.Lock()
	defer m.m.Unlock()
	stats := &orderdomain.Stats{TotalOrders: len(m.orders)}
	for _, order := range m.orders {
		switch order.Status {
		case orderdomain.OrderStatusCompleted:
			stats.TotalRevenue += order.Total
		case orderdomain.OrderStatusPendingVerification:
			stats.PendingVerification++
		}
	}
	return stats, nil
}

type storedBlob struct {
	data        []byte
	contentType string
}

type memoryBlobs struct {
	m     sync.Mutex
	blobs map[string]storedBlob
	next  int
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{blobs: make(map[string]storedBlob)}
}

func (b *memoryBlobs) Store(_ context.Context, data []byte, contentType string) (string, error) {
	b.m.Lock()
	defer b.m.Unlock()
	b.next++
	ref := fmt.Sprintf("receipts/%d", b.next)
	b.blobs[ref] = storedBlob{data: data, contentType: contentType}
	return ref, nil
}

func (b *memoryBlobs) Open(_ context.Context, ref string) ([]byte, string, error) {
	b.m.Lock()
	defer b.m.Unlock()
	stored, ok := b.blobs[ref]
	if !ok {
		return nil, "", blob.ErrNotFound
	}
	return stored.data, stored.contentType, nil
}

func (b *memoryBlobs) Delete(_ context.Context, ref string) error {
	b.m.Lock()
	defer b.m.Unlock()
	delete(b.blobs, ref)
	return nil
}

type memoryUsers struct {
	m       sync.Mutex
	byEmail map[string]*auth.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: make(map[string]*auth.User)}
}

func (m *memoryUsers) CreateUser(_ context.Context, user *auth.User) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.byEmail[user.Email]; ok {
		return auth.ErrEmailTaken
	}
	copied := *user
	m.byEmail[user.Email] = &copied
	return nil
}

func (m *memoryUsers) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	m.m.Lock()
	defer m.m.Unlock()
	user, ok := m.byEmail[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return user, nil
}

func (m *memoryUsers) CountUsers(context.Context) (int, error) {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.byEmail), nil
}

// testServer bundles the router with direct access to the stores, so tests
// can seed data and issue tokens without going through the full auth flow.
type testServer struct {
	router   chi.Router
	sessions *memorySessions
	carts    *memoryCarts
	orders   *memoryOrders
	blobs    *memoryBlobs
	users    *memoryUsers
	catalog  *staticCatalog
}

func newTestServer() *testServer {
	sessions := newMemorySessions()
	carts := &memoryCarts{carts: make(map[string]*cartdomain.Cart)}
	orders := newMemoryOrders()
	blobs := newMemoryBlobs()
	users := newMemoryUsers()
	catalog := &staticCatalog{products: map[int64]*catalogdomain.Product{
		1: {ID: 1, Title: "item A", UnitPrice: 100, Available: true},
		2: {ID: 2, Title: "item B", UnitPrice: 50, Available: true},
		3: {ID: 3, Title: "sold out", UnitPrice: 10, Available: false},
	}}

	cartService := cartsvc.NewCartService(carts, noopCache{}, catalog)
	orderService := ordersvc.NewOrderService(orders, cartService, blobs, users, catalog)
	authService := auth.NewService(users, sessions)
	guard := auth.NewGuard(sessions)

	authHandler := NewAuthHandler(authService)
	cartHandler := NewCartHandler(cartService)
	orderHandler := NewOrderHandler(orderService, 5<<20)
	adminHandler := NewAdminHandler(orderService)
	catalogHandler := NewCatalogHandler(catalog, config.PaymentConfig{
		CardHolder: "STORE OWNER",
		CardNumber: "2200000000000000",
	})

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Get("/products", catalogHandler.ListProducts)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(guard, auth.RoleCustomer))

			r.Get("/payment/instructions", catalogHandler.PaymentInstructions)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Post("/items", cartHandler.AddItem)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
				r.Delete("/", cartHandler.ClearCart)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orderHandler.CreateOrder)
				r.Get("/", orderHandler.ListOrders)
				r.Get("/{order_id}", orderHandler.GetOrder)
				r.Post("/{order_id}/receipt", orderHandler.UploadReceipt)
				r.Get("/{order_id}/receipt", orderHandler.DownloadReceipt)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(guard, auth.RoleAdmin))

			r.Patch("/orders/{order_id}/decision", adminHandler.Decide)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/orders", adminHandler.ListOrders)
				r.Get("/orders/{order_id}/receipt", orderHandler.DownloadReceipt)
				r.Get("/stats", adminHandler.Stats)
			})
		})
	})

	return &testServer{
		router:   r,
		sessions: sessions,
		carts:    carts,
		orders:   orders,
		blobs:    blobs,
		users:    users,
		catalog:  catalog,
	}
}

func (s *testServer) tokenFor(identity *auth.Identity) string {
	token, _ := s.sessions.Issue(context.Background(), identity)
	return token
}

func (s *testServer) customerToken(userID string) string {
	return s.tokenFor(&auth.Identity{UserID: userID, Role: auth.RoleCustomer})
}

func (s *testServer) adminToken(userID string) string {
	return s.tokenFor(&auth.Identity{UserID: userID, Role: auth.RoleAdmin})
}

func withBearer(r *http.Request, token string) *http.Request {
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}
