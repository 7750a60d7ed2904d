package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/blob"
	cartcache "github.com/fjod/go_storefront/internal/cart/cache"
	cartrepo "github.com/fjod/go_storefront/internal/cart/repository"
	cartsvc "github.com/fjod/go_storefront/internal/cart/service"
	catalogrepo "github.com/fjod/go_storefront/internal/catalog/repository"
	"github.com/fjod/go_storefront/internal/config"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/order/publisher"
	orderrepo "github.com/fjod/go_storefront/internal/order/repository"
	ordersvc "github.com/fjod/go_storefront/internal/order/service"
	"github.com/fjod/go_storefront/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Postgres: orders, receipts, users, products, outbox
	creds := &storage.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsDirPath,
	}
	db, err := storage.Connect(creds)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer db.Close()
	log.Printf("Connected to postgres at %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)

	if err := storage.RunMigrations(db, creds); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Mongo: carts and receipt blobs
	mongoDB, err := cartrepo.ConnectMongoDB(ctx, &cartrepo.ConnectionOptions{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.DBName,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		SelectTimeout:  cfg.Mongo.SelectTimeout,
		MaxPoolSize:    cfg.Mongo.MaxPoolSize,
		MinPoolSize:    cfg.Mongo.MinPoolSize,
	})
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.Mongo.URI)

	// Redis: cart cache and sessions
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	// Repositories
	carts := cartrepo.NewMongoRepository(mongoDB)
	products := catalogrepo.NewRepository(db)
	users := auth.NewPostgresUsers(db)
	orders := orderrepo.NewRepository(db)
	blobs := blob.NewMongoStore(mongoDB)

	// Services
	sessions := auth.NewRedisSessions(redisClient, cfg.Session.TTL)
	guard := auth.NewGuard(sessions)
	authService := auth.NewService(users, sessions)
	cartService := cartsvc.NewCartService(carts, cartcache.NewRedisCache(redisClient), products)
	orderService := ordersvc.NewOrderService(orders, cartService, blobs, users, products)

	// Outbox poller feeds approved order totals to external reporting
	pollerCtx, stopPoller := context.WithCancel(ctx)
	poller := publisher.NewOutboxPoller(orders, cfg.Kafka.Brokers...)
	go poller.Run(pollerCtx)

	// Handlers
	authHandler := h.NewAuthHandler(authService)
	catalogHandler := h.NewCatalogHandler(products, cfg.Payment)
	cartHandler := h.NewCartHandler(cartService)
	orderHandler := h.NewOrderHandler(orderService, cfg.Server.MaxUploadSize)
	adminHandler := h.NewAdminHandler(orderService)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Get("/products", catalogHandler.ListProducts)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireRole(guard, auth.RoleCustomer))

			r.Get("/payment/instructions", catalogHandler.PaymentInstructions)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
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
			r.Use(h.RequireRole(guard, auth.RoleAdmin))

			r.Patch("/orders/{order_id}/decision", adminHandler.Decide)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/orders", adminHandler.ListOrders)
				r.Get("/orders/{order_id}/receipt", orderHandler.DownloadReceipt)
				r.Get("/stats", adminHandler.Stats)
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if err := mongoDB.Client().Disconnect(ctx); err != nil {
		log.Printf("mongo disconnect error: %v", err)
	}

	log.Println("server exited")
}
