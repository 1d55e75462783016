package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cache"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/handler"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/order"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/user"
	"github.com/vasiliy-maslov/ecommerce-storefront/pkg/events"
	"github.com/vasiliy-maslov/ecommerce-storefront/pkg/metrics"
)

// NewRouter wires repositories, services and handlers onto one chi router.
// catalogCache and publisher may be nil when Redis/Kafka are not configured.
func NewRouter(pool *pgxpool.Pool, catalogCache cache.Cache, publisher *events.Publisher, srvMetrics *metrics.ServerMetrics) *chi.Mux {
	catalogRepo := catalog.NewRepository(pool)
	catalogSvc := catalog.NewService(catalogRepo, catalogCache)

	cartRepo := cart.NewRepository(pool)
	cartSvc := cart.NewService(cartRepo, catalogSvc)

	orderRepo := order.NewRepository(pool)
	var orderPublisher order.Publisher
	if publisher != nil && publisher.Enabled() {
		orderPublisher = publisher
	}
	orderSvc := order.NewService(orderRepo, cartRepo, orderPublisher)

	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo)

	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	cartHandler := handler.NewCartHandler(cartSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	userHandler := handler.NewUserHandler(userSvc)

	r := chi.NewRouter()
	r.Use(handler.BuyerIDMiddleware)
	if srvMetrics != nil {
		r.Use(srvMetrics.Middleware)
		r.Method(http.MethodGet, "/metrics", srvMetrics.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/products", catalogHandler.ListProducts)
	r.Post("/products", catalogHandler.CreateProduct)
	r.Get("/products/{id}", catalogHandler.GetProduct)
	r.Put("/products/{id}", catalogHandler.UpdateProduct)
	r.Delete("/products/{id}", catalogHandler.DeleteProduct)

	r.Get("/categories", catalogHandler.ListCategories)
	r.Post("/categories", catalogHandler.CreateCategory)

	r.Get("/cart", cartHandler.GetCart)
	r.Post("/cart/items", cartHandler.AddItem)

	r.Post("/orders/checkout", orderHandler.Checkout)
	r.Get("/orders", orderHandler.ListOrders)
	r.Get("/orders/{id}", orderHandler.GetOrder)

	r.Post("/users", userHandler.Register)
	r.Get("/users", userHandler.ListUsers)
	r.Get("/profile", userHandler.GetProfile)
	r.Put("/profile", userHandler.UpdateProfile)

	return r
}
