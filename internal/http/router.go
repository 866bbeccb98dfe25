// Package http exposes the ordering core over REST and receives chat
// webhooks.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zxc1031408077/line-bot-ordering/internal/catalog"
	"github.com/zxc1031408077/line-bot-ordering/internal/dispatch"
	"github.com/zxc1031408077/line-bot-ordering/internal/pricing"
)

type RouterConfig struct {
	Catalog catalog.Catalog
	// CatalogEditor is optional; nil leaves the menu read-only over HTTP.
	CatalogEditor CatalogEditor
	Carts         dispatch.Carts
	Orders        OrderService
	Dispatcher    *dispatch.Dispatcher
	Replier       Replier
	Idempotency   IdempotencyStore
	Policy        pricing.Policy

	ChannelSecret      string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	Logger             *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Replier == nil {
		cfg.Replier = NewLogReplier(log)
	}
	if cfg.Idempotency == nil {
		cfg.Idempotency = NewMemoryIdempotencyStore()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = 1 << 20
	}

	catalogHandler := NewCatalogHandler(cfg.Catalog, cfg.CatalogEditor, cfg.RequestTimeout)
	cartHandler := NewCartHandler(cfg.Carts, cfg.Policy, cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(cfg.Orders, cfg.Idempotency, cfg.RequestTimeout)
	webhookHandler := NewWebhookHandler(cfg.Dispatcher, cfg.Replier, cfg.Idempotency,
		cfg.ChannelSecret, cfg.MaxRequestBodySize, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/callback", webhookHandler.Callback)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", catalogHandler.ListCategories)
			r.Get("/items", catalogHandler.ListItems)
			r.Get("/items/{item_id}", catalogHandler.GetItem)
			if cfg.CatalogEditor != nil {
				r.Post("/items", catalogHandler.CreateItem)
				r.Put("/items/{item_id}", catalogHandler.PutItem)
				r.Put("/items/{item_id}/availability", catalogHandler.SetAvailability)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(UserIDMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{item_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{item_id}", cartHandler.RemoveItem)
			})

			r.Post("/checkout", ordersHandler.Checkout)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordersHandler.ListOrders)
				r.Get("/{order_id}", ordersHandler.GetOrder)
				r.Get("/{order_id}/history", ordersHandler.GetHistory)
				r.Post("/{order_id}/status", ordersHandler.UpdateStatus)
			})
		})
	})

	return otelhttp.NewHandler(r, "ordering-http")
}
