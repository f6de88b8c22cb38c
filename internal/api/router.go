// Package api exposes the fulfillment engine over HTTP. Handlers are
// thin adapters: they decode, delegate to the domain services and map
// domain errors onto the wire error contract.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/EndoRodrigo/eCommerce/internal/checkout"
	"github.com/EndoRodrigo/eCommerce/internal/order"
)

// NewRouter mounts every route of the HTTP surface.
func NewRouter(service *checkout.Service, repo order.Repository, lifecycle *order.Lifecycle, catalog CatalogWriter, customers CustomerWriter) http.Handler {
	carts := NewCartHandler(service)
	checkouts := NewCheckoutHandler(service)
	orders := NewOrdersHandler(repo, lifecycle)
	admin := NewCatalogHandler(catalog, customers)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", healthCheck)

	r.Route("/carts/{sessionID}", func(r chi.Router) {
		r.Get("/", carts.GetCart)
		r.Delete("/", carts.ClearCart)
		r.Post("/items", carts.AddItem)
		r.Put("/items/{productRef}", carts.UpdateQuantity)
		r.Delete("/items/{productRef}", carts.RemoveItem)
	})

	r.Post("/checkout", checkouts.Checkout)

	r.Post("/products", admin.UpsertProduct)
	r.Get("/products/{ref}", admin.GetProduct)
	r.Post("/customers", admin.UpsertCustomer)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", orders.ListOrders)
		r.Get("/stats", orders.Stats)
		r.Get("/{number}", orders.GetOrder)
		r.Get("/{number}/payment", orders.GetPayment)
		r.Post("/{number}/process", orders.Process)
		r.Post("/{number}/ship", orders.Ship)
		r.Post("/{number}/deliver", orders.Deliver)
		r.Post("/{number}/cancel", orders.Cancel)
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}
