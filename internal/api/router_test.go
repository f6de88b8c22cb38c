package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EndoRodrigo/eCommerce/internal/checkout"
	"github.com/EndoRodrigo/eCommerce/internal/inventory"
	"github.com/EndoRodrigo/eCommerce/internal/notify"
	"github.com/EndoRodrigo/eCommerce/internal/order"
	"github.com/EndoRodrigo/eCommerce/internal/payment"
	"github.com/EndoRodrigo/eCommerce/internal/session"
)

type nullRelay struct{}

func (nullRelay) Submit(context.Context, *order.Order) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, order.Repository) {
	t.Helper()

	registry := session.NewRegistry()
	t.Cleanup(registry.Close)

	catalog := inventory.NewMemoryCatalog()
	catalog.SetProduct(inventory.Product{
		Ref:       "SKU1",
		Name:      "Widget",
		UnitPrice: decimal.RequireFromString("10.00"),
		Stock:     50,
	})

	guard := inventory.NewGuard(catalog, notify.NoopSink{})
	repo := order.NewMemoryRepository()
	lifecycle := order.NewLifecycle(repo, guard)

	directory := checkout.NewMemoryDirectory()
	directory.SetCustomer(checkout.Customer{Ref: "cust-1", Name: "Ada"})

	service := checkout.NewService(checkout.Deps{
		Registry:  registry,
		Catalog:   catalog,
		Guard:     guard,
		Processor: payment.NewProcessor(payment.NewSimulatedGateway(payment.AlwaysApprove), payment.NewMemoryStore(), time.Second),
		Lifecycle: lifecycle,
		Repo:      repo,
		Customers: directory,
		Relay:     nullRelay{},
		Sink:      notify.NoopSink{},
	})

	srv := httptest.NewServer(NewRouter(service, repo, lifecycle, catalog, directory))
	t.Cleanup(srv.Close)
	return srv, repo
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func placeOrder(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, srv.URL+"/carts/sess-1/items", AddItemRequestDTO{ProductRef: "SKU1", Quantity: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/checkout", checkout.Request{
		SessionID:     "sess-1",
		CustomerRef:   "cust-1",
		PaymentMethod: "card",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out checkout.Response
	decodeBody(t, resp, &out)
	return out.OrderNumber
}

func TestCartRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/carts/sess-1/items", AddItemRequestDTO{ProductRef: "SKU1", Quantity: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var summary checkout.Summary
	decodeBody(t, resp, &summary)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, 2, summary.Lines[0].Quantity)

	resp = doJSON(t, http.MethodPut, srv.URL+"/carts/sess-1/items/SKU1", UpdateQuantityRequestDTO{Quantity: 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &summary)
	assert.Equal(t, 5, summary.Lines[0].Quantity)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/carts/sess-1/items/SKU1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &summary)
	assert.Empty(t, summary.Lines)
}

func TestCartRoutes_ValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/carts/sess-1/items", AddItemRequestDTO{ProductRef: "SKU1", Quantity: 0})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "validation", errResp.Kind)
	assert.Equal(t, "quantity", errResp.Field)

	resp = doJSON(t, http.MethodPost, srv.URL+"/carts/sess-1/items", AddItemRequestDTO{ProductRef: "missing", Quantity: 1})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "not_found", errResp.Kind)
}

func TestCheckoutRoute(t *testing.T) {
	srv, repo := newTestServer(t)

	number := placeOrder(t, srv)

	stored, err := repo.GetOrder(context.Background(), number)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, stored.Status)
}

func TestCheckoutRoute_InsufficientStock(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/carts/sess-1/items", AddItemRequestDTO{ProductRef: "SKU1", Quantity: 49})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, http.MethodPut, srv.URL+"/carts/sess-1/items/SKU1", UpdateQuantityRequestDTO{Quantity: 60})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/checkout", checkout.Request{
		SessionID:     "sess-1",
		CustomerRef:   "cust-1",
		PaymentMethod: "card",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "insufficient_stock", errResp.Kind)
}

func TestOrderRoutes_LifecycleFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	number := placeOrder(t, srv)

	// shipping without a tracking number is rejected
	resp := doJSON(t, http.MethodPost, srv.URL+"/orders/"+number+"/ship", ShipRequestDTO{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/orders/"+number+"/ship", ShipRequestDTO{TrackingNumber: "TRACK-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var shipped order.Order
	decodeBody(t, resp, &shipped)
	assert.Equal(t, order.StatusShipped, shipped.Status)
	assert.Equal(t, "TRACK-1", shipped.TrackingNumber)
	assert.NotNil(t, shipped.ShippedAt)

	// a shipped order cannot be cancelled
	resp = doJSON(t, http.MethodPost, srv.URL+"/orders/"+number+"/cancel", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.Equal(t, "invalid_transition", errResp.Kind)

	resp = doJSON(t, http.MethodPost, srv.URL+"/orders/"+number+"/deliver", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var delivered order.Order
	decodeBody(t, resp, &delivered)
	assert.Equal(t, order.StatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)
}

func TestOrderRoutes_GetAndList(t *testing.T) {
	srv, _ := newTestServer(t)

	number := placeOrder(t, srv)

	resp := doJSON(t, http.MethodGet, srv.URL+"/orders/"+number, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var o order.Order
	decodeBody(t, resp, &o)
	assert.Equal(t, number, o.Number)

	resp = doJSON(t, http.MethodGet, srv.URL+"/orders?customer=cust-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []order.Order
	decodeBody(t, resp, &orders)
	require.Len(t, orders, 1)

	resp = doJSON(t, http.MethodGet, srv.URL+"/orders/"+number+"/payment", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pay order.Payment
	decodeBody(t, resp, &pay)
	assert.Equal(t, payment.PaymentCompleted, pay.Status)

	resp = doJSON(t, http.MethodGet, srv.URL+"/orders/ORD-00000000-0000", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/orders", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestOrderRoutes_Stats(t *testing.T) {
	srv, _ := newTestServer(t)

	placeOrder(t, srv)

	from := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	to := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	resp := doJSON(t, http.MethodGet, srv.URL+"/orders/stats?from="+from+"&to="+to, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats order.Stats
	decodeBody(t, resp, &stats)
	assert.Equal(t, 1, stats.OrderCount)
	assert.True(t, stats.Revenue.Equal(decimal.RequireFromString("37.59")), "revenue %s", stats.Revenue)

	resp = doJSON(t, http.MethodGet, srv.URL+"/orders/stats?from=bogus&to="+to, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCatalogRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/products", ProductDTO{
		Ref:       "SKU9",
		Name:      "Gadget",
		UnitPrice: decimal.RequireFromString("3.50"),
		Stock:     7,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/products/SKU9", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p ProductDTO
	decodeBody(t, resp, &p)
	assert.Equal(t, "Gadget", p.Name)
	assert.Equal(t, 7, p.Stock)

	resp = doJSON(t, http.MethodGet, srv.URL+"/products/SKU404", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/customers", checkout.Customer{Ref: "cust-2", Name: "Grace"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
