package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/EndoRodrigo/eCommerce/internal/checkout"
	"github.com/EndoRodrigo/eCommerce/internal/inventory"
)

// CatalogWriter is the mutable side of the product catalog.
type CatalogWriter interface {
	inventory.Catalog
	SetProduct(p inventory.Product)
}

// CustomerWriter is the mutable side of the customer directory.
type CustomerWriter interface {
	checkout.CustomerDirectory
	SetCustomer(c checkout.Customer)
}

type CatalogHandler struct {
	catalog   CatalogWriter
	customers CustomerWriter
}

func NewCatalogHandler(catalog CatalogWriter, customers CustomerWriter) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, customers: customers}
}

type ProductDTO struct {
	Ref              string          `json:"ref"`
	Name             string          `json:"name"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Stock            int             `json:"stock"`
	ReorderThreshold int             `json:"reorder_threshold"`
}

func (h *CatalogHandler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation", "", "invalid JSON body")
		return
	}
	if req.Ref == "" {
		respondError(w, http.StatusBadRequest, "validation", "ref", "ref is required")
		return
	}
	if req.UnitPrice.IsNegative() || req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "validation", "unit_price", "price and stock must not be negative")
		return
	}

	h.catalog.SetProduct(inventory.Product{
		Ref:              req.Ref,
		Name:             req.Name,
		UnitPrice:        req.UnitPrice,
		Stock:            req.Stock,
		ReorderThreshold: req.ReorderThreshold,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	p, err := h.catalog.FindProduct(r.Context(), ref)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) UpsertCustomer(w http.ResponseWriter, r *http.Request) {
	var req checkout.Customer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation", "", "invalid JSON body")
		return
	}
	if req.Ref == "" {
		respondError(w, http.StatusBadRequest, "validation", "ref", "ref is required")
		return
	}

	h.customers.SetCustomer(req)
	w.WriteHeader(http.StatusNoContent)
}
