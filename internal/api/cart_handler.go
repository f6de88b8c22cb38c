package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EndoRodrigo/eCommerce/internal/checkout"
)

type CartHandler struct {
	service *checkout.Service
}

func NewCartHandler(service *checkout.Service) *CartHandler {
	return &CartHandler{service: service}
}

type AddItemRequestDTO struct {
	ProductRef string `json:"product_ref"`
	Quantity   int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation", "", "invalid JSON body")
		return
	}
	if req.ProductRef == "" {
		respondError(w, http.StatusBadRequest, "validation", "product_ref", "product_ref is required")
		return
	}

	if err := h.service.AddItem(r.Context(), sessionID, req.ProductRef, req.Quantity); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.service.CartSummary(r.Context(), sessionID))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	productRef := chi.URLParam(r, "productRef")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation", "", "invalid JSON body")
		return
	}

	if err := h.service.SetQuantity(r.Context(), sessionID, productRef, req.Quantity); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.service.CartSummary(r.Context(), sessionID))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	productRef := chi.URLParam(r, "productRef")

	if err := h.service.RemoveItem(r.Context(), sessionID, productRef); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.service.CartSummary(r.Context(), sessionID))
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	respondJSON(w, http.StatusOK, h.service.CartSummary(r.Context(), sessionID))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	h.service.ClearCart(r.Context(), sessionID)
	w.WriteHeader(http.StatusNoContent)
}
