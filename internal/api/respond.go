package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/EndoRodrigo/eCommerce/internal/cart"
	"github.com/EndoRodrigo/eCommerce/internal/checkout"
	"github.com/EndoRodrigo/eCommerce/internal/inventory"
	"github.com/EndoRodrigo/eCommerce/internal/order"
	"github.com/EndoRodrigo/eCommerce/internal/payment"
)

// ErrorResponse is the wire shape of every failed request.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, kind, field, message string) {
	respondJSON(w, status, ErrorResponse{Kind: kind, Field: field, Message: message})
}

// respondDomainError maps a domain error onto the HTTP error contract.
func respondDomainError(w http.ResponseWriter, err error) {
	var validation cart.ValidationError
	var stock inventory.InsufficientStockError
	var transition order.InvalidTransitionError
	var declined payment.DeclinedError
	var gateway payment.GatewayError

	switch {
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, "validation", validation.Field, validation.Message)
	case errors.As(err, &stock):
		respondError(w, http.StatusConflict, "insufficient_stock", "", stock.Error())
	case errors.As(err, &transition):
		respondError(w, http.StatusConflict, "invalid_transition", "", transition.Error())
	case errors.As(err, &declined):
		respondError(w, http.StatusPaymentRequired, "payment_declined", "", declined.Error())
	case errors.As(err, &gateway):
		respondError(w, http.StatusBadGateway, "payment_gateway", "", gateway.Error())
	case errors.Is(err, inventory.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", "", "product not found")
	case errors.Is(err, checkout.ErrCustomerNotFound):
		respondError(w, http.StatusNotFound, "not_found", "", "customer not found")
	case errors.Is(err, order.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "", "order not found")
	case errors.Is(err, order.ErrTrackingNumberRequired):
		respondError(w, http.StatusBadRequest, "validation", "trackingNumber", "tracking number is required")
	default:
		log.Printf("api: internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal", "", "internal error")
	}
}
