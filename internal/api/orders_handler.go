package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EndoRodrigo/eCommerce/internal/order"
)

type OrdersHandler struct {
	repo      order.Repository
	lifecycle *order.Lifecycle
}

func NewOrdersHandler(repo order.Repository, lifecycle *order.Lifecycle) *OrdersHandler {
	return &OrdersHandler{repo: repo, lifecycle: lifecycle}
}

type ShipRequestDTO struct {
	TrackingNumber string `json:"tracking_number"`
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	o, err := h.repo.GetOrder(r.Context(), number)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// ListOrders filters by customer, status or a created-at date range.
// Exactly one filter is applied, in that order of precedence.
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case q.Get("customer") != "":
		orders, err := h.repo.ListByCustomer(r.Context(), q.Get("customer"))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, orders)
	case q.Get("status") != "":
		orders, err := h.repo.ListByStatus(r.Context(), order.Status(q.Get("status")))
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, orders)
	case q.Get("from") != "" && q.Get("to") != "":
		from, err := time.Parse(time.RFC3339, q.Get("from"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation", "from", "from must be RFC3339")
			return
		}
		to, err := time.Parse(time.RFC3339, q.Get("to"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation", "to", "to must be RFC3339")
			return
		}
		orders, err := h.repo.ListByDateRange(r.Context(), from, to)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, orders)
	default:
		respondError(w, http.StatusBadRequest, "validation", "", "one of customer, status or from/to is required")
	}
}

// Stats aggregates sales over a created-at range.
func (h *OrdersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "from", "from must be RFC3339")
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation", "to", "to must be RFC3339")
		return
	}

	stats, err := order.ComputeStats(r.Context(), h.repo, from, to)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *OrdersHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	p, err := h.repo.GetPayment(r.Context(), number)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *OrdersHandler) Process(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	o, err := h.lifecycle.MarkProcessing(r.Context(), number)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) Ship(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	var req ShipRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "validation", "", "invalid JSON body")
		return
	}

	o, err := h.lifecycle.Ship(r.Context(), number, req.TrackingNumber)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	o, err := h.lifecycle.Deliver(r.Context(), number)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	o, err := h.lifecycle.Cancel(r.Context(), number)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
