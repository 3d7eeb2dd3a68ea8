package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go-referral/payment/db"
)

const (
	CreatePath = "/api/payment/order/create"
	StatusPath = "/api/payment/order/status"
)

type payHandler struct {
	svc *Service
}

func RegisterHandlers(mux *http.ServeMux, svc *Service) {
	handler := &payHandler{svc: svc}
	mux.Handle(CreatePath, handler)
	mux.Handle(StatusPath, handler)
}

func (ph *payHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		switch r.URL.Path {
		case StatusPath:
			ph.handleGetOrderStatus(w, r)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodPost:
		switch r.URL.Path {
		case CreatePath:
			ph.handleCreateOrder(w, r)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (ph *payHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := strconv.ParseInt(q.Get("amount"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	order, err := ph.svc.CreateOrder(r.Context(), q.Get("id"), amount, q.Get("method"), q.Get("upi_handle"))
	switch {
	case errors.Is(err, ErrMissingID), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidMethod), errors.Is(err, ErrMissingUPI):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		ph.svc.logger.WithError(err).Error("create order")
		writeError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	ph.svc.logger.WithField("order_id", order.ID).WithField("status", order.Status).Info("order created")
	writeJSON(w, http.StatusOK, order)
}

func (ph *payHandler) handleGetOrderStatus(w http.ResponseWriter, r *http.Request) {
	order, err := ph.svc.GetOrder(r.Context(), r.URL.Query().Get("id"))
	switch {
	case errors.Is(err, ErrMissingID):
		writeError(w, http.StatusBadRequest, "Missing order ID")
		return
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}
