package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mongoadapter "github.com/robertarktes/marketplace-checkout/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/marketplace-checkout/internal/adapters/redis"
	"github.com/robertarktes/marketplace-checkout/internal/checkout"
	"github.com/robertarktes/marketplace-checkout/internal/config"
	"github.com/robertarktes/marketplace-checkout/internal/domain"
	"github.com/robertarktes/marketplace-checkout/internal/idempotency"
)

type Handlers struct {
	cfg     *config.Config
	svc     *checkout.Service
	redis   *redisadapter.Cache
	idemp   *idempotency.Idempotency
	catalog *mongoadapter.CatalogRepository
	audit   *mongoadapter.AuditLogger
}

func NewHandlers(cfg *config.Config, svc *checkout.Service, redis *redisadapter.Cache, idemp *idempotency.Idempotency, catalog *mongoadapter.CatalogRepository, audit *mongoadapter.AuditLogger) *Handlers {
	return &Handlers{
		cfg:     cfg,
		svc:     svc,
		redis:   redis,
		idemp:   idemp,
		catalog: catalog,
		audit:   audit,
	}
}

func (h *Handlers) Reserve(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		ProductID uuid.UUID `json:"product_id"`
		BuyerID   uuid.UUID `json:"buyer_id"`
		TestMode  bool      `json:"test_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.svc.Reserve(r.Context(), req.ProductID, req.BuyerID, req.TestMode)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	h.redis.SetAvailabilityHint(r.Context(), order.ProductID.String(), string(domain.AvailabilityReserved), h.cfg.ReservationTTL)
	h.audit.LogTransition(r.Context(), *order, "order.reserved")

	data, _ := json.Marshal(orderJSON(order))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}

	var req struct {
		ShippingAddress string `json:"shipping_address"`
		PaymentMethod   string `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.svc.Confirm(r.Context(), orderID, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	h.audit.LogTransition(r.Context(), *order, "order.confirmed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orderJSON(order))
}

func (h *Handlers) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}

	att, err := h.svc.InitiatePayment(r.Context(), orderID)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	resp := map[string]interface{}{
		"intent_id":     att.GatewayIntentID,
		"client_secret": att.ClientSecret,
		"amount":        att.Amount,
		"currency":      att.Currency,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}

	var req struct {
		BuyerID uuid.UUID `json:"buyer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.svc.Cancel(r.Context(), orderID, req.BuyerID)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	h.redis.SetAvailabilityHint(r.Context(), order.ProductID.String(), string(domain.AvailabilityAvailable), h.cfg.ReservationTTL)
	h.audit.LogTransition(r.Context(), *order, "order.cancelled")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orderJSON(order))
}

func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IntentID string `json:"intent_id"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.svc.SettleByIntent(r.Context(), req.IntentID, req.Status == "SUCCEEDED")
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	if order.Status == domain.OrderPaymentSucceeded {
		h.catalog.UpdateListingAvailability(r.Context(), order.ProductID, "sold")
		h.redis.SetAvailabilityHint(r.Context(), order.ProductID.String(), string(domain.AvailabilitySold), 0)
	}
	h.audit.LogTransition(r.Context(), *order, "payment.settled")

	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orderJSON(order))
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handlers) writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrProductUnavailable):
		http.Error(w, "product unavailable", http.StatusConflict)
	case errors.Is(err, domain.ErrReservationConflict):
		http.Error(w, "reserved by another buyer, refresh and retry", http.StatusConflict)
	case errors.Is(err, domain.ErrReservationExpired):
		http.Error(w, "reservation expired, start over", http.StatusGone)
	case errors.Is(err, domain.ErrPaymentWindowExpired):
		http.Error(w, "payment window expired, start over", http.StatusGone)
	case errors.Is(err, domain.ErrStoreConflict):
		http.Error(w, "conflict, refresh and retry", http.StatusConflict)
	case errors.Is(err, domain.ErrGateway):
		http.Error(w, "payment gateway unavailable, retry", http.StatusBadGateway)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func orderJSON(order *domain.Order) map[string]interface{} {
	resp := map[string]interface{}{
		"order_id":   order.ID,
		"product_id": order.ProductID,
		"buyer_id":   order.BuyerID,
		"status":     order.Status,
		"currency":   order.Currency,
		"pricing": map[string]float64{
			"product_price":  order.Pricing.ProductPrice,
			"delivery_price": order.Pricing.DeliveryPrice,
			"discount_value": order.Pricing.DiscountValue,
			"service_fee":    order.Pricing.ServiceFee,
			"total_amount":   order.Pricing.TotalAmount,
		},
	}
	if order.Status == domain.OrderReserved {
		resp["reservation_expires_at"] = order.ReservationExpiresAt.Format(time.RFC3339)
	}
	if !order.PaymentDeadline.IsZero() {
		resp["payment_deadline"] = order.PaymentDeadline.Format(time.RFC3339)
	}
	if order.PaymentIntentID != "" {
		resp["payment_intent_id"] = order.PaymentIntentID
		resp["payment_status"] = order.PaymentStatus
	}
	return resp
}
