package checkout_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/marketplace-checkout/internal/checkout"
	"github.com/robertarktes/marketplace-checkout/internal/domain"
	"github.com/robertarktes/marketplace-checkout/internal/gateway"
	"github.com/robertarktes/marketplace-checkout/internal/observability"
)

// memStore mimics the ledger's conditional-update contract in memory: every
// guarded write checks its precondition under one lock and reports
// ErrStoreConflict when it no longer holds.
type memStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]domain.Product
	orders   map[uuid.UUID]domain.Order
	attempts []domain.PaymentAttempt

	failCreateOrder  bool
	failTransitionID uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[uuid.UUID]domain.Product),
		orders:   make(map[uuid.UUID]domain.Order),
	}
}

func (m *memStore) addProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *memStore) product(id uuid.UUID) domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

func (m *memStore) order(id uuid.UUID) domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) GetProduct(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) SwapAvailability(_ context.Context, id uuid.UUID, from, to domain.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.Availability != from {
		return domain.ErrStoreConflict
	}
	p.Availability = to
	m.products[id] = p
	return nil
}

func (m *memStore) CreateOrder(_ context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateOrder {
		return fmt.Errorf("store down")
	}
	m.orders[order.ID] = order
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (m *memStore) FindActiveOrder(_ context.Context, productID, buyerID uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *domain.Order
	for _, o := range m.orders {
		o := o
		if o.ProductID != productID || o.BuyerID != buyerID {
			continue
		}
		for _, s := range domain.ActiveStatuses {
			if o.Status == s && (found == nil || o.CreatedAt.After(found.CreatedAt)) {
				found = &o
			}
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

func (m *memStore) TransitionOrder(_ context.Context, order domain.Order, from domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == m.failTransitionID {
		return fmt.Errorf("store down")
	}
	current, ok := m.orders[order.ID]
	if !ok || current.Status != from {
		return domain.ErrStoreConflict
	}
	m.orders[order.ID] = order
	return nil
}

func (m *memStore) ListExpiredOrders(_ context.Context, now time.Time, limit int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		switch o.Status {
		case domain.OrderReserved:
			if o.ReservationExpiresAt.Before(now) || o.ReservationExpiresAt.Equal(now) {
				out = append(out, o)
			}
		case domain.OrderConfirmed, domain.OrderPendingPayment, domain.OrderPaymentFailed:
			if o.PaymentDeadline.Before(now) || o.PaymentDeadline.Equal(now) {
				out = append(out, o)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) HasHoldingOrder(_ context.Context, productID, exclude uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ProductID != productID || o.ID == exclude {
			continue
		}
		for _, s := range domain.HoldingStatuses {
			if o.Status == s {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memStore) CreatePaymentAttempt(_ context.Context, att domain.PaymentAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, att)
	return nil
}

func (m *memStore) PendingPaymentAttempt(_ context.Context, orderID uuid.UUID) (*domain.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.attempts) - 1; i >= 0; i-- {
		if m.attempts[i].OrderID == orderID && m.attempts[i].Status == domain.PaymentPending {
			att := m.attempts[i]
			return &att, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) PaymentAttemptByIntent(_ context.Context, intentID string) (*domain.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, att := range m.attempts {
		if att.GatewayIntentID == intentID {
			att := att
			return &att, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) SettlePaymentAttempt(_ context.Context, intentID string, status domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.attempts {
		if m.attempts[i].GatewayIntentID == intentID && m.attempts[i].Status == domain.PaymentPending {
			m.attempts[i].Status = status
			return nil
		}
	}
	return domain.ErrStoreConflict
}

type fakeGateway struct {
	mu     sync.Mutex
	opened int
	err    error
}

func (g *fakeGateway) OpenIntent(_ context.Context, amount float64, currency, method string) (gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return gateway.Intent{}, g.err
	}
	g.opened++
	return gateway.Intent{
		ID:           fmt.Sprintf("pi_%04d", g.opened),
		ClientSecret: fmt.Sprintf("secret_%04d", g.opened),
	}, nil
}

func (g *fakeGateway) openCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opened
}

// fakeClock lets tests cross the reservation and payment deadlines without
// sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(store *memStore, gw *fakeGateway, clk *fakeClock) *checkout.Service {
	return checkout.NewService(store, gw, observability.NewLogger(), "USD",
		checkout.WithClock(clk.Now),
	)
}

func availableProduct(price, delivery float64) domain.Product {
	return domain.Product{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Price:         price,
		DeliveryPrice: delivery,
		Availability:  domain.AvailabilityAvailable,
	}
}
