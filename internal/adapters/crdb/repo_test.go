package crdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/marketplace-checkout/internal/adapters/crdb"
	"github.com/robertarktes/marketplace-checkout/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
	CREATE DATABASE IF NOT EXISTS mkt;
	CREATE TABLE IF NOT EXISTS mkt.products (
		id UUID PRIMARY KEY,
		seller_id UUID,
		price NUMERIC,
		test_price NUMERIC,
		delivery_price NUMERIC,
		availability TEXT CHECK (availability IN ('AVAILABLE', 'RESERVED', 'SOLD'))
	);
	CREATE TABLE IF NOT EXISTS mkt.orders (
		id UUID PRIMARY KEY,
		product_id UUID,
		buyer_id UUID,
		seller_id UUID,
		status TEXT CHECK (status IN ('RESERVED', 'CONFIRMED', 'PENDING_PAYMENT', 'PAYMENT_SUCCEEDED', 'PAYMENT_FAILED', 'EXPIRED', 'CANCELLED')),
		product_price NUMERIC,
		delivery_price NUMERIC,
		discount_value NUMERIC,
		service_fee NUMERIC,
		total_amount NUMERIC,
		currency TEXT,
		reservation_expires_at TIMESTAMPTZ,
		payment_deadline TIMESTAMPTZ,
		shipping_address TEXT,
		payment_method TEXT,
		payment_intent_id TEXT,
		payment_status TEXT,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS mkt.payment_attempts (
		order_id UUID,
		gateway_intent_id TEXT PRIMARY KEY,
		client_secret TEXT,
		amount NUMERIC,
		currency TEXT,
		status TEXT CHECK (status IN ('PENDING', 'SUCCEEDED', 'FAILED')),
		method TEXT,
		created_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS mkt.outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT,
		aggregate_id UUID,
		event_type TEXT,
		payload_json BYTES,
		created_at TIMESTAMPTZ DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT,
		dedupe_key TEXT UNIQUE
	);
`

func setupRepo(t *testing.T) (*crdb.Repository, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/mkt?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}

	return crdb.NewRepository(pool), pool
}

func insertProduct(t *testing.T, pool *pgxpool.Pool, p domain.Product) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, seller_id, price, test_price, delivery_price, availability)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.SellerID, p.Price, p.TestPrice, p.DeliveryPrice, p.Availability)
	if err != nil {
		t.Fatal(err)
	}
}

func TestRepository_SwapAvailability(t *testing.T) {
	ctx := context.Background()
	repo, pool := setupRepo(t)

	product := domain.Product{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		Price:        100,
		Availability: domain.AvailabilityAvailable,
	}
	insertProduct(t, pool, product)

	err := repo.SwapAvailability(ctx, product.ID, domain.AvailabilityAvailable, domain.AvailabilityReserved)
	if err != nil {
		t.Fatalf("expected swap to win, got %v", err)
	}

	// The same swap again must lose: the precondition no longer holds.
	err = repo.SwapAvailability(ctx, product.ID, domain.AvailabilityAvailable, domain.AvailabilityReserved)
	if !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("expected ErrStoreConflict, got %v", err)
	}

	fetched, err := repo.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Availability != domain.AvailabilityReserved {
		t.Errorf("expected RESERVED, got %s", fetched.Availability)
	}
}

func TestRepository_OrderLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, pool := setupRepo(t)

	product := domain.Product{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Price:         100,
		DeliveryPrice: 16,
		Availability:  domain.AvailabilityReserved,
	}
	insertProduct(t, pool, product)

	now := time.Now().UTC().Truncate(time.Microsecond)
	order := domain.NewOrder(product, uuid.New(), domain.NewPricing(100, 16, 0), "USD", now, 10*time.Minute)
	if err := repo.CreateOrder(ctx, order); err != nil {
		t.Fatal(err)
	}

	active, err := repo.FindActiveOrder(ctx, product.ID, order.BuyerID)
	if err != nil {
		t.Fatal(err)
	}
	if active.ID != order.ID {
		t.Errorf("expected active order %s, got %s", order.ID, active.ID)
	}
	if active.Pricing.TotalAmount != 117.74 {
		t.Errorf("expected total 117.74, got %v", active.Pricing.TotalAmount)
	}

	confirmed := *active
	confirmed.Status = domain.OrderConfirmed
	confirmed.PaymentDeadline = now.Add(24 * time.Hour)
	confirmed.ShippingAddress = "1 Main St"
	confirmed.PaymentMethod = "card"
	confirmed.UpdatedAt = now
	if err := repo.TransitionOrder(ctx, confirmed, domain.OrderReserved); err != nil {
		t.Fatal(err)
	}

	// A stale transition conditioned on the old status must conflict.
	if err := repo.TransitionOrder(ctx, confirmed, domain.OrderReserved); !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("expected ErrStoreConflict on stale transition, got %v", err)
	}

	// Every transition leaves an outbox row behind in the same transaction.
	records, err := repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 outbox rows, got %d", len(records))
	}
	if records[0].EventType != "order.reserved" || records[1].EventType != "order.confirmed" {
		t.Errorf("unexpected outbox events: %s, %s", records[0].EventType, records[1].EventType)
	}
}

func TestRepository_ListExpiredOrders(t *testing.T) {
	ctx := context.Background()
	repo, pool := setupRepo(t)

	product := domain.Product{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		Price:        50,
		Availability: domain.AvailabilityReserved,
	}
	insertProduct(t, pool, product)

	now := time.Now().UTC().Truncate(time.Microsecond)
	stale := domain.NewOrder(product, uuid.New(), domain.NewPricing(50, 0, 0), "USD", now.Add(-20*time.Minute), 10*time.Minute)
	if err := repo.CreateOrder(ctx, stale); err != nil {
		t.Fatal(err)
	}
	live := domain.NewOrder(product, uuid.New(), domain.NewPricing(50, 0, 0), "USD", now, 10*time.Minute)
	if err := repo.CreateOrder(ctx, live); err != nil {
		t.Fatal(err)
	}

	expired, err := repo.ListExpiredOrders(ctx, now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 || expired[0].ID != stale.ID {
		t.Fatalf("expected only the stale order, got %d", len(expired))
	}

	held, err := repo.HasHoldingOrder(ctx, product.ID, stale.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !held {
		t.Error("live order should count as holding the product")
	}
}

func TestRepository_PaymentAttempts(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	orderID := uuid.New()
	att := domain.PaymentAttempt{
		OrderID:         orderID,
		GatewayIntentID: "pi_1",
		ClientSecret:    "secret_1",
		Amount:          117.74,
		Currency:        "USD",
		Status:          domain.PaymentPending,
		Method:          "card",
		CreatedAt:       time.Now().UTC(),
	}
	if err := repo.CreatePaymentAttempt(ctx, att); err != nil {
		t.Fatal(err)
	}

	pending, err := repo.PendingPaymentAttempt(ctx, orderID)
	if err != nil {
		t.Fatal(err)
	}
	if pending.GatewayIntentID != "pi_1" {
		t.Errorf("expected pi_1, got %s", pending.GatewayIntentID)
	}

	if err := repo.SettlePaymentAttempt(ctx, "pi_1", domain.PaymentFailed); err != nil {
		t.Fatal(err)
	}
	// Settling twice must conflict, and the pending lookup comes up empty.
	if err := repo.SettlePaymentAttempt(ctx, "pi_1", domain.PaymentSucceeded); !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("expected ErrStoreConflict, got %v", err)
	}
	if _, err := repo.PendingPaymentAttempt(ctx, orderID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
