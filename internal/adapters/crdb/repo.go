package crdb

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/marketplace-checkout/internal/domain"
)

const (
	SerializationFailureCode = "40001"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrStoreConflict
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, seller_id, price, test_price, delivery_price, availability
		FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.SellerID, &p.Price, &p.TestPrice, &p.DeliveryPrice, &p.Availability)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SwapAvailability is the serialization point for product ownership: a single
// conditional update that only applies while the field still holds `from`.
// Zero rows changed means another writer got there first.
func (r *Repository) SwapAvailability(ctx context.Context, id uuid.UUID, from, to domain.Availability) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE products SET availability = $3 WHERE id = $1 AND availability = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrStoreConflict
	}
	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order domain.Order) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (
				id, product_id, buyer_id, seller_id, status,
				product_price, delivery_price, discount_value, service_fee, total_amount, currency,
				reservation_expires_at, payment_deadline,
				shipping_address, payment_method, payment_intent_id, payment_status,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`, order.ID, order.ProductID, order.BuyerID, order.SellerID, order.Status,
			order.Pricing.ProductPrice, order.Pricing.DeliveryPrice, order.Pricing.DiscountValue,
			order.Pricing.ServiceFee, order.Pricing.TotalAmount, order.Currency,
			order.ReservationExpiresAt, nullableTime(order.PaymentDeadline),
			order.ShippingAddress, order.PaymentMethod, order.PaymentIntentID, nullableStatus(order.PaymentStatus),
			order.CreatedAt, order.UpdatedAt)
		if err != nil {
			return err
		}
		return insertOutbox(ctx, tx, order)
	})
}

// TransitionOrder persists the order's current state conditioned on the status
// it is transitioning from. Zero rows changed means someone else advanced the
// order first; the caller must re-read and re-decide.
func (r *Repository) TransitionOrder(ctx context.Context, order domain.Order, from domain.OrderStatus) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE orders SET
				status = $3, payment_deadline = $4,
				shipping_address = $5, payment_method = $6,
				payment_intent_id = $7, payment_status = $8,
				updated_at = $9
			WHERE id = $1 AND status = $2
		`, order.ID, from, order.Status, nullableTime(order.PaymentDeadline),
			order.ShippingAddress, order.PaymentMethod,
			order.PaymentIntentID, nullableStatus(order.PaymentStatus), order.UpdatedAt)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return domain.ErrStoreConflict
		}
		return insertOutbox(ctx, tx, order)
	})
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, selectOrder+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return order, err
}

// FindActiveOrder is the single idempotency lookup: the newest order still
// advancing through checkout for this (product, buyer) pair.
func (r *Repository) FindActiveOrder(ctx context.Context, productID, buyerID uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, selectOrder+`
		WHERE product_id = $1 AND buyer_id = $2 AND status = ANY($3)
		ORDER BY created_at DESC LIMIT 1
	`, productID, buyerID, statusStrings(domain.ActiveStatuses)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return order, err
}

// ListExpiredOrders returns orders whose applicable deadline has passed, for
// the sweeper. The same predicate the expiry policy applies in Go, expressed
// over the two deadline columns.
func (r *Repository) ListExpiredOrders(ctx context.Context, now time.Time, limit int) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+`
		WHERE (status = 'RESERVED' AND reservation_expires_at <= $1)
		   OR (status IN ('CONFIRMED', 'PENDING_PAYMENT', 'PAYMENT_FAILED') AND payment_deadline <= $1)
		ORDER BY created_at ASC LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// HasHoldingOrder reports whether any order other than `exclude` still holds
// the product. Guards the sweeper's restore against a reservation created
// between its read and its write.
func (r *Repository) HasHoldingOrder(ctx context.Context, productID, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE product_id = $1 AND id != $2 AND status = ANY($3)
		)
	`, productID, exclude, statusStrings(domain.HoldingStatuses)).Scan(&exists)
	return exists, err
}

func (r *Repository) CreatePaymentAttempt(ctx context.Context, att domain.PaymentAttempt) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payment_attempts (order_id, gateway_intent_id, client_secret, amount, currency, status, method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, att.OrderID, att.GatewayIntentID, att.ClientSecret, att.Amount, att.Currency, att.Status, att.Method, att.CreatedAt)
	return err
}

func (r *Repository) PendingPaymentAttempt(ctx context.Context, orderID uuid.UUID) (*domain.PaymentAttempt, error) {
	att, err := scanAttempt(r.pool.QueryRow(ctx, selectAttempt+`
		WHERE order_id = $1 AND status = 'PENDING'
		ORDER BY created_at DESC LIMIT 1
	`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return att, err
}

func (r *Repository) PaymentAttemptByIntent(ctx context.Context, intentID string) (*domain.PaymentAttempt, error) {
	att, err := scanAttempt(r.pool.QueryRow(ctx, selectAttempt+`
		WHERE gateway_intent_id = $1
	`, intentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return att, err
}

// SettlePaymentAttempt moves a PENDING attempt to its terminal status; settling
// an already settled attempt is a conflict, not a second settlement.
func (r *Repository) SettlePaymentAttempt(ctx context.Context, intentID string, status domain.PaymentStatus) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE payment_attempts SET status = $2 WHERE gateway_intent_id = $1 AND status = 'PENDING'
	`, intentID, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrStoreConflict
	}
	return nil
}

const selectOrder = `
	SELECT id, product_id, buyer_id, seller_id, status,
		product_price, delivery_price, discount_value, service_fee, total_amount, currency,
		reservation_expires_at, payment_deadline,
		shipping_address, payment_method, payment_intent_id, payment_status,
		created_at, updated_at
	FROM orders`

const selectAttempt = `
	SELECT order_id, gateway_intent_id, client_secret, amount, currency, status, method, created_at
	FROM payment_attempts`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var paymentDeadline *time.Time
	var paymentStatus *string
	err := row.Scan(&o.ID, &o.ProductID, &o.BuyerID, &o.SellerID, &o.Status,
		&o.Pricing.ProductPrice, &o.Pricing.DeliveryPrice, &o.Pricing.DiscountValue,
		&o.Pricing.ServiceFee, &o.Pricing.TotalAmount, &o.Currency,
		&o.ReservationExpiresAt, &paymentDeadline,
		&o.ShippingAddress, &o.PaymentMethod, &o.PaymentIntentID, &paymentStatus,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paymentDeadline != nil {
		o.PaymentDeadline = *paymentDeadline
	}
	if paymentStatus != nil {
		o.PaymentStatus = domain.PaymentStatus(*paymentStatus)
	}
	return &o, nil
}

func scanAttempt(row pgx.Row) (*domain.PaymentAttempt, error) {
	var a domain.PaymentAttempt
	err := row.Scan(&a.OrderID, &a.GatewayIntentID, &a.ClientSecret, &a.Amount, &a.Currency, &a.Status, &a.Method, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullableStatus(s domain.PaymentStatus) *string {
	if s == "" {
		return nil
	}
	v := string(s)
	return &v
}

func statusStrings(statuses []domain.OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func insertOutbox(ctx context.Context, tx pgx.Tx, order domain.Order) error {
	payload, err := json.Marshal(map[string]interface{}{
		"order_id":   order.ID,
		"product_id": order.ProductID,
		"buyer_id":   order.BuyerID,
		"status":     order.Status,
		"total":      order.Pricing.TotalAmount,
	})
	if err != nil {
		return err
	}
	rec := OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     "order." + strings.ToLower(string(order.Status)),
		Payload:       payload,
		DedupeKey:     order.ID.String() + ":" + string(order.Status),
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
		ON CONFLICT (dedupe_key) DO NOTHING
	`, rec.ID, rec.AggregateType, rec.AggregateID, rec.EventType, rec.Payload, rec.DedupeKey)
	return err
}
