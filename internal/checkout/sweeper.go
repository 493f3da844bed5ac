package checkout

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robertarktes/marketplace-checkout/internal/expiry"
	"github.com/robertarktes/marketplace-checkout/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Sweeper is the only party trusted to release products nobody is actively
// polling. Deadlines are advisory until it (or an eager check inside a user
// operation) enforces them.
type Sweeper struct {
	service *Service
	logger  observability.Logger
	batch   int
}

func NewSweeper(service *Service, logger observability.Logger, batch int) *Sweeper {
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{service: service, logger: logger, batch: batch}
}

// Sweep expires every order whose applicable deadline has passed and returns
// how many it retired. Safe to run concurrently with itself and with live
// user actions: each write is conditioned on the status that triggered the
// expiry decision, so a late sweep on an order the user just advanced is a
// no-op. One order's failure never aborts the rest of the batch.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	orders, err := s.service.store.ListExpiredOrders(ctx, now, s.batch)
	if err != nil {
		return 0, err
	}

	var released atomic.Int64
	g := &errgroup.Group{}
	g.SetLimit(8)
	for _, order := range orders {
		order := order
		g.Go(func() error {
			if !expiry.Expired(order, now) {
				return nil
			}
			retired, err := s.service.expireAndRelease(ctx, order)
			if err != nil {
				s.logger.WithField("order_id", order.ID.String()).WithError(err).Error("sweep failed for order")
				return nil
			}
			if retired {
				released.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	observability.SweepDuration.Observe(time.Since(start).Seconds())
	return int(released.Load()), nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			count, err := s.Sweep(ctx, now)
			if err != nil {
				s.logger.Error("sweep failed: ", err)
				continue
			}
			if count > 0 {
				s.logger.WithField("released", count).Info("sweep released expired orders")
			}
		}
	}
}
