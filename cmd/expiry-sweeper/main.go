package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/marketplace-checkout/internal/adapters/crdb"
	"github.com/robertarktes/marketplace-checkout/internal/checkout"
	"github.com/robertarktes/marketplace-checkout/internal/config"
	"github.com/robertarktes/marketplace-checkout/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	// The sweeper never talks to the gateway; it only retires orders and
	// releases products.
	svc := checkout.NewService(repo, nil, logger, cfg.Currency,
		checkout.WithTTLs(cfg.ReservationTTL, cfg.PaymentDeadline),
	)
	sweeper := checkout.NewSweeper(svc, logger, cfg.SweepBatch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sweeper.Run(ctx, cfg.SweepInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry sweeper")
}
