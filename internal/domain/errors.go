package domain

import "errors"

var (
	// ErrProductUnavailable: the listing is reserved or sold; re-browse, no retry.
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrReservationConflict: lost the availability swap race to another buyer.
	ErrReservationConflict = errors.New("reservation conflict")
	// ErrReservationExpired: the 10 minute reservation window has passed.
	ErrReservationExpired = errors.New("reservation expired")
	// ErrPaymentWindowExpired: the 24 hour payment deadline has passed.
	ErrPaymentWindowExpired = errors.New("payment window expired")
	// ErrGateway: payment provider failure; retryable via a new initiate call.
	ErrGateway = errors.New("payment gateway error")
	// ErrStoreConflict: a conditional update matched zero rows. The caller
	// re-reads and re-decides; it never blind-retries the same write.
	ErrStoreConflict = errors.New("store conflict")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
