// Package idempotency remembers which order a client-supplied Idempotency-Key produced,
// so a retried submission returns the original order instead of placing a second one.
package idempotency

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInFlight is returned by Reserve while another request holds the key.
	ErrInFlight = errors.New("a request with this idempotency key is still being processed")

	// ErrKeyReused is returned by Reserve when the key was first used with a different request body.
	ErrKeyReused = errors.New("idempotency key was already used with a different request")
)

// PendingTTL bounds how long a reservation survives without Complete or Release, so a
// crash mid-request frees the key quickly. Completed keys live for the store's full TTL.
const PendingTTL = time.Minute

// Store tracks idempotency keys. A key moves from reserved to completed (bound to an order
// id), or is released when the guarded request fails so the client may retry it.
// fingerprint identifies the request body the key was first used with.
type Store interface {
	// Reserve claims key. If the key was already completed for the same fingerprint it
	// returns the recorded order id with replay set; if another request holds it,
	// ErrInFlight; if it was used with another fingerprint, ErrKeyReused.
	Reserve(ctx context.Context, key, fingerprint string) (orderID int, replay bool, err error)
	Complete(ctx context.Context, key, fingerprint string, orderID int) error
	Release(ctx context.Context, key string) error
}

func pendingTTL(ttl time.Duration) time.Duration {
	return min(ttl, PendingTTL)
}
