// Package resilience wraps store-adapter calls behind a
// github.com/sony/gobreaker circuit breaker that retries once, then
// surfaces STORE_UNAVAILABLE naming the affected store. The write
// coordinator's store calls and the retrieval engine's k-NN scan go through
// it; other store calls (the engine's row fetches and access-tracking
// writes, the facade's scans) are made directly, without retry.
package resilience

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	elefanteerr "github.com/elefante-ai/elefante/internal/errors"
)

// StoreBreaker guards calls into one named store adapter (semantic store,
// structured store, or the embedding provider).
type StoreBreaker struct {
	name    string
	breaker *gobreaker.CircuitBreaker
}

// NewStoreBreaker builds a breaker that opens after 5 consecutive failures
// and probes again after 10s, matching a local-first single-process
// adapter's failure profile (a held lock file or a missing mount point,
// not a flaky network call).
func NewStoreBreaker(name string) *StoreBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &StoreBreaker{name: name, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Call executes fn through the breaker. On failure it retries fn exactly
// once before surfacing a StoreUnavailable error naming this store.
func (b *StoreBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		if err := fn(ctx); err != nil {
			if retryErr := fn(ctx); retryErr != nil {
				return nil, retryErr
			}
		}
		return nil, nil
	})
	if err != nil {
		return elefanteerr.NewStoreUnavailable(b.name, err)
	}
	return nil
}
