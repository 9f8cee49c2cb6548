package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	elefanteerr "github.com/elefante-ai/elefante/internal/errors"
)

func TestCall_SucceedsOnFirstAttempt(t *testing.T) {
	b := NewStoreBreaker("semantic_store")
	calls := 0
	err := b.Call(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCall_RetriesOnceThenSucceeds(t *testing.T) {
	b := NewStoreBreaker("structured_store")
	calls := 0
	err := b.Call(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient failure")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCall_SurfacesStoreUnavailableAfterRetryFails(t *testing.T) {
	b := NewStoreBreaker("semantic_store")
	calls := 0
	err := b.Call(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("store down")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, elefanteerr.IsStoreUnavailable(err))
}

func TestCall_TripsAfterFiveConsecutiveFailures(t *testing.T) {
	b := NewStoreBreaker("semantic_store")
	alwaysFails := func(ctx context.Context) error { return errors.New("down") }

	for i := 0; i < 5; i++ {
		_ = b.Call(context.Background(), alwaysFails)
	}

	err := b.Call(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn must not be invoked while the breaker is open")
		return nil
	})
	require.Error(t, err)
	assert.True(t, elefanteerr.IsStoreUnavailable(err))
}
