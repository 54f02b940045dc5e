package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/knowledge-engine/bookmarks/internal/retry"
)

func TestPolicy_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := retry.Policy{Attempts: 2}.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := retry.Policy{Attempts: 1}.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("connection reset")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPolicy_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := retry.Policy{Attempts: 1}.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestPolicy_StopsOnPermanent(t *testing.T) {
	calls := 0
	notFound := errors.New("not found")
	err := retry.Policy{Attempts: 3}.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return retry.Permanent(notFound)
	})
	assert.Equal(t, notFound, err)
	assert.False(t, retry.IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestPolicy_NegativeAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := retry.Policy{Attempts: -1}.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestPolicy_AppliesTimeoutPerAttempt(t *testing.T) {
	err := retry.Policy{Timeout: 20 * time.Millisecond}.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPolicy_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retry.Policy{Attempts: 3, Backoff: time.Millisecond}.Do(ctx, func(ctx context.Context) error {
		calls++
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, retry.Permanent(nil))
}
