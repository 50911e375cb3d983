package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/praisehq/praise/internal/platform/httpx"
)

func newTestLocker(t *testing.T) (*PeriodLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPeriodLocker(client, time.Minute), mr
}

func TestPeriodLockerExcludesSecondHolder(t *testing.T) {
	locker, _ := newTestLocker(t)
	periodID := uuid.New()

	release, err := locker.Acquire(context.Background(), periodID)
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), periodID)
	require.Error(t, err)
	require.True(t, errors.Is(err, httpx.ErrConflict))

	release()

	release2, err := locker.Acquire(context.Background(), periodID)
	require.NoError(t, err)
	release2()
}

func TestPeriodLockerIndependentPeriods(t *testing.T) {
	locker, _ := newTestLocker(t)

	releaseA, err := locker.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	defer releaseB()
}

func TestPeriodLockerReleaseIgnoresStolenLock(t *testing.T) {
	locker, mr := newTestLocker(t)
	periodID := uuid.New()

	release, err := locker.Acquire(context.Background(), periodID)
	require.NoError(t, err)

	// Simulate expiry plus takeover by another holder.
	mr.FastForward(2 * time.Minute)
	release2, err := locker.Acquire(context.Background(), periodID)
	require.NoError(t, err)
	defer release2()

	// The stale release must not delete the new holder's lock.
	release()
	_, err = locker.Acquire(context.Background(), periodID)
	require.True(t, errors.Is(err, httpx.ErrConflict))
}
