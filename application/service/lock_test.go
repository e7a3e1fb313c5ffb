package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentLock_FileExcludesOtherHolders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instrument.lock")
	serve := NewInstrumentLock(WithLockFile(path))
	cli := NewInstrumentLock(WithLockFile(path))
	t.Cleanup(func() {
		_ = serve.Close(context.Background())
		_ = cli.Close(context.Background())
	})

	release, err := serve.Acquire(t.Context())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 150*time.Millisecond)
	defer cancel()
	_, err = cli.Acquire(ctx)
	assert.ErrorIs(t, err, ErrBusy)

	_, err = cli.TryAcquire()
	assert.ErrorIs(t, err, ErrBusy)

	release()

	again, err := cli.Acquire(t.Context())
	require.NoError(t, err)
	again()
}

func TestInstrumentLock_FileFreedForInProcessWaiters(t *testing.T) {
	lock := NewInstrumentLock(WithLockFile(filepath.Join(t.TempDir(), "instrument.lock")))
	t.Cleanup(func() { _ = lock.Close(context.Background()) })

	for range 3 {
		release, err := lock.Acquire(t.Context())
		require.NoError(t, err)
		release()
	}

	release, err := lock.TryAcquire()
	require.NoError(t, err)
	release()
}

func TestInstrumentLock_CloseRefusesHolders(t *testing.T) {
	lock := NewInstrumentLock(WithLockFile(filepath.Join(t.TempDir(), "instrument.lock")))
	require.NoError(t, lock.Close(context.Background()))

	_, err := lock.Acquire(t.Context())
	assert.ErrorIs(t, err, ErrClientClosed)
	_, err = lock.TryAcquire()
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.NoError(t, lock.Close(context.Background()))
}
