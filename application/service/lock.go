package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/semaphore"
)

// lockRetry is how often a held lock file is polled.
const lockRetry = 50 * time.Millisecond

// InstrumentLock serialises access to one instrument link. With a lock
// file it also excludes other processes sharing the data directory.
type InstrumentLock struct {
	sem    *semaphore.Weighted
	file   *flock.Flock
	closed atomic.Bool
}

// LockOption configures an InstrumentLock.
type LockOption func(*InstrumentLock)

// WithLockFile adds an advisory file lock at path, taken after the
// in-process lock for every holder.
func WithLockFile(path string) LockOption {
	return func(l *InstrumentLock) {
		l.file = flock.New(path)
	}
}

// NewInstrumentLock creates an unlocked InstrumentLock.
func NewInstrumentLock(opts ...LockOption) *InstrumentLock {
	l := &InstrumentLock{sem: semaphore.NewWeighted(1)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until the instrument is free or ctx is done. After Close
// it returns ErrClientClosed.
func (l *InstrumentLock) Acquire(ctx context.Context) (release func(), err error) {
	if l.closed.Load() {
		return nil, ErrClientClosed
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBusy, err)
	}
	if l.closed.Load() {
		l.sem.Release(1)
		return nil, ErrClientClosed
	}
	if l.file != nil {
		ok, err := l.file.TryLockContext(ctx, lockRetry)
		if !ok || err != nil {
			l.sem.Release(1)
			return nil, busyFile(l.file.Path(), err)
		}
	}
	return l.release, nil
}

// TryAcquire takes the lock only if it is free.
func (l *InstrumentLock) TryAcquire() (release func(), err error) {
	if l.closed.Load() {
		return nil, ErrClientClosed
	}
	if !l.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	if l.file != nil {
		ok, err := l.file.TryLock()
		if !ok || err != nil {
			l.sem.Release(1)
			return nil, busyFile(l.file.Path(), err)
		}
	}
	return l.release, nil
}

// Close refuses new holders and waits for the current one to release.
func (l *InstrumentLock) Close(ctx context.Context) error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for instrument: %w", err)
	}
	defer l.sem.Release(1)
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("close lock file: %w", err)
		}
	}
	return nil
}

func (l *InstrumentLock) release() {
	if l.file != nil {
		_ = l.file.Unlock()
	}
	l.sem.Release(1)
}

func busyFile(path string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s held by another process", ErrBusy, path)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrBusy, path, err)
	}
	return fmt.Errorf("lock %s: %w", path, err)
}
