package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/instrument"
)

func TestAcquisition_Capture(t *testing.T) {
	scope := newFakeScope()
	scope.running = true
	captures := newFakeCaptureStore()
	samples := newFakeSampleStore()
	acq := NewAcquisition(scope, NewInstrumentLock(), captures, samples, nil)

	var fired []int64
	acq.Hooks().Add(func(_ context.Context, c capture.Capture) { fired = append(fired, c.ID()) })

	c, err := acq.Capture(context.Background(), CaptureParams{Channel: 2, Samples: 4500})
	require.NoError(t, err)

	assert.Equal(t, int64(1), c.ID())
	assert.Equal(t, "CHAN2", c.Channel().String())
	assert.Equal(t, 4500, c.Samples())
	assert.Equal(t, "mem://1", c.DataPath())
	assert.Equal(t, "RIGOL TECHNOLOGIES DS1104Z (DS1ZTEST)", c.Instrument())
	assert.Equal(t, 0.5, c.Calibration().Gain)

	assert.Equal(t, []instrument.Channel{2}, scope.prepared)
	assert.Equal(t, []fetchCall{{1, 2000}, {2001, 4000}, {4001, 4500}}, scope.calls)
	assert.Equal(t, 1, scope.count("stop"))
	assert.Equal(t, 1, scope.count("run"))

	stored := samples.data[1]
	require.Len(t, stored, 4500)
	assert.Equal(t, 4500.0, stored[4499])
	assert.Equal(t, []int64{1}, fired)
}

func TestAcquisition_CaptureFullMemoryDepth(t *testing.T) {
	scope := newFakeScope()
	acq := NewAcquisition(scope, NewInstrumentLock(), newFakeCaptureStore(), newFakeSampleStore(), nil)

	c, err := acq.Capture(context.Background(), CaptureParams{Channel: 1})
	require.NoError(t, err)
	assert.Equal(t, 5000, c.Samples())
}

func TestAcquisition_ReaderOptionsOverrideDriver(t *testing.T) {
	scope := newFakeScope()
	acq := NewAcquisition(scope, NewInstrumentLock(), newFakeCaptureStore(), newFakeSampleStore(), nil, WithMaxChunk(2500))

	_, err := acq.Capture(context.Background(), CaptureParams{Channel: 1})
	require.NoError(t, err)
	assert.Equal(t, []fetchCall{{1, 2500}, {2501, 5000}}, scope.calls)
}

func TestAcquisition_AutoDepthNeedsExplicitCount(t *testing.T) {
	scope := newFakeScope()
	scope.depthErr = instrument.ErrAutoMemoryDepth
	acq := NewAcquisition(scope, NewInstrumentLock(), newFakeCaptureStore(), newFakeSampleStore(), nil)

	_, err := acq.Capture(context.Background(), CaptureParams{Channel: 1})
	assert.ErrorIs(t, err, instrument.ErrAutoMemoryDepth)
	assert.Empty(t, scope.calls)
}

func TestAcquisition_InvalidChannel(t *testing.T) {
	acq := NewAcquisition(newFakeScope(), NewInstrumentLock(), newFakeCaptureStore(), newFakeSampleStore(), nil)

	_, err := acq.Capture(context.Background(), CaptureParams{Channel: 5, Samples: 10})
	assert.ErrorIs(t, err, instrument.ErrInvalidChannel)

	_, err = acq.Capture(context.Background(), CaptureParams{Channel: 1, Samples: -1})
	assert.ErrorIs(t, err, ErrInvalidSampleCount)
}

func TestAcquisition_RejectsOversizedRecord(t *testing.T) {
	scope := newFakeScope()
	captures := newFakeCaptureStore()
	acq := NewAcquisition(scope, NewInstrumentLock(), captures, newFakeSampleStore(), nil)

	for _, n := range []int{instrument.MaxRecordLength + 1, 4_000_000_000, 1 << 50} {
		_, err := acq.Capture(context.Background(), CaptureParams{Channel: 1, Samples: n})
		assert.ErrorIs(t, err, ErrInvalidSampleCount, n)
	}
	assert.Empty(t, scope.calls)
	assert.Empty(t, captures.rows)
}

func TestAcquisition_NoScope(t *testing.T) {
	acq := NewAcquisition(nil, NewInstrumentLock(), newFakeCaptureStore(), newFakeSampleStore(), nil)

	_, err := acq.Capture(context.Background(), CaptureParams{Channel: 1, Samples: 10})
	assert.ErrorIs(t, err, ErrNoScope)
}

func TestAcquisition_ShortReadStoresNothing(t *testing.T) {
	scope := newFakeScope()
	scope.shortAt = 2
	captures := newFakeCaptureStore()
	acq := NewAcquisition(scope, NewInstrumentLock(), captures, newFakeSampleStore(), nil)

	_, err := acq.Capture(context.Background(), CaptureParams{Channel: 1, Samples: 5000})
	assert.ErrorIs(t, err, instrument.ErrShortRead)
	assert.Empty(t, captures.rows)
}

func TestAcquisition_WriteFailureRemovesMetadata(t *testing.T) {
	samples := newFakeSampleStore()
	samples.writeErr = errors.New("disk full")
	captures := newFakeCaptureStore()
	acq := NewAcquisition(newFakeScope(), NewInstrumentLock(), captures, samples, nil)

	_, err := acq.Capture(context.Background(), CaptureParams{Channel: 1, Samples: 100})
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, captures.rows)
}

func TestAcquisition_BusyInstrument(t *testing.T) {
	lock := NewInstrumentLock()
	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	acq := NewAcquisition(newFakeScope(), lock, newFakeCaptureStore(), newFakeSampleStore(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = acq.Capture(ctx, CaptureParams{Channel: 1, Samples: 10})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestAcquisition_ClosedLock(t *testing.T) {
	lock := NewInstrumentLock()
	require.NoError(t, lock.Close(context.Background()))
	acq := NewAcquisition(newFakeScope(), lock, newFakeCaptureStore(), newFakeSampleStore(), nil)

	_, err := acq.Capture(context.Background(), CaptureParams{Channel: 1, Samples: 10})
	assert.ErrorIs(t, err, ErrClientClosed)

	_, err = lock.TryAcquire()
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.NoError(t, lock.Close(context.Background()))
}

func TestInstrumentLock_CloseWaitsForHolder(t *testing.T) {
	lock := NewInstrumentLock()
	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, lock.Close(ctx))

	release()
	_, err = lock.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrClientClosed)
}
