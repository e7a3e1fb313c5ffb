package hdscope_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ul-gh/hdscope"
	"github.com/ul-gh/hdscope/application/service"
	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/tracking"
	"github.com/ul-gh/hdscope/infrastructure/scope/sim"
)

func newSimClient(t *testing.T, opts ...hdscope.Option) (*hdscope.Client, *sim.Scope) {
	t.Helper()
	dir := t.TempDir()
	scp := sim.New(sim.WithMaxChunk(1000))
	all := append([]hdscope.Option{
		hdscope.WithDataDir(dir),
		hdscope.WithSQLite(filepath.Join(dir, "test.db")),
		hdscope.WithScope(scp),
	}, opts...)
	client, err := hdscope.New(all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, scp
}

func TestNew_WithoutInstrument(t *testing.T) {
	dir := t.TempDir()
	client, err := hdscope.New(hdscope.WithDataDir(dir))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	assert.False(t, client.Connected())
	assert.FileExists(t, filepath.Join(dir, "hdscope.db"))

	_, err = client.Acquisition.Capture(context.Background(), service.CaptureParams{Channel: 1})
	assert.ErrorIs(t, err, hdscope.ErrNoScope)

	_, err = client.Instrument.Status(context.Background())
	assert.ErrorIs(t, err, hdscope.ErrNoScope)

	captures, err := client.Captures.Find(context.Background())
	require.NoError(t, err)
	assert.Empty(t, captures)
}

func TestNew_SimulatedModel(t *testing.T) {
	client, err := hdscope.New(
		hdscope.WithDataDir(t.TempDir()),
		hdscope.WithResource("", "sim"),
	)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	assert.True(t, client.Connected())
	id, err := client.Instrument.Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SIM1004", id.Model)
}

func TestNew_ScopeConflict(t *testing.T) {
	_, err := hdscope.New(
		hdscope.WithDataDir(t.TempDir()),
		hdscope.WithScope(sim.New()),
		hdscope.WithResource("TCPIP::10.0.0.1::5555::SOCKET", "rigol"),
	)
	assert.ErrorIs(t, err, hdscope.ErrScopeConflict)
}

func TestNew_UnknownModel(t *testing.T) {
	_, err := hdscope.New(
		hdscope.WithDataDir(t.TempDir()),
		hdscope.WithResource("TCPIP::10.0.0.1::5555::SOCKET", "tektronix"),
	)
	assert.Error(t, err)
}

func TestClient_CaptureRoundTrip(t *testing.T) {
	client, scp := newSimClient(t)
	ctx := context.Background()

	c, err := client.Acquisition.Capture(ctx, service.CaptureParams{Channel: 2, Samples: 2500})
	require.NoError(t, err)
	assert.Positive(t, c.ID())
	assert.Equal(t, 2500, c.Samples())
	assert.Equal(t, instrument.Channel(2), c.Channel())
	assert.FileExists(t, c.DataPath())

	// 2500 samples in chunks of 1000, bracketed by stop and run.
	assert.Equal(t, []string{
		"prepare CHAN2", "stop",
		"fetch 1 1000", "fetch 1001 2000", "fetch 2001 2500",
		"run",
	}, scp.Directives())

	raw, err := client.Captures.Samples(ctx, c.ID(), service.SampleParams{Offset: 10, Limit: 5})
	require.NoError(t, err)
	require.Len(t, raw.Values, 5)
	for i, v := range raw.Values {
		assert.Equal(t, scp.Code(2, 11+i), v)
	}

	volts, err := client.Captures.Samples(ctx, c.ID(), service.SampleParams{Volts: true, Limit: 1})
	require.NoError(t, err)
	assert.InDelta(t, (scp.Code(2, 1)-128)*0.04, volts.Values[0], 1e-9)

	found, err := client.Captures.Find(ctx, capture.WithChannel(2))
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestClient_MaxChunkOverride(t *testing.T) {
	client, scp := newSimClient(t, hdscope.WithMaxChunk(500))

	_, err := client.Acquisition.Capture(context.Background(), service.CaptureParams{Channel: 1, Samples: 1300})
	require.NoError(t, err)
	assert.Contains(t, scp.Directives(), "fetch 1001 1300")
}

func TestClient_DeleteRemovesSamples(t *testing.T) {
	client, _ := newSimClient(t)
	ctx := context.Background()

	c, err := client.Acquisition.Capture(ctx, service.CaptureParams{Channel: 1, Samples: 100})
	require.NoError(t, err)

	require.NoError(t, client.Captures.Delete(ctx, c.ID()))
	_, err = os.Stat(c.DataPath())
	assert.True(t, os.IsNotExist(err))

	_, err = client.Captures.ByID(ctx, c.ID())
	assert.ErrorIs(t, err, hdscope.ErrNotFound)
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	client, _ := newSimClient(t, hdscope.WithMetrics(reg))

	_, err := client.Acquisition.Capture(context.Background(), service.CaptureParams{Channel: 1, Samples: 1500})
	require.NoError(t, err)

	families, err := client.Gatherer().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["hdscope_transfer_chunks_total"])
	assert.True(t, names["hdscope_captures_stored_total"])
	assert.True(t, names["hdscope_transfer_halts_total"])
}

func TestClient_Close(t *testing.T) {
	client, scp := newSimClient(t)
	ctx := context.Background()

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Close(), hdscope.ErrClientClosed)

	_, err := client.Acquisition.Capture(ctx, service.CaptureParams{Channel: 1, Samples: 10})
	assert.ErrorIs(t, err, hdscope.ErrClientClosed)

	assert.ErrorIs(t, client.Instrument.Run(ctx), hdscope.ErrClientClosed)

	_, err = client.Captures.Find(ctx)
	assert.ErrorIs(t, err, hdscope.ErrClientClosed)

	_, err = scp.Running(ctx)
	assert.ErrorIs(t, err, instrument.ErrTransport)
}

type progressLog struct {
	mu     sync.Mutex
	states []tracking.State
}

func (p *progressLog) OnChange(_ context.Context, progress tracking.Progress) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, progress.State())
	return nil
}

func TestClient_Progress(t *testing.T) {
	progress := &progressLog{}
	client, _ := newSimClient(t, hdscope.WithProgress(progress, 0))

	_, err := client.Acquisition.Capture(context.Background(), service.CaptureParams{Channel: 1, Samples: 2500})
	require.NoError(t, err)

	progress.mu.Lock()
	defer progress.mu.Unlock()
	assert.Equal(t, []tracking.State{
		tracking.StateStarted,
		tracking.StateInProgress, tracking.StateInProgress, tracking.StateInProgress,
		tracking.StateCompleted,
	}, progress.states)
}

func TestClient_InstrumentLockedByOtherProcess(t *testing.T) {
	client, scp := newSimClient(t)

	other := flock.New(filepath.Join(client.DataDir(), "instrument.lock"))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = client.Acquisition.Capture(ctx, service.CaptureParams{Channel: 1, Samples: 100})
	assert.ErrorIs(t, err, service.ErrBusy)
	assert.Empty(t, scp.Directives())

	require.NoError(t, other.Unlock())
	_, err = client.Acquisition.Capture(context.Background(), service.CaptureParams{Channel: 1, Samples: 100})
	assert.NoError(t, err)
}
