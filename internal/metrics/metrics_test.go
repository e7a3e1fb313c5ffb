package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value returns the counter value of the named family, optionally filtered
// by a channel label.
func value(t *testing.T, g prometheus.Gatherer, name, channel string) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if channel != "" {
				match := false
				for _, l := range m.GetLabel() {
					if l.GetName() == "channel" && l.GetValue() == channel {
						match = true
					}
				}
				if !match {
					continue
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestTransfer_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewTransfer(reg)
	require.NoError(t, err)

	m.ChunkFetched(1, 750_000, 20*time.Millisecond)
	m.ChunkFetched(1, 250_000, 10*time.Millisecond)
	m.ChunkFetched(2, 100, time.Millisecond)
	m.Halted()
	m.Restored()
	m.RestoreFailed()
	m.CaptureStored()

	assert.Equal(t, 2.0, value(t, reg, "hdscope_transfer_chunks_total", "1"))
	assert.Equal(t, 1_000_000.0, value(t, reg, "hdscope_transfer_samples_total", "1"))
	assert.Equal(t, 100.0, value(t, reg, "hdscope_transfer_samples_total", "2"))
	assert.Equal(t, 1.0, value(t, reg, "hdscope_transfer_halts_total", ""))
	assert.Equal(t, 1.0, value(t, reg, "hdscope_transfer_restores_total", ""))
	assert.Equal(t, 1.0, value(t, reg, "hdscope_transfer_restore_failures_total", ""))
	assert.Equal(t, 1.0, value(t, reg, "hdscope_captures_stored_total", ""))
}

func TestNewTransfer_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewTransfer(reg)
	require.NoError(t, err)

	_, err = NewTransfer(reg)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m, err := NewTransfer(reg)
	require.NoError(t, err)
	m.Halted()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hdscope_transfer_halts_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
