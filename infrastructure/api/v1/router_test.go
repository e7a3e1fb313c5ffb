package v1

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ul-gh/hdscope"
	"github.com/ul-gh/hdscope/infrastructure/api/jsonapi"
	"github.com/ul-gh/hdscope/infrastructure/scope/sim"
)

type testEnv struct {
	client *hdscope.Client
	scope  *sim.Scope
	router chi.Router
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	scp := sim.New(sim.WithMaxChunk(1000))
	client, err := hdscope.New(hdscope.WithDataDir(t.TempDir()), hdscope.WithScope(scp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	router := chi.NewRouter()
	router.Mount("/api/v1/captures", NewCapturesRouter(client).Routes())
	router.Mount("/api/v1/instrument", NewInstrumentRouter(client).Routes())
	return testEnv{client: client, scope: scp, router: router}
}

func (e testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type singleDoc[T any] struct {
	Data struct {
		Type       string `json:"type"`
		ID         string `json:"id"`
		Attributes T      `json:"attributes"`
	} `json:"data"`
}

type listDoc struct {
	Data []struct {
		ID         string                    `json:"id"`
		Attributes jsonapi.CaptureAttributes `json:"attributes"`
	} `json:"data"`
	Meta  map[string]any `json:"meta"`
	Links jsonapi.Links  `json:"links"`
}

type errorDoc struct {
	Errors []jsonapi.Error `json:"errors"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func (e testEnv) acquire(t *testing.T, body string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/captures", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decode[singleDoc[jsonapi.CaptureAttributes]](t, w)
	assert.Equal(t, "/api/v1/captures/"+doc.Data.ID, w.Header().Get("Location"))
	return doc.Data.ID
}

func TestCapturesRouter_Acquire(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/captures", `{"channel": 2, "samples": 2500}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, jsonapi.MediaType, w.Header().Get("Content-Type"))

	doc := decode[singleDoc[jsonapi.CaptureAttributes]](t, w)
	assert.Equal(t, jsonapi.TypeCapture, doc.Data.Type)
	assert.Equal(t, "CHAN2", doc.Data.Attributes.Channel)
	assert.Equal(t, 2500, doc.Data.Attributes.Samples)
	assert.InDelta(t, 0.04, doc.Data.Attributes.Calibration.YGain, 1e-12)
	assert.InDelta(t, 1e6, doc.Data.Attributes.SampleRate, 1e-3)

	assert.Equal(t, []string{
		"prepare CHAN2", "stop",
		"fetch 1 1000", "fetch 1001 2000", "fetch 2001 2500",
		"run",
	}, env.scope.Directives())
}

func TestCapturesRouter_AcquireInvalid(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"channel":`},
		{"channel out of range", `{"channel": 5, "samples": 10}`},
		{"negative samples", `{"channel": 1, "samples": -3}`},
		{"samples above record length", `{"channel": 1, "samples": 24000001}`},
		{"huge samples", `{"channel": 1, "samples": 1125899906842624}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/captures", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			doc := decode[errorDoc](t, w)
			require.Len(t, doc.Errors, 1)
			assert.Equal(t, "400", doc.Errors[0].Status)
		})
	}
	assert.Empty(t, env.scope.Directives())
}

func TestCapturesRouter_List(t *testing.T) {
	env := newTestEnv(t)
	first := env.acquire(t, `{"channel": 1, "samples": 100}`)
	env.acquire(t, `{"channel": 2, "samples": 100}`)
	third := env.acquire(t, `{"channel": 1, "samples": 100}`)

	w := env.do(t, http.MethodGet, "/api/v1/captures", "")
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[listDoc](t, w)
	require.Len(t, doc.Data, 3)
	assert.Equal(t, third, doc.Data[0].ID)
	assert.EqualValues(t, 3, doc.Meta["total_count"])

	w = env.do(t, http.MethodGet, "/api/v1/captures?channel=1&page_size=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	doc = decode[listDoc](t, w)
	require.Len(t, doc.Data, 1)
	assert.Equal(t, third, doc.Data[0].ID)
	assert.EqualValues(t, 2, doc.Meta["total_count"])
	assert.EqualValues(t, 2, doc.Meta["total_pages"])
	assert.Contains(t, doc.Links.Next, "page=2")

	w = env.do(t, http.MethodGet, "/api/v1/captures?channel=1&page_size=1&page=2", "")
	doc = decode[listDoc](t, w)
	require.Len(t, doc.Data, 1)
	assert.Equal(t, first, doc.Data[0].ID)
	assert.Empty(t, doc.Links.Next)
}

func TestCapturesRouter_ListTimeWindow(t *testing.T) {
	env := newTestEnv(t)
	env.acquire(t, `{"channel": 1, "samples": 10}`)
	env.acquire(t, `{"channel": 2, "samples": 10}`)

	tests := []struct {
		query string
		want  int
	}{
		{"since=2000-01-01T00:00:00Z", 2},
		{"since=2100-01-01T00:00:00Z", 0},
		{"until=2000-01-01T00:00:00Z", 0},
		{"since=2000-01-01T00:00:00Z&until=2100-01-01T00:00:00Z&channel=2", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/v1/captures?"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Len(t, decode[listDoc](t, w).Data, tt.want)
		})
	}

	w := env.do(t, http.MethodGet, "/api/v1/captures?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCapturesRouter_ListEmpty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/captures", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)

	w = env.do(t, http.MethodGet, "/api/v1/captures?channel=9", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCapturesRouter_GetAndDelete(t *testing.T) {
	env := newTestEnv(t)
	id := env.acquire(t, `{"channel": 4, "samples": 50}`)

	w := env.do(t, http.MethodGet, "/api/v1/captures/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[singleDoc[jsonapi.CaptureAttributes]](t, w)
	assert.Equal(t, "CHAN4", doc.Data.Attributes.Channel)

	w = env.do(t, http.MethodDelete, "/api/v1/captures/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/captures/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/captures/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCapturesRouter_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/captures/abc", "/api/v1/captures/0", "/api/v1/captures/-1/samples"} {
		w := env.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestCapturesRouter_Samples(t *testing.T) {
	env := newTestEnv(t)
	id := env.acquire(t, `{"channel": 1, "samples": 1000}`)

	w := env.do(t, http.MethodGet, "/api/v1/captures/"+id+"/samples?offset=10&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	raw := decode[singleDoc[struct {
		Volts  bool      `json:"volts"`
		Offset int       `json:"offset"`
		Count  int       `json:"count"`
		Total  int       `json:"total"`
		Values []float64 `json:"values"`
	}]](t, w)
	assert.Equal(t, jsonapi.TypeSamples, raw.Data.Type)
	assert.False(t, raw.Data.Attributes.Volts)
	assert.Equal(t, 10, raw.Data.Attributes.Offset)
	assert.Equal(t, 5, raw.Data.Attributes.Count)
	assert.Equal(t, 1000, raw.Data.Attributes.Total)
	for i, v := range raw.Data.Attributes.Values {
		assert.Equal(t, env.scope.Code(1, 11+i), v)
	}

	w = env.do(t, http.MethodGet, "/api/v1/captures/"+id+"/samples?volts=true&filters=downsample:10&limit=3", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	filtered := decode[singleDoc[struct {
		Filters string    `json:"filters"`
		Total   int       `json:"total"`
		Values  []float64 `json:"values"`
	}]](t, w)
	assert.Equal(t, 100, filtered.Data.Attributes.Total)
	assert.Len(t, filtered.Data.Attributes.Values, 3)
	assert.NotEmpty(t, filtered.Data.Attributes.Filters)
}

func TestCapturesRouter_SamplesInvalidParams(t *testing.T) {
	env := newTestEnv(t)
	id := env.acquire(t, `{"channel": 1, "samples": 100}`)

	for _, query := range []string{"volts=maybe", "filters=sharpen:2", "offset=x", "limit=y"} {
		w := env.do(t, http.MethodGet, "/api/v1/captures/"+id+"/samples?"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestCapturesRouter_Stats(t *testing.T) {
	env := newTestEnv(t)
	id := env.acquire(t, `{"channel": 1, "samples": 2000}`)

	w := env.do(t, http.MethodGet, "/api/v1/captures/"+id+"/stats", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	doc := decode[singleDoc[jsonapi.StatsAttributes]](t, w)
	assert.Equal(t, jsonapi.TypeStats, doc.Data.Type)
	assert.Equal(t, 2000, doc.Data.Attributes.Count)
	assert.LessOrEqual(t, doc.Data.Attributes.Min, doc.Data.Attributes.Mean)
	assert.GreaterOrEqual(t, doc.Data.Attributes.Max, doc.Data.Attributes.Mean)
	assert.InDelta(t, doc.Data.Attributes.Max-doc.Data.Attributes.Min, doc.Data.Attributes.PeakToPeak, 1e-9)
}

func TestCapturesRouter_CSV(t *testing.T) {
	env := newTestEnv(t)
	id := env.acquire(t, `{"channel": 1, "samples": 20}`)

	w := env.do(t, http.MethodGet, "/api/v1/captures/"+id+"/csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "capture-"+id+".csv")

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	// Header row plus one row per sample.
	assert.Len(t, records, 21)
}

func TestInstrumentRouter_Status(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/instrument", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	doc := decode[singleDoc[struct {
		Model       string `json:"model"`
		Serial      string `json:"serial"`
		Running     bool   `json:"running"`
		MemoryDepth string `json:"memory_depth"`
		Channels    int    `json:"channels"`
		MaxChunk    int    `json:"max_chunk"`
	}]](t, w)
	assert.Equal(t, jsonapi.TypeInstrument, doc.Data.Type)
	assert.Equal(t, "SIM0001", doc.Data.ID)
	assert.Equal(t, "SIM1004", doc.Data.Attributes.Model)
	assert.True(t, doc.Data.Attributes.Running)
	assert.Equal(t, "1M", doc.Data.Attributes.MemoryDepth)
	assert.Equal(t, 4, doc.Data.Attributes.Channels)
	assert.Equal(t, 1000, doc.Data.Attributes.MaxChunk)
}

func TestInstrumentRouter_RunStop(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPost, "/api/v1/instrument/stop", "").Code)
	running, err := env.scope.Running(t.Context())
	require.NoError(t, err)
	assert.False(t, running)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPost, "/api/v1/instrument/run", "").Code)
	running, err = env.scope.Running(t.Context())
	require.NoError(t, err)
	assert.True(t, running)
}

func TestInstrumentRouter_SetMemoryDepth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/v1/instrument/memory-depth", `{"depth": "12M"}`)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.Contains(t, env.scope.Directives(), "mdepth 12M")

	w = env.do(t, http.MethodPut, "/api/v1/instrument/memory-depth", `{"depth": "lots"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/instrument/memory-depth", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouters_WithoutInstrument(t *testing.T) {
	client, err := hdscope.New(hdscope.WithDataDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	router := chi.NewRouter()
	router.Mount("/api/v1/captures", NewCapturesRouter(client).Routes())
	router.Mount("/api/v1/instrument", NewInstrumentRouter(client).Routes())
	env := testEnv{client: client, router: router}

	w := env.do(t, http.MethodGet, "/api/v1/instrument", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/captures", `{"channel": 1, "samples": 10}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/captures", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParsePage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?page=3&page_size=500&channel=2", nil)
	p := ParsePage(req)
	assert.Equal(t, Page{Number: 3, Size: MaxPageSize}, p)
	assert.Equal(t, 200, p.Offset())

	links := p.Links(req, 250)
	assert.Equal(t, "/x?channel=2&page=3&page_size=100", links.Self)
	assert.Equal(t, "/x?channel=2&page=2&page_size=100", links.Prev)
	assert.Empty(t, links.Next)
	assert.Equal(t, links.Self, links.Last)

	p = ParsePage(httptest.NewRequest(http.MethodGet, "/x?page=0&page_size=abc", nil))
	assert.Equal(t, Page{Number: 1, Size: DefaultPageSize}, p)

	links = p.Links(req, 0)
	assert.Empty(t, links.Last)
	assert.Empty(t, links.Next)
	assert.Empty(t, links.Prev)
}
