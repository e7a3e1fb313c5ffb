package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ul-gh/hdscope/application/service"
	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/store"
	"github.com/ul-gh/hdscope/domain/waveform"
)

var created = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testCapture(id int64, ch instrument.Channel) capture.Capture {
	return capture.ReconstructCapture(id, "RIGOL DS1054Z", ch, 1000,
		waveform.Calibration{Gain: 0.04, Offset: -5.12, XIncrement: 1e-6}, "", created)
}

// fakeCaptures implements CaptureQuery over a fixed list.
type fakeCaptures struct {
	captures []capture.Capture
	lastOpts store.Query
}

func (f *fakeCaptures) Find(_ context.Context, options ...store.Option) ([]capture.Capture, error) {
	f.lastOpts = store.Build(options...)
	var out []capture.Capture
	for _, c := range f.captures {
		match := true
		for _, f := range f.lastOpts.Filters() {
			if f.Field == "channel" && f.Value != c.Channel().Number() {
				match = false
			}
		}
		if match {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCaptures) ByID(_ context.Context, id int64) (capture.Capture, error) {
	for _, c := range f.captures {
		if c.ID() == id {
			return c, nil
		}
	}
	return capture.Capture{}, fmt.Errorf("get capture %d: %w", id, store.ErrNotFound)
}

func (f *fakeCaptures) Stats(_ context.Context, _ int64) (waveform.Stats, error) {
	return waveform.Summarize([]float64{-1, 1}), nil
}

// fakeAcquirer records the requested params.
type fakeAcquirer struct {
	params service.CaptureParams
	err    error
}

func (f *fakeAcquirer) Capture(_ context.Context, params service.CaptureParams) (capture.Capture, error) {
	f.params = params
	if f.err != nil {
		return capture.Capture{}, f.err
	}
	return testCapture(99, params.Channel), nil
}

type fakeStatus struct{}

func (fakeStatus) Status(context.Context) (service.Status, error) {
	return service.Status{
		Identity:  instrument.Identity{Manufacturer: "RIGOL TECHNOLOGIES", Model: "DS1054Z", Serial: "DS1ZA1", Firmware: "00.04.04"},
		Running:   true,
		AutoDepth: true,
		Channels:  4,
		MaxChunk:  750_000,
	}, nil
}

type fixture struct {
	srv      *Server
	captures *fakeCaptures
	acquirer *fakeAcquirer
}

func newFixture() fixture {
	f := fixture{
		captures: &fakeCaptures{captures: []capture.Capture{testCapture(1, 1), testCapture(2, 2)}},
		acquirer: &fakeAcquirer{},
	}
	f.srv = NewServer(f.captures, f.acquirer, fakeStatus{}, "0.1.0-test", nil)
	return f
}

// sendMessage marshals a JSON-RPC request, sends it through HandleMessage,
// and returns the JSONRPCResponse.
func sendMessage(t *testing.T, srv *Server, method string, id int, params map[string]any) mcp.JSONRPCResponse {
	t.Helper()

	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	result := srv.MCPServer().HandleMessage(context.Background(), raw)

	resp, ok := result.(mcp.JSONRPCResponse)
	require.True(t, ok, "expected JSONRPCResponse, got %T: %+v", result, result)
	return resp
}

// resultJSON re-marshals the Result field through JSON into dst.
func resultJSON(t *testing.T, resp mcp.JSONRPCResponse, dst any) {
	t.Helper()
	b, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, dst))
}

func initializeParams() map[string]any {
	return map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "test-client",
			"version": "0.0.1",
		},
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) (mcp.CallToolResult, string) {
	t.Helper()
	sendMessage(t, srv, "initialize", 1, initializeParams())
	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name":      name,
		"arguments": args,
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)
	return result, textFromContent(t, result)
}

func textFromContent(t *testing.T, result mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	b, err := json.Marshal(result.Content[0])
	require.NoError(t, err)
	var tc struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(b, &tc))
	return tc.Text
}

func TestServer_Initialize(t *testing.T) {
	srv := newFixture().srv
	resp := sendMessage(t, srv, "initialize", 1, initializeParams())

	var result mcp.InitializeResult
	resultJSON(t, resp, &result)

	assert.Equal(t, "hdscope", result.ServerInfo.Name)
	assert.Equal(t, "0.1.0-test", result.ServerInfo.Version)
	assert.NotNil(t, result.Capabilities.Tools)
}

func TestServer_ListTools(t *testing.T) {
	srv := newFixture().srv
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/list", 2, nil)

	var result mcp.ListToolsResult
	resultJSON(t, resp, &result)

	tools := map[string]mcp.Tool{}
	for _, tool := range result.Tools {
		tools[tool.Name] = tool
	}
	require.Len(t, tools, 4)
	for _, name := range []string{"list_captures", "get_capture", "capture_waveform", "instrument_status"} {
		assert.Contains(t, tools, name)
	}
	assert.Contains(t, tools["capture_waveform"].InputSchema.Required, "channel")
	assert.Contains(t, tools["get_capture"].InputSchema.Required, "id")
}

func TestServer_ListCaptures(t *testing.T) {
	f := newFixture()

	result, text := callTool(t, f.srv, "list_captures", map[string]any{"channel": 2, "limit": 5})
	require.False(t, result.IsError, text)

	var items []captureResult
	require.NoError(t, json.Unmarshal([]byte(text), &items))
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)
	assert.Equal(t, "CHAN2", items[0].Channel)
	assert.Equal(t, "1ms", items[0].Duration)
	assert.Equal(t, 5, f.captures.lastOpts.Limit())
	require.Len(t, f.captures.lastOpts.Sorts(), 2)
	assert.Equal(t, "created_at", f.captures.lastOpts.Sorts()[0].Field)
}

func TestServer_ListCapturesInvalidChannel(t *testing.T) {
	result, text := callTool(t, newFixture().srv, "list_captures", map[string]any{"channel": 9})

	assert.True(t, result.IsError)
	assert.Contains(t, text, "invalid channel")
}

func TestServer_GetCapture(t *testing.T) {
	result, text := callTool(t, newFixture().srv, "get_capture", map[string]any{"id": 1})
	require.False(t, result.IsError, text)

	var item captureResult
	require.NoError(t, json.Unmarshal([]byte(text), &item))
	assert.Equal(t, int64(1), item.ID)
	assert.InDelta(t, 1e6, item.SampleRate, 1e-6)
	require.NotNil(t, item.Stats)
	assert.Equal(t, 2.0, item.Stats.PeakToPeak)
}

func TestServer_GetCaptureNotFound(t *testing.T) {
	result, text := callTool(t, newFixture().srv, "get_capture", map[string]any{"id": 404})

	assert.True(t, result.IsError)
	assert.Contains(t, text, "capture 404 not found")
}

func TestServer_GetCaptureMissingID(t *testing.T) {
	result, text := callTool(t, newFixture().srv, "get_capture", map[string]any{})

	assert.True(t, result.IsError)
	assert.Contains(t, text, "id is required")
}

func TestServer_CaptureWaveform(t *testing.T) {
	f := newFixture()

	result, text := callTool(t, f.srv, "capture_waveform", map[string]any{"channel": 3, "samples": 1200})
	require.False(t, result.IsError, text)

	assert.Equal(t, instrument.Channel(3), f.acquirer.params.Channel)
	assert.Equal(t, 1200, f.acquirer.params.Samples)

	var item captureResult
	require.NoError(t, json.Unmarshal([]byte(text), &item))
	assert.Equal(t, int64(99), item.ID)
	assert.Equal(t, "CHAN3", item.Channel)
}

func TestServer_CaptureWaveformFailure(t *testing.T) {
	f := newFixture()
	f.acquirer.err = errors.New("transport read: i/o timeout")

	result, text := callTool(t, f.srv, "capture_waveform", map[string]any{"channel": 1})

	assert.True(t, result.IsError)
	assert.Contains(t, text, "i/o timeout")
}

func TestServer_CaptureWaveformWithoutInstrument(t *testing.T) {
	srv := NewServer(&fakeCaptures{}, nil, nil, "dev", nil)

	result, text := callTool(t, srv, "capture_waveform", map[string]any{"channel": 1})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "no instrument")

	result, _ = callTool(t, srv, "instrument_status", map[string]any{})
	assert.True(t, result.IsError)
}

func TestServer_InstrumentStatus(t *testing.T) {
	result, text := callTool(t, newFixture().srv, "instrument_status", map[string]any{})
	require.False(t, result.IsError, text)

	var st map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &st))
	assert.Equal(t, "DS1054Z", st["model"])
	assert.Equal(t, "AUTO", st["memory_depth"])
	assert.Equal(t, true, st["running"])
}

// Ensure fakes satisfy interfaces at compile time.
var (
	_ CaptureQuery = (*fakeCaptures)(nil)
	_ Acquirer     = (*fakeAcquirer)(nil)
	_ StatusReader = fakeStatus{}
)
