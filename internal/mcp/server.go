// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ul-gh/hdscope/application/service"
	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/store"
	"github.com/ul-gh/hdscope/domain/waveform"
)

// CaptureQuery provides stored capture lookups for MCP tools.
type CaptureQuery interface {
	Find(ctx context.Context, options ...store.Option) ([]capture.Capture, error)
	ByID(ctx context.Context, id int64) (capture.Capture, error)
	Stats(ctx context.Context, id int64) (waveform.Stats, error)
}

// Acquirer reads a new waveform from the instrument.
type Acquirer interface {
	Capture(ctx context.Context, params service.CaptureParams) (capture.Capture, error)
}

// StatusReader reports the instrument state.
type StatusReader interface {
	Status(ctx context.Context) (service.Status, error)
}

const defaultListLimit = 20

// Server wraps the MCP server with oscilloscope tools.
type Server struct {
	mcpServer  *server.MCPServer
	captures   CaptureQuery
	acquirer   Acquirer
	instrument StatusReader
	logger     *slog.Logger
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(captures CaptureQuery, acquirer Acquirer, status StatusReader, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		captures:   captures,
		acquirer:   acquirer,
		instrument: status,
		logger:     logger,
	}

	mcpServer := server.NewMCPServer(
		"hdscope",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("list_captures",
		mcp.WithDescription("List stored waveform captures, newest first"),
		mcp.WithNumber("channel",
			mcp.Description("Only captures of this analog channel (1-4)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of captures (default: 20)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of captures to skip"),
		),
	), s.handleListCaptures)

	mcpServer.AddTool(mcp.NewTool("get_capture",
		mcp.WithDescription("Get a stored capture with its calibration and voltage statistics"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The numeric capture ID"),
		),
	), s.handleGetCapture)

	mcpServer.AddTool(mcp.NewTool("capture_waveform",
		mcp.WithDescription("Read a waveform from the oscilloscope and store it"),
		mcp.WithNumber("channel",
			mcp.Required(),
			mcp.Description("Analog channel to read (1-4)"),
		),
		mcp.WithNumber("samples",
			mcp.Description("Record length; 0 or omitted reads the full memory depth"),
		),
	), s.handleCaptureWaveform)

	mcpServer.AddTool(mcp.NewTool("instrument_status",
		mcp.WithDescription("Report oscilloscope identity, run state and memory depth"),
	), s.handleInstrumentStatus)
}

type captureResult struct {
	ID         int64        `json:"id"`
	Instrument string       `json:"instrument"`
	Channel    string       `json:"channel"`
	Samples    int          `json:"samples"`
	SampleRate float64      `json:"sample_rate"`
	Duration   string       `json:"duration"`
	CreatedAt  time.Time    `json:"created_at"`
	Stats      *statsResult `json:"stats,omitempty"`
}

type statsResult struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	RMS        float64 `json:"rms"`
	PeakToPeak float64 `json:"peak_to_peak"`
}

func newCaptureResult(c capture.Capture) captureResult {
	return captureResult{
		ID:         c.ID(),
		Instrument: c.Instrument(),
		Channel:    c.Channel().String(),
		Samples:    c.Samples(),
		SampleRate: c.Calibration().SampleRate(),
		Duration:   c.Duration().String(),
		CreatedAt:  c.CreatedAt(),
	}
}

func (s *Server) handleListCaptures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := []store.Option{
		capture.WithNewestFirst(),
		capture.WithPage(request.GetInt("limit", defaultListLimit), request.GetInt("offset", 0)),
	}
	if ch := request.GetInt("channel", 0); ch != 0 {
		channel := instrument.Channel(ch)
		if !channel.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("invalid channel: %d", ch)), nil
		}
		opts = append(opts, capture.WithChannel(channel))
	}

	captures, err := s.captures.Find(ctx, opts...)
	if err != nil {
		s.logger.Error("list captures failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("list captures failed: %v", err)), nil
	}

	results := make([]captureResult, len(captures))
	for i, c := range captures {
		results[i] = newCaptureResult(c)
	}
	return jsonResult(results)
}

func (s *Server) handleGetCapture(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64(request.GetInt("id", 0))
	if id <= 0 {
		return mcp.NewToolResultError("id is required"), nil
	}

	c, err := s.captures.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("capture %d not found", id)), nil
		}
		s.logger.Error("get capture failed", slog.Int64("capture_id", id), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("get capture failed: %v", err)), nil
	}

	result := newCaptureResult(c)
	stats, err := s.captures.Stats(ctx, id)
	if err != nil {
		s.logger.Warn("capture stats unavailable", slog.Int64("capture_id", id), slog.Any("error", err))
	} else {
		result.Stats = &statsResult{
			Min:        stats.Min,
			Max:        stats.Max,
			Mean:       stats.Mean,
			RMS:        stats.RMS,
			PeakToPeak: stats.PeakToPeak(),
		}
	}
	return jsonResult(result)
}

func (s *Server) handleCaptureWaveform(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.acquirer == nil {
		return mcp.NewToolResultError("no instrument connected"), nil
	}
	ch := instrument.Channel(request.GetInt("channel", 0))
	if !ch.Valid() {
		return mcp.NewToolResultError("channel is required (1-4)"), nil
	}

	c, err := s.acquirer.Capture(ctx, service.CaptureParams{
		Channel: ch,
		Samples: request.GetInt("samples", 0),
	})
	if err != nil {
		s.logger.Error("capture failed", slog.String("channel", ch.String()), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("capture failed: %v", err)), nil
	}
	return jsonResult(newCaptureResult(c))
}

func (s *Server) handleInstrumentStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.instrument == nil {
		return mcp.NewToolResultError("no instrument connected"), nil
	}
	st, err := s.instrument.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("instrument status failed: %v", err)), nil
	}

	type statusResult struct {
		Manufacturer string `json:"manufacturer"`
		Model        string `json:"model"`
		Serial       string `json:"serial"`
		Firmware     string `json:"firmware"`
		Running      bool   `json:"running"`
		MemoryDepth  string `json:"memory_depth"`
		Channels     int    `json:"channels"`
		MaxChunk     int    `json:"max_chunk"`
	}

	depth := st.MemoryDepth.String()
	if st.AutoDepth {
		depth = "AUTO"
	}
	return jsonResult(statusResult{
		Manufacturer: st.Identity.Manufacturer,
		Model:        st.Identity.Model,
		Serial:       st.Identity.Serial,
		Firmware:     st.Identity.Firmware,
		Running:      st.Running,
		MemoryDepth:  depth,
		Channels:     st.Channels,
		MaxChunk:     st.MaxChunk,
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
