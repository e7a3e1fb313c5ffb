package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// terminalOut is shared by a handler and everything derived from it.
type terminalOut struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// terminalHandler writes one line per record:
//
//	15:04:05.000 INF waveform read channel=CHAN1 samples=1,200,000 bytes=4.6 MiB
//
// Keys ending in "samples" are printed with thousands separators and keys
// ending in "bytes" as IEC sizes. Colour is used only when w is a terminal
// and NO_COLOR is unset.
type terminalHandler struct {
	out    *terminalOut
	level  slog.Leveler
	prefix string // group path, "a.b."
	attrs  []byte // preformatted WithAttrs output
}

func newTerminalHandler(w io.Writer, level slog.Leveler) *terminalHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &terminalHandler{
		out:   &terminalOut{w: w, color: colorable(w)},
		level: level,
	}
}

func colorable(w io.Writer) bool {
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	buf := bytes.NewBuffer(make([]byte, 0, 256))

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	h.paint(buf, ansiDim, ts.Format("15:04:05.000"))
	buf.WriteByte(' ')
	color, label := levelLabel(r.Level)
	h.paint(buf, color, label)
	buf.WriteByte(' ')
	h.paint(buf, ansiBold, r.Message)

	buf.Write(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(buf, h.prefix, a)
		return true
	})
	buf.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := h.out.w.Write(buf.Bytes())
	return err
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	buf := bytes.NewBuffer(bytes.Clone(h.attrs))
	for _, a := range attrs {
		h.writeAttr(buf, h.prefix, a)
	}
	c := *h
	c.attrs = buf.Bytes()
	return &c
}

func (h *terminalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func levelLabel(level slog.Level) (color, label string) {
	switch {
	case level >= slog.LevelError:
		return ansiRed, "ERR"
	case level >= slog.LevelWarn:
		return ansiYellow, "WRN"
	case level >= slog.LevelInfo:
		return ansiGreen, "INF"
	}
	return ansiCyan, "DBG"
}

func (h *terminalHandler) paint(buf *bytes.Buffer, style, text string) {
	if !h.out.color {
		buf.WriteString(text)
		return
	}
	buf.WriteString(style)
	buf.WriteString(text)
	buf.WriteString(ansiReset)
}

func (h *terminalHandler) writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, prefix, ga)
		}
		return
	}
	buf.WriteByte(' ')
	h.paint(buf, ansiDim, prefix+a.Key+"=")
	buf.WriteString(attrText(a.Key, a.Value))
}

func attrText(key string, v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		if s := v.String(); strings.ContainsAny(s, " \t\n\"\\") {
			return strconv.Quote(s)
		}
	case slog.KindInt64:
		if strings.HasSuffix(key, "bytes") {
			return humanize.IBytes(uint64(max(v.Int64(), 0)))
		}
		if strings.HasSuffix(key, "samples") {
			return humanize.Comma(v.Int64())
		}
	case slog.KindDuration:
		return v.Duration().Round(time.Microsecond).String()
	}
	return v.String()
}
