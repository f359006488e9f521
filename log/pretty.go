package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var levelStyles = map[slog.Level]lipgloss.Style{
	slog.Level(LevelTrace): lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	slog.LevelDebug:        lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	slog.LevelInfo:         lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	slog.LevelWarn:         lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
	slog.LevelError:        lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

var keyStyle = lipgloss.NewStyle().Faint(true)

// prettyTextHandler writes one line per record:
//
//	WARN skipping line: field count mismatch line=4 fields=2
type prettyTextHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	opts  *slog.HandlerOptions
	color bool
	time  bool
	attrs []slog.Attr
	group string
}

func newPrettyTextHandler(w io.Writer, opts *slog.HandlerOptions, color, withTime bool) *prettyTextHandler {
	return &prettyTextHandler{mu: &sync.Mutex{}, out: w, opts: opts, color: color, time: withTime}
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts != nil && h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if h.time && !r.Time.IsZero() {
		buf.WriteString(r.Time.Format(time.TimeOnly))
		buf.WriteByte(' ')
	}

	level := strings.ToUpper(Level(r.Level).String())
	if h.color {
		if style, ok := levelStyles[r.Level]; ok {
			level = style.Render(level)
		}
	}
	buf.WriteString(level)
	buf.WriteByte(' ')
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		h.writeAttr(&buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *prettyTextHandler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	if h.color {
		key = keyStyle.Render(key)
	}
	val := a.Value.String()
	if strings.ContainsAny(val, " \t\n\"=") {
		val = fmt.Sprintf("%q", val)
	}
	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteByte('=')
	buf.WriteString(val)
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &c
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	c := *h
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	return &c
}
