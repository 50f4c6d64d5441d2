// Package logging configures the process-wide slog logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level colors for the CLI handler.
var (
	debugColor = color.New(color.FgHiBlack)
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
)

// CLIHandler is a slog.Handler for humans at a terminal. It prints the message
// followed by key=value attributes, colored by level.
type CLIHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

var _ slog.Handler = &CLIHandler{} // Compile-time check

// NewCLIHandler creates a handler that writes records at or above level to w.
func NewCLIHandler(w io.Writer, level slog.Leveler) *CLIHandler {
	return &CLIHandler{mu: &sync.Mutex{}, writer: w, level: level}
}

// Enabled implements slog.Handler.
func (h *CLIHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *CLIHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if h.prefix != "" {
		b.WriteString("[" + h.prefix + "] ")
	}
	b.WriteString(r.Message)

	attrs := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	var parts []string
	for _, a := range attrs {
		if a.Equal(slog.Attr{}) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", a.Key, a.Value.Resolve()))
	}
	if len(parts) > 0 {
		b.WriteString(": " + strings.Join(parts, " "))
	}

	line := levelColor(r.Level).Sprint(b.String())
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.writer, line)
	return err
}

// WithAttrs implements slog.Handler.
func (h *CLIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(slices.Clone(h.attrs), attrs...)
	return &clone
}

// WithGroup implements slog.Handler. Groups become a bracketed prefix.
func (h *CLIHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.prefix != "" {
		clone.prefix += "." + name
	} else {
		clone.prefix = name
	}
	return &clone
}

func levelColor(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return errorColor
	case level >= slog.LevelWarn:
		return warnColor
	case level >= slog.LevelInfo:
		return infoColor
	default:
		return debugColor
	}
}

// ParseLogLevel converts a string log level to slog.Level.
// Defaults to slog.LevelInfo for unrecognized strings.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w. Format "json" selects the slog JSON
// handler; anything else selects the CLI handler.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	lev := ParseLogLevel(level)
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lev}))
	}
	return slog.New(NewCLIHandler(w, lev))
}

// Setup installs the default logger on stderr.
func Setup(level, format string) {
	slog.SetDefault(NewLogger(os.Stderr, level, format))
}
