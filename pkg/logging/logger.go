// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package logging provides structured logging for scheduler, worker and
// tracing-pipeline daemons.
package logging

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
	"unicode"

	dctx "github.com/jontk/distsched/pkg/context"
)

// Logger is the interface used by every daemon in this module.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

type slogLogger struct {
	logger *slog.Logger
}

// NewLogger creates a new logger with the given configuration.
func NewLogger(config *Config) Logger {
	if config == nil {
		config = DefaultConfig()
	}

	opts := &slog.HandlerOptions{
		Level: config.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	base := slog.New(handler)
	if config.Component != "" {
		base = base.With("component", config.Component)
	}
	return &slogLogger{logger: base}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, sanitizeFields(args)...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, sanitizeFields(args)...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, sanitizeFields(args)...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, sanitizeFields(args)...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	attrs := make([]any, 0, 6)
	if runID := dctx.RunID(ctx); runID != "" {
		attrs = append(attrs, "run_id", runID)
	}
	if nodeID := dctx.NodeID(ctx); nodeID != "" {
		attrs = append(attrs, "node", nodeID)
	}
	if traceID := dctx.TraceID(ctx); traceID != "" {
		attrs = append(attrs, "trace_id", traceID)
	}
	if len(attrs) > 0 {
		return l.With(attrs...)
	}
	return l
}

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Format    Format
	Output    *os.File
	Component string
}

// Format is the log output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// DefaultConfig returns a default logger configuration: text to stdout at info level.
func DefaultConfig() *Config {
	return &Config{
		Level:  slog.LevelInfo,
		Format: FormatText,
		Output: os.Stdout,
	}
}

// sanitizeLogValue strips control characters from string values so a
// malicious input/output path can't forge extra log lines.
func sanitizeLogValue(value any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, str)
}

func sanitizeFields(fields []any) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = sanitizeLogValue(f)
	}
	return out
}

// LogDispatch returns logger annotated with the standard dispatch-decision
// fields; the caller emits the log line.
func LogDispatch(logger Logger, node string, cpuUnits int, capLeft int64, fields ...any) Logger {
	base := []any{"node", node, "cpu_units", cpuUnits, "cap_left", capLeft}
	return logger.With(append(base, fields...)...)
}

// LogTask returns logger annotated with a per-task worker event and the
// call site; the caller emits the log line.
func LogTask(logger Logger, event string, fields ...any) Logger {
	_, file, line, _ := runtime.Caller(1)
	base := []any{"event", event, "caller", file + ":" + strconv.Itoa(line)}
	return logger.With(append(base, fields...)...)
}
