package core

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger shared by every package of the engine.
// Logging is silent until SetLogger is called; nil restores the silent logger.
//
// Levels:
//   - [slog.LevelDebug]: per-frame statistics (draw lists, active lights)
//   - [slog.LevelInfo]: lifecycle (window, GL version, pipeline, audio)
//   - [slog.LevelWarn]: recoverable problems (asset load failures, dropped sounds)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current engine logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
