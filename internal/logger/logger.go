// Package logger sets up structured logging for the profilegen binaries.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
)

// Logger wraps slog.Logger with a few helpers for the events we log a lot.
type Logger struct {
	*slog.Logger
}

// New returns a text logger in development and a JSON logger everywhere else.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

func NewWithWriter(env string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, size int, latency time.Duration, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Int("size", size),
		slog.Float64("latency_ms", float64(latency.Microseconds())/1000),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
}

// RequestLogger logs every request through gorilla/handlers' logging handler, which
// already knows how to capture the status code and response size.
func (l *Logger) RequestLogger(h http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, h, func(_ io.Writer, p handlers.LogFormatterParams) {
		path := p.URL.Path
		if p.Request != nil {
			path = p.Request.URL.Path
		}
		method, clientIP := "", ""
		if p.Request != nil {
			method = p.Request.Method
			clientIP = p.Request.RemoteAddr
		}
		l.HTTPRequest(method, path, p.StatusCode, p.Size, time.Since(p.TimeStamp), clientIP)
	})
}

// Println lets a Logger be passed to handlers.RecoveryLogger.
func (l *Logger) Println(v ...any) {
	l.Error("panic_recovered", slog.String("panic", strings.TrimSpace(fmt.Sprintln(v...))))
}
