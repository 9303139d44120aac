package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/framelink/internal/logging"
)

var errInvalidAuthType = errors.New("invalid authentication type")

// HTTPLoggingMiddleware logs requests at a level chosen by status code.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	logger := logging.GetLogger("http")

	method := ctx.Method()
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", ctx.URL().Path),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if query := ctx.URL().RawQuery; query != "" {
		attrs = append(attrs, slog.String("query", query))
	}

	next(ctx)

	status := ctx.Status()
	attrs = append(attrs,
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)

	level := slog.LevelInfo
	switch {
	case method == http.MethodOptions:
		level = slog.LevelDebug
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}

type corsConfig struct {
	allowOrigin  string
	allowMethods string
	allowHeaders string
	maxAge       string
}

func defaultCORSConfig() corsConfig {
	return corsConfig{
		allowOrigin:  "*",
		allowMethods: strings.Join([]string{"GET", "POST", "OPTIONS"}, ", "),
		allowHeaders: strings.Join([]string{"Content-Type", "Authorization", "Accept", "Origin"}, ", "),
		maxAge:       strconv.Itoa(86400),
	}
}

func (c corsConfig) apply(set func(key, value string)) {
	set("Access-Control-Allow-Origin", c.allowOrigin)
	set("Access-Control-Allow-Methods", c.allowMethods)
	set("Access-Control-Allow-Headers", c.allowHeaders)
	set("Access-Control-Max-Age", c.maxAge)
}

func newCORSMiddleware(c corsConfig) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		c.apply(ctx.SetHeader)
		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}
		next(ctx)
	}
}

// addCORSHandler answers preflight requests, which never reach huma routes.
func addCORSHandler(mux *http.ServeMux, c corsConfig) {
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, _ *http.Request) {
		c.apply(w.Header().Set)
		w.WriteHeader(http.StatusNoContent)
	})
}
