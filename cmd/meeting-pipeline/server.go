// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/middleware"
)

// readinessChecker reports whether a component can take work.
type readinessChecker func() bool

// newHTTPHandler builds the probe and metrics routes.
func newHTTPHandler(checks ...readinessChecker) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		// This always returns as long as the service is still running. The
		// service must self-terminate on non-recoverable errors.
		_, _ = w.Write([]byte("OK\n"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		for _, ready := range checks {
			if !ready() {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("OK\n"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux

	// RequestIDMiddleware is added last so that it runs first.
	handler = middleware.RequestLoggerMiddleware()(handler)
	handler = middleware.RequestIDMiddleware()(handler)
	return otelhttp.NewHandler(handler, "meeting-pipeline")
}

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, handler http.Handler, gracefulCloseWG *sync.WaitGroup) *http.Server {
	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// Because ErrServerClosed is *immediately* returned when Shutdown is
		// called, not when when Shutdown completes, this must not yet decrement
		// the wait group.
	}()

	return httpServer
}
