package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/ramory-l/gosio"
)

const shutdownTimeout = 10 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func run(ctx context.Context, s settings) error {
	logger := newLogger(s.LogLevel)
	slog.SetDefault(logger)

	server, err := gosio.NewServer(&gosio.Config{
		PingInterval: s.PingInterval,
		PingTimeout:  s.PingTimeout,
		MaxPayload:   s.MaxPayload,
		QueueSize:    s.QueueSize,
		IDFormat:     s.IDFormat,
	}, gosio.WithLogger(logger))
	if err != nil {
		return err
	}

	for _, name := range s.Namespaces {
		if _, ok := server.Namespace(name); ok {
			continue
		}
		if _, err := server.CreateNamespace(name); err != nil {
			return fmt.Errorf("namespace %q: %w", name, err)
		}
	}

	httpServer := &http.Server{
		Addr:    s.Addr,
		Handler: newMux(s.Path, server),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "addr", s.Addr, "path", s.Path, "namespaces", server.Registry().Names())
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		return errors.Join(err, server.Close())
	})

	return g.Wait()
}

func newMux(path string, server *gosio.Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(path, server)
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/stats", statsHandler(server.Registry()))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statsHandler(registry *gosio.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(registry.Stats())
	}
}
