package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"summarize-backend/internal/bootstrap"
	"summarize-backend/internal/shared/config"
	"summarize-backend/internal/shared/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads wait on the completion call, so the write deadline sits above it.
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting API server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("API server stopped")
}
