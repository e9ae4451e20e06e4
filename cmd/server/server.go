package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"gopkg.in/tomb.v2"

	fractal "github.com/marben/dist_fractal"
	"github.com/marben/dist_fractal/internal/config"
)

type args struct {
	Config string `arg:"-c,--config,env:FRACTAL_CONFIG" help:"TOML configuration file"`
}

func (args) Description() string {
	return "fractal server: streams progressive renders to browsers over websocket and serves one-shot PNG renders"
}

// main is the entry point for the fractal server.
// Tiles are rendered in-process, on nats workers or on irpc workers that
// connect to the server, see render.backend.
func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	var a args
	arg.MustParse(&a)

	// Step 1: configuration and logging
	cfg, err := config.Load(a.Config)
	if err != nil {
		return err
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)
	fractal.SetLogger(logger)

	base, err := cfg.View.Request()
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}

	// Step 2: tile renderer shared by all viewers
	b, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	// Step 3: http server with the websocket endpoint
	ws := &webServer{
		backend: b,
		base:    base,
		origins: cfg.Server.Origins,
		static:  cfg.Server.Static,
	}
	srv := newHTTPServer(cfg.Server.Listen, ws.handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Step 4: serve until a signal arrives or the listener fails
	t, _ := tomb.WithContext(ctx)
	if err := b.serve(t); err != nil {
		return err
	}
	t.Go(func() error {
		log.Printf("listening on http://localhost%s", cfg.Server.Listen)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("httpServer: %w", err)
		}
		return nil
	})
	t.Go(func() error {
		<-t.Dying()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Printf("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := t.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
