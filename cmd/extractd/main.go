package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jzielinski/invoicescan/internal/app"
	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/server"
)

func main() {
	zlog, _ := zap.NewProduction()
	defer zlog.Sync()
	log := zlog.Sugar()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx, cfg, slog.Default())
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer a.Close()

	if err := a.DB.HealthCheck(ctx, cfg.Database.DialTimeout); err != nil {
		log.Fatalf("DB health failed: %v", err)
	}
	log.Infow("DB health OK", "driver", cfg.Database.Driver)

	srv := server.New(a.Extractor, a.Tracker, a.Rulesets, a.Templates, a.DB, a.MatchOptions(), zlog)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	go func() {
		log.Infof("HTTP serving on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http shutdown: %v", err)
	}
	log.Info("stopped.")
}
