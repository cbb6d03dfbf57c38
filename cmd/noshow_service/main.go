package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noshow-predictor/internal/artifact"
	"noshow-predictor/internal/auth"
	"noshow-predictor/internal/config"
	"noshow-predictor/internal/logging"
	"noshow-predictor/internal/metrics"
	"noshow-predictor/internal/prediction"
	"noshow-predictor/internal/session"
	"noshow-predictor/internal/storage"
	"noshow-predictor/internal/trends"
	"noshow-predictor/internal/web"

	"gorm.io/gorm"
)

// SetupRouter wires every component behind one handler. The model and the
// dataset are loaded here, once; a failure in either only disables its page.
func SetupRouter(ctx context.Context, cfg *config.Config, db *gorm.DB, logger logging.Logger) (http.Handler, error) {
	authn, err := auth.NewAuthenticator(storage.NewUserStore(db), cfg.BcryptCost, logger)
	if err != nil {
		return nil, err
	}

	opener := artifact.NewOpener(artifact.S3Options{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})

	srv, err := web.NewServer(web.Deps{
		Auth:      authn,
		Tokens:    auth.NewTokens([]byte(cfg.JWTSecret), cfg.TokenTTL),
		Sessions:  session.NewRegistryWithTTL(cfg.SessionTTL),
		Predictor: prediction.LoadService(ctx, opener, cfg.ModelPath, logger),
		Reporter:  trends.LoadReporter(ctx, opener, cfg.DatasetPath, logger),
		Metrics:   metrics.New(),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return srv.Router(), nil
}

// loadConfig returns the exit code to use when no config could be built.
func loadConfig(args []string, stderr io.Writer) (*config.Config, int) {
	cfg, err := config.Load(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil, 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return nil, 2
	}
	return cfg, 0
}

func main() {
	cfg, code := loadConfig(os.Args[1:], os.Stderr)
	if cfg == nil {
		os.Exit(code)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Error(ctx, "db connection failed", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	handler, err := SetupRouter(ctx, cfg, db, logger)
	if err != nil {
		logger.Error(ctx, "server init failed", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info(ctx, "server started", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown error", "error", err)
	}
	logger.Info(shutdownCtx, "server stopped")
}
