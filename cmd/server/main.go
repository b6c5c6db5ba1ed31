package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scanledger/waitlist/internal/app"
	"github.com/scanledger/waitlist/internal/config"
	"github.com/scanledger/waitlist/internal/pkg/nativelog"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	flag.Parse()

	dotenvPath, dotenvErr := config.LoadDotenv()

	cfg, cfgErr := config.Load(*configPath)
	logDir, dev := "", false
	if cfgErr == nil {
		logDir, dev = cfg.LogDir(), cfg.IsDev()
	}

	logger, err := nativelog.NewZapLogger(logDir, dev)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("native log pipeline unavailable, fallback to zap production logger", zap.Error(err))
	}
	defer logger.Sync()

	if cfgErr != nil {
		logger.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(cfgErr))
	}
	if dotenvErr != nil {
		logger.Warn("failed to load .env", zap.Error(dotenvErr))
	} else if dotenvPath != "" {
		logger.Info("loaded environment file", zap.String("path", dotenvPath))
	}

	application, err := app.New(logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              application.Addr(),
		Handler:           application.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	if err := application.Shutdown(ctx); err != nil {
		logger.Error("background work did not finish", zap.Error(err))
	}
	logger.Info("server exited")
}
