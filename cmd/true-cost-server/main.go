package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iwvelando/true-cost/internal/allocation"
	"github.com/iwvelando/true-cost/internal/batch"
	"github.com/iwvelando/true-cost/internal/config"
	"github.com/iwvelando/true-cost/internal/metrics"
	"github.com/iwvelando/true-cost/internal/server"
	"github.com/iwvelando/true-cost/internal/source"
	"github.com/iwvelando/true-cost/pkg/constants"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func initializeLogger(loggingConfig config.LoggingConfig) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch loggingConfig.Level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "", "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", loggingConfig.Level)
	}

	var config zap.Config
	switch loggingConfig.Format {
	case "", "json":
		config = zap.NewProductionConfig()
	case "console":
		config = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", loggingConfig.Format)
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}
		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

func main() {
	_ = godotenv.Load()

	configLocation := flag.String("config", constants.DefaultServerConfigFile, "path to server configuration file")
	address := flag.String("address", "", "listen address override")
	flag.Parse()

	serverConf, err := server.LoadConfig(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}
	if *address != "" {
		serverConf.Address = *address
	}

	logger, err := initializeLogger(serverConf.Logging)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	conf := config.Default()
	if serverConf.Settings != "" {
		conf, err = config.LoadConfiguration(serverConf.Settings)
		if err != nil {
			logger.Fatal("failed to load allocation settings",
				zap.String("op", "main"),
				zap.String("path", serverConf.Settings),
				zap.Error(err),
			)
		}
	}

	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	book, err := conf.RateBook()
	if err != nil {
		logger.Fatal("failed to build exchange rate table",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	logger.Info("exchange rates loaded",
		zap.String("op", "main"),
		zap.String("target", book.Target()),
		zap.Strings("currencies", book.Codes()),
	)

	registry := source.NewRegistry(logger, source.Capabilities{PDF: conf.Input.PDF})
	reg := metrics.NewRegistry()
	runner := batch.NewRunner(logger, registry, book, allocation.NewEngine(logger, conf.Tolerance), batch.Options{Metrics: reg})

	handler := server.NewHandler(logger, serverConf.UploadSizeBytes(), version, server.Service{
		Runner:         runner,
		Registry:       registry,
		Metrics:        reg,
		Warnings:       warnings,
		AllowedOrigins: serverConf.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              serverConf.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("op", "main"),
			zap.String("address", serverConf.Address),
			zap.String("version", version),
			zap.Int64("maxUploadSize", serverConf.UploadSizeBytes()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConf.ShutdownTimeoutDuration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return
	}
	logger.Info("server stopped",
		zap.String("op", "main"),
	)
}
