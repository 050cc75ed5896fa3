// Command dashboard serves a read-only web view over the published weather
// artifact.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"

	s3adapter "github.com/couchcryptid/weather-anomaly-etl/internal/adapter/s3"
	"github.com/couchcryptid/weather-anomaly-etl/internal/config"
	"github.com/couchcryptid/weather-anomaly-etl/internal/dashboard"
	"github.com/couchcryptid/weather-anomaly-etl/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	s3Client := awss3.NewFromConfig(awsCfg)

	loader := s3adapter.NewArtifactFetcher(s3Client, cfg.S3OutputBucket, cfg.S3OutputKey)
	srv := dashboard.NewServer(cfg.DashboardAddr, loader, cfg.DashboardTTL, clockwork.NewRealClock(), logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("dashboard server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("dashboard shutdown error", "error", err)
	}
}
