package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/weather-anomaly-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-anomaly-etl/internal/adapter/kafka"
	"github.com/couchcryptid/weather-anomaly-etl/internal/adapter/openmeteo"
	s3adapter "github.com/couchcryptid/weather-anomaly-etl/internal/adapter/s3"
	"github.com/couchcryptid/weather-anomaly-etl/internal/config"
	"github.com/couchcryptid/weather-anomaly-etl/internal/observability"
	"github.com/couchcryptid/weather-anomaly-etl/internal/pipeline"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	s3Client := awss3.NewFromConfig(awsCfg)

	fetcher := openmeteo.NewClient(cfg.Latitude, cfg.Longitude,
		cfg.FetchTimeout, cfg.FetchRetries, cfg.FetchRetryDelay, metrics, logger)
	reader := s3adapter.NewReader(s3Client, cfg.S3Bucket, cfg.S3RawPrefix, logger)
	writer := s3adapter.NewWriter(s3Client, cfg.S3OutputBucket, cfg.S3OutputKey, logger)

	// Downstream sink is feature-flagged via KAFKA_BROKERS.
	var sink pipeline.RowSink
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		kafkaWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		sink = kafkaWriter
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka sink disabled")
	}

	p := pipeline.New(fetcher, reader, writer, sink,
		logger, metrics, clockwork.NewRealClock(), cfg.RunInterval)

	if *once {
		if _, err := p.RunOnce(ctx); err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
		closeSink(kafkaWriter, logger)
		return
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closeSink(kafkaWriter, logger)

	logger.Info("shutdown complete")
}

func closeSink(w *kafkaadapter.Writer, logger *slog.Logger) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
}
