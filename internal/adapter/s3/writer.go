package s3

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/couchcryptid/weather-anomaly-etl/internal/domain"
)

// Writer publishes the combined wide table as a CSV object. It implements
// pipeline.ArtifactPublisher.
type Writer struct {
	api    WriteAPI
	bucket string
	key    string
	logger *slog.Logger
}

// NewWriter creates a publisher targeting s3://bucket/key.
func NewWriter(api WriteAPI, bucket, key string, logger *slog.Logger) *Writer {
	return &Writer{api: api, bucket: bucket, key: key, logger: logger}
}

// Publish encodes the rows and uploads them, replacing any previous artifact
// at the same key.
func (w *Writer) Publish(ctx context.Context, rows []domain.WideRow) error {
	data, err := domain.EncodeCSV(rows)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	_, err = w.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(w.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", w.bucket, w.key, err)
	}

	w.logger.Info("published artifact",
		"bucket", w.bucket,
		"key", w.key,
		"rows", len(rows),
		"bytes", len(data))
	return nil
}
