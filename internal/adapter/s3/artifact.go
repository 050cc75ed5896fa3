package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/couchcryptid/weather-anomaly-etl/internal/domain"
)

// ArtifactFetcher downloads and decodes a previously published CSV artifact.
// The dashboard and the validate tool read through it.
type ArtifactFetcher struct {
	api    ReadAPI
	bucket string
	key    string
}

// NewArtifactFetcher creates a fetcher for s3://bucket/key.
func NewArtifactFetcher(api ReadAPI, bucket, key string) *ArtifactFetcher {
	return &ArtifactFetcher{api: api, bucket: bucket, key: key}
}

// Fetch downloads the artifact and decodes it into wide rows.
func (f *ArtifactFetcher) Fetch(ctx context.Context) ([]domain.WideRow, error) {
	out, err := f.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", f.bucket, f.key, err)
	}
	defer out.Body.Close()

	rows, err := domain.DecodeCSV(out.Body)
	if err != nil {
		return nil, fmt.Errorf("decode s3://%s/%s: %w", f.bucket, f.key, err)
	}
	return rows, nil
}
