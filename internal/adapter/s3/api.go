// Package s3 adapts AWS S3 to the pipeline's historical source and
// artifact publisher interfaces.
package s3

import (
	"context"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// ReadAPI is the subset of the S3 client used to enumerate and download
// objects. *awss3.Client satisfies it, as does the paginator's client
// requirement.
type ReadAPI interface {
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// WriteAPI is the subset of the S3 client used to upload the published
// artifact.
type WriteAPI interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}
