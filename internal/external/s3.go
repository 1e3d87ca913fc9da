package external

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"labmaint/internal/types"
)

// S3API is the subset of the S3 client used by S3Archiver.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores report files in one bucket.
type S3Archiver struct {
	api    S3API
	bucket string
	logger *slog.Logger
}

// NewS3Archiver creates an archiver from an AWS config. Path-style
// addressing is used when an endpoint override is configured so that
// LocalStack and MinIO work.
func NewS3Archiver(awsCfg aws.Config, bucket string, logger *slog.Logger) *S3Archiver {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = awsCfg.BaseEndpoint != nil
	})
	return NewS3ArchiverWithAPI(client, bucket, logger)
}

// NewS3ArchiverWithAPI creates an archiver on a caller-supplied API.
func NewS3ArchiverWithAPI(api S3API, bucket string, logger *slog.Logger) *S3Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Archiver{api: api, bucket: bucket, logger: logger}
}

// Put uploads body under key.
func (a *S3Archiver) Put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamStorage, "failed to archive report", err,
			map[string]any{"bucket": a.bucket, "key": key})
	}
	a.logger.InfoContext(ctx, "archived report", "bucket", a.bucket, "key", key, "bytes", len(body))
	return nil
}

var _ Archiver = (*S3Archiver)(nil)
