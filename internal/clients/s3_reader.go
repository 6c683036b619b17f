package clients

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ObjectReader opens uploaded batch files.
type S3ObjectReader struct {
	client S3GetObjectAPI
}

func NewS3ObjectReader(client S3GetObjectAPI) *S3ObjectReader {
	return &S3ObjectReader{client: client}
}

// Open returns the object body. The caller closes it.
func (r *S3ObjectReader) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	slog.Info("[S3Client] Reading object",
		slog.String("bucket", bucket),
		slog.String("key", key))

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("[S3Client] failed to get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}
