package s3client

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joy-dx/auroraproxy/dto"
)

const OperationGet = "get"

// S3RequestConfig defines the structure of an S3 request operation.
type S3RequestConfig struct {
	Operation string
	Bucket    string
	Key       string
	// IfNoneMatch skips the download when the object still has this ETag
	IfNoneMatch string
}

func (c *S3RequestConfig) Ref() dto.NetClientType {
	return NetClientS3Ref
}

// GetObjectConfig is shorthand for the only supported operation.
func GetObjectConfig(bucket, key string) *S3RequestConfig {
	return &S3RequestConfig{Operation: OperationGet, Bucket: bucket, Key: key}
}

type S3Request struct {
	Operation   string
	Bucket      string
	Key         string
	IfNoneMatch string

	// Deterministic prepared AWS input (built after middleware)
	GetInput *s3.GetObjectInput
}

func (c *S3RequestConfig) NewRequest(ctx context.Context) (any, error) {
	return &S3Request{
		Operation:   c.Operation,
		Bucket:      c.Bucket,
		Key:         c.Key,
		IfNoneMatch: c.IfNoneMatch,
	}, nil
}
