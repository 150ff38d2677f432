package s3client

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Finalize builds the deterministic AWS SDK input struct for the operation.
// Call this exactly once after middleware has run and before executing.
func (r *S3Request) Finalize() error {
	r.GetInput = nil

	switch r.Operation {
	case OperationGet:
		if r.Bucket == "" || r.Key == "" {
			return errors.New("s3 get requires bucket and key")
		}
		r.GetInput = &s3.GetObjectInput{
			Bucket: aws.String(r.Bucket),
			Key:    aws.String(r.Key),
		}
		if r.IfNoneMatch != "" {
			r.GetInput.IfNoneMatch = aws.String(r.IfNoneMatch)
		}
		return nil

	default:
		return fmt.Errorf("unsupported s3 operation: %s", r.Operation)
	}
}
