package s3client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/utils"
)

// doGet maps a missing object to 404 and an unchanged one to 304 so callers
// can treat both as "keep what you have".
func (c *S3Client) doGet(ctx context.Context, r *S3Request) (dto.Response, error) {
	out, err := c.client.GetObject(ctx, r.GetInput)
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return dto.Response{StatusCode: http.StatusNotFound, Headers: http.Header{}}, nil
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotModified" {
			return dto.Response{StatusCode: http.StatusNotModified, Headers: http.Header{}}, nil
		}
		return dto.Response{}, fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return dto.Response{}, fmt.Errorf("read s3 object: %w", err)
	}

	headers := utils.MetadataToHeader(out.Metadata)
	if etag := aws.ToString(out.ETag); etag != "" {
		headers.Set("ETag", etag)
	}
	if ct := aws.ToString(out.ContentType); ct != "" {
		headers.Set("Content-Type", ct)
	}

	return dto.Response{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers:    headers,
	}, nil
}
