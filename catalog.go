package auroraproxy

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joy-dx/auroraproxy/client/s3client"
	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/relays"
)

// loadCatalogOverlay merges stream descriptors stored as a JSON array in S3
// over the built-in table. A missing object leaves the table untouched.
func (s *ProxySvc) loadCatalogOverlay(ctx context.Context) error {
	cat := s.cfg.Catalog
	if _, ok := s.client(dto.CATALOG_CLIENT_REF); !ok {
		s3Cfg := s3client.DefaultS3ClientConfig(cat.Region)
		s3Cfg.WithEndpoint(cat.Endpoint, cat.ForcePathStyle).
			WithMiddleware(s3client.LoggingMiddleware(s.relay))
		client, err := s3client.NewS3Client(ctx, dto.CATALOG_CLIENT_REF, &s3Cfg)
		if err != nil {
			return fmt.Errorf("stream catalog client: %w", err)
		}
		s.RegisterClient(dto.CATALOG_CLIENT_REF, client)
	}

	var descriptors []dto.StreamDescriptor
	rc := dto.DefaultRequestConfig()
	rc.WithClientRef(dto.CATALOG_CLIENT_REF).
		WithReqConfig(s3client.GetObjectConfig(cat.Bucket, cat.Key)).
		WithResponseObject(&descriptors).
		WithTimeout(s.cfg.RequestTimeout).
		WithMaxAttempts(s.cfg.MaxAttempts).
		WithDelay(s.delay).
		WithTaskName("stream catalog overlay")

	resp, err := s.RequestWithRetry(ctx, &rc)
	if err != nil {
		return fmt.Errorf("load stream catalog overlay s3://%s/%s: %w", cat.Bucket, cat.Key, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		s.relay.Warn(relays.RlyProxyLog{Msg: fmt.Sprintf("Stream catalog overlay s3://%s/%s not found, using built-in streams", cat.Bucket, cat.Key)})
		return nil
	}

	if err := s.catalog.Merge(descriptors); err != nil {
		return fmt.Errorf("invalid stream catalog overlay: %w", err)
	}
	s.relay.Info(relays.RlyProxyLog{Msg: fmt.Sprintf("Merged %d stream descriptors from s3://%s/%s", len(descriptors), cat.Bucket, cat.Key)})
	return nil
}
