package s3client

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/joy-dx/auroraproxy/relays"
	relayDTO "github.com/joy-dx/relay/dto"
)

// KeyPrefixMiddleware scopes every key under prefix, e.g. per environment.
func KeyPrefixMiddleware(prefix string) Middleware {
	prefix = strings.Trim(prefix, "/")
	return func(ctx context.Context, r *S3Request) error {
		if prefix == "" || strings.HasPrefix(r.Key, prefix+"/") {
			return nil
		}
		r.Key = path.Join(prefix, r.Key)
		return nil
	}
}

func LoggingMiddleware(relay relayDTO.RelayInterface) Middleware {
	return func(ctx context.Context, r *S3Request) error {
		relay.Debug(relays.RlyProxyLog{Msg: fmt.Sprintf(
			"[S3] %s s3://%s/%s",
			strings.ToUpper(r.Operation),
			r.Bucket,
			r.Key,
		)})
		return nil
	}
}
