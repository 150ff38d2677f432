package httpclient

import (
	"context"
	"errors"
	"net"

	"github.com/joy-dx/auroraproxy/dto"
)

// classifyErr maps a transport failure onto the failure kinds the proxy
// reports. A deadline always wins over the caller having gone away.
func classifyErr(ctx context.Context, url string, err error) *dto.UpstreamError {
	kind := dto.FailureNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = dto.FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = dto.FailureTimeout
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		kind = dto.FailureCanceled
	}
	return &dto.UpstreamError{Kind: kind, URL: url, Err: err}
}
