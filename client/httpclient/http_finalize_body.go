package httpclient

import (
	"fmt"

	"github.com/joy-dx/auroraproxy/utils"
)

// FinalizeBody settles BodyBytes and ContentType once per attempt. A raw
// body forwarded from the browser is sent untouched and keeps the browser's
// Content-Type; otherwise the body map is encoded for BodyType.
func (r *HTTPRequest) FinalizeBody() error {
	if r.BodyBytes != nil {
		if r.ContentType == "" {
			r.ContentType = r.Header("Content-Type")
		}
		return nil
	}

	bodyBuf, ct, err := utils.PrepareBody(r.Body, r.BodyType)
	if err != nil {
		return fmt.Errorf("prepare body: %w", err)
	}

	r.BodyBytes = bodyBuf
	// A middleware may already have chosen the content type.
	if r.ContentType == "" {
		r.ContentType = ct
	}
	return nil
}
