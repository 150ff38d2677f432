package utils

import "net/http"

// S3MetaPrefix is how S3 exposes user metadata over HTTP.
const S3MetaPrefix = "X-Amz-Meta-"

// MetadataToHeader renders object metadata as the headers S3 would have sent
// for it. Empty keys are skipped.
func MetadataToHeader(meta map[string]string) http.Header {
	h := make(http.Header, len(meta))
	for k, v := range meta {
		if k == "" {
			continue
		}
		h.Set(S3MetaPrefix+k, v)
	}
	return h
}
