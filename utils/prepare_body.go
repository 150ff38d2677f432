package utils

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// PrepareBody encodes a login or request body for bodyType. Parameters such
// as charset are accepted and dropped. Form values that are string slices
// become repeated keys.
func PrepareBody(body map[string]interface{}, bodyType string) ([]byte, string, error) {
	if body == nil {
		return nil, "", nil
	}

	mediaType, _, err := mime.ParseMediaType(bodyType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(bodyType))
	}

	switch mediaType {
	case ContentTypeJSON:
		buf, err := json.Marshal(body)
		return buf, ContentTypeJSON, err
	case ContentTypeForm:
		vals := url.Values{}
		for k, v := range body {
			switch vv := v.(type) {
			case []string:
				vals[k] = append(vals[k], vv...)
			case nil:
				vals.Set(k, "")
			default:
				vals.Set(k, fmt.Sprintf("%v", v))
			}
		}
		return []byte(vals.Encode()), ContentTypeForm, nil
	default:
		return nil, "", fmt.Errorf("unsupported body_type: %s", bodyType)
	}
}
