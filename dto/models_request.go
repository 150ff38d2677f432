package dto

import (
	"context"
	"errors"
	"time"

	"github.com/joy-dx/auroraproxy/utils"
)

type ReqConfigInterface interface {
	Ref() NetClientType
	NewRequest(ctx context.Context) (any, error)
}

var ErrNilReqConfig = errors.New("nil ReqConfig provided")

type RequestConfig struct {
	// ClientRef Determines which client to use
	ClientRef string             `json:"client_ref" yaml:"client_ref"`
	ReqConfig ReqConfigInterface `json:"req_config" yaml:"req_config"`
	// ResponseObject Used for casting result to
	ResponseObject any           `json:"response_object" yaml:"response_object"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
	// MaxAttempts counts the first try, so 3 means at most two retries
	MaxAttempts int              `json:"max_attempts" yaml:"max_attempts"`
	Delay       utils.RetryDelay `json:"-" yaml:"-"`
	TaskName    string           `json:"task_name" yaml:"task_name"`
}

func DefaultRequestConfig() RequestConfig {
	return RequestConfig{
		ClientRef:   UPSTREAM_CLIENT_REF,
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		Delay:       utils.LinearDelay{Step: time.Second},
	}
}

func (c *RequestConfig) WithClientRef(ref string) *RequestConfig {
	c.ClientRef = ref
	return c
}

func (c *RequestConfig) WithReqConfig(cfg ReqConfigInterface) *RequestConfig {
	c.ReqConfig = cfg
	return c
}

func (c *RequestConfig) WithResponseObject(object interface{}) *RequestConfig {
	c.ResponseObject = object
	return c
}

func (c *RequestConfig) WithTimeout(duration time.Duration) *RequestConfig {
	c.Timeout = duration
	return c
}

func (c *RequestConfig) WithMaxAttempts(count int) *RequestConfig {
	c.MaxAttempts = count
	return c
}

func (c *RequestConfig) WithDelay(delay utils.RetryDelay) *RequestConfig {
	c.Delay = delay
	return c
}

func (c *RequestConfig) WithTaskName(name string) *RequestConfig {
	c.TaskName = name
	return c
}

func (c *RequestConfig) BuildRequest(ctx context.Context) (any, error) {
	if c.ReqConfig == nil {
		return nil, ErrNilReqConfig
	}
	return c.ReqConfig.NewRequest(ctx)
}
