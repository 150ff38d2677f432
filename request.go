package auroraproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/relays"
	"github.com/joy-dx/auroraproxy/utils"
)

// RequestWithRetry repeats RequestOnce while the failure is transient. Any
// HTTP response ends the loop, whatever its status. Before attempt k+1 the
// delay waits for attempt k.
func (s *ProxySvc) RequestWithRetry(ctx context.Context, cfg *dto.RequestConfig) (dto.Response, error) {
	if cfg == nil {
		return dto.Response{}, errors.New("nil RequestConfig provided")
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := cfg.Delay
	if delay == nil {
		delay = s.delay
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if waitErr := delay.Wait(ctx, cfg.TaskName, attempt-1); waitErr != nil {
				return dto.Response{}, fmt.Errorf("retry aborted after %d attempts: %w", attempt-1, lastErr)
			}
		}

		resp, err := s.RequestOnce(ctx, cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !utils.IsTransientErr(err) {
			return resp, err
		}
		if attempt < maxAttempts {
			s.relay.Warn(relays.RlyUpstream{
				Task:    cfg.TaskName,
				Attempt: attempt,
				Err:     err.Error(),
				Msg:     "Transient upstream failure, retrying",
			})
		}
	}

	return dto.Response{}, fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

func (s *ProxySvc) RequestOnce(ctx context.Context, cfg *dto.RequestConfig) (dto.Response, error) {
	if cfg == nil {
		return dto.Response{}, errors.New("nil RequestConfig provided")
	}

	if cfg.ClientRef == "" {
		return dto.Response{}, errors.New("nil ClientRef provided")
	}

	if cfg.ReqConfig == nil {
		return dto.Response{}, dto.ErrNilReqConfig
	}

	if cfg.TaskName == "" {
		cfg.TaskName = "upstream_request"
	}

	netClient, isOK := s.client(cfg.ClientRef)
	if !isOK {
		return dto.Response{}, fmt.Errorf("client not found: %s", cfg.ClientRef)
	}

	// Sanity check that the req config matches the client type to avoid later casting confusion
	if netClient.Type() != cfg.ReqConfig.Ref() {
		return dto.Response{}, fmt.Errorf(
			"client type mismatch: client=%s(%s) req=%s",
			cfg.ClientRef,
			netClient.Type(),
			cfg.ReqConfig.Ref(),
		)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	started := time.Now()
	response, err := netClient.ProcessRequest(ctx, cfg)
	if err != nil {
		return dto.Response{}, fmt.Errorf("perform request: %w", err)
	}
	s.relay.Debug(relays.RlyUpstream{
		Task:     cfg.TaskName,
		Status:   response.StatusCode,
		Duration: time.Since(started),
		Msg:      "Upstream responded",
	})

	if cfg.ResponseObject != nil && len(response.Body) > 0 && response.StatusCode < 300 {
		if unmarshalErr := json.Unmarshal(response.Body, cfg.ResponseObject); unmarshalErr != nil {
			return response, fmt.Errorf("unmarshal response: %w", unmarshalErr)
		}
	}

	return response, nil
}
