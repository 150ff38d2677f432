package relays

import (
	"log/slog"
	"time"

	"github.com/joy-dx/auroraproxy/dto"
	relayDTO "github.com/joy-dx/relay/dto"
)

const ChannelProxy relayDTO.EventChannel = "aurora.proxy"

const (
	RefProxyLog relayDTO.EventRef = "aurora.proxy.log"
	RefUpstream relayDTO.EventRef = "aurora.proxy.upstream"
	RefAuth     relayDTO.EventRef = "aurora.proxy.auth"
	RefStream   relayDTO.EventRef = "aurora.proxy.stream"
)

// RlyProxyLog is a free-form service message
type RlyProxyLog struct {
	Msg string
}

func (e RlyProxyLog) RelayChannel() relayDTO.EventChannel { return ChannelProxy }
func (e RlyProxyLog) RelayType() relayDTO.EventRef        { return RefProxyLog }
func (e RlyProxyLog) Message() string                     { return e.Msg }
func (e RlyProxyLog) ToSlog() []slog.Attr                 { return nil }

// RlyUpstream describes one outbound attempt
type RlyUpstream struct {
	Task     string
	Method   string
	URL      string
	Status   int
	Attempt  int
	Duration time.Duration
	Err      string
	Msg      string
}

func (e RlyUpstream) RelayChannel() relayDTO.EventChannel { return ChannelProxy }
func (e RlyUpstream) RelayType() relayDTO.EventRef        { return RefUpstream }
func (e RlyUpstream) Message() string                     { return e.Msg }
func (e RlyUpstream) ToSlog() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("task", e.Task),
		slog.String("method", e.Method),
		slog.String("url", e.URL),
	}
	if e.Status != 0 {
		attrs = append(attrs, slog.Int("status", e.Status))
	}
	if e.Attempt != 0 {
		attrs = append(attrs, slog.Int("attempt", e.Attempt))
	}
	if e.Duration != 0 {
		attrs = append(attrs, slog.Duration("duration", e.Duration))
	}
	if e.Err != "" {
		attrs = append(attrs, slog.String("error", e.Err))
	}
	return attrs
}

// RlyAuth reports credential lifecycle changes. Credentials only ever appear
// as fingerprints.
type RlyAuth struct {
	Strategy    string
	Fingerprint string
	Expiry      time.Time
	Msg         string
}

func (e RlyAuth) RelayChannel() relayDTO.EventChannel { return ChannelProxy }
func (e RlyAuth) RelayType() relayDTO.EventRef        { return RefAuth }
func (e RlyAuth) Message() string                     { return e.Msg }
func (e RlyAuth) ToSlog() []slog.Attr {
	attrs := []slog.Attr{slog.String("strategy", e.Strategy)}
	if e.Fingerprint != "" {
		attrs = append(attrs, slog.String("fingerprint", e.Fingerprint))
	}
	if !e.Expiry.IsZero() {
		attrs = append(attrs, slog.Time("expiry", e.Expiry))
	}
	return attrs
}

type RlyStream struct {
	ID           string
	Type         string
	UpstreamPath string
	Status       dto.StreamStatus
	Forwarded    int64
	Msg          string
}

func (e RlyStream) RelayChannel() relayDTO.EventChannel { return ChannelProxy }
func (e RlyStream) RelayType() relayDTO.EventRef        { return RefStream }
func (e RlyStream) Message() string                     { return e.Msg }
func (e RlyStream) ToSlog() []slog.Attr {
	return []slog.Attr{
		slog.String("stream_id", e.ID),
		slog.String("stream_type", e.Type),
		slog.String("upstream_path", e.UpstreamPath),
		slog.String("status", string(e.Status)),
		slog.Int64("forwarded", e.Forwarded),
	}
}
