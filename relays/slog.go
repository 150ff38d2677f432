package relays

import (
	"context"
	"log/slog"

	relayDTO "github.com/joy-dx/relay/dto"
)

const SlogSinkRef = "aurora.slog"

var _ relayDTO.RelaySinkInterface = (*SlogSink)(nil)

// SlogSink delivers relay events to a slog.Logger, JSON by default.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (r *SlogSink) Ref() string { return SlogSinkRef }

func (r *SlogSink) Debug(data relayDTO.RelayEventInterface) { r.emit(slog.LevelDebug, data) }
func (r *SlogSink) Info(data relayDTO.RelayEventInterface)  { r.emit(slog.LevelInfo, data) }
func (r *SlogSink) Warn(data relayDTO.RelayEventInterface)  { r.emit(slog.LevelWarn, data) }
func (r *SlogSink) Error(data relayDTO.RelayEventInterface) { r.emit(slog.LevelError, data) }

// Fatal is logged at error level. The relay service exits afterwards, so the
// proxy never raises fatal events on behalf of a request.
func (r *SlogSink) Fatal(data relayDTO.RelayEventInterface) {
	r.emit(slog.LevelError, data, slog.Bool("fatal", true))
}

func (r *SlogSink) Meta(data relayDTO.RelayEventInterface) {
	r.emit(slog.LevelInfo, data, slog.Bool("meta", true))
}

func (r *SlogSink) emit(level slog.Level, data relayDTO.RelayEventInterface, extra ...slog.Attr) {
	if data == nil {
		return
	}
	ctx := context.Background()
	if !r.logger.Enabled(ctx, level) {
		return
	}
	attrs := []slog.Attr{
		slog.String("channel", string(data.RelayChannel())),
		slog.String("event", string(data.RelayType())),
	}
	attrs = append(attrs, data.ToSlog()...)
	attrs = append(attrs, extra...)
	r.logger.LogAttrs(ctx, level, data.Message(), attrs...)
}
