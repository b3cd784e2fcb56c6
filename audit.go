package goSession

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is one session lifecycle record delivered to an [AuditSink].
type AuditEvent = audit.Event

// AuditSink receives audit events from the session's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards every event.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers events in a channel exposed by Events.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// SlogSink logs each event as a structured record.
type SlogSink = audit.SlogSink

// NewChannelSink returns a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewSlogSink returns a [SlogSink] writing to logger, or slog.Default when
// logger is nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return audit.NewSlogSink(logger)
}
