// Package diag implements the out-of-band diagnostic channel described
// in spec §7: errors that get folded into a status code, and close
// errors that happen after headers are already on the wire, are
// reported here rather than silently swallowed or returned from
// PrepareResponse (which must always yield a well-formed response).
package diag

import (
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stage names the point in the response lifecycle an Event was raised
// from, for filtering/alerting.
type Stage string

const (
	StageOpen         Stage = "open"
	StagePrecondition Stage = "precondition"
	StageRange        Stage = "range"
	StageStream       Stage = "stream"
	StageClose        Stage = "close"
)

// Event is one diagnostic occurrence attached to a response.
type Event struct {
	RequestID string
	Stage     Stage
	Err       error
	Detail    string
}

// Sink receives Events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(Event)
}

// ZerologSink adapts a zerolog.Logger into a Sink, logging at Trace for
// routine misses (Err == nil) and Error otherwise, mirroring the
// verbosity discipline the teacher applies throughout its request path.
type ZerologSink struct {
	Logger zerolog.Logger
}

// NewZerologSink builds a ZerologSink over the global zerolog logger.
func NewZerologSink() ZerologSink {
	return ZerologSink{Logger: log.Logger}
}

func (s ZerologSink) Emit(e Event) {
	evt := s.Logger.Trace()
	if e.Err != nil {
		evt = s.Logger.Error()
	}
	evt = evt.Str("stage", string(e.Stage)).Str("reqID", e.RequestID)
	if e.Detail != "" {
		evt = evt.Str("detail", e.Detail)
	}
	if e.Err != nil {
		evt = evt.Err(e.Err)
	}
	evt.Msg("servestream diagnostic")
}

// NoopSink discards every Event; useful for tests and for callers that
// don't want the default zerolog wiring.
type NoopSink struct{}

func (NoopSink) Emit(Event) {}

// NewRequestID mints a short correlation id for one PrepareResponse
// call, to tag every Event it emits.
func NewRequestID() string {
	return xid.New().String()
}
