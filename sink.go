package servestream

import (
	"io"

	"github.com/servestream/servestream/diag"
	"github.com/servestream/servestream/storage"
)

// ResponseSink is the minimal surface Send needs to deliver a
// StreamResponse. It is structurally similar to http.ResponseWriter but
// declared locally so the core never imports net/http: a caller wires a
// small adapter (cmd/servestream does exactly this) rather than the core
// taking a hard dependency on one network framework.
type ResponseSink interface {
	Header() map[string][]string
	WriteHeader(statusCode int)
	Write(p []byte) (int, error)
}

// StreamResponse is the fully-formed outcome of Server.PrepareResponse:
// a status code, headers, and an optional body stream. Err is populated
// when the response was synthesized from a storage error (§7's
// out-of-band diagnostic channel); the caller still receives a
// well-formed response either way.
type StreamResponse struct {
	StatusCode  int
	Headers     map[string][]string
	Stream      io.ReadCloser
	StorageInfo *storage.Info
	Err         error

	diagSink  diag.Sink
	requestID string
}

// Send writes the response to sink: headers, then the status line, then
// the body (if any) with ordinary io.Copy backpressure. The stream is
// closed exactly once, whether or not the copy succeeds.
func (sr *StreamResponse) Send(sink ResponseSink) error {
	dst := sink.Header()
	for k, vs := range sr.Headers {
		dst[k] = append(dst[k], vs...)
	}
	sink.WriteHeader(sr.StatusCode)
	if sr.Stream == nil {
		return nil
	}
	defer func() {
		if cerr := sr.Stream.Close(); cerr != nil && sr.diagSink != nil {
			sr.diagSink.Emit(diag.Event{RequestID: sr.requestID, Stage: diag.StageClose, Err: cerr})
		}
	}()
	n, err := io.Copy(sink, sr.Stream)
	if err != nil && sr.diagSink != nil {
		sr.diagSink.Emit(diag.Event{RequestID: sr.requestID, Stage: diag.StageStream, Err: err, Detail: "write to sink failed"})
	} else if sr.diagSink != nil {
		sr.diagSink.Emit(diag.Event{RequestID: sr.requestID, Stage: diag.StageClose, Detail: "wrote body"})
		_ = n
	}
	return err
}
