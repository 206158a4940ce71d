package servestream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/servestream/servestream/conditional"
	"github.com/servestream/servestream/diag"
	"github.com/servestream/servestream/headerbuilder"
	"github.com/servestream/servestream/httpheader"
	"github.com/servestream/servestream/multipart"
	"github.com/servestream/servestream/rangeplan"
	"github.com/servestream/servestream/storage"
)

// Server drives the path-parsing, encoding-negotiation, conditional-GET
// and range-planning machinery against one Storage and one set of
// default Options. It mirrors the teacher's single-AlwaysCache-per-origin
// shape: build one Server per mount point, call PrepareResponse per
// request, mount many Servers under whatever router the caller likes.
type Server struct {
	store      storage.Storage
	mimeLookup storage.MimeTypeLookup // non-nil when store implements it
	opts       Options
	sink       diag.Sink
}

// NewServer builds a Server. A nil sink defaults to a zerolog-backed
// diag.Sink logging at Trace/Error, matching the teacher's default
// logging posture. If store implements storage.MimeTypeLookup, it takes
// priority over opts.MimeModule for resources that don't already carry
// their own Info.MimeType.
func NewServer(store storage.Storage, opts Options, sink diag.Sink) *Server {
	if sink == nil {
		sink = diag.NewZerologSink()
	}
	srv := &Server{store: store, opts: opts, sink: sink}
	if ml, ok := store.(storage.MimeTypeLookup); ok {
		srv.mimeLookup = ml
	}
	return srv
}

func (s *Server) maxRanges() int {
	if s.opts.MaxRanges != nil {
		return *s.opts.MaxRanges
	}
	return rangeplan.DefaultMaxRanges
}

// PrepareResponse runs the full §4.I orchestration and always returns a
// well-formed StreamResponse; storage errors are translated into a
// status code rather than propagated, per the spec's error-propagation
// policy. Method is the request method (GET, HEAD, or anything else —
// anything else is rejected by the method gate).
func (s *Server) PrepareResponse(ctx context.Context, ref storage.Reference, requestHeaders map[string][]string, method string) *StreamResponse {
	requestID := diag.NewRequestID()

	allowed := s.opts.allowedMethods()
	if !s.opts.methodAllowed(method) {
		return s.finish(&StreamResponse{
			StatusCode: 405,
			Headers:    map[string][]string{"Allow": {strings.Join(allowed, ", ")}},
		}, requestID)
	}

	s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageOpen})
	info, err := s.store.Open(ctx, ref, requestHeaders)
	if err != nil {
		return s.finish(s.errorResponse(err, requestID), requestID)
	}

	headers, contentType, etag, hasETag := s.buildHeaders(info)

	if s.opts.StatusCode != 0 {
		return s.finish(s.fullBodyResponse(ctx, info, headers, s.opts.StatusCode, method, requestID), requestID)
	}

	condReq := conditional.Request{
		Method:            method,
		IfMatch:           httpheader.Get(requestHeaders, "If-Match"),
		IfNoneMatch:       httpheader.Get(requestHeaders, "If-None-Match"),
		IfModifiedSince:   httpheader.Get(requestHeaders, "If-Modified-Since"),
		IfUnmodifiedSince: httpheader.Get(requestHeaders, "If-Unmodified-Since"),
		IfRange:           httpheader.Get(requestHeaders, "If-Range"),
	}
	rangeHeader := httpheader.Get(requestHeaders, "Range")
	condReq.HasRange = rangeHeader != ""

	condRes := conditional.Resource{
		ETag:     etag,
		HasETag:  hasETag,
		MTimeMS:  info.MTimeMS,
		HasMTime: info.HasMTime,
	}
	verdict := conditional.Evaluate(condReq, condRes)
	s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StagePrecondition})

	switch verdict.Verdict {
	case conditional.NotModified:
		s.closeNow(info, requestID)
		return s.finish(&StreamResponse{StatusCode: 304, Headers: headers, StorageInfo: info}, requestID)
	case conditional.PreconditionFailed:
		s.closeNow(info, requestID)
		return s.finish(&StreamResponse{StatusCode: 412, Headers: headers, StorageInfo: info}, requestID)
	}

	if method == "HEAD" {
		headers["Accept-Ranges"] = []string{headerbuilder.AcceptRanges(s.maxRanges(), info.HasSize)}
		if info.HasSize {
			headers["Content-Length"] = []string{headerbuilder.ContentLength(info.Size)}
		}
		s.closeNow(info, requestID)
		return s.finish(&StreamResponse{StatusCode: 200, Headers: headers, StorageInfo: info}, requestID)
	}

	if verdict.DropRange {
		rangeHeader = ""
	}
	return s.finish(s.planAndStream(ctx, info, headers, rangeHeader, contentType, requestID), requestID)
}

// finish attaches the diagnostic sink and correlation id so Send can
// report stream-time errors without the caller threading them through.
func (s *Server) finish(sr *StreamResponse, requestID string) *StreamResponse {
	sr.diagSink = s.sink
	sr.requestID = requestID
	return sr
}

func (s *Server) closeNow(info *storage.Info, requestID string) {
	if err := s.store.Close(info); err != nil {
		s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageClose, Err: err})
	}
}

func (s *Server) errorResponse(err error, requestID string) *StreamResponse {
	var serr *storage.Error
	if errors.As(err, &serr) {
		switch serr.Kind {
		case storage.KindNotNormalized:
			s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageOpen, Err: err, Detail: "redirect"})
			return &StreamResponse{
				StatusCode: 301,
				Headers:    map[string][]string{"Location": {serr.NormalizedPath}},
				Err:        err,
			}
		case storage.KindUnknown:
			s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageOpen, Err: err})
			return &StreamResponse{StatusCode: 500, Err: err}
		default:
			s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageOpen, Err: err, Detail: serr.Kind.String()})
			return &StreamResponse{StatusCode: 404, Err: err}
		}
	}
	s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageOpen, Err: err})
	return &StreamResponse{StatusCode: 500, Err: err}
}

// buildHeaders assembles every header §4.E describes except the
// range-dependent ones (Content-Range, multipart Content-Type), which
// planAndStream fills in once a plan is known. It also returns the
// resolved Content-Type (needed again for multipart part headers) and
// the parsed ETag (needed for conditional evaluation).
func (s *Server) buildHeaders(info *storage.Info) (headers map[string][]string, contentType string, etag httpheader.ETag, hasETag bool) {
	headers = map[string][]string{}

	if !s.opts.ContentType.Disabled {
		if s.opts.ContentType.Set {
			contentType = s.opts.ContentType.Value
		} else {
			mimeType := info.MimeType
			if mimeType == "" && s.mimeLookup != nil {
				if mt, ok := s.mimeLookup.MimeTypeLookup(info.FileName); ok {
					mimeType = mt
				}
			}
			if mimeType == "" && s.opts.MimeModule != nil {
				if mt, ok := s.opts.MimeModule.MimeTypeLookup(info.FileName); ok {
					mimeType = mt
				}
			}
			if mimeType == "" {
				mimeType = s.opts.DefaultContentType
			}
			if mimeType != "" {
				contentType = headerbuilder.ContentType(mimeType, info.MimeTypeCharset, s.opts.charsetRules())
			}
		}
		if contentType != "" {
			headers["Content-Type"] = []string{contentType}
		}
	}

	if !s.opts.ContentDispositionType.Disabled {
		dispositionType := "inline"
		if s.opts.ContentDispositionType.Set {
			dispositionType = s.opts.ContentDispositionType.Value
		}
		filename := info.FileName
		if s.opts.ContentDispositionFilename.Disabled {
			filename = ""
		} else if s.opts.ContentDispositionFilename.Set {
			filename = s.opts.ContentDispositionFilename.Value
		}
		headers["Content-Disposition"] = []string{headerbuilder.ContentDisposition(dispositionType, filename)}
	}

	if info.ContentEncoding != "" && info.ContentEncoding != "identity" {
		headers["Content-Encoding"] = []string{info.ContentEncoding}
	}

	if vary := headerbuilder.MergeVary(info.Vary, info.VaryAcceptEncoding); vary != "" {
		headers["Vary"] = []string{vary}
	}

	if !s.opts.CacheControl.Disabled {
		cc := "public, max-age=0"
		if s.opts.CacheControl.Set {
			cc = s.opts.CacheControl.Value
		}
		headers["Cache-Control"] = []string{cc}
	}

	if !s.opts.LastModified.Disabled {
		if s.opts.LastModified.Set {
			headers["Last-Modified"] = []string{s.opts.LastModified.Value}
		} else if info.HasMTime {
			headers["Last-Modified"] = []string{headerbuilder.LastModified(info.MTimeMS)}
		}
	}

	etagValue, parsed, ok := s.resolveETag(info)
	if ok {
		headers["ETag"] = []string{etagValue}
		etag, hasETag = parsed, true
	}

	return headers, contentType, etag, hasETag
}

func (s *Server) resolveETag(info *storage.Info) (headerValue string, parsed httpheader.ETag, ok bool) {
	if s.opts.ETag.Disabled {
		return "", httpheader.ETag{}, false
	}
	switch {
	case s.opts.ETag.Set:
		headerValue = s.opts.ETag.Value
	case info.HasETag:
		if info.ETagWeak && !strings.HasPrefix(info.ETag, "W/") {
			headerValue = "W/" + info.ETag
		} else {
			headerValue = info.ETag
		}
	case info.HasSize && info.HasMTime:
		headerValue = headerbuilder.ETag(info.Size, info.MTimeMS, info.ContentEncoding, s.opts.WeakEtags)
	default:
		return "", httpheader.ETag{}, false
	}
	tags, wildcard := httpheader.ParseETagList(headerValue)
	if wildcard || len(tags) != 1 {
		return headerValue, httpheader.ETag{}, false
	}
	return headerValue, tags[0], true
}

// fullBodyResponse serves step 4: an explicit status-code override
// bypasses conditional-GET and Range planning entirely.
func (s *Server) fullBodyResponse(ctx context.Context, info *storage.Info, headers map[string][]string, statusCode int, method string, requestID string) *StreamResponse {
	headers["Accept-Ranges"] = []string{headerbuilder.AcceptRanges(s.maxRanges(), info.HasSize)}
	if info.HasSize {
		headers["Content-Length"] = []string{headerbuilder.ContentLength(info.Size)}
	}
	if method == "HEAD" {
		s.closeNow(info, requestID)
		return &StreamResponse{StatusCode: statusCode, Headers: headers, StorageInfo: info}
	}

	s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageStream})
	stream, err := s.store.CreateReadableStream(ctx, info, nil, true)
	if err != nil {
		s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageStream, Err: err})
		s.closeNow(info, requestID)
		return &StreamResponse{StatusCode: 500, Headers: headers, Err: err}
	}
	return &StreamResponse{StatusCode: statusCode, Headers: headers, Stream: stream, StorageInfo: info}
}

// planAndStream serves steps 6-7: range planning and single/multipart
// stream assembly for an ordinary GET that survived conditional-GET.
func (s *Server) planAndStream(ctx context.Context, info *storage.Info, headers map[string][]string, rangeHeader string, contentType string, requestID string) *StreamResponse {
	headers["Accept-Ranges"] = []string{headerbuilder.AcceptRanges(s.maxRanges(), info.HasSize)}

	size := int64(-1)
	if info.HasSize {
		size = info.Size
	}

	var plan rangeplan.Plan
	if rangeHeader != "" {
		if raw, ok := httpheader.ParseRange(rangeHeader); ok {
			plan = rangeplan.Build(raw, size, rangeplan.Options{MaxRanges: s.opts.MaxRanges})
		} else {
			plan = rangeplan.Plan{Kind: rangeplan.Full}
		}
	} else {
		plan = rangeplan.Plan{Kind: rangeplan.Full}
	}

	s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageRange})

	switch plan.Kind {
	case rangeplan.Unsatisfiable:
		s.closeNow(info, requestID)
		headers["Content-Range"] = []string{fmt.Sprintf("bytes */%d", size)}
		return &StreamResponse{StatusCode: 416, Headers: headers, StorageInfo: info}

	case rangeplan.Single:
		headers["Content-Range"] = []string{fmt.Sprintf("bytes %d-%d/%d", plan.Start, plan.End, size)}
		headers["Content-Length"] = []string{headerbuilder.ContentLength(plan.End - plan.Start + 1)}
		s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageStream})
		stream, err := s.store.CreateReadableStream(ctx, info, &storage.Range{Start: plan.Start, End: plan.End}, true)
		if err != nil {
			s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageStream, Err: err})
			s.closeNow(info, requestID)
			return &StreamResponse{StatusCode: 500, Headers: headers, Err: err}
		}
		return &StreamResponse{StatusCode: 206, Headers: headers, Stream: stream, StorageInfo: info}

	case rangeplan.Multipart:
		return s.multipartResponse(ctx, info, headers, plan, size, contentType, requestID)

	default: // Full
		if info.HasSize {
			headers["Content-Length"] = []string{headerbuilder.ContentLength(info.Size)}
		}
		s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageStream})
		stream, err := s.store.CreateReadableStream(ctx, info, nil, true)
		if err != nil {
			s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageStream, Err: err})
			s.closeNow(info, requestID)
			return &StreamResponse{StatusCode: 500, Headers: headers, Err: err}
		}
		return &StreamResponse{StatusCode: 200, Headers: headers, Stream: stream, StorageInfo: info}
	}
}

// multipartResponse frames plan.Parts via multipart.Framer over lazily
// reopened sub-streams that share info's single backing handle
// (autoClose: false on each part), closing the storage handle exactly
// once when the whole framed body is closed.
func (s *Server) multipartResponse(ctx context.Context, info *storage.Info, headers map[string][]string, plan rangeplan.Plan, size int64, contentType string, requestID string) *StreamResponse {
	partContentType := contentType
	if partContentType == "" {
		partContentType = "application/octet-stream"
	}

	parts := make([]multipart.Part, len(plan.Parts))
	var framedLength int64
	for i, p := range plan.Parts {
		part := p
		header := rangeplan.PartHeaders(partContentType, part, size)
		prefix := "\r\n--" + plan.Boundary + "\r\n" + header + "\r\n"
		framedLength += int64(len(prefix)) + (part.End - part.Start + 1)

		parts[i] = multipart.Part{
			Header: header,
			Open: func() (io.ReadCloser, error) {
				return s.store.CreateReadableStream(ctx, info, &storage.Range{Start: part.Start, End: part.End}, false)
			},
		}
	}
	framedLength += int64(len("\r\n--" + plan.Boundary + "--\r\n"))

	framer := multipart.NewFramer(plan.Boundary, parts)
	stream := &closeOnceStream{ReadCloser: framer, closeFn: func() error { return s.store.Close(info) }}

	headers["Content-Type"] = []string{"multipart/byteranges; boundary=" + plan.Boundary}
	headers["Content-Length"] = []string{headerbuilder.ContentLength(framedLength)}

	s.sink.Emit(diag.Event{RequestID: requestID, Stage: diag.StageStream})
	return &StreamResponse{StatusCode: 206, Headers: headers, Stream: stream, StorageInfo: info}
}

// closeOnceStream wraps a ReadCloser (a multipart.Framer, here) so
// closing it also releases the shared storage handle exactly once,
// regardless of how many times Close is called.
type closeOnceStream struct {
	io.ReadCloser
	closeFn func() error
	closed  bool
}

func (c *closeOnceStream) Close() error {
	err := c.ReadCloser.Close()
	if !c.closed {
		c.closed = true
		if ferr := c.closeFn(); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}
