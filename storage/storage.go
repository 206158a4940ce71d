// Package storage defines the pluggable persistence contract that the
// orchestrator drives. A Storage implementation owns whatever backing
// medium it likes (a filesystem, an object store, a database) and hands
// back a StorageInfo describing what it found plus a way to stream its
// bytes.
//
// Implementations must be safe for concurrent use: many PrepareResponse
// calls may be in flight against the same Storage at once, each owning
// its own StorageInfo.
package storage

import (
	"context"
	"io"
)

// Reference is the opaque value handed to a Storage's Open method. For
// fsstorage it is either a percent-encoded absolute path string or an
// ordered slice of path parts; other backends may define their own
// shape entirely.
type Reference any

// Info is returned by a successful Open. AttachedData is backend-private
// state (an open file handle, a resolved key, ...) that is threaded back
// into CreateReadableStream and Close unchanged.
type Info struct {
	AttachedData any

	// FileName, if set, is used to derive Content-Disposition and, when
	// no MimeType override is present, to look up a MIME type.
	FileName string

	// MTimeMS is the modification time in milliseconds since the Unix
	// epoch. Absent (zero Has flag) when the backend has no concept of
	// modification time.
	MTimeMS  int64
	HasMTime bool

	// Size is the total byte length of the resource. Absent when the
	// backend cannot determine a length up front, in which case the
	// response is chunked with no Content-Length.
	Size    int64
	HasSize bool

	// Vary, if non-empty, is merged into the response's Vary header
	// alongside any Accept-Encoding entry the orchestrator adds.
	Vary string

	// VaryAcceptEncoding is true when an encoding mapping was consulted
	// for this resource (even if the identity variant won), signaling
	// the orchestrator to add "Accept-Encoding" to Vary.
	VaryAcceptEncoding bool

	// ContentEncoding is the encoding label for the bytes this Info
	// will stream: "identity" or a negotiated variant name such as
	// "gzip" or "br".
	ContentEncoding string

	// MimeType and MimeTypeCharset, when set, override the configured
	// MimeResolver for this response.
	MimeType        string
	MimeTypeCharset string

	// ETag, when HasETag is true, overrides the derived
	// size/mtime/encoding ETag with a backend-supplied value — e.g. a
	// content hash a backend already stores alongside the blob.
	ETag     string
	ETagWeak bool
	HasETag  bool
}

// Range is an inclusive byte range, zero-indexed, requested of
// CreateReadableStream. A nil *Range means "the full resource".
type Range struct {
	Start int64
	End   int64
}

// Storage is the capability every backend must provide.
type Storage interface {
	// Open resolves ref against the backing store, honoring whatever
	// request headers the backend needs to see (e.g. Accept-Encoding
	// for variant negotiation). It returns a *Error on any
	// failure; the error's Kind drives the orchestrator's status-code
	// mapping.
	Open(ctx context.Context, ref Reference, requestHeaders map[string][]string) (*Info, error)

	// CreateReadableStream returns the bytes described by rng (or the
	// full resource when rng is nil). If autoClose is true, the
	// returned stream closes the backing handle itself when drained or
	// on read error; otherwise the caller must call Close separately.
	CreateReadableStream(ctx context.Context, info *Info, rng *Range, autoClose bool) (io.ReadCloser, error)

	// Close idempotently releases whatever Open acquired. It is safe to
	// call more than once and safe to call after CreateReadableStream
	// already closed the handle via autoClose.
	Close(info *Info) error
}

// MimeTypeLookup is an optional capability: backends that can resolve
// their own MIME types (because they store it alongside the blob, for
// instance) implement this instead of relying on the orchestrator's
// configured MimeResolver.
type MimeTypeLookup interface {
	MimeTypeLookup(fileName string) (mimeType string, ok bool)
}
