// Package servestream implements the response-planning core of a
// streaming static-content HTTP server: given a storage-agnostic
// resource lookup, it negotiates precompressed encodings and plans a
// conditional-GET/Range-aware HTTP response without touching a socket.
package servestream

import (
	"regexp"

	"github.com/servestream/servestream/encoding"
	"github.com/servestream/servestream/headerbuilder"
	"github.com/servestream/servestream/storage"
)

// OnDirectory controls what happens when a resolved path names a
// directory.
type OnDirectory string

const (
	DirectoryForbidden  OnDirectory = ""
	DirectoryListFiles  OnDirectory = "list-files"
	DirectoryServeIndex OnDirectory = "serve-index"
)

// Override is a tri-state string option: Set distinguishes "use the
// computed default" (Override{}) from "disable the header entirely"
// (Override{Set: true, Disabled: true}) from "use this literal value"
// (Override{Set: true, Value: "..."}).
type Override struct {
	Set      bool
	Disabled bool
	Value    string
}

// Literal returns an Override carrying a fixed header value.
func Literal(value string) Override {
	return Override{Set: true, Value: value}
}

// Disabled returns an Override that suppresses the header.
func Disabled() Override {
	return Override{Set: true, Disabled: true}
}

// Options configures one Server's response planning. The zero value is
// usable and matches the spec's stated defaults, except where a default
// depends on the resource (lastModified, etag, contentType) and is
// computed per-request instead.
type Options struct {
	CacheControl               Override
	LastModified               Override
	ETag                       Override
	ContentType                Override
	ContentDispositionType     Override
	ContentDispositionFilename Override

	MimeModule         storage.MimeTypeLookup
	DefaultContentType string
	DefaultCharsets    []headerbuilder.CharsetRule // nil uses headerbuilder.DefaultCharsetRules(); see CharsetsDisabled
	CharsetsDisabled   bool

	MaxRanges *int // nil uses rangeplan.DefaultMaxRanges (200)
	WeakEtags bool

	ContentEncodingMappings []encoding.Mapping

	IgnorePattern  *regexp.Regexp // nil uses the default "^\." ; see IgnoreDisabled
	IgnoreDisabled bool
	OnDirectory    OnDirectory

	AllowedMethods []string // nil defaults to {GET, HEAD}

	StatusCode int // nonzero overrides the computed status and disables conditional/range logic
}

// DefaultIgnorePattern matches the spec's default ignorePattern: dotfiles.
var DefaultIgnorePattern = regexp.MustCompile(`^\.`)

// DefaultAllowedMethods is the spec's default allowedMethods set.
var DefaultAllowedMethods = []string{"GET", "HEAD"}

func (o Options) allowedMethods() []string {
	if o.AllowedMethods != nil {
		return o.AllowedMethods
	}
	return DefaultAllowedMethods
}

func (o Options) methodAllowed(method string) bool {
	for _, m := range o.allowedMethods() {
		if m == method {
			return true
		}
	}
	return false
}

func (o Options) ignorePattern() *regexp.Regexp {
	if o.IgnoreDisabled {
		return nil
	}
	if o.IgnorePattern != nil {
		return o.IgnorePattern
	}
	return DefaultIgnorePattern
}

func (o Options) charsetRules() []headerbuilder.CharsetRule {
	if o.CharsetsDisabled {
		return nil
	}
	if o.DefaultCharsets != nil {
		return o.DefaultCharsets
	}
	return headerbuilder.DefaultCharsetRules()
}
