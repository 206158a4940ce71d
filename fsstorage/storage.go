// Package fsstorage implements storage.Storage over the local
// filesystem: it parses and vets a reference into path parts, resolves
// it beneath a configured root, negotiates a precompressed encoding
// variant, and streams the result (or a synthesized directory listing).
package fsstorage

import (
	"context"
	"errors"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/servestream/servestream/encoding"
	"github.com/servestream/servestream/httpheader"
	"github.com/servestream/servestream/storage"
)

// Options configures a Storage instance. The zero value is usable and
// matches the spec's stated defaults (no encoding mappings, dotfiles
// ignored, directories forbidden).
type Options struct {
	// Root is the absolute directory every reference is resolved
	// beneath. Required.
	Root string

	// Ignore matches segments to reject as KindIgnoredFile. Nil means
	// DefaultIgnorePattern (dotfiles) unless IgnoreDisabled is set.
	Ignore *regexp.Regexp
	// IgnoreDisabled turns off segment ignoring entirely.
	IgnoreDisabled bool

	OnDirectory DirectoryMode

	EncodingMappings []encoding.Mapping

	// MimeResolver, if set, is consulted ahead of the stdlib mime
	// package for extension-based Content-Type lookups.
	MimeResolver storage.MimeTypeLookup
}

// Storage is a storage.Storage backed by a local directory tree.
type Storage struct {
	opts Options
}

// New builds a Storage. Root must be an absolute, existing directory;
// New does not itself verify that (Open will simply fail DoesNotExist
// against a bad root, same as any other missing path).
func New(opts Options) *Storage {
	if opts.IgnoreDisabled {
		opts.Ignore = nil
	} else if opts.Ignore == nil {
		opts.Ignore = DefaultIgnorePattern
	}
	return &Storage{opts: opts}
}

// attached is the AttachedData payload fsstorage.Storage threads
// through Info.
type attached struct {
	resolvedPath string
	isDirectory  bool
	file         *os.File // nil for a directory
}

var _ storage.Storage = (*Storage)(nil)
var _ storage.MimeTypeLookup = (*Storage)(nil)

// MimeTypeLookup implements storage.MimeTypeLookup by extension,
// deferring to opts.MimeResolver first when one is configured.
func (s *Storage) MimeTypeLookup(fileName string) (string, bool) {
	if s.opts.MimeResolver != nil {
		if mt, ok := s.opts.MimeResolver.MimeTypeLookup(fileName); ok {
			return mt, true
		}
	}
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "", false
	}
	mt := mime.TypeByExtension(ext)
	if mt == "" {
		return "", false
	}
	// mime.TypeByExtension may append a charset parameter; callers apply
	// their own charset policy, so strip it back off.
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt, true
}

func acceptEncodingPrefs(requestHeaders map[string][]string) []httpheader.EncodingPreference {
	return httpheader.ParseAcceptEncoding(httpheader.Get(requestHeaders, "Accept-Encoding"))
}

// Open implements storage.Storage.
func (s *Storage) Open(ctx context.Context, ref storage.Reference, requestHeaders map[string][]string) (*storage.Info, error) {
	result, perr := parseReference(ref, s.opts.Ignore)
	if perr != nil {
		return nil, perr
	}
	parts := result.parts

	if result.hadTrailingSlash {
		switch s.opts.OnDirectory {
		case DirectoryForbidden:
			e := storage.NewError(storage.KindTrailingSlash, ref, parts)
			e.UntrailedParts = parts
			return nil, e
		case DirectoryListFiles:
			return s.openDirectoryListing(parts)
		case DirectoryServeIndex:
			parts = append(append([]string{}, parts...), "index.html")
		}
	}

	resolved := s.resolve(parts)

	if len(s.opts.EncodingMappings) > 0 {
		for i := range s.opts.EncodingMappings {
			if s.opts.EncodingMappings[i].Matches(resolved) {
				return s.openWithMapping(ctx, ref, parts, resolved, &s.opts.EncodingMappings[i], requestHeaders)
			}
		}
	}
	return s.openPlain(ref, parts, resolved)
}

func (s *Storage) resolve(parts []string) string {
	elems := append([]string{s.opts.Root}, parts...)
	return filepath.Join(elems...)
}

func (s *Storage) openWithMapping(ctx context.Context, ref storage.Reference, parts []string, resolved string, mapping *encoding.Mapping, requestHeaders map[string][]string) (*storage.Info, error) {
	prefs := acceptEncodingPrefs(requestHeaders)
	selection, err := encoding.Select(mapping, resolved, prefs, s.probe)
	if err != nil {
		var dirErr encoding.ErrDirectory
		if errors.As(err, &dirErr) {
			e := storage.NewError(storage.KindIsDirectory, ref, parts)
			e.ResolvedPath = dirErr.Path
			return nil, e
		}
		if errors.Is(err, encoding.ErrDoesNotExist) {
			e := storage.NewError(storage.KindDoesNotExist, ref, parts)
			e.ResolvedPath = resolved
			return nil, e
		}
		e := storage.NewError(storage.KindUnknown, ref, parts)
		e.Err = err
		return nil, e
	}

	f, stat, openErr := openRegularFile(selection.Path)
	if openErr != nil {
		e := storage.NewError(storage.KindDoesNotExist, ref, parts)
		e.ResolvedPath = selection.Path
		return nil, e
	}

	info := &storage.Info{
		AttachedData:    &attached{resolvedPath: selection.Path, file: f},
		FileName:        filepath.Base(parts[len(parts)-1]),
		MTimeMS:         stat.ModTime().UnixMilli(),
		HasMTime:        true,
		Size:            stat.Size(),
		HasSize:         true,
		ContentEncoding: selection.Name,
	}
	info.VaryAcceptEncoding = selection.VaryAccepted
	return info, nil
}

func (s *Storage) openPlain(ref storage.Reference, parts []string, resolved string) (*storage.Info, error) {
	f, stat, err := openRegularFile(resolved)
	if err != nil {
		e := storage.NewError(storage.KindDoesNotExist, ref, parts)
		e.ResolvedPath = resolved
		return nil, e
	}
	if stat.IsDir() {
		f.Close()
		e := storage.NewError(storage.KindIsDirectory, ref, parts)
		e.ResolvedPath = resolved
		return nil, e
	}

	fileName := ""
	if len(parts) > 0 {
		fileName = parts[len(parts)-1]
	}
	return &storage.Info{
		AttachedData:    &attached{resolvedPath: resolved, file: f},
		FileName:        fileName,
		MTimeMS:         stat.ModTime().UnixMilli(),
		HasMTime:        true,
		Size:            stat.Size(),
		HasSize:         true,
		ContentEncoding: "identity",
	}, nil
}

func (s *Storage) openDirectoryListing(parts []string) (*storage.Info, error) {
	resolved := s.resolve(parts)
	stat, err := os.Stat(resolved)
	if err != nil || !stat.IsDir() {
		e := storage.NewError(storage.KindDoesNotExist, parts, parts)
		e.ResolvedPath = resolved
		return nil, e
	}

	name := "_"
	if len(parts) > 0 && parts[len(parts)-1] != "" {
		name = parts[len(parts)-1]
	}

	return &storage.Info{
		AttachedData:    &attached{resolvedPath: resolved, isDirectory: true},
		FileName:        name + ".html",
		MTimeMS:         stat.ModTime().UnixMilli(),
		HasMTime:        true,
		ContentEncoding: "identity",
		MimeType:        "text/html",
		MimeTypeCharset: "UTF-8",
	}, nil
}

func openRegularFile(path string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, stat, nil
}

// probe implements encoding.Opener over the local filesystem.
func (s *Storage) probe(candidatePath string) (encoding.ProbeResult, error) {
	stat, err := os.Stat(candidatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return encoding.ProbeResult{}, nil
		}
		return encoding.ProbeResult{}, err
	}
	return encoding.ProbeResult{Exists: true, IsDir: stat.IsDir()}, nil
}

// CreateReadableStream implements storage.Storage.
func (s *Storage) CreateReadableStream(ctx context.Context, info *storage.Info, rng *storage.Range, autoClose bool) (io.ReadCloser, error) {
	a := info.AttachedData.(*attached)
	if a.isDirectory {
		return s.listingReader(a.resolvedPath), nil
	}

	var start, end int64 = 0, info.Size - 1
	if rng != nil {
		start, end = rng.Start, rng.End
	}
	if start > 0 {
		if _, err := a.file.Seek(start, io.SeekStart); err != nil {
			return nil, err
		}
	}
	length := end - start + 1
	if length < 0 {
		length = 0
	}
	r := io.NewSectionReader(a.file, start, length)
	return &boundedStream{r: r, file: a.file, autoClose: autoClose}, nil
}

// boundedStream wraps an io.SectionReader over an already-open file,
// closing the backing handle on EOF/error only when autoClose is set.
// An error from that automatic close is returned by the next Close call.
type boundedStream struct {
	r         *io.SectionReader
	file      *os.File
	autoClose bool
	closed    bool
	closeErr  error
}

func (b *boundedStream) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && b.autoClose && !b.closed {
		b.closed = true
		b.closeErr = b.file.Close()
	}
	return n, err
}

func (b *boundedStream) Close() error {
	if b.closed {
		err := b.closeErr
		b.closeErr = nil
		return err
	}
	b.closed = true
	if b.autoClose {
		return b.file.Close()
	}
	return nil
}

// Close implements storage.Storage. Idempotent.
func (s *Storage) Close(info *storage.Info) error {
	a, ok := info.AttachedData.(*attached)
	if !ok || a.file == nil {
		return nil
	}
	f := a.file
	a.file = nil
	// An autoClose stream may already have closed the handle.
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
