package fsstorage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/servestream/servestream/encoding"
	"github.com/servestream/servestream/storage"
)

func mustWriteFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestOpenReadsFullFile(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "hello.txt", "world")
	s := New(Options{Root: dir})

	info, err := s.Open(context.Background(), "/hello.txt", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !info.HasSize || info.Size != 5 {
		t.Fatalf("unexpected size info: %+v", info)
	}
	if info.ContentEncoding != "identity" {
		t.Fatalf("expected identity encoding, got %q", info.ContentEncoding)
	}

	stream, err := s.CreateReadableStream(context.Background(), info, nil, true)
	if err != nil {
		t.Fatalf("CreateReadableStream: %v", err)
	}
	out, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(out) != "world" {
		t.Fatalf("got %q", out)
	}
	if err := s.Close(info); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenRespectsRange(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "hello.txt", "world")
	s := New(Options{Root: dir})

	info, err := s.Open(context.Background(), "/hello.txt", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(info)

	stream, err := s.CreateReadableStream(context.Background(), info, &storage.Range{Start: 2, End: 2}, false)
	if err != nil {
		t.Fatalf("CreateReadableStream: %v", err)
	}
	defer stream.Close()
	out, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(out) != "r" {
		t.Fatalf("got %q", out)
	}
}

func TestOpenDoesNotExist(t *testing.T) {
	dir := t.TempDir()
	s := New(Options{Root: dir})
	_, err := s.Open(context.Background(), "/missing.txt", nil)
	serr, ok := err.(*storage.Error)
	if !ok || serr.Kind != storage.KindDoesNotExist {
		t.Fatalf("got %v", err)
	}
}

func TestOpenDirectoryWithoutTrailingSlashFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	s := New(Options{Root: dir})
	_, err := s.Open(context.Background(), "/sub", nil)
	serr, ok := err.(*storage.Error)
	if !ok || serr.Kind != storage.KindIsDirectory {
		t.Fatalf("got %v", err)
	}
}

func TestOpenTrailingSlashForbiddenByDefault(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	s := New(Options{Root: dir})
	_, err := s.Open(context.Background(), "/sub/", nil)
	serr, ok := err.(*storage.Error)
	if !ok || serr.Kind != storage.KindTrailingSlash {
		t.Fatalf("got %v", err)
	}
}

func TestOpenServeIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	mustWriteFile(t, filepath.Join(dir, "sub"), "index.html", "<h1>hi</h1>")
	s := New(Options{Root: dir, OnDirectory: DirectoryServeIndex})

	info, err := s.Open(context.Background(), "/sub/", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(info)
	if info.FileName != "index.html" {
		t.Fatalf("got %q", info.FileName)
	}
}

func TestOpenListFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	mustWriteFile(t, filepath.Join(dir, "sub"), "a.txt", "x")
	mustWriteFile(t, filepath.Join(dir, "sub"), "b.txt", "y")
	s := New(Options{Root: dir, OnDirectory: DirectoryListFiles})

	info, err := s.Open(context.Background(), "/sub/", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.MimeType != "text/html" {
		t.Fatalf("got %q", info.MimeType)
	}

	stream, err := s.CreateReadableStream(context.Background(), info, nil, true)
	if err != nil {
		t.Fatalf("CreateReadableStream: %v", err)
	}
	out, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, "a.txt") || !strings.Contains(html, "b.txt") {
		t.Fatalf("missing entries: %s", html)
	}
}

func TestOpenWithEncodingMapping(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, dir, "app.json", `{"a":1}`)
	mustWriteFile(t, dir, "app.json.gz", "gzippedbytes")

	mapping, err := encoding.NewMapping(`^(.*\.json)$`, []encoding.Pair{
		{Name: "gzip", Replacement: "$1.gz"},
	})
	if err != nil {
		t.Fatalf("NewMapping: %v", err)
	}
	s := New(Options{Root: dir, EncodingMappings: []encoding.Mapping{mapping}})

	headers := map[string][]string{"Accept-Encoding": {"gzip"}}
	info, err := s.Open(context.Background(), "/app.json", headers)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.ContentEncoding != "gzip" {
		t.Fatalf("expected gzip variant, got %q", info.ContentEncoding)
	}
	if !info.VaryAcceptEncoding {
		t.Fatalf("expected VaryAcceptEncoding to be set, got %+v", info)
	}
}
