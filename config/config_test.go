package config

import (
	"os"
	"path/filepath"
	"testing"

	servestream "github.com/servestream/servestream"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFullDocument(t *testing.T) {
	path := writeTemp(t, `
cacheControl: "public, max-age=3600"
maxRanges: 50
weakEtags: true
onDirectory: list-files
ignorePattern: "^\\."
contentEncodingMappings:
  - matcher: "^(.*\\.json)$"
    encodings:
      - name: br
        replacement: "$1.br"
      - name: gzip
        replacement: "$1.gz"
defaultCharsets:
  - matcher: "^(?:text/.+|application/(?:javascript|json))$"
    charset: "UTF-8"
`)
	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !opts.CacheControl.Set || opts.CacheControl.Value != "public, max-age=3600" {
		t.Fatalf("CacheControl: %+v", opts.CacheControl)
	}
	if opts.MaxRanges == nil || *opts.MaxRanges != 50 {
		t.Fatalf("MaxRanges: %+v", opts.MaxRanges)
	}
	if !opts.WeakEtags {
		t.Fatalf("WeakEtags not set")
	}
	if opts.OnDirectory != servestream.DirectoryListFiles {
		t.Fatalf("OnDirectory: %v", opts.OnDirectory)
	}
	if opts.IgnorePattern == nil || !opts.IgnorePattern.MatchString(".hidden") {
		t.Fatalf("IgnorePattern: %+v", opts.IgnorePattern)
	}
	if len(opts.ContentEncodingMappings) != 1 {
		t.Fatalf("expected 1 mapping, got %d", len(opts.ContentEncodingMappings))
	}
	if len(opts.DefaultCharsets) != 1 {
		t.Fatalf("expected 1 charset rule, got %d", len(opts.DefaultCharsets))
	}
}

func TestLoadFalseDisablesOverride(t *testing.T) {
	path := writeTemp(t, `
cacheControl: false
ignorePattern: false
defaultCharsets: false
`)
	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !opts.CacheControl.Set || !opts.CacheControl.Disabled {
		t.Fatalf("CacheControl should be disabled: %+v", opts.CacheControl)
	}
	if !opts.IgnoreDisabled {
		t.Fatalf("expected IgnoreDisabled")
	}
	if !opts.CharsetsDisabled {
		t.Fatalf("expected CharsetsDisabled")
	}
}

func TestLoadEmptyDocumentKeepsDefaults(t *testing.T) {
	path := writeTemp(t, ``)
	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.CacheControl.Set {
		t.Fatalf("expected unset CacheControl, got %+v", opts.CacheControl)
	}
	if opts.MaxRanges != nil {
		t.Fatalf("expected nil MaxRanges, got %v", opts.MaxRanges)
	}
}

func TestLoadRejectsBadOnDirectory(t *testing.T) {
	path := writeTemp(t, "onDirectory: bogus\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for invalid onDirectory")
	}
}
