// Package config loads servestream.Options from a YAML document, the
// same way the teacher's cmd/always-cache reads its origin list: read
// the whole file, unmarshal with gopkg.in/yaml.v3, done.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/servestream/servestream/encoding"
	"github.com/servestream/servestream/headerbuilder"
	servestream "github.com/servestream/servestream"
)

// override decodes a YAML "string | false" field: a scalar string sets
// a literal value, the scalar `false` disables the header, and an
// absent key leaves the field unset (computed default applies).
type override struct {
	servestream.Override
}

func (o *override) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("config: expected a string or false, got %v", node.Kind)
	}
	if node.Tag == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		if b {
			return fmt.Errorf("config: %q must be a string or false, not true", node.Value)
		}
		o.Override = servestream.Disabled()
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	o.Override = servestream.Literal(s)
	return nil
}

// regexOrFalse decodes a YAML "regex | false" field.
type regexOrFalse struct {
	disabled bool
	pattern  *regexp.Regexp
}

func (r *regexOrFalse) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("config: expected a pattern string or false, got %v", node.Kind)
	}
	if node.Tag == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		r.disabled = !b
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return fmt.Errorf("config: invalid ignorePattern: %w", err)
	}
	r.pattern = re
	return nil
}

type encodingPair struct {
	Name        string `yaml:"name"`
	Replacement string `yaml:"replacement"`
}

type encodingMappingEntry struct {
	Matcher   string         `yaml:"matcher"`
	Encodings []encodingPair `yaml:"encodings"`
}

type charsetEntry struct {
	Matcher string `yaml:"matcher"`
	Charset string `yaml:"charset"`
}

// charsetsOrFalse decodes a YAML "[]charsetEntry | false" field.
type charsetsOrFalse struct {
	disabled bool
	entries  []charsetEntry
}

func (c *charsetsOrFalse) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		c.disabled = !b
		return nil
	}
	return node.Decode(&c.entries)
}

type file struct {
	CacheControl               override         `yaml:"cacheControl"`
	LastModified               override         `yaml:"lastModified"`
	ETag                       override         `yaml:"etag"`
	ContentType                override         `yaml:"contentType"`
	ContentDispositionType     override         `yaml:"contentDispositionType"`
	ContentDispositionFilename override         `yaml:"contentDispositionFilename"`
	DefaultContentType         string           `yaml:"defaultContentType"`
	DefaultCharsets            charsetsOrFalse  `yaml:"defaultCharsets"`
	MaxRanges                  *int             `yaml:"maxRanges"`
	WeakEtags                  bool             `yaml:"weakEtags"`
	ContentEncodingMappings    []encodingMappingEntry `yaml:"contentEncodingMappings"`
	IgnorePattern              regexOrFalse     `yaml:"ignorePattern"`
	OnDirectory                string           `yaml:"onDirectory"`
	AllowedMethods             []string         `yaml:"allowedMethods"`
	StatusCode                 int              `yaml:"statusCode"`
}

// Load reads path as YAML and returns the servestream.Options it
// describes. Fields absent from the document keep servestream's
// computed defaults.
func Load(path string) (servestream.Options, error) {
	var opts servestream.Options

	raw, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return opts, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	opts.CacheControl = f.CacheControl.Override
	opts.LastModified = f.LastModified.Override
	opts.ETag = f.ETag.Override
	opts.ContentType = f.ContentType.Override
	opts.ContentDispositionType = f.ContentDispositionType.Override
	opts.ContentDispositionFilename = f.ContentDispositionFilename.Override
	opts.DefaultContentType = f.DefaultContentType
	opts.MaxRanges = f.MaxRanges
	opts.WeakEtags = f.WeakEtags
	opts.AllowedMethods = f.AllowedMethods
	opts.StatusCode = f.StatusCode

	if f.DefaultCharsets.disabled {
		opts.CharsetsDisabled = true
	} else if len(f.DefaultCharsets.entries) > 0 {
		rules := make([]headerbuilder.CharsetRule, 0, len(f.DefaultCharsets.entries))
		for _, e := range f.DefaultCharsets.entries {
			re, err := regexp.Compile(e.Matcher)
			if err != nil {
				return opts, fmt.Errorf("config: invalid defaultCharsets matcher %q: %w", e.Matcher, err)
			}
			rules = append(rules, headerbuilder.CharsetRule{Matcher: re, Charset: e.Charset})
		}
		opts.DefaultCharsets = rules
	}

	if f.IgnorePattern.disabled {
		opts.IgnoreDisabled = true
	} else if f.IgnorePattern.pattern != nil {
		opts.IgnorePattern = f.IgnorePattern.pattern
	}

	switch f.OnDirectory {
	case "", "false":
		opts.OnDirectory = servestream.DirectoryForbidden
	case "list-files":
		opts.OnDirectory = servestream.DirectoryListFiles
	case "serve-index":
		opts.OnDirectory = servestream.DirectoryServeIndex
	default:
		return opts, fmt.Errorf("config: invalid onDirectory %q", f.OnDirectory)
	}

	for _, m := range f.ContentEncodingMappings {
		pairs := make([]encoding.Pair, 0, len(m.Encodings))
		for _, p := range m.Encodings {
			pairs = append(pairs, encoding.Pair{Name: p.Name, Replacement: p.Replacement})
		}
		mapping, err := encoding.NewMapping(m.Matcher, pairs)
		if err != nil {
			return opts, fmt.Errorf("config: invalid contentEncodingMappings matcher %q: %w", m.Matcher, err)
		}
		opts.ContentEncodingMappings = append(opts.ContentEncodingMappings, mapping)
	}

	return opts, nil
}
