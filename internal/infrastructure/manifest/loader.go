// Package manifest loads plugin descriptor sets from disk. Three formats are
// understood, chosen by file extension:
//
// JSON and YAML documents hold either a single set or a list under "plugins":
//
//	namespace: com.example.plugin
//	activities:
//	  - class_name: MainActivity
//	    category: standard
//	    attributes: {theme: Theme.Plugin}
//
// HCL documents declare one block per plugin and one per activity:
//
//	plugin "com.example.plugin" {
//	  activity "MainActivity" {
//	    category   = "standard"
//	    attributes = { theme = "Theme.Plugin" }
//	  }
//	}
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"gopkg.in/yaml.v3"

	"kilometers.ai/standin/internal/core/descriptor"
)

var ErrUnsupportedFormat = errors.New("unsupported manifest format")

// Format is a manifest encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatOf picks the format from a file name
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// document is the JSON/YAML shape
type document struct {
	descriptor.Set `yaml:",inline"`
	Plugins        []descriptor.Set `json:"plugins,omitempty" yaml:"plugins,omitempty"`
}

type hclFile struct {
	Plugins []hclPlugin `hcl:"plugin,block"`
}

type hclPlugin struct {
	Namespace  string        `hcl:"namespace,label"`
	Activities []hclActivity `hcl:"activity,block"`
}

type hclActivity struct {
	ClassName  string    `hcl:"class_name,label"`
	Category   string    `hcl:"category,optional"`
	Attributes cty.Value `hcl:"attributes,optional"`
}

// Loader reads descriptor sets from manifest files
type Loader struct {
	logger hclog.Logger
}

// NewLoader creates a manifest loader
func NewLoader(logger hclog.Logger) *Loader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Loader{logger: logger}
}

// Decode parses data in format. name is only used in diagnostics. Every
// returned set has been validated.
func (l *Loader) Decode(name string, format Format, data []byte) ([]descriptor.Set, error) {
	var (
		sets []descriptor.Set
		err  error
	)
	switch format {
	case FormatJSON:
		sets, err = decodeJSON(data)
	case FormatYAML:
		sets, err = decodeYAML(data)
	case FormatHCL:
		sets, err = decodeHCL(name, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", name, err)
	}

	for _, s := range sets {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("invalid manifest %s: %w", name, err)
		}
	}
	return sets, nil
}

// LoadFile reads one manifest file
func (l *Loader) LoadFile(path string) ([]descriptor.Set, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	sets, err := l.Decode(path, format, data)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded manifest", "path", path, "format", string(format), "plugins", len(sets))
	return sets, nil
}

// LoadPath reads a manifest file, or every manifest below a directory in
// lexical path order. Files with other extensions are skipped.
func (l *Loader) LoadPath(ctx context.Context, path string) ([]descriptor.Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest path: %w", err)
	}
	if !info.IsDir() {
		return l.LoadFile(path)
	}

	files, err := findManifests(path)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	if len(files) == 0 {
		l.logger.Warn("no manifests found", "path", path)
		return nil, nil
	}

	var sets []descriptor.Set
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loaded, err := l.LoadFile(file)
		if err != nil {
			return nil, err
		}
		sets = append(sets, loaded...)
	}
	return sets, nil
}

func findManifests(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, err := FormatOf(path); err == nil {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func decodeJSON(data []byte) ([]descriptor.Set, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.sets(), nil
}

func decodeYAML(data []byte) ([]descriptor.Set, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.sets(), nil
}

func (d document) sets() []descriptor.Set {
	var out []descriptor.Set
	if d.Namespace != "" || len(d.Activities) > 0 {
		out = append(out, d.Set)
	}
	return append(out, d.Plugins...)
}

func decodeHCL(name string, data []byte) ([]descriptor.Set, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, name)
	if diags.HasErrors() {
		return nil, diags
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, diags
	}

	sets := make([]descriptor.Set, 0, len(parsed.Plugins))
	for _, p := range parsed.Plugins {
		set := descriptor.Set{Namespace: p.Namespace}
		for _, a := range p.Activities {
			attrs, err := attributesFromCty(a.Attributes)
			if err != nil {
				return nil, fmt.Errorf("plugin %s activity %s: %w", p.Namespace, a.ClassName, err)
			}
			set.Activities = append(set.Activities, descriptor.Activity{
				ClassName:  a.ClassName,
				Category:   a.Category,
				Attributes: attrs,
			})
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// attributesFromCty flattens an HCL object or map into string attributes.
// Numbers and bools are rendered in their HCL string form.
func attributesFromCty(v cty.Value) (map[string]string, error) {
	if v.Type() == cty.NilType || v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("attributes must be known at load time")
	}
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("attributes must be an object, got %s", v.Type().FriendlyName())
	}

	out := make(map[string]string)
	for it := v.ElementIterator(); it.Next(); {
		key, val := it.Element()
		if val.IsNull() {
			continue
		}
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", key.AsString(), err)
		}
		out[key.AsString()] = str.AsString()
	}
	return out, nil
}
