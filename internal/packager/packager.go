// Package packager implements template packaging: local artifact references
// in an infrastructure template are uploaded to S3 and replaced with their
// object locators, producing a deployable document.
package packager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Format selects the output serialization of a packaged template.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Packager wires an Exporter to the template read/serialize/write cycle.
type Packager struct {
	exporter Exporter
}

// New creates a packager driving the given exporter.
func New(exporter Exporter) *Packager {
	return &Packager{exporter: exporter}
}

// Package reads the template at templatePath, exports its local artifact
// references, and serializes the result in the requested format. When
// outputPath is non-empty the document is also written there, creating
// parent directories as needed. A missing template fails fast before any
// network activity.
func (p *Packager) Package(ctx context.Context, templatePath string, format Format, outputPath string) ([]byte, error) {
	info, err := os.Stat(templatePath)
	if err != nil || info.IsDir() {
		return nil, &InvalidTemplatePathError{Path: templatePath}
	}

	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", templatePath, err)
	}

	exported, err := p.exporter.Export(ctx, doc)
	if err != nil {
		return nil, err
	}

	data, err := Marshal(exported, format)
	if err != nil {
		return nil, err
	}

	if outputPath != "" {
		if err := writeOutput(outputPath, data); err != nil {
			return nil, err
		}
	}

	return data, nil
}

// Marshal serializes a template document. JSON output is indented and keeps
// non-ASCII characters verbatim.
func Marshal(doc map[string]any, format Format) ([]byte, error) {
	if format == FormatJSON {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	return yaml.Marshal(doc)
}

// writeOutput writes the packaged document atomically: the content lands in
// a temp file in the target directory and is renamed over the destination.
func writeOutput(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".package-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filename)
}
