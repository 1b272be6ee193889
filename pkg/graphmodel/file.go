package graphmodel

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a diagram file format.
type Format string

const (
	FormatYAML      Format = "yaml"
	FormatFlowchart Format = "flowchart"
)

// FormatForPath picks the format from a file extension. Anything that is
// not .yaml/.yml is read as flowchart text.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatFlowchart
	}
}

// LoadFile reads and validates a diagram file.
func LoadFile(path string) (Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Diagram{}, fmt.Errorf("read diagram: %w", err)
	}
	d, err := Decode(bytes.NewReader(data), FormatForPath(path))
	if err != nil {
		return Diagram{}, fmt.Errorf("%s: %w", path, err)
	}
	d.Source = path
	return d, nil
}

// Decode reads a diagram in the given format, assigns missing edge ids and
// validates it.
func Decode(r io.Reader, f Format) (Diagram, error) {
	switch f {
	case FormatYAML:
		var d Diagram
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&d); err != nil && err != io.EOF {
			return Diagram{}, fmt.Errorf("decode yaml diagram: %w", err)
		}
		d.Normalize()
		if err := d.Validate(); err != nil {
			return Diagram{}, err
		}
		return d, nil
	case FormatFlowchart:
		return ParseFlowchart(r)
	default:
		return Diagram{}, fmt.Errorf("unknown diagram format %q", f)
	}
}
