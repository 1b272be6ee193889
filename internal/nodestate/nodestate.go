// Package nodestate reads and writes the per-node flag file that feeds the
// style overlay:
//
//	photosynthesis:
//	  is_mastered: true
//	glucose:
//	  needs_review: true
//	  has_annotation: true
//
// Active and hovered are view state and are never persisted.
package nodestate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wesen/conceptmap/pkg/overlay"
)

// Load reads a state file. A missing file is an empty map.
func Load(path string) (overlay.StateMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return overlay.StateMap{}, nil
		}
		return nil, fmt.Errorf("read node states: %w", err)
	}
	m, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Decode parses a state document, rejecting unknown flag names.
func Decode(r io.Reader) (overlay.StateMap, error) {
	m := overlay.StateMap{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode node states: %w", err)
	}
	for id, f := range m {
		f.IsActive, f.IsHovered = false, false
		m[id] = f
	}
	return m, nil
}

// Encode writes m with nodes in id order, skipping nodes with no
// persistent flag set.
func Encode(w io.Writer, m overlay.StateMap) error {
	ids := make([]string, 0, len(m))
	for id, f := range m {
		if persistent(f) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, id := range ids {
		f := m[id]
		f.IsActive, f.IsHovered = false, false
		var val yaml.Node
		if err := val.Encode(f); err != nil {
			return fmt.Errorf("encode %s: %w", id, err)
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: id}, &val)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// Save writes m to path through a temporary file in the same directory.
func Save(path string, m overlay.StateMap) error {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".nodestate-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write node states: %w", err)
	}
	return nil
}

// Toggle flips one persistent flag of id and returns the updated map.
// Active and hovered cannot be toggled here.
func Toggle(m overlay.StateMap, id string, s overlay.State) (overlay.StateMap, error) {
	out := m.Clone()
	f := out[id]
	switch s {
	case overlay.StateMastered:
		f.IsMastered = !f.IsMastered
	case overlay.StateNeedsReview:
		f.NeedsReview = !f.NeedsReview
	case overlay.StateHasAnnotation:
		f.HasAnnotation = !f.HasAnnotation
	default:
		return m, fmt.Errorf("state %q is not persistent", s)
	}
	if persistent(f) {
		out[id] = f
	} else {
		delete(out, id)
	}
	return out, nil
}

func persistent(f overlay.Flags) bool {
	return f.IsMastered || f.NeedsReview || f.HasAnnotation
}
