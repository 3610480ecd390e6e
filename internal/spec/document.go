package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned when the input carries no JSON value.
var ErrEmptyDocument = errors.New("scene spec document is empty")

// Document is a scene spec as received on the wire. Value mirrors the JSON
// tree as a cty value so validators can walk it and report cty paths; Raw
// keeps the canonical JSON bytes for typed decoding.
type Document struct {
	Raw   []byte
	Value cty.Value
}

// Parse builds a Document from JSON bytes. Parsing only fails on malformed
// JSON; any well-formed value, including non-objects, yields a Document so
// the structural validator can report on it.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyDocument
	}
	ty, err := ctyjson.ImpliedType(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene spec JSON: %w", err)
	}
	val, err := ctyjson.Unmarshal(trimmed, ty)
	if err != nil {
		return nil, fmt.Errorf("failed to decode scene spec JSON: %w", err)
	}
	// Re-encoding normalizes numbers such as 2.0 to 2 so that integer
	// fields decode the way the validator judged them.
	raw, err := ctyjson.Marshal(val, ty)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scene spec JSON: %w", err)
	}
	return &Document{Raw: raw, Value: val}, nil
}

// ParseYAML converts a YAML-authored spec to its JSON tree and parses it.
func ParseYAML(data []byte) (*Document, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse scene spec YAML: %w", err)
	}
	if tree == nil {
		return nil, ErrEmptyDocument
	}
	raw, err := json.Marshal(normalizeYAML(tree))
	if err != nil {
		return nil, fmt.Errorf("failed to convert scene spec YAML to JSON: %w", err)
	}
	return Parse(raw)
}

// FromValue marshals any Go value (a typed SceneSpec, a map tree built in
// a test) and parses the resulting JSON.
func FromValue(v any) (*Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scene spec: %w", err)
	}
	return Parse(raw)
}

// Decode converts the document into the typed model. Callers are expected
// to run structural validation first; Decode only reports JSON shape errors.
func (d *Document) Decode() (*SceneSpec, error) {
	var s SceneSpec
	if err := json.Unmarshal(d.Raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode scene spec: %w", err)
	}
	return &s, nil
}

// normalizeYAML rewrites map[any]any nodes that yaml.v3 produces for
// non-string keys so the tree can be marshalled as JSON.
func normalizeYAML(node any) any {
	switch n := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[k] = normalizeYAML(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = normalizeYAML(v)
		}
		return out
	default:
		return n
	}
}
