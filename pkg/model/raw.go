package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// ErrMalformed is returned when a wire record cannot be interpreted as a
// node or edge.
var ErrMalformed = errors.New("malformed element record")

// RawElement is the wire shape of a graph element as returned by the
// network fragment endpoints. A record is a node when it lacks both source
// and target, otherwise it is an edge.
type RawElement struct {
	ID         string         `json:"id"`
	Label      string         `json:"label,omitempty"`
	Type       string         `json:"type,omitempty"`
	Source     string         `json:"source,omitempty"`
	Target     string         `json:"target,omitempty"`
	Classes    []string       `json:"classes,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// IsNode reports whether the record describes a node.
func (r RawElement) IsNode() bool {
	return r.Source == "" && r.Target == ""
}

// Element converts the raw record into a typed Node or Edge. Nodes get
// their canonical class added. Returns ErrMalformed (wrapped) when the
// record cannot stand as either variant: a node without an id, or an edge
// missing id, source or target.
func (r RawElement) Element() (Element, error) {
	if r.IsNode() {
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("%w: node without id", ErrMalformed)
		}
		n := &Node{
			ID:         r.ID,
			Label:      r.Label,
			Type:       NodeType(r.Type),
			Classes:    append([]string(nil), r.Classes...),
			Attributes: r.Attributes,
		}
		if n.Type == "" {
			n.Type = NodeTypeCustom
		}
		n.EnsureCanonicalClass()
		return n, nil
	}

	if strings.TrimSpace(r.ID) == "" {
		return nil, fmt.Errorf("%w: edge without id", ErrMalformed)
	}
	if r.Source == "" || r.Target == "" {
		return nil, fmt.Errorf("%w: edge %s missing source or target", ErrMalformed, r.ID)
	}
	e := &Edge{
		ID:         r.ID,
		Source:     r.Source,
		Target:     r.Target,
		Label:      r.Label,
		Type:       EdgeType(r.Type),
		Attributes: r.Attributes,
	}
	if e.Type == "" {
		e.Type = EdgeTypeKER
	}
	return e, nil
}

// Raw converts a typed element back to its wire record.
func Raw(el Element) RawElement {
	switch v := el.(type) {
	case *Node:
		return RawElement{
			ID:         v.ID,
			Label:      v.Label,
			Type:       string(v.Type),
			Classes:    append([]string(nil), v.Classes...),
			Attributes: v.Attributes,
		}
	case *Edge:
		return RawElement{
			ID:         v.ID,
			Label:      v.Label,
			Type:       string(v.Type),
			Source:     v.Source,
			Target:     v.Target,
			Attributes: v.Attributes,
		}
	default:
		return RawElement{}
	}
}

// DecodeElements parses a JSON array of raw element records.
func DecodeElements(data []byte) ([]RawElement, error) {
	var raws []RawElement
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decoding elements: %w", err)
	}
	return raws, nil
}

// EncodeElements serializes raw element records as a JSON array.
func EncodeElements(raws []RawElement) ([]byte, error) {
	data, err := json.Marshal(raws)
	if err != nil {
		return nil, fmt.Errorf("encoding elements: %w", err)
	}
	return data, nil
}
