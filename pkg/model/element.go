// Package model defines the core data types for an AOP network: nodes,
// edges, the raw wire records they are decoded from, and the exported
// network document.
package model

import (
	"fmt"
	"strings"
)

// NodeType classifies a node within the pathway vocabulary.
type NodeType string

// Known node types. Servers may return types outside this list; they are
// carried through unchanged and treated like NodeTypeCustom for styling.
const (
	NodeTypeMIE              NodeType = "mie"
	NodeTypeKeyEvent         NodeType = "key_event"
	NodeTypeAdverseOutcome   NodeType = "ao"
	NodeTypeChemical         NodeType = "chemical"
	NodeTypeUniProt          NodeType = "uniprot"
	NodeTypeEnsembl          NodeType = "ensembl"
	NodeTypeGOProcess        NodeType = "go_process"
	NodeTypeComponentProcess NodeType = "component_process"
	NodeTypeComponentObject  NodeType = "component_object"
	NodeTypeOrgan            NodeType = "organ"
	NodeTypeCustom           NodeType = "custom"
)

// EdgeType classifies an edge.
type EdgeType string

// Known edge types.
const (
	EdgeTypeKER        EdgeType = "ker"        // key event relationship
	EdgeTypeInteraction EdgeType = "interaction"
	EdgeTypeAnnotation EdgeType = "annotation"
)

// CanonicalClass returns the class every node of the given type must carry.
// The class set drives grouping and visibility; keeping it consistent with
// the type is an invariant enforced at decode time.
func CanonicalClass(t NodeType) string {
	switch t {
	case NodeTypeMIE:
		return "mie"
	case NodeTypeKeyEvent:
		return "key-event"
	case NodeTypeAdverseOutcome:
		return "adverse-outcome"
	case NodeTypeChemical:
		return "chemical"
	case NodeTypeUniProt:
		return "gene-uniprot"
	case NodeTypeEnsembl:
		return "gene-ensembl"
	case NodeTypeGOProcess:
		return "go-process"
	case NodeTypeComponentProcess:
		return "component-process"
	case NodeTypeComponentObject:
		return "component-object"
	case NodeTypeOrgan:
		return "organ"
	default:
		return "custom"
	}
}

// Element is a node or an edge. The two concrete types are Node and Edge;
// there are no other implementations.
type Element interface {
	ElementID() string
	element()
}

// Node is a vertex in the AOP network. IDs are opaque strings (AOP-Wiki,
// UniProt, Ensembl, GO identifiers and friends) and are globally unique
// within one graph instance.
type Node struct {
	ID         string         `json:"id"`
	Label      string         `json:"label,omitempty"`
	Type       NodeType       `json:"type,omitempty"`
	Classes    []string       `json:"classes,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ElementID implements Element.
func (n *Node) ElementID() string { return n.ID }

func (n *Node) element() {}

// HasClass reports whether the node carries the given class.
func (n *Node) HasClass(class string) bool {
	for _, c := range n.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// EnsureCanonicalClass adds the canonical class for the node's type if it
// is not already present.
func (n *Node) EnsureCanonicalClass() {
	class := CanonicalClass(n.Type)
	if !n.HasClass(class) {
		n.Classes = append(n.Classes, class)
	}
}

// AOPRefs returns the raw AOP references attached to the node, if any.
// References may be full URIs, "AOP:<n>" shorthands, or bare integers;
// callers normalize via the aop package before membership tests.
func (n *Node) AOPRefs() []string {
	raw, ok := n.Attributes["aops"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		refs := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				refs = append(refs, s)
			} else {
				refs = append(refs, fmt.Sprint(item))
			}
		}
		return refs
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// Edge is a directed relationship between two nodes. Source and target
// should reference existing node ids at insertion time, but a dangling
// reference is tolerated: the edge is retained and becomes structurally
// complete once the missing endpoint is merged later.
type Edge struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Label      string         `json:"label,omitempty"`
	Type       EdgeType       `json:"type,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// ElementID implements Element.
func (e *Edge) ElementID() string { return e.ID }

func (e *Edge) element() {}
