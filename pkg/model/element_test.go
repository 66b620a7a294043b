package model_test

import (
	"errors"
	"testing"

	"github.com/vhp4safety/aopgraph/pkg/model"
)

func TestRawElementNodeConversion(t *testing.T) {
	raw := model.RawElement{ID: "ke1", Label: "Oxidative stress", Type: "key_event"}
	el, err := raw.Element()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := el.(*model.Node)
	if !ok {
		t.Fatalf("expected *model.Node, got %T", el)
	}
	if n.Type != model.NodeTypeKeyEvent {
		t.Errorf("type = %s, want key_event", n.Type)
	}
	if !n.HasClass("key_event") {
		t.Errorf("canonical class missing, classes = %v", n.Classes)
	}
}

func TestRawElementNodeDefaultsToCustom(t *testing.T) {
	raw := model.RawElement{ID: "x1"}
	el, err := raw.Element()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if el.(*model.Node).Type != model.NodeTypeCustom {
		t.Errorf("type = %s, want custom", el.(*model.Node).Type)
	}
}

func TestRawElementEdgeDefaultsToKER(t *testing.T) {
	raw := model.RawElement{ID: "e1", Source: "a", Target: "b"}
	el, err := raw.Element()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, ok := el.(*model.Edge)
	if !ok {
		t.Fatalf("expected *model.Edge, got %T", el)
	}
	if e.Type != model.EdgeTypeKER {
		t.Errorf("type = %s, want ker", e.Type)
	}
}

func TestRawElementMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  model.RawElement
	}{
		{"node without id", model.RawElement{Label: "anonymous"}},
		{"node with blank id", model.RawElement{ID: "   "}},
		{"edge without id", model.RawElement{Source: "a", Target: "b"}},
		{"edge without target", model.RawElement{ID: "e1", Source: "a", Target: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.raw.Element()
			if !errors.Is(err, model.ErrMalformed) {
				t.Errorf("error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestAOPRefsShapes(t *testing.T) {
	cases := []struct {
		name  string
		attrs map[string]any
		want  int
	}{
		{"string slice", map[string]any{"aops": []string{"AOP:1", "AOP:2"}}, 2},
		{"any slice", map[string]any{"aops": []any{"AOP:1", 2.0}}, 1},
		{"single string", map[string]any{"aops": "AOP:7"}, 1},
		{"absent", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &model.Node{ID: "n", Attributes: tc.attrs}
			if got := len(n.AOPRefs()); got != tc.want {
				t.Errorf("len(AOPRefs) = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := model.NewDocument(
		[]model.RawElement{
			{ID: "n1", Type: "mie"},
			{ID: "e1", Source: "n1", Target: "n2"},
		},
		map[string]model.Position{"n1": {X: 10, Y: 20}},
		1.25,
		map[string]bool{"chemical": true},
	)
	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := model.ParseDocument(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Elements) != 2 {
		t.Errorf("elements = %d, want 2", len(parsed.Elements))
	}
	if parsed.Style.FontSizeMultiplier != 1.25 {
		t.Errorf("font multiplier = %v, want 1.25", parsed.Style.FontSizeMultiplier)
	}
	if parsed.Layout["n1"].X != 10 {
		t.Errorf("layout x = %v, want 10", parsed.Layout["n1"].X)
	}
	if !parsed.Metadata.Flags["chemical"] {
		t.Errorf("visibility flag lost")
	}
}

func TestParseDocumentDefaultsFontSize(t *testing.T) {
	doc, err := model.ParseDocument([]byte(`{"elements":[]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Style.FontSizeMultiplier != 1 {
		t.Errorf("font multiplier = %v, want 1", doc.Style.FontSizeMultiplier)
	}
}
