// Package export renders the current network to a shareable static
// image. SVG and PNG outputs share one layout pass so the two formats
// stay visually identical.
package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vhp4safety/aopgraph/pkg/graphstore"
	"github.com/vhp4safety/aopgraph/pkg/model"
)

// SnapshotOptions controls network snapshot export behaviour.
type SnapshotOptions struct {
	Path   string            // Output path; format inferred from extension when Format empty
	Format string            // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title  string            // Optional title rendered in the summary block
	Store  *graphstore.Store // Network to render; hidden elements are skipped
}

// SaveSnapshot renders a static snapshot (SVG or PNG) of the visible
// network with a minimal summary block. Current filter styles carry
// through, so a grouped or filtered view exports the way it looks.
func SaveSnapshot(opts SnapshotOptions) error {
	if opts.Store == nil || opts.Store.NodeCount() == 0 {
		return fmt.Errorf("no network to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg" // safe default
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildLayout(opts)

	switch format {
	case "svg":
		return renderSVG(opts, layout)
	case "png":
		return renderPNG(opts, layout)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

// --- layout computation ----------------------------------------------------

type layoutNode struct {
	ID      string
	Label   string
	Type    model.NodeType
	X, Y    float64
	NodeW   float64
	NodeH   float64
	Fill    color.RGBA
	Stroke  color.RGBA
	StrokeW float64
	Opacity float64
}

type layoutEdge struct {
	From    string
	To      string
	Label   string
	Opacity float64
	Color   color.RGBA
}

type layoutResult struct {
	Nodes   []layoutNode
	Edges   []layoutEdge
	Width   int
	Height  int
	Header  float64
	Summary summaryInfo
}

type summaryInfo struct {
	Title     string
	NodeCount int
	EdgeCount int
	Hidden    int
	Timestamp string
}

const (
	nodeW        = 200.0
	nodeH        = 56.0
	padding      = 36.0
	headerHeight = 120.0
	// Stored positions use tighter gaps than the rendered boxes need,
	// so the horizontal axis stretches to keep columns from touching.
	stretchX = 1.5
)

func buildLayout(opts SnapshotOptions) layoutResult {
	store := opts.Store

	positions := store.Positions()
	if len(positions) == 0 {
		positions = store.ComputeLayout()
	}

	nodes := store.Nodes()
	hidden := 0

	minX, minY := 0.0, 0.0
	first := true
	for _, n := range nodes {
		if store.IsHidden(n.ID) {
			continue
		}
		p, ok := positions[n.ID]
		if !ok {
			continue
		}
		if first || p.X < minX {
			minX = p.X
		}
		if first || p.Y < minY {
			minY = p.Y
		}
		first = false
	}

	var out []layoutNode
	maxX, maxY := 0.0, 0.0
	placed := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if store.IsHidden(n.ID) {
			hidden++
			continue
		}
		p, ok := positions[n.ID]
		if !ok {
			continue
		}
		st := store.StyleOf(n.ID)
		ln := layoutNode{
			ID:      n.ID,
			Label:   n.Label,
			Type:    n.Type,
			X:       padding + (p.X-minX)*stretchX,
			Y:       headerHeight + padding + (p.Y - minY),
			NodeW:   nodeW,
			NodeH:   nodeH,
			Fill:    typeColor(n.Type),
			Stroke:  colorStroke,
			StrokeW: 1.2,
			Opacity: 1,
		}
		if st.Color != "" {
			ln.Fill = parseHex(st.Color, ln.Fill)
		}
		if st.BorderColor != "" {
			ln.Stroke = parseHex(st.BorderColor, ln.Stroke)
		}
		if st.BorderWidth > 0 {
			ln.StrokeW = st.BorderWidth
		}
		if st.Opacity > 0 && st.Opacity < 1 {
			ln.Opacity = st.Opacity
		}
		placed[n.ID] = true
		out = append(out, ln)
		if ln.X+ln.NodeW > maxX {
			maxX = ln.X + ln.NodeW
		}
		if ln.Y+ln.NodeH > maxY {
			maxY = ln.Y + ln.NodeH
		}
	}

	var edges []layoutEdge
	for _, e := range store.Edges() {
		if !placed[e.Source] || !placed[e.Target] {
			continue
		}
		le := layoutEdge{
			From:    e.Source,
			To:      e.Target,
			Label:   e.Label,
			Opacity: 1,
			Color:   colorEdge,
		}
		st := store.StyleOf(e.ID)
		if st.Color != "" {
			le.Color = parseHex(st.Color, le.Color)
		}
		if st.Opacity > 0 && st.Opacity < 1 {
			le.Opacity = st.Opacity
		}
		edges = append(edges, le)
	}

	width := int(maxX + padding)
	height := int(maxY + padding)
	if width < 640 {
		width = 640
	}
	if height < 480 {
		height = 480
	}

	title := opts.Title
	if title == "" {
		title = "AOP network snapshot"
	}

	return layoutResult{
		Nodes:  out,
		Edges:  edges,
		Width:  width,
		Height: height,
		Header: headerHeight,
		Summary: summaryInfo{
			Title:     title,
			NodeCount: len(out),
			EdgeCount: len(edges),
			Hidden:    hidden,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// --- rendering --------------------------------------------------------------

var (
	colorMIE      = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorKE       = color.RGBA{0xff, 0xf3, 0xe0, 0xff}
	colorAO       = color.RGBA{0xff, 0xcd, 0xd2, 0xff}
	colorChemical = color.RGBA{0xbb, 0xde, 0xfb, 0xff}
	colorGene     = color.RGBA{0xe1, 0xbe, 0xe7, 0xff}
	colorOther    = color.RGBA{0xcf, 0xd8, 0xdc, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

func typeColor(t model.NodeType) color.RGBA {
	switch t {
	case model.NodeTypeMIE:
		return colorMIE
	case model.NodeTypeKeyEvent:
		return colorKE
	case model.NodeTypeAdverseOutcome:
		return colorAO
	case model.NodeTypeChemical:
		return colorChemical
	case model.NodeTypeUniProt, model.NodeTypeEnsembl:
		return colorGene
	default:
		return colorOther
	}
}

func renderPNG(opts SnapshotOptions, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	// header
	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)

	drawSummaryBlock(dc, layout)
	drawLegend(dc, layout)

	nodePos := make(map[string]layoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		nodePos[n.ID] = n
	}
	// Layers run top to bottom, so edges leave the bottom edge of the
	// source box and enter the top edge of the target box.
	for _, e := range layout.Edges {
		from := nodePos[e.From]
		to := nodePos[e.To]
		x1 := from.X + from.NodeW/2
		y1 := from.Y + from.NodeH
		x2 := to.X + to.NodeW/2
		y2 := to.Y
		dc.SetColor(withOpacity(e.Color, e.Opacity))
		dc.SetLineWidth(2)
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		drawArrow(dc, withOpacity(e.Color, e.Opacity), x2, y2)
	}

	for _, n := range layout.Nodes {
		drawNode(dc, n)
	}

	return dc.SavePNG(opts.Path)
}

func renderSVG(opts SnapshotOptions, layout layoutResult) error {
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderSVGToWriter(file, layout)
}

func renderSVGToWriter(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawSummaryBlockSVG(canvas, layout)
	drawLegendSVG(canvas, layout)

	nodePos := make(map[string]layoutNode, len(layout.Nodes))
	for _, n := range layout.Nodes {
		nodePos[n.ID] = n
	}

	for _, e := range layout.Edges {
		from := nodePos[e.From]
		to := nodePos[e.To]
		x1 := int(from.X + from.NodeW/2)
		y1 := int(from.Y + from.NodeH)
		x2 := int(to.X + to.NodeW/2)
		y2 := int(to.Y)
		canvas.Line(x1, y1, x2, y2,
			fmt.Sprintf("stroke:%s;stroke-width:2;stroke-opacity:%.2f", css(e.Color), e.Opacity))
		// simple arrow head
		canvas.Polygon(
			[]int{x2, x2 - 4, x2 + 4},
			[]int{y2, y2 - 8, y2 - 8},
			fmt.Sprintf("fill:%s;fill-opacity:%.2f", css(e.Color), e.Opacity),
		)
	}

	for _, n := range layout.Nodes {
		x := int(n.X)
		y := int(n.Y)
		canvas.Roundrect(x, y, int(n.NodeW), int(n.NodeH), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f;opacity:%.2f",
				css(n.Fill), css(n.Stroke), n.StrokeW, n.Opacity))
		canvas.Text(x+10, y+22, truncate(n.Label, 26),
			fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold;opacity:%.2f", css(colorText), n.Opacity))
		canvas.Text(x+10, y+42, truncate(n.ID, 30),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;opacity:%.2f", css(colorSubtle), n.Opacity))
	}

	canvas.End()
	return nil
}

func drawNode(dc *gg.Context, n layoutNode) {
	dc.SetColor(withOpacity(n.Fill, n.Opacity))
	dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 8)
	dc.Fill()
	dc.SetColor(withOpacity(n.Stroke, n.Opacity))
	dc.SetLineWidth(n.StrokeW)
	dc.DrawRoundedRectangle(n.X, n.Y, n.NodeW, n.NodeH, 8)
	dc.Stroke()

	dc.SetColor(withOpacity(colorText, n.Opacity))
	dc.DrawStringAnchored(truncate(n.Label, 26), n.X+10, n.Y+18, 0, 0.5)
	dc.SetColor(withOpacity(colorSubtle, n.Opacity))
	dc.DrawStringAnchored(truncate(n.ID, 30), n.X+10, n.Y+38, 0, 0.5)
}

func drawArrow(dc *gg.Context, c color.RGBA, x, y float64) {
	dc.SetColor(c)
	dc.NewSubPath()
	dc.MoveTo(x, y)
	dc.LineTo(x-4, y-8)
	dc.LineTo(x+4, y-8)
	dc.ClosePath()
	dc.Fill()
}

func drawSummaryBlock(dc *gg.Context, layout layoutResult) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Summary.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("nodes: %d  edges: %d  hidden: %d",
		layout.Summary.NodeCount, layout.Summary.EdgeCount, layout.Summary.Hidden), 32, 64, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("exported: %s", layout.Summary.Timestamp), 32, 84, 0, 0.5)
}

func drawLegend(dc *gg.Context, layout layoutResult) {
	boxW := 200.0
	boxH := 112.0
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	drawLegendRow(dc, x+12, y+36, colorMIE, "Molecular initiating event")
	drawLegendRow(dc, x+12, y+52, colorKE, "Key event")
	drawLegendRow(dc, x+12, y+68, colorAO, "Adverse outcome")
	drawLegendRow(dc, x+12, y+84, colorChemical, "Chemical")
	drawLegendRow(dc, x+12, y+100, colorGene, "Gene / protein")
}

func drawLegendRow(dc *gg.Context, x, y float64, c color.RGBA, label string) {
	dc.SetColor(c)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.DrawRoundedRectangle(x, y-8, 14, 14, 3)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(label, x+20, y, 0, 0.5)
}

func drawSummaryBlockSVG(canvas *svg.SVG, layout layoutResult) {
	canvas.Text(32, 44, layout.Summary.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 64, fmt.Sprintf("nodes: %d  edges: %d  hidden: %d",
		layout.Summary.NodeCount, layout.Summary.EdgeCount, layout.Summary.Hidden),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 84, fmt.Sprintf("exported: %s", layout.Summary.Timestamp),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
}

func drawLegendSVG(canvas *svg.SVG, layout layoutResult) {
	boxW := 200
	boxH := 112
	x := layout.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	drawLegendRowSVG(canvas, x+12, y+36, colorMIE, "Molecular initiating event")
	drawLegendRowSVG(canvas, x+12, y+52, colorKE, "Key event")
	drawLegendRowSVG(canvas, x+12, y+68, colorAO, "Adverse outcome")
	drawLegendRowSVG(canvas, x+12, y+84, colorChemical, "Chemical")
	drawLegendRowSVG(canvas, x+12, y+100, colorGene, "Gene / protein")
}

func drawLegendRowSVG(canvas *svg.SVG, x, y int, c color.RGBA, label string) {
	canvas.Roundrect(x, y-8, 14, 14, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(c), css(colorStroke)))
	canvas.Text(x+20, y, label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func withOpacity(c color.RGBA, opacity float64) color.RGBA {
	if opacity >= 1 {
		return c
	}
	if opacity < 0 {
		opacity = 0
	}
	c.A = uint8(opacity * 255)
	return c
}

// parseHex accepts "#rrggbb" styles coming from the filter engine and
// falls back to def on anything it cannot read.
func parseHex(s string, def color.RGBA) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return def
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return def
	}
	return color.RGBA{r, g, b, 0xff}
}
