package scene

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/justestif/go-genre-decagon/internal/layout"
)

// Frame is a read-only picture of the surface at one instant, ready for a
// template to draw.
type Frame struct {
	Width, Height int
	Transform     string
	Outline       string
	Guides        []LineView
	Vertices      []VertexView
	Markers       []MarkerView
	Tooltip       *TooltipView
}

// LineView is a guide line.
type LineView struct {
	X1, Y1, X2, Y2 string
}

// VertexView is a genre vertex and its label.
type VertexView struct {
	X, Y    string
	R       string
	Color   string
	Label   string
	LabelDY string
}

// MarkerView is a song marker. When Animating is set, the marker is still
// transitioning from R to ToR over DurMS milliseconds.
type MarkerView struct {
	ID          int64
	X, Y        string
	R           string
	Fill        string
	Stroke      string
	StrokeWidth string
	Opacity     string
	Hovered     bool
	Selected    bool

	Animating bool
	ToR       string
	DurMS     int64

	radius float64
	style  Style
}

// Radius returns the sampled radius.
func (m MarkerView) Radius() float64 {
	return m.radius
}

// Style returns the effective stroke and opacity.
func (m MarkerView) Style() Style {
	return m.style
}

// TooltipView is the hover card.
type TooltipView struct {
	SongID int64
	X, Y   string
	Title  string
	Detail string
	Color  string
}

// Frame samples the surface at the renderer's current time.
func (r *Renderer) Frame() Frame {
	now := r.now()
	s := r.surface

	f := Frame{
		Width:     layout.Width,
		Height:    layout.Height,
		Transform: r.viewport.Transform(),
		Outline:   points(s.outline),
	}

	for _, g := range s.guides {
		f.Guides = append(f.Guides, LineView{
			X1: num(g.From.X), Y1: num(g.From.Y),
			X2: num(g.To.X), Y2: num(g.To.Y),
		})
	}
	for _, v := range s.vertices {
		f.Vertices = append(f.Vertices, VertexView{
			X: num(v.X), Y: num(v.Y),
			R:       num(VertexRadius),
			Color:   v.Color(),
			Label:   v.Label,
			LabelDY: num(v.LabelDY),
		})
	}

	selected, hasSel := r.src.SelectedID()
	for _, id := range s.order {
		m, ok := s.markers[id]
		if !ok {
			continue
		}
		f.Markers = append(f.Markers, markerView(m, now, hasSel && selected == id))
	}

	if t := s.tooltip; t != nil {
		f.Tooltip = &TooltipView{
			SongID: t.SongID,
			X:      num(t.Anchor.X),
			Y:      num(t.Anchor.Y),
			Title:  t.Title,
			Detail: t.Detail,
			Color:  t.Color,
		}
	}
	return f
}

// Marker returns the view of one marker.
func (r *Renderer) Marker(id int64) (MarkerView, bool) {
	m, ok := r.surface.markers[id]
	if !ok {
		return MarkerView{}, false
	}
	selected, hasSel := r.src.SelectedID()
	return markerView(m, r.now(), hasSel && selected == id), true
}

// MarkerCount returns the number of song markers on the surface.
func (r *Renderer) MarkerCount() int {
	return len(r.surface.markers)
}

// Tooltip returns the current tooltip, or nil.
func (r *Renderer) Tooltip() *Tooltip {
	if r.surface.tooltip == nil {
		return nil
	}
	t := *r.surface.tooltip
	return &t
}

func markerView(m *marker, now time.Time, selected bool) MarkerView {
	style := m.style()
	rad := m.radius.At(now)
	v := MarkerView{
		ID:          m.spec.SongID,
		X:           num(m.spec.Center.X),
		Y:           num(m.spec.Center.Y),
		R:           num(rad),
		Fill:        m.spec.Fill,
		Stroke:      style.Stroke,
		StrokeWidth: num(style.StrokeWidth),
		Opacity:     num(style.Opacity),
		Hovered:     m.hovered,
		Selected:    selected,
		radius:      rad,
		style:       style,
	}
	if !m.radius.Done(now) {
		v.Animating = true
		v.ToR = num(m.radius.To)
		v.DurMS = m.radius.Remaining(now).Milliseconds()
	}
	return v
}

func points(pts []layout.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = num(p.X) + "," + num(p.Y)
	}
	return strings.Join(parts, " ")
}

// num formats a coordinate with at most two decimals.
func num(f float64) string {
	r := math.Round(f*100) / 100
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
