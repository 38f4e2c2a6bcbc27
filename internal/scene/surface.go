package scene

import (
	"time"

	"github.com/justestif/go-genre-decagon/internal/genre"
	"github.com/justestif/go-genre-decagon/internal/layout"
)

// Marker and hover geometry, in surface pixels.
const (
	BaseRadius      = 5.0
	ConfidenceScale = 8.0
	HoverGrowth     = 4.0
	VertexRadius    = 20.0
	TooltipOffset   = 20.0
)

// Transition durations.
const (
	EnterDuration = 500 * time.Millisecond
	HoverDuration = 200 * time.Millisecond
)

const (
	highlightColor = "#fff"
	noStroke       = "none"
)

// MarkerRadius returns the resting radius for a confidence in [0,1].
func MarkerRadius(confidence float64) float64 {
	return BaseRadius + confidence*ConfidenceScale
}

// Style is the stroke and opacity of a marker.
type Style struct {
	Stroke      string
	StrokeWidth float64
	Opacity     float64
}

// SelectionStyle returns the resting style of a marker.
func SelectionStyle(selected bool) Style {
	if selected {
		return Style{Stroke: highlightColor, StrokeWidth: 3, Opacity: 1}
	}
	return Style{Stroke: noStroke, StrokeWidth: 0, Opacity: 0.8}
}

// HoverStyle is applied while the pointer is over a marker.
func HoverStyle() Style {
	return Style{Stroke: highlightColor, StrokeWidth: 2, Opacity: 1}
}

// MarkerSpec is the desired, selection-derived state of one song marker.
type MarkerSpec struct {
	SongID     int64
	Title      string
	Genre      genre.Genre
	Confidence float64
	Center     layout.Point
	Radius     float64
	Fill       string
	Style      Style
}

// marker is a live element on the surface.
type marker struct {
	spec    MarkerSpec
	radius  Transition
	hovered bool
}

func (m *marker) style() Style {
	if m.hovered {
		return HoverStyle()
	}
	return m.spec.Style
}

func (m *marker) targetRadius() float64 {
	if m.hovered {
		return m.spec.Radius + HoverGrowth
	}
	return m.spec.Radius
}

// Line is a straight guide segment.
type Line struct {
	From, To layout.Point
}

// VertexMark is a genre vertex with its label.
type VertexMark struct {
	layout.Vertex
	Label   string
	LabelDY float64
}

// Tooltip is the hover card shown above a marker.
type Tooltip struct {
	SongID int64
	Anchor layout.Point
	Title  string
	Detail string
	Color  string
}

// Surface is the persistent set of drawn elements. Only the Renderer
// mutates it.
type Surface struct {
	outline  []layout.Point
	guides   []Line
	vertices []VertexMark

	markers map[int64]*marker
	order   []int64

	tooltip *Tooltip
	hovered int64
	hasHov  bool
}

func newSurface() *Surface {
	return &Surface{markers: make(map[int64]*marker)}
}

// buildStatic redraws the decagon, guides and vertices. They depend only on
// the genre registry and the layout.
func (s *Surface) buildStatic(l layout.Layout) {
	s.outline = l.Outline()

	vertices := l.ReferenceVertices()
	s.guides = make([]Line, 0, len(vertices))
	s.vertices = make([]VertexMark, 0, len(vertices))
	for _, v := range vertices {
		s.guides = append(s.guides, Line{From: l.Center, To: v.Point})

		dy := 35.0
		if v.Y < l.Center.Y {
			dy = -30
		}
		s.vertices = append(s.vertices, VertexMark{
			Vertex:  v,
			Label:   v.Genre.String(),
			LabelDY: dy,
		})
	}
}

// specs returns the desired state last applied to each marker.
func (s *Surface) specs() map[int64]MarkerSpec {
	out := make(map[int64]MarkerSpec, len(s.markers))
	for id, m := range s.markers {
		out[id] = m.spec
	}
	return out
}

// apply commits a reconciliation diff at time now.
func (s *Surface) apply(d Diff, now time.Time) {
	for _, id := range d.Exit {
		delete(s.markers, id)
		if s.hasHov && s.hovered == id {
			s.clearHover()
		}
	}

	for _, spec := range d.Enter {
		s.markers[spec.SongID] = &marker{
			spec: spec,
			radius: Transition{
				From:     0,
				To:       spec.Radius,
				Start:    now,
				Duration: EnterDuration,
			},
		}
	}

	for _, spec := range d.Update {
		m, ok := s.markers[spec.SongID]
		if !ok {
			continue
		}
		prev := m.targetRadius()
		m.spec = spec
		if next := m.targetRadius(); next != prev {
			m.radius = m.radius.Retarget(now, next, EnterDuration)
		}
		if m.hovered && s.tooltip != nil {
			s.tooltip = newTooltip(spec)
		}
	}

	s.order = d.Order
}

func (s *Surface) clearHover() {
	s.tooltip = nil
	s.hovered = 0
	s.hasHov = false
}

func newTooltip(spec MarkerSpec) *Tooltip {
	return &Tooltip{
		SongID: spec.SongID,
		Anchor: layout.Point{X: spec.Center.X, Y: spec.Center.Y - TooltipOffset},
		Title:  TooltipTitle(spec.Title),
		Detail: TooltipDetail(spec.Genre, spec.Confidence),
		Color:  spec.Fill,
	}
}
