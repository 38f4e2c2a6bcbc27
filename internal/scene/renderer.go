// Package scene draws the song collection on the decagon and turns pointer
// gestures into selection and viewport changes.
//
// A Renderer owns a persistent Surface. It subscribes to a store and
// reconciles the surface on every structural or selection change, so the
// drawn markers always match the collection. Pan and zoom live in the
// Renderer's Viewport and survive collection changes.
package scene

import (
	"log"
	"math"
	"time"

	"github.com/justestif/go-genre-decagon/internal/layout"
	"github.com/justestif/go-genre-decagon/internal/model"
	"github.com/justestif/go-genre-decagon/internal/store"
)

// dragThreshold is how far the pointer must travel, in screen units, before
// a press turns into a pan and the following click is swallowed.
const dragThreshold = 3.0

// Source is the part of the store the renderer reads and writes.
type Source interface {
	Subscribe(fn store.Listener) (unsubscribe func())
	Songs() []model.Song
	Song(id int64) (model.Song, bool)
	SelectedID() (int64, bool)
	Select(song *model.Song) error
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the time source used for transitions.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// WithLayout replaces the default layout.
func WithLayout(l layout.Layout) Option {
	return func(r *Renderer) {
		r.layout = l
	}
}

// WithLogger enables reconciliation logging.
func WithLogger(logger *log.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

type dragState struct {
	active       bool
	lastX, lastY float64
	travelled    float64
}

// Renderer keeps a Surface consistent with a store.
type Renderer struct {
	src    Source
	layout layout.Layout
	now    func() time.Time
	logger *log.Logger

	surface  *Surface
	viewport Viewport

	drag          dragState
	suppressClick bool

	unsubscribe func()
	reconciles  int
}

// New creates a renderer, draws the current collection and subscribes to
// further changes.
func New(src Source, opts ...Option) *Renderer {
	r := &Renderer{
		src:      src,
		layout:   layout.Default(),
		now:      time.Now,
		surface:  newSurface(),
		viewport: NewViewport(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.reconcile()
	r.unsubscribe = src.Subscribe(r.onChange)
	return r
}

// Close stops listening to the store.
func (r *Renderer) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

func (r *Renderer) onChange(c store.Change) {
	if c.Structural || c.SelectionChanged {
		r.reconcile()
	}
}

// reconcile rebuilds the static layer and applies the marker diff.
func (r *Renderer) reconcile() {
	selected, hasSel := r.src.SelectedID()
	diff := Reconcile(r.layout, r.surface.specs(), r.src.Songs(), selected, hasSel)

	r.surface.buildStatic(r.layout)
	r.surface.apply(diff, r.now())
	r.reconciles++

	if r.logger != nil && !diff.Empty() {
		r.logger.Printf("scene: %d markers (+%d ~%d -%d)",
			len(diff.Order), len(diff.Enter), len(diff.Update), len(diff.Exit))
	}
}

// Rebuild discards the surface and the viewport and draws everything again.
func (r *Renderer) Rebuild() {
	r.surface = newSurface()
	r.viewport = NewViewport()
	r.drag = dragState{}
	r.suppressClick = false
	r.reconcile()
}

// Viewport returns the current pan and zoom.
func (r *Renderer) Viewport() Viewport {
	return r.viewport
}

// Reconciles returns how many times the surface has been reconciled.
func (r *Renderer) Reconciles() int {
	return r.reconciles
}

/* ─── pan & zoom ─── */

// PointerDown starts a potential pan at screen point (x, y).
func (r *Renderer) PointerDown(x, y float64) {
	r.drag = dragState{active: true, lastX: x, lastY: y}
	r.suppressClick = false
}

// PointerMove pans the viewport while a press is active.
func (r *Renderer) PointerMove(x, y float64) {
	if !r.drag.active {
		return
	}
	dx, dy := x-r.drag.lastX, y-r.drag.lastY
	r.viewport.Pan(dx, dy)
	r.drag.travelled += math.Hypot(dx, dy)
	r.drag.lastX, r.drag.lastY = x, y
}

// PointerUp ends a pan. A press that travelled far enough swallows the
// click the browser sends next.
func (r *Renderer) PointerUp(x, y float64) {
	if !r.drag.active {
		return
	}
	r.PointerMove(x, y)
	r.suppressClick = r.drag.travelled > dragThreshold
	r.drag = dragState{}
}

// Wheel zooms around (x, y) by the wheel delta.
func (r *Renderer) Wheel(x, y, deltaY float64) {
	r.viewport.ZoomAt(WheelFactor(deltaY), x, y)
}

// Pinch zooms around (x, y) by factor.
func (r *Renderer) Pinch(x, y, factor float64) {
	r.viewport.ZoomAt(factor, x, y)
}

/* ─── selection ─── */

// Click routes a click at screen point (x, y) to the marker under it, or to
// the background.
func (r *Renderer) Click(x, y float64) error {
	if id, ok := r.HitTest(x, y); ok {
		return r.ClickMarker(id)
	}
	r.ClickBackground()
	return nil
}

// ClickMarker selects the song behind the marker. The click never reaches
// the background.
func (r *Renderer) ClickMarker(id int64) error {
	if r.consumeSuppressedClick() {
		return nil
	}
	song, ok := r.src.Song(id)
	if !ok {
		return store.ErrUnknownSong
	}
	return r.src.Select(&song)
}

// ClickBackground clears the selection.
func (r *Renderer) ClickBackground() {
	if r.consumeSuppressedClick() {
		return
	}
	_ = r.src.Select(nil)
}

func (r *Renderer) consumeSuppressedClick() bool {
	if r.suppressClick {
		r.suppressClick = false
		return true
	}
	return false
}

/* ─── hover ─── */

// PointerEnter highlights a marker and shows its tooltip. Any previous hover
// is reverted first so that at most one tooltip exists.
func (r *Renderer) PointerEnter(id int64) {
	m, ok := r.surface.markers[id]
	if !ok {
		return
	}
	s := r.surface
	if s.hasHov {
		if s.hovered == id {
			return
		}
		r.PointerLeave(s.hovered)
	}

	now := r.now()
	m.hovered = true
	m.radius = m.radius.Retarget(now, m.targetRadius(), HoverDuration)
	s.hovered, s.hasHov = id, true
	s.tooltip = newTooltip(m.spec)
}

// PointerLeave removes the tooltip and returns the marker to its
// selection-derived look.
func (r *Renderer) PointerLeave(id int64) {
	s := r.surface
	if !s.hasHov || s.hovered != id {
		return
	}
	s.clearHover()

	m, ok := s.markers[id]
	if !ok {
		return
	}
	m.hovered = false
	m.radius = m.radius.Retarget(r.now(), m.targetRadius(), HoverDuration)
}

// HitTest returns the top-most marker under screen point (x, y).
func (r *Renderer) HitTest(x, y float64) (int64, bool) {
	p := r.viewport.ToWorld(x, y)
	now := r.now()
	order := r.surface.order
	for i := len(order) - 1; i >= 0; i-- {
		m, ok := r.surface.markers[order[i]]
		if !ok {
			continue
		}
		rad := math.Max(m.radius.At(now), m.targetRadius())
		if math.Hypot(p.X-m.spec.Center.X, p.Y-m.spec.Center.Y) <= rad {
			return order[i], true
		}
	}
	return 0, false
}
