package scene

import (
	"fmt"
	"math"

	"github.com/justestif/go-genre-decagon/internal/layout"
)

// Zoom limits.
const (
	MinScale = 0.5
	MaxScale = 3.0
)

// wheelSensitivity converts wheel delta (pixels) into a zoom exponent.
const wheelSensitivity = 0.002

// Viewport is the pan and zoom applied to everything drawn on the surface.
// Screen = world*Scale + (X, Y).
type Viewport struct {
	Scale float64
	X, Y  float64
}

// NewViewport returns the identity transform.
func NewViewport() Viewport {
	return Viewport{Scale: 1}
}

// Pan moves the scene by (dx, dy) screen units.
func (v *Viewport) Pan(dx, dy float64) {
	v.X += dx
	v.Y += dy
}

// ZoomAt multiplies the scale by factor, keeping the world point under
// (sx, sy) fixed on screen. The scale is clamped to [MinScale, MaxScale].
func (v *Viewport) ZoomAt(factor, sx, sy float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	world := v.ToWorld(sx, sy)
	v.Scale = clampScale(v.Scale * factor)
	v.X = sx - world.X*v.Scale
	v.Y = sy - world.Y*v.Scale
}

// WheelFactor converts a wheel delta into a zoom factor. Scrolling up
// (negative delta) zooms in.
func WheelFactor(deltaY float64) float64 {
	return math.Pow(2, -deltaY*wheelSensitivity)
}

// ToWorld maps a screen point into surface coordinates.
func (v Viewport) ToWorld(sx, sy float64) layout.Point {
	return layout.Point{
		X: (sx - v.X) / v.Scale,
		Y: (sy - v.Y) / v.Scale,
	}
}

// ToScreen maps a surface point onto the screen.
func (v Viewport) ToScreen(p layout.Point) (sx, sy float64) {
	return p.X*v.Scale + v.X, p.Y*v.Scale + v.Y
}

// Transform returns the SVG transform attribute for the viewport.
func (v Viewport) Transform() string {
	return fmt.Sprintf("translate(%s,%s) scale(%s)", num(v.X), num(v.Y), num(v.Scale))
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
