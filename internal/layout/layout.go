// Package layout places the ten genre vertices on a regular decagon and maps
// normalized song positions onto the drawing surface.
//
// Everything here is a pure function of the genre registry and the layout
// constants.
package layout

import (
	"math"

	"github.com/justestif/go-genre-decagon/internal/genre"
	"github.com/justestif/go-genre-decagon/internal/model"
)

// Surface dimensions and decagon geometry, in surface pixels.
const (
	Width   = 800
	Height  = 800
	Radius  = 300
	CenterX = Width / 2
	CenterY = Height / 2
)

// Point is a position on the drawing surface.
type Point struct {
	X, Y float64
}

// Vertex is the reference vertex of one genre.
type Vertex struct {
	Genre genre.Genre
	Angle float64 // radians, 0 points right, -π/2 points up
	Point
}

// Color returns the vertex's genre color.
func (v Vertex) Color() string {
	return v.Genre.Color()
}

// Layout holds the decagon center and radius.
type Layout struct {
	Center Point
	Radius float64
}

// Default returns the layout used by the visualization.
func Default() Layout {
	return Layout{
		Center: Point{X: CenterX, Y: CenterY},
		Radius: Radius,
	}
}

// VertexAngle returns the screen angle of the i-th vertex. Vertex 0 points
// straight up and the rest follow clockwise.
func VertexAngle(i int) float64 {
	return float64(i)*2*math.Pi/genre.Count - math.Pi/2
}

// ReferenceVertices returns one vertex per genre, in registry order.
func (l Layout) ReferenceVertices() [genre.Count]Vertex {
	var vertices [genre.Count]Vertex
	for i, g := range genre.All {
		angle := VertexAngle(i)
		vertices[i] = Vertex{
			Genre: g,
			Angle: angle,
			Point: Point{
				X: l.Center.X + l.Radius*math.Cos(angle),
				Y: l.Center.Y + l.Radius*math.Sin(angle),
			},
		}
	}
	return vertices
}

// Project maps a normalized position to the surface. Positions outside
// [-1,1]^2 are not clamped and land outside the decagon.
func (l Layout) Project(p model.Position) Point {
	return Point{
		X: l.Center.X + p.X*l.Radius,
		Y: l.Center.Y + p.Y*l.Radius,
	}
}

// Unproject is the inverse of Project.
func (l Layout) Unproject(pt Point) model.Position {
	return model.Position{
		X: (pt.X - l.Center.X) / l.Radius,
		Y: (pt.Y - l.Center.Y) / l.Radius,
	}
}

// Outline returns the closed decagon path: the ten vertices followed by the
// first one again.
func (l Layout) Outline() []Point {
	vertices := l.ReferenceVertices()
	points := make([]Point, 0, genre.Count+1)
	for _, v := range vertices {
		points = append(points, v.Point)
	}
	return append(points, vertices[0].Point)
}

// WireVertices returns the vertices on the unit circle in the form the
// cluster-data endpoint serves them.
func WireVertices() []model.Vertex {
	unit := Layout{Radius: 1}
	vertices := unit.ReferenceVertices()
	out := make([]model.Vertex, len(vertices))
	for i, v := range vertices {
		out[i] = model.Vertex{
			Genre: v.Genre,
			X:     v.X,
			Y:     v.Y,
			Angle: v.Angle,
			Color: v.Color(),
		}
	}
	return out
}

// PositionScale keeps computed positions inside the decagon.
const PositionScale = 0.8

// PositionFor places a probability distribution in normalized plot space:
// the probability-weighted mean of the unit vertices, scaled by
// PositionScale.
func PositionFor(probs model.Probabilities) model.Position {
	unit := Layout{Radius: 1}
	var pos model.Position
	for _, v := range unit.ReferenceVertices() {
		p := probs[v.Genre]
		pos.X += p * v.X
		pos.Y += p * v.Y
	}
	pos.X *= PositionScale
	pos.Y *= PositionScale
	return pos
}
