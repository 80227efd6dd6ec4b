package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillaja/orbits"
)

// Bounds is an axis-aligned rectangle of world space.
type Bounds struct {
	Center, Width mgl64.Vec2
}

// Rect makes the bounds spanning min to max.
func Rect(min, max mgl64.Vec2) Bounds {
	return Bounds{
		Center: min.Add(max).Mul(0.5),
		Width:  max.Sub(min),
	}
}

// SummaryBounds is the box around every body center in sum.
func SummaryBounds(sum orbits.Summary) Bounds {
	return Rect(sum.Min, sum.Max)
}

// Contains reports whether point is inside or on the edge of n.
func (n Bounds) Contains(point mgl64.Vec2) bool {
	halfwidth := n.Width.Mul(0.5)
	return (n.Center[0]-halfwidth[0] <= point[0] && point[0] <= n.Center[0]+halfwidth[0]) &&
		(n.Center[1]-halfwidth[1] <= point[1] && point[1] <= n.Center[1]+halfwidth[1])
}

// Scale the width of the bounds, keeping the center.
func (n Bounds) Scale(s float64) Bounds {
	n.Width = n.Width.Mul(s)
	return n
}

// Translate moves the center of the bounds.
func (n Bounds) Translate(tx mgl64.Vec2) Bounds {
	n.Center = n.Center.Add(tx)
	return n
}

// corners in drawing order around the rectangle.
func (n Bounds) corners() [4]mgl64.Vec2 {
	h := n.Width.Mul(0.5)
	return [4]mgl64.Vec2{
		n.Center.Add(mgl64.Vec2{-h[0], -h[1]}),
		n.Center.Add(mgl64.Vec2{h[0], -h[1]}),
		n.Center.Add(mgl64.Vec2{h[0], h[1]}),
		n.Center.Add(mgl64.Vec2{-h[0], h[1]}),
	}
}
