// Package orbits implements a small 2D gravity simulation: a ring of
// asteroids, planets added on demand, inverse-square attraction and an
// orbit-assist nudge that keeps light bodies circling heavy ones.
package orbits

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidBody is returned when a body would be created with a mass
// that is not a positive, finite number.
var ErrInvalidBody = errors.New("invalid body")

// Body is one simulated mass.
type Body struct {
	ID     uint64     // insertion index in its store
	Pos    mgl64.Vec2 // world units
	Vel    mgl64.Vec2 // world units per second
	Mass   float64
	Radius float64 // collision threshold, derived from mass
	Color  color.RGBA
}

// NewBody makes a body at rest at pos. The radius is derived from mass.
func NewBody(pos mgl64.Vec2, mass float64, c color.RGBA) (Body, error) {
	if err := checkMass(mass); err != nil {
		return Body{}, err
	}
	return Body{
		Pos:    pos,
		Mass:   mass,
		Radius: RadiusForMass(mass),
		Color:  c,
	}, nil
}

// RadiusForMass is the radius of a disc of unit density with the given
// mass, halved.
func RadiusForMass(mass float64) float64 {
	return math.Sqrt(mass/math.Pi) / 2
}

func checkMass(mass float64) error {
	if !(mass > 0) || math.IsInf(mass, 1) {
		return fmt.Errorf("%w: mass %v must be positive and finite", ErrInvalidBody, mass)
	}
	return nil
}

func (b Body) String() string {
	return fmt.Sprintf("m: %.4f r: %.4f\np: [%.2f, %.2f]\nv: [%.2f, %.2f]\n",
		b.Mass, b.Radius, b.Pos.X(), b.Pos.Y(), b.Vel.X(), b.Vel.Y())
}
