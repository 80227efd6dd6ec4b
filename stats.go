package orbits

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a set of bodies as a whole.
type Summary struct {
	Count         int
	TotalMass     float64
	CenterOfMass  mgl64.Vec2
	Min, Max      mgl64.Vec2 // bounding box of body centers
	KineticEnergy float64
}

// Summarize computes a Summary of bodies. An empty slice gives the zero
// Summary.
func Summarize(bodies []Body) (sum Summary) {
	n := len(bodies)
	if n == 0 {
		return
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	masses := make([]float64, n)
	speedSq := make([]float64, n)
	for i, b := range bodies {
		xs[i] = b.Pos.X()
		ys[i] = b.Pos.Y()
		masses[i] = b.Mass
		speedSq[i] = b.Vel.Dot(b.Vel)
	}

	sum.Count = n
	sum.TotalMass = floats.Sum(masses)
	sum.CenterOfMass = mgl64.Vec2{stat.Mean(xs, masses), stat.Mean(ys, masses)}
	sum.Min = mgl64.Vec2{floats.Min(xs), floats.Min(ys)}
	sum.Max = mgl64.Vec2{floats.Max(xs), floats.Max(ys)}
	sum.KineticEnergy = 0.5 * floats.Dot(masses, speedSq)
	return
}

// Summary of the bodies currently in s.
func (s *Store) Summary() Summary {
	return Summarize(s.bodies)
}
