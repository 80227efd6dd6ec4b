package orbits

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/dgravesa/go-parallel/parallel"
	"github.com/go-gl/mathgl/mgl64"
)

/*

physics section

*/

// G is tuned for visual scale, not SI units.
const G = 6.67430e-5

var (
	// ErrInvalidTimestep is returned for a NaN or infinite dt. The store
	// is left untouched.
	ErrInvalidTimestep = errors.New("invalid timestep")

	// ErrDegeneratePair is returned when some pair of bodies had a
	// separation that is not a finite number. Those pairs are skipped
	// and the step still completes.
	ErrDegeneratePair = errors.New("degenerate pair")
)

// Params are the tunable constants of a step.
type Params struct {
	G float64 `json:"g"`

	// a body closer than AssistRange to one more than AssistRatio times
	// its mass gets a sideways velocity kick of AssistKick.
	AssistRange float64 `json:"assist_range"`
	AssistRatio float64 `json:"assist_ratio"`
	AssistKick  float64 `json:"assist_kick"`

	// ScaleForcesByDt multiplies gravity and the assist kick by dt.
	// Off by default: velocity increments are per step, drift is per
	// second.
	ScaleForcesByDt bool `json:"scale_forces_by_dt,omitempty"`

	// Workers > 1 splits the force pass by body.
	Workers int `json:"workers,omitempty"`
}

// DefaultParams are the constants the simulation was tuned with.
var DefaultParams = Params{
	G:           G,
	AssistRange: 150,
	AssistRatio: 5,
	AssistKick:  0.05,
}

// Validate reports whether p can drive a step.
func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"g":            p.G,
		"assist_range": p.AssistRange,
		"assist_ratio": p.AssistRatio,
		"assist_kick":  p.AssistKick,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("params: %s must be finite, got %v", name, v)
		}
	}
	if p.Workers < 0 {
		return fmt.Errorf("params: workers must not be negative, got %d", p.Workers)
	}
	return nil
}

// Stepper advances a Store by one step at a time.
type Stepper struct {
	Params
}

// Step advances s by dt with DefaultParams.
func Step(s *Store, dt float64) error {
	return Stepper{DefaultParams}.Step(s, dt)
}

// Step applies one pairwise gravity pass to every body's velocity, then
// moves every body by vel*dt. The pass reads positions as they were at
// the start of the step; nothing moves until it is over.
//
// dt is neither clamped nor subdivided.
func (st Stepper) Step(s *Store, dt float64) error {
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: dt %v", ErrInvalidTimestep, dt)
	}

	bodies := s.bodies
	scale := 1.0
	if st.ScaleForcesByDt {
		scale = dt
	}

	// 1) velocities. each body only writes its own velocity and only
	// reads positions, so splitting by body gives the same result.
	var degenerate int64
	if st.Workers > 1 {
		parallel.WithNumGoroutines(st.Workers).For(len(bodies), func(i, _ int) {
			if n := st.accelerate(bodies, i, scale); n > 0 {
				atomic.AddInt64(&degenerate, int64(n))
			}
		})
	} else {
		for i := range bodies {
			degenerate += int64(st.accelerate(bodies, i, scale))
		}
	}

	// 2) positions
	for i := range bodies {
		bodies[i].update(dt)
	}

	if degenerate > 0 {
		return fmt.Errorf("%w: skipped %d pairs with non-finite separation", ErrDegeneratePair, degenerate)
	}
	return nil
}

// accelerate adds to bodies[i] the pull of every other body, plus the
// orbit-assist kick from any dominant neighbour. It returns the number
// of pairs skipped as degenerate.
func (st Stepper) accelerate(bodies []Body, i int, scale float64) (degenerate int) {
	a := &bodies[i]
	for j := range bodies {
		if j == i {
			continue
		}
		b := &bodies[j]

		dir := b.Pos.Sub(a.Pos)
		distSq := dir.Dot(dir)
		if touching(distSq, a.Radius+b.Radius) {
			continue
		}
		if math.IsNaN(distSq) || math.IsInf(distSq, 0) {
			degenerate++
			continue
		}
		dist := math.Sqrt(distSq)

		// a = F/m, applied as a per-step velocity increment
		f := gravity(st.G, a.Mass, b.Mass, distSq)
		a.Vel = a.Vel.Add(dir.Mul(f / dist).Mul(scale / a.Mass))

		if st.dominates(b.Mass, a.Mass, dist) {
			a.Vel = a.Vel.Add(tangent(dir).Mul(st.AssistKick * scale))
		}
	}
	return degenerate
}

// dominates reports whether a body of mass big at distance dist gives a
// body of mass small the orbit-assist kick.
func (st Stepper) dominates(big, small, dist float64) bool {
	return dist < st.AssistRange && big > st.AssistRatio*small
}

// touching is the closeness gate: bodies at or inside the sum of their
// radii do not attract each other.
func touching(distSq, reach float64) bool {
	return distSq <= reach*reach
}

// magnitude of the gravitational force between masses ma and mb.
func gravity(g, ma, mb, distSq float64) float64 {
	return g * ma * mb / distSq
}

// tangent is v rotated a quarter turn counter-clockwise and normalized.
// The zero vector stays zero.
func tangent(v mgl64.Vec2) mgl64.Vec2 {
	l := v.Len()
	if l == 0 {
		return mgl64.Vec2{}
	}
	return mgl64.Vec2{-v.Y() / l, v.X() / l}
}

// dp = v*dt
func (b *Body) update(dt float64) {
	b.Pos = b.Pos.Add(b.Vel.Mul(dt))
}
