package orbits

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/exp/rand"
)

// Handle identifies a body in a Store. Bodies are never removed, so a
// handle stays valid until the store is reset or restored.
type Handle int

// Store owns every simulated body. It is append-only and grows without
// bound; nothing is ever removed or merged.
//
// A Store is not safe for concurrent use. Hosts serialize Add, Reset and
// Restore against stepping.
type Store struct {
	bodies []Body
	rnd    *rand.Rand
	pop    Population
}

// NewDefaultStore seeds a store with DefaultPopulation. A nil src uses
// a time-seeded source.
func NewDefaultStore(src rand.Source) *Store {
	s, err := NewStore(src, DefaultPopulation)
	if err != nil {
		panic(err) // DefaultPopulation is always valid
	}
	return s
}

// NewStore seeds a store with pop, drawing every random quantity from
// src.
func NewStore(src rand.Source, pop Population) (*Store, error) {
	if err := pop.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	s := &Store{rnd: rand.New(src), pop: pop}
	s.Reset()
	return s, nil
}

// Reset discards every body and seeds a fresh population.
func (s *Store) Reset() {
	p := s.pop
	s.bodies = make([]Body, 0, p.Asteroids+2)

	if p.SunEarth {
		s.mustAdd(p.Center, 10000, yellow)
		earth := s.mustAdd(p.Center.Add(mgl64.Vec2{100, 0}), 100, blue)
		s.bodies[earth].Vel = mgl64.Vec2{0, 80}
	}

	for i := 0; i < p.Asteroids; i++ {
		angle := s.uniform(0, 2*math.Pi)
		dist := s.uniform(p.Distance.Min, p.Distance.Max)
		sin, cos := math.Sincos(angle)
		pos := p.Center.Add(mgl64.Vec2{dist * cos, dist * sin})
		mass := s.uniform(p.Mass.Min, p.Mass.Max)

		h := s.mustAdd(pos, mass, p.AsteroidColor)
		// drift sideways around the center instead of falling into it
		s.bodies[h].Vel = tangent(p.Center.Sub(pos)).Mul(s.uniform(p.Speed.Min, p.Speed.Max))
	}
}

// Add appends a body at rest. Position and color are not checked.
func (s *Store) Add(pos mgl64.Vec2, mass float64, c color.RGBA) (Handle, error) {
	b, err := NewBody(pos, mass, c)
	if err != nil {
		return -1, err
	}
	b.ID = uint64(len(s.bodies))
	s.bodies = append(s.bodies, b)
	return Handle(b.ID), nil
}

// mustAdd is Add for masses already checked by Population.Validate.
func (s *Store) mustAdd(pos mgl64.Vec2, mass float64, c color.RGBA) Handle {
	h, err := s.Add(pos, mass, c)
	if err != nil {
		panic(err)
	}
	return h
}

// RandomPlanet draws a spawn request the way the "Add Planet" control
// does: somewhere in the planet area, a planet-sized mass, any hue.
func (s *Store) RandomPlanet() (pos mgl64.Vec2, mass float64, c color.RGBA) {
	p := s.pop
	pos = mgl64.Vec2{
		s.uniform(0, p.PlanetArea.X()),
		s.uniform(0, p.PlanetArea.Y()),
	}
	mass = s.uniform(p.PlanetMass.Min, p.PlanetMass.Max)
	hue := colorful.Hsv(
		s.uniform(0, 360),
		s.uniform(0.4, 1),
		s.uniform(0.6, 1))
	r, g, b := hue.Clamped().RGB255()
	return pos, mass, color.RGBA{r, g, b, 255}
}

// AddRandomPlanet adds the body described by RandomPlanet.
func (s *Store) AddRandomPlanet() (Handle, error) {
	return s.Add(s.RandomPlanet())
}

// Restore replaces the contents of the store with bodies, keeping their
// positions and velocities. IDs are renumbered and radii re-derived.
func (s *Store) Restore(bodies []Body) error {
	restored := make([]Body, len(bodies))
	for i, b := range bodies {
		if err := checkMass(b.Mass); err != nil {
			return fmt.Errorf("restore body %d: %w", i, err)
		}
		b.ID = uint64(i)
		b.Radius = RadiusForMass(b.Mass)
		restored[i] = b
	}
	s.bodies = restored
	return nil
}

// Len is the number of bodies.
func (s *Store) Len() int { return len(s.bodies) }

// At returns the body for h.
func (s *Store) At(h Handle) (Body, bool) {
	if h < 0 || int(h) >= len(s.bodies) {
		return Body{}, false
	}
	return s.bodies[h], true
}

// Bodies copies every body in insertion order.
func (s *Store) Bodies() []Body {
	bcopy := make([]Body, len(s.bodies))
	copy(bcopy, s.bodies)
	return bcopy
}

// uniform samples [lo, hi).
func (s *Store) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rnd.Float64()
}

var (
	gray   = color.RGBA{160, 160, 160, 255}
	yellow = color.RGBA{255, 255, 0, 255}
	blue   = color.RGBA{0, 128, 255, 255}
)
