package orbits

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
)

// Range is a half-open interval [Min, Max).
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) validate(name string, positive bool) error {
	switch {
	case math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0):
		return fmt.Errorf("population: %s range [%v, %v) must be finite", name, r.Min, r.Max)
	case r.Min > r.Max:
		return fmt.Errorf("population: %s range [%v, %v) is reversed", name, r.Min, r.Max)
	case positive && r.Min <= 0:
		return fmt.Errorf("population: %s range [%v, %v) must be positive", name, r.Min, r.Max)
	}
	return nil
}

// Population describes the bodies a store is seeded with on creation
// and on every reset, and the planets it spawns on request.
type Population struct {
	Center        mgl64.Vec2 `json:"center"`
	Asteroids     int        `json:"asteroids"`
	Distance      Range      `json:"distance"` // from Center
	Mass          Range      `json:"mass"`
	Speed         Range      `json:"speed"` // tangential
	AsteroidColor color.RGBA `json:"asteroid_color"`

	// SunEarth puts a heavy sun at Center and a planet orbiting it in
	// front of the asteroids.
	SunEarth bool `json:"sun_earth,omitempty"`

	PlanetArea mgl64.Vec2 `json:"planet_area"` // spawn inside [0,X)x[0,Y)
	PlanetMass Range      `json:"planet_mass"`
}

// DefaultPopulation is an asteroid-only ring of 200 bodies.
var DefaultPopulation = Population{
	Center:        mgl64.Vec2{400, 300},
	Asteroids:     200,
	Distance:      Range{150, 350},
	Mass:          Range{1, 5},
	Speed:         Range{10, 30},
	AsteroidColor: gray,
	PlanetArea:    mgl64.Vec2{800, 600},
	PlanetMass:    Range{1500, 2200},
}

// Validate reports whether p can seed a store.
func (p Population) Validate() error {
	if p.Asteroids < 0 {
		return fmt.Errorf("population: asteroids must not be negative, got %d", p.Asteroids)
	}
	if err := p.Distance.validate("distance", false); err != nil {
		return err
	}
	if err := p.Mass.validate("mass", true); err != nil {
		return err
	}
	if err := p.Speed.validate("speed", false); err != nil {
		return err
	}
	return p.PlanetMass.validate("planet_mass", true)
}

// Config is a scenario file.
type Config struct {
	Params     Params     `json:"params"`
	Population Population `json:"population"`
}

// DefaultConfig pairs DefaultParams with DefaultPopulation.
func DefaultConfig() Config {
	return Config{Params: DefaultParams, Population: DefaultPopulation}
}

// LoadConfig reads a JSON scenario from path. Fields missing from the
// file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a JSON scenario.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Params.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.Population.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
