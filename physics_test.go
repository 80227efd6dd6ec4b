package orbits

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/rand"
)

const eps = 1e-12

func storeWith(t testing.TB, bodies ...Body) *Store {
	t.Helper()
	s := &Store{}
	if err := s.Restore(bodies); err != nil {
		t.Fatal(err)
	}
	return s
}

func at(x, y, mass float64) Body {
	return Body{Pos: mgl64.Vec2{x, y}, Mass: mass}
}

func moving(b Body, vx, vy float64) Body {
	b.Vel = mgl64.Vec2{vx, vy}
	return b
}

func TestGateHoldsAtAndInsideContact(t *testing.T) {
	const ma, mb = 400.0, 90.0
	reach := RadiusForMass(ma) + RadiusForMass(mb)

	tests := []struct {
		name  string
		sep   float64
		gated bool
	}{
		{"overlapping", reach * 0.5, true},
		{"coincident", 0, true},
		{"touching", reach, true},
		{"apart", reach * 1.0001, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storeWith(t, moving(at(0, 0, ma), 1, 2), moving(at(tt.sep, 0, mb), -3, 4))
			if err := Step(s, 0); err != nil {
				t.Fatal(err)
			}
			a, _ := s.At(0)
			b, _ := s.At(1)
			unchanged := a.Vel == (mgl64.Vec2{1, 2}) && b.Vel == (mgl64.Vec2{-3, 4})
			if unchanged != tt.gated {
				t.Errorf("sep %v reach %v: velocities %v %v, gated=%t", tt.sep, reach, a.Vel, b.Vel, tt.gated)
			}
		})
	}
}

func TestTwoBodyForceIsSymmetric(t *testing.T) {
	const ma, mb, d = 3.0, 4.0, 200.0
	s := storeWith(t, at(0, 0, ma), at(d, 0, mb))
	if err := Step(s, 0); err != nil {
		t.Fatal(err)
	}
	a, _ := s.At(0)
	b, _ := s.At(1)

	want := G * ma * mb / (d * d)
	fa := a.Vel.Mul(ma) // force applied to a for one step
	fb := b.Vel.Mul(mb)
	if !mgl64.FloatEqualThreshold(fa.Len(), want, eps) {
		t.Errorf("force on a = %v, want %v", fa.Len(), want)
	}
	if !mgl64.FloatEqualThreshold(fb.Len(), want, eps) {
		t.Errorf("force on b = %v, want %v", fb.Len(), want)
	}
	if !mgl64.FloatEqualThreshold(fa.X(), -fb.X(), eps) || fb.Y() != 0 {
		t.Errorf("forces %v and %v are not opposite", fa, fb)
	}
	if fa.X() <= 0 || fa.Y() != 0 {
		t.Errorf("a should be pulled toward +x, got %v", fa)
	}
}

func TestAssistDistanceBoundary(t *testing.T) {
	tests := []struct {
		dist float64
		kick bool
	}{
		{149.999, true},
		{150.001, false},
		{150, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.dist), func(t *testing.T) {
			s := storeWith(t, at(0, 0, 1), at(tt.dist, 0, 6))
			if err := Step(s, 0); err != nil {
				t.Fatal(err)
			}
			light, _ := s.At(0)
			heavy, _ := s.At(1)

			wantY := 0.0
			if tt.kick {
				wantY = DefaultParams.AssistKick
			}
			if !mgl64.FloatEqualThreshold(light.Vel.Y(), wantY, eps) {
				t.Errorf("light body vy = %v, want %v", light.Vel.Y(), wantY)
			}
			if heavy.Vel.Y() != 0 {
				t.Errorf("heavy body got a kick: %v", heavy.Vel)
			}
		})
	}
}

func TestAssistMassRatioBoundary(t *testing.T) {
	tests := []struct {
		name  string
		heavy float64
		kick  bool
	}{
		{"above", 5 + 1e-9, true},
		{"equal", 5, false},
		{"below", 5 - 1e-9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storeWith(t, at(0, 0, 1), at(0, 100, tt.heavy))
			if err := Step(s, 0); err != nil {
				t.Fatal(err)
			}
			light, _ := s.At(0)
			// dir is +y, so the kick points to -x
			gotKick := light.Vel.X() < -DefaultParams.AssistKick/2
			if gotKick != tt.kick {
				t.Errorf("heavy mass %v: light vel %v, kick=%t", tt.heavy, light.Vel, tt.kick)
			}
		})
	}
}

func TestAssistIsOneSided(t *testing.T) {
	// both qualify as "close", only the light body is dominated
	s := storeWith(t, at(0, 0, 1), at(0, 100, 100))
	if err := Step(s, 0); err != nil {
		t.Fatal(err)
	}
	heavy, _ := s.At(1)
	if heavy.Vel.X() != 0 {
		t.Errorf("heavy body moved sideways: %v", heavy.Vel)
	}
}

// expectedPull is the velocity change on a from b, including the assist.
func expectedPull(a, b Body) mgl64.Vec2 {
	dir := b.Pos.Sub(a.Pos)
	d := dir.Len()
	dv := dir.Normalize().Mul(G * b.Mass / (d * d))
	if d < 150 && b.Mass > 5*a.Mass {
		dv = dv.Add(mgl64.Vec2{-dir.Y(), dir.X()}.Normalize().Mul(0.05))
	}
	return dv
}

func TestStepMovesAfterWholePass(t *testing.T) {
	const dt = 2.0
	initial := []Body{
		moving(at(0, 0, 1000), 0, 0),
		moving(at(120, 0, 10), 0, 30),
		moving(at(0, 140, 20), -25, 0),
	}
	s := storeWith(t, initial...)
	if err := Step(s, dt); err != nil {
		t.Fatal(err)
	}

	// snapshot: every pull uses the starting positions
	for i := range initial {
		vel := initial[i].Vel
		for j := range initial {
			if i != j {
				vel = vel.Add(expectedPull(initial[i], initial[j]))
			}
		}
		wantPos := initial[i].Pos.Add(vel.Mul(dt))

		got, _ := s.At(Handle(i))
		if !got.Vel.ApproxEqualThreshold(vel, eps) {
			t.Errorf("body %d vel = %v, want %v", i, got.Vel, vel)
		}
		if !got.Pos.ApproxEqualThreshold(wantPos, 1e-9) {
			t.Errorf("body %d pos = %v, want %v", i, got.Pos, wantPos)
		}
	}

	// moving each body as soon as its velocity is known would pull the
	// later bodies toward where the earlier ones went
	interleaved := append([]Body(nil), initial...)
	for i := range interleaved {
		for j := range interleaved {
			if i != j {
				interleaved[i].Vel = interleaved[i].Vel.Add(expectedPull(interleaved[i], interleaved[j]))
			}
		}
		interleaved[i].update(dt)
	}
	last, _ := s.At(2)
	if last.Vel.Sub(interleaved[2].Vel).Len() < 1e-10 {
		t.Errorf("case does not tell snapshot and interleaved stepping apart")
	}
}

func TestStepSunEarthScenario(t *testing.T) {
	tests := []struct {
		name      string
		sep       float64
		wantEarth mgl64.Vec2
		wantSun   mgl64.Vec2
	}{
		// radii are ~28.2 and ~2.8, so at 100 the gate stays open and the
		// earth is inside the assist range of a mass 100 times its own
		{"open", 100, mgl64.Vec2{-G * 10000 / 1e4, 80 - 0.05}, mgl64.Vec2{G * 100 / 1e4, 0}},
		{"gated", 30, mgl64.Vec2{0, 80}, mgl64.Vec2{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storeWith(t, at(0, 0, 10000), moving(at(tt.sep, 0, 100), 0, 80))
			if err := Step(s, 1); err != nil {
				t.Fatal(err)
			}
			sun, _ := s.At(0)
			earth, _ := s.At(1)
			if !earth.Vel.ApproxEqualThreshold(tt.wantEarth, eps) {
				t.Errorf("earth vel = %v, want %v", earth.Vel, tt.wantEarth)
			}
			if !sun.Vel.ApproxEqualThreshold(tt.wantSun, eps) {
				t.Errorf("sun vel = %v, want %v", sun.Vel, tt.wantSun)
			}
			wantPos := mgl64.Vec2{tt.sep, 0}.Add(tt.wantEarth)
			if !earth.Pos.ApproxEqualThreshold(wantPos, 1e-9) {
				t.Errorf("earth pos = %v, want %v", earth.Pos, wantPos)
			}
		})
	}
}

func TestStepZeroDtOnlyChangesVelocity(t *testing.T) {
	s := storeWith(t, at(0, 0, 50), at(300, 0, 50))
	if err := Step(s, 0); err != nil {
		t.Fatal(err)
	}
	a, _ := s.At(0)
	if a.Pos != (mgl64.Vec2{0, 0}) {
		t.Errorf("pos moved with dt=0: %v", a.Pos)
	}
	if a.Vel.X() <= 0 {
		t.Errorf("velocity not updated: %v", a.Vel)
	}
}

func TestStepRejectsNonFiniteDt(t *testing.T) {
	for _, dt := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		s := storeWith(t, moving(at(0, 0, 50), 1, 1), at(300, 0, 50))
		before := s.Bodies()
		err := Step(s, dt)
		if !errors.Is(err, ErrInvalidTimestep) {
			t.Errorf("dt %v: err = %v, want ErrInvalidTimestep", dt, err)
		}
		after := s.Bodies()
		for i := range before {
			if before[i] != after[i] {
				t.Errorf("dt %v: body %d changed: %v -> %v", dt, i, before[i], after[i])
			}
		}
	}
}

func TestStepSkipsDegeneratePairs(t *testing.T) {
	s := storeWith(t, at(0, 0, 1), at(200, 0, 1))
	if _, err := s.Add(mgl64.Vec2{math.NaN(), 0}, 1, gray); err != nil {
		t.Fatal(err)
	}
	err := Step(s, 0)
	if !errors.Is(err, ErrDegeneratePair) {
		t.Fatalf("err = %v, want ErrDegeneratePair", err)
	}
	a, _ := s.At(0)
	want := G * 1 / (200 * 200)
	if !a.Vel.ApproxEqualThreshold(mgl64.Vec2{want, 0}, eps) {
		t.Errorf("finite pair not applied: vel %v, want (%v, 0)", a.Vel, want)
	}
}

func TestScaleForcesByDt(t *testing.T) {
	const dt = 0.5
	run := func(scaled bool) Body {
		st := Stepper{DefaultParams}
		st.ScaleForcesByDt = scaled
		s := storeWith(t, at(0, 0, 1), at(100, 0, 10))
		if err := st.Step(s, dt); err != nil {
			t.Fatal(err)
		}
		b, _ := s.At(0)
		return b
	}
	plain, scaled := run(false), run(true)
	if !scaled.Vel.ApproxEqualThreshold(plain.Vel.Mul(dt), eps) {
		t.Errorf("scaled vel = %v, want %v", scaled.Vel, plain.Vel.Mul(dt))
	}
}

func TestParallelStepMatchesSequential(t *testing.T) {
	pop := DefaultPopulation
	pop.SunEarth = true
	seq, err := NewStore(rand.NewSource(42), pop)
	if err != nil {
		t.Fatal(err)
	}
	par, err := NewStore(rand.NewSource(42), pop)
	if err != nil {
		t.Fatal(err)
	}

	one := Stepper{DefaultParams}
	many := Stepper{DefaultParams}
	many.Workers = 4
	for i := 0; i < 20; i++ {
		if err := one.Step(seq, 1.0/60); err != nil {
			t.Fatal(err)
		}
		if err := many.Step(par, 1.0/60); err != nil {
			t.Fatal(err)
		}
	}

	a, b := seq.Bodies(), par.Bodies()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("body %d differs:\n%v\n%v", i, a[i], b[i])
		}
	}
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams
	if err := p.Validate(); err != nil {
		t.Errorf("default params: %v", err)
	}
	p.G = math.NaN()
	if err := p.Validate(); err == nil {
		t.Error("NaN G accepted")
	}
	p = DefaultParams
	p.Workers = -1
	if err := p.Validate(); err == nil {
		t.Error("negative workers accepted")
	}
}

func BenchmarkStep(b *testing.B) {
	for _, workers := range []int{1, 4} {
		for _, extra := range []int{0, 800} {
			pop := DefaultPopulation
			pop.Asteroids += extra
			b.Run(fmt.Sprintf("Bodies-%d-Workers-%d", pop.Asteroids, workers), func(b *testing.B) {
				s, err := NewStore(rand.NewSource(1), pop)
				if err != nil {
					b.Fatal(err)
				}
				st := Stepper{DefaultParams}
				st.Workers = workers

				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					st.Step(s, 1.0/60)
				}
			})
		}
	}
}
