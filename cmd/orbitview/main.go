// Command orbitview shows the asteroid-ring simulation in a window.
//
// Drag to pan, scroll to zoom, R to reset, A to add a planet, space to
// pause.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/exp/rand"

	"github.com/quillaja/orbits"
	"github.com/quillaja/orbits/render"
)

const (
	screenWidth  = 1500
	screenHeight = 1200
)

type viewer struct {
	store   *orbits.Store
	stepper orbits.Stepper
	cam     render.Camera
	paused  bool

	dragging bool
	lastX    int
	lastY    int
}

func (v *viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		v.paused = !v.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		v.store.Reset()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		if _, err := v.store.AddRandomPlanet(); err != nil {
			return err
		}
	}

	// camera
	x, y := ebiten.CursorPosition()
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if v.dragging {
			v.cam.Pan(mgl64.Vec2{float64(x - v.lastX), float64(y - v.lastY)})
		}
		v.dragging = true
	} else {
		v.dragging = false
	}
	v.lastX, v.lastY = x, y
	if _, dy := ebiten.Wheel(); dy != 0 {
		v.cam.Scroll(dy * 20)
	}

	if v.paused {
		return nil
	}
	err := v.stepper.Step(v.store, 1/float64(ebiten.TPS()))
	if errors.Is(err, orbits.ErrDegeneratePair) {
		log.Print(err)
		return nil
	}
	return err
}

func (v *viewer) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	for _, b := range v.store.Bodies() {
		p := v.cam.WorldToScreen(b.Pos, w, h)
		r := b.Radius * v.cam.Zoom
		if r < 0.5 {
			r = 0.5
		}
		vector.DrawFilledCircle(screen, float32(p.X()), float32(p.Y()), float32(r), b.Color, true)
	}

	status := "running"
	if v.paused {
		status = "paused"
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"%s  bodies: %d  zoom: %.2f  tps: %.0f\n[R] reset  [A] add planet  [space] pause",
		status, v.store.Len(), v.cam.Zoom, ebiten.ActualTPS()))
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func main() {
	seed := flag.Uint64("seed", 0, "random seed (0 = time)")
	configFilename := flag.String("config", "", "JSON scenario file")
	sunEarth := flag.Bool("sun", false, "add the sun and earth to the ring")
	flag.Parse()

	cfg := orbits.DefaultConfig()
	if *configFilename != "" {
		var err error
		if cfg, err = orbits.LoadConfig(*configFilename); err != nil {
			log.Fatal(err)
		}
	}
	if *sunEarth {
		cfg.Population.SunEarth = true
	}

	var src rand.Source
	if *seed != 0 {
		src = rand.NewSource(*seed)
	}
	store, err := orbits.NewStore(src, cfg.Population)
	if err != nil {
		log.Fatal(err)
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Interplanetary Simulation")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	v := &viewer{
		store:   store,
		stepper: orbits.Stepper{Params: cfg.Params},
		cam:     render.NewCamera(cfg.Population.Center),
	}
	if err := ebiten.RunGame(v); err != nil {
		log.Fatal(err)
	}
}
