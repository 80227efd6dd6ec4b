// Package render draws bodies to images through a 2D camera.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/quillaja/orbits"
)

/*

image output section

*/

// Camera maps world coordinates to screen coordinates: Center lands in
// the middle of the screen and one world unit spans Zoom pixels.
type Camera struct {
	Center mgl64.Vec2
	Zoom   float64
}

// NewCamera looks at center at zoom 1.
func NewCamera(center mgl64.Vec2) Camera {
	return Camera{Center: center, Zoom: 1}
}

// WorldToScreen projects p onto a w×h screen.
func (c Camera) WorldToScreen(p mgl64.Vec2, w, h int) mgl64.Vec2 {
	mid := mgl64.Vec2{float64(w) / 2, float64(h) / 2}
	return mid.Add(p.Sub(c.Center).Mul(c.Zoom))
}

// ScreenToWorld is the inverse of WorldToScreen.
func (c Camera) ScreenToWorld(s mgl64.Vec2, w, h int) mgl64.Vec2 {
	mid := mgl64.Vec2{float64(w) / 2, float64(h) / 2}
	return c.Center.Add(s.Sub(mid).Mul(1 / c.Zoom))
}

// Pan moves the camera so the world follows a drag of delta pixels.
func (c *Camera) Pan(delta mgl64.Vec2) {
	c.Center = c.Center.Sub(delta.Mul(1 / c.Zoom))
}

// Scroll zooms by one wheel movement of dy. A single movement never
// shrinks the view by more than a factor of ten.
func (c *Camera) Scroll(dy float64) {
	c.Zoom *= math.Max(0.1, 1+dy/200)
}

// Fit centers b on a w×h screen and zooms so all of it shows.
func (c *Camera) Fit(b Bounds, w, h int) {
	c.Center = b.Center
	c.Zoom = 1
	if b.Width.X() > 0 && b.Width.Y() > 0 {
		c.Zoom = math.Min(float64(w)/b.Width.X(), float64(h)/b.Width.Y())
	}
}

// Options control Frame.
type Options struct {
	Width, Height int
	Background    color.Color // black if nil
	Border        Bounds      // outlined in gray unless zero

	// ByMass ignores body colors and tints light-to-heavy from white to
	// red.
	ByMass bool
}

// Frame draws bodies as filled discs, lightest first so heavy bodies
// end up on top. Every body is at least one pixel.
func Frame(bodies []orbits.Body, cam Camera, opt Options) *image.RGBA {
	bg := opt.Background
	if bg == nil {
		bg = color.Black
	}
	film := image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height))
	draw.Draw(film, film.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	if opt.Border != (Bounds{}) {
		corners := opt.Border.corners()
		for i := range corners {
			p1 := cam.WorldToScreen(corners[i], opt.Width, opt.Height)
			p2 := cam.WorldToScreen(corners[(i+1)%len(corners)], opt.Width, opt.Height)
			plotlineClipped(film, gray, p1, p2)
		}
	}

	// sort by low-to-high mass, so "important" bodies are drawn last/on top
	order := make([]orbits.Body, len(bodies))
	copy(order, bodies)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Mass < order[j].Mass
	})
	heaviest := 0.0
	if n := len(order); n > 0 {
		heaviest = order[n-1].Mass
	}

	for _, b := range order {
		p := cam.WorldToScreen(b.Pos, opt.Width, opt.Height)
		if math.IsNaN(p.X()) || math.IsNaN(p.Y()) {
			continue
		}
		r := b.Radius * cam.Zoom
		if !onScreen(film.Bounds(), p, r) {
			continue
		}
		var col color.Color = b.Color
		if opt.ByMass {
			col = MassColor(b.Mass, heaviest)
		}
		plotcirclefilled(film, col, int(math.Round(p.X())), int(math.Round(p.Y())), int(math.Round(r)))
	}
	return film
}

// WritePNG encodes img to filename.
func WritePNG(filename string, img image.Image) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	return file.Close()
}

// FrameName is the conventional file name for the image of frame.
func FrameName(frame int) string {
	return fmt.Sprintf("%010d.png", frame)
}

var (
	white = colorful.Color{R: 1, G: 1, B: 1}
	red   = colorful.Color{R: 1, G: 0.15, B: 0.1}
	gray  = color.RGBA{128, 128, 128, 255}
)

// MassColor blends from white to red as mass approaches heaviest, on a
// log scale so asteroids and planets both get a visible shade.
func MassColor(mass, heaviest float64) color.Color {
	t := 0.0
	if heaviest > 1 && mass > 1 {
		t = math.Log(mass) / math.Log(heaviest)
	}
	return white.BlendLab(red, math.Min(1, math.Max(0, t))).Clamped()
}

func onScreen(rect image.Rectangle, p mgl64.Vec2, r float64) bool {
	return p.X()+r >= float64(rect.Min.X) && p.X()-r < float64(rect.Max.X) &&
		p.Y()+r >= float64(rect.Min.Y) && p.Y()-r < float64(rect.Max.Y)
}

// plotline draws a simple line on img from (x0,y0) to (x1,y1).
//
// This is basically a copy of a version of Bresenham's line algorithm
// from https://en.wikipedia.org/wiki/Bresenham%27s_line_algorithm.
func plotline(img draw.Image, c color.Color, x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// plotlineClipped skips lines with an end far off the image, which at
// high zoom would take forever to walk.
func plotlineClipped(img draw.Image, c color.Color, p1, p2 mgl64.Vec2) {
	const limit = 1 << 15
	for _, v := range []float64{p1.X(), p1.Y(), p2.X(), p2.Y()} {
		if math.IsNaN(v) || math.Abs(v) > limit {
			return
		}
	}
	plotline(img, c,
		int(math.Round(p1.X())), int(math.Round(p1.Y())),
		int(math.Round(p2.X())), int(math.Round(p2.Y())))
}

// abs cuz no integer abs function in the Go standard library.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// plotcirclefilled draws a filled circle at (x0,y0) of radius r.
//
// This seems to perform just slightly faster than other versions I've tried.
func plotcirclefilled(img draw.Image, c color.Color, x0, y0, r int) {
	rsqr := float64(r * r)
	for y := r; y >= 0; y-- {
		xright := int(math.Sqrt(rsqr - float64(y*y)))
		for x := -xright; x <= xright; x++ {
			img.Set(x0+x, y0+y, c)
			img.Set(x0+x, y0-y, c)
		}
	}
}
