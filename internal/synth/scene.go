// Package synth renders synthetic specimen scenes: a dark specimen on a
// plain background, optionally ringed by a band of red tracer dye.
package synth

import (
	"image/color"

	"specimen-gauge/pkg/colorutil"
	"specimen-gauge/pkg/geometry"

	"gocv.io/x/gocv"
)

// SkinTone is a background color inside the default skin ranges.
var SkinTone = color.RGBA{R: 224, G: 172, B: 105, A: 255}

// Scene describes a synthetic frame.
type Scene struct {
	Cols, Rows int
	Background color.RGBA
	Specimen   geometry.RectInt
	Color      color.RGBA // specimen fill

	// Band is the tracer width in pixels around the specimen; 0 draws none.
	Band int
	// Omit clears the tracer on the named sides ("top", "bottom", "left", "right").
	Omit map[string]bool

	// Extra dark blobs drawn after the specimen.
	Extra []geometry.RectInt
}

// Centered returns the default 640x480 scene with a w x h black specimen in
// the middle of a white frame.
func Centered(w, h int) Scene {
	cols, rows := 640, 480
	return Scene{
		Cols:       cols,
		Rows:       rows,
		Background: colorutil.White,
		Specimen:   geometry.RectInt{X: (cols - w) / 2, Y: (rows - h) / 2, Width: w, Height: h},
		Color:      colorutil.Black,
	}
}

// WithBand returns a copy of s with a red band of width n.
func (s Scene) WithBand(n int, omit ...string) Scene {
	s.Band = n
	s.Omit = make(map[string]bool, len(omit))
	for _, side := range omit {
		s.Omit[side] = true
	}
	return s
}

// Render draws the scene into a new 8-bit BGR mat. The caller closes it.
func (s Scene) Render() gocv.Mat {
	bg := s.Background
	mat := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(bg.B), float64(bg.G), float64(bg.R), 0),
		s.Rows, s.Cols, gocv.MatTypeCV8UC3)

	r, b := s.Specimen, s.Band
	if b > 0 {
		fill(&mat, r.Expand(b), colorutil.Red)
		strips := map[string]geometry.RectInt{
			"top":    {X: r.X - b, Y: r.Y - b, Width: r.Width + 2*b, Height: b},
			"bottom": {X: r.X - b, Y: r.Y + r.Height, Width: r.Width + 2*b, Height: b},
			"left":   {X: r.X - b, Y: r.Y - b, Width: b, Height: r.Height + 2*b},
			"right":  {X: r.X + r.Width, Y: r.Y - b, Width: b, Height: r.Height + 2*b},
		}
		for side, strip := range strips {
			if s.Omit[side] {
				fill(&mat, strip, bg)
			}
		}
	}

	fill(&mat, r, s.Color)
	for _, e := range s.Extra {
		fill(&mat, e, colorutil.Black)
	}
	return mat
}

func fill(mat *gocv.Mat, r geometry.RectInt, c color.RGBA) {
	if r.Empty() {
		return
	}
	gocv.Rectangle(mat, r.ToImage(), c, -1)
}
