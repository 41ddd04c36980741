// Package colorutil provides shared color utilities for overlays and HSV thresholds.
package colorutil

import (
	"image/color"
	"math"
)

// Overlay colors. gocv converts color.RGBA to BGR scalars when drawing.
var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	OKText = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Orange = color.RGBA{R: 255, G: 140, B: 0, A: 255}
)

// HSV is a color in OpenCV convention: H 0-180, S 0-255, V 0-255.
type HSV struct {
	H, S, V float64
}

// Range is an inclusive HSV box, as passed to gocv.InRangeWithScalar.
type Range struct {
	Lower HSV `json:"lower"`
	Upper HSV `json:"upper"`
}

// Contains reports whether c lies inside the range.
func (r Range) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

// RGBToHSV converts RGB (0-255) to HSV (OpenCV convention: H 0-180, S 0-255, V 0-255).
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255.0
	g /= 255.0
	b /= 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC * 255.0

	if maxC == 0 {
		s = 0
	} else {
		s = (diff / maxC) * 255.0
	}

	if diff == 0 {
		h = 0
	} else if maxC == r {
		h = 60 * math.Mod((g-b)/diff, 6)
	} else if maxC == g {
		h = 60 * ((b-r)/diff + 2)
	} else {
		h = 60 * ((r-g)/diff + 4)
	}

	if h < 0 {
		h += 360
	}

	h = h / 2 // OpenCV's 0-180 range

	return h, s, v
}

// ToHSV converts an RGBA color.
func ToHSV(c color.RGBA) HSV {
	h, s, v := RGBToHSV(float64(c.R), float64(c.G), float64(c.B))
	return HSV{H: h, S: s, V: v}
}
