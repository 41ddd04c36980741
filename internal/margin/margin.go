// Package margin checks that tracer dye surrounds a specimen on every side.
package margin

import (
	"fmt"

	"specimen-gauge/internal/calibration"
	"specimen-gauge/pkg/geometry"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrMarginUnmeasurable is returned when the strips cannot be sampled.
var ErrMarginUnmeasurable = errors.New("margin unmeasurable")

// Side names one edge of the expanded box.
type Side int

const (
	Top Side = iota
	Bottom
	Left
	Right
)

var sideNames = [...]string{"top", "bottom", "left", "right"}

func (s Side) String() string {
	if s < Top || s > Right {
		return fmt.Sprintf("side(%d)", int(s))
	}
	return sideNames[s]
}

// Sides lists every side in report order.
func Sides() []Side { return []Side{Top, Bottom, Left, Right} }

// Report is the per-side outcome of a margin check.
type Report struct {
	MarginPx int
	// Box is the specimen bounds expanded by MarginPx and clamped to the mask.
	Box geometry.RectInt
	// Strips are the sampled regions, indexed by Side.
	Strips [4]geometry.RectInt
	// Counts are non-zero tracer pixels per strip, indexed by Side.
	Counts [4]int
}

// OK reports whether every strip contains tracer.
func (r Report) OK() bool {
	for _, n := range r.Counts {
		if n == 0 {
			return false
		}
	}
	return true
}

// Missing lists the sides without tracer.
func (r Report) Missing() []Side {
	var out []Side
	for _, s := range Sides() {
		if r.Counts[s] == 0 {
			out = append(out, s)
		}
	}
	return out
}

// Check samples four strips of thickness MarginPixels just inside the
// specimen bounds expanded by that same amount. tracer is a single-channel
// mask in frame coordinates.
func Check(region geometry.Region, tracer *gocv.Mat, prof calibration.Profile) (Report, error) {
	m := prof.MarginPixels()
	rep := Report{MarginPx: m}

	if m <= 0 {
		return rep, errors.Wrap(ErrMarginUnmeasurable, "margin rounds to zero pixels")
	}
	if region == nil {
		return rep, errors.Wrap(ErrMarginUnmeasurable, "no region")
	}
	if tracer == nil || tracer.Empty() {
		return rep, errors.Wrap(ErrMarginUnmeasurable, "no tracer mask")
	}

	box := region.Bounds().Expand(m).Clamp(tracer.Cols(), tracer.Rows())
	rep.Box = box
	if box.Width < 2*m || box.Height < 2*m {
		return rep, errors.Wrapf(ErrMarginUnmeasurable, "expanded box %dx%d thinner than %d px", box.Width, box.Height, 2*m)
	}

	rep.Strips = [4]geometry.RectInt{
		Top:    {X: box.X, Y: box.Y, Width: box.Width, Height: m},
		Bottom: {X: box.X, Y: box.Y + box.Height - m, Width: box.Width, Height: m},
		Left:   {X: box.X, Y: box.Y, Width: m, Height: box.Height},
		Right:  {X: box.X + box.Width - m, Y: box.Y, Width: m, Height: box.Height},
	}
	for _, s := range Sides() {
		rep.Counts[s] = countNonZero(*tracer, rep.Strips[s])
	}
	return rep, nil
}

// Validate is Check reduced to its verdict.
func Validate(region geometry.Region, tracer *gocv.Mat, prof calibration.Profile) (bool, error) {
	rep, err := Check(region, tracer, prof)
	if err != nil {
		return false, err
	}
	return rep.OK(), nil
}

func countNonZero(mask gocv.Mat, r geometry.RectInt) int {
	roi := mask.Region(r.ToImage())
	defer roi.Close()
	return gocv.CountNonZero(roi)
}
