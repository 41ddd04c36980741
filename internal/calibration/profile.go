// Package calibration holds the millimeter-per-pixel scale of an imaging rig.
package calibration

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidCalibration is returned when a profile has a non-positive scale.
var ErrInvalidCalibration = errors.New("invalid calibration")

// Profile converts pixel extents to millimeters for one rig geometry.
// It is immutable once built; use New to construct one.
type Profile struct {
	mmPerPixelX float64
	mmPerPixelY float64
	minMarginMM float64

	// Frame resolution the scales were computed for (0 = unspecified).
	width, height int
}

// New validates and returns a profile without a fixed resolution.
func New(mmPerPixelX, mmPerPixelY, minMarginMM float64) (Profile, error) {
	return NewWithResolution(mmPerPixelX, mmPerPixelY, minMarginMM, 0, 0)
}

// NewWithResolution validates and returns a profile computed for frames of
// width x height pixels.
func NewWithResolution(mmPerPixelX, mmPerPixelY, minMarginMM float64, width, height int) (Profile, error) {
	if !validScale(mmPerPixelX) || !validScale(mmPerPixelY) {
		return Profile{}, errors.Wrapf(ErrInvalidCalibration,
			"scale factors must be positive (x=%v, y=%v)", mmPerPixelX, mmPerPixelY)
	}
	if minMarginMM < 0 || math.IsNaN(minMarginMM) || math.IsInf(minMarginMM, 0) {
		return Profile{}, errors.Wrapf(ErrInvalidCalibration, "minimum margin %v mm", minMarginMM)
	}
	if width < 0 || height < 0 || (width == 0) != (height == 0) {
		return Profile{}, errors.Wrapf(ErrInvalidCalibration, "resolution %dx%d", width, height)
	}
	return Profile{
		mmPerPixelX: mmPerPixelX,
		mmPerPixelY: mmPerPixelY,
		minMarginMM: minMarginMM,
		width:       width,
		height:      height,
	}, nil
}

func validScale(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func (p Profile) MMPerPixelX() float64 { return p.mmPerPixelX }
func (p Profile) MMPerPixelY() float64 { return p.mmPerPixelY }
func (p Profile) MinMarginMM() float64 { return p.minMarginMM }

// Resolution returns the frame size the profile expects, or 0, 0 if unset.
func (p Profile) Resolution() (width, height int) { return p.width, p.height }

// Valid reports whether the profile was built through New.
func (p Profile) Valid() bool {
	return validScale(p.mmPerPixelX) && validScale(p.mmPerPixelY)
}

// WidthMM converts a horizontal pixel extent.
func (p Profile) WidthMM(px float64) float64 { return px * p.mmPerPixelX }

// HeightMM converts a vertical pixel extent.
func (p Profile) HeightMM(px float64) float64 { return px * p.mmPerPixelY }

// MarginPixels is the minimum margin expressed in pixels, using the mean of
// both scale factors.
func (p Profile) MarginPixels() int {
	mean := (p.mmPerPixelX + p.mmPerPixelY) / 2
	if mean <= 0 {
		return 0
	}
	return int(math.Round(p.minMarginMM / mean))
}

func (p Profile) String() string {
	s := fmt.Sprintf("x=%.5f mm/px y=%.5f mm/px margin=%.2f mm", p.mmPerPixelX, p.mmPerPixelY, p.minMarginMM)
	if p.width > 0 {
		s += fmt.Sprintf(" @ %dx%d", p.width, p.height)
	}
	return s
}
