package geometry

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"
)

// RegionKind names the concrete shape behind a Region.
type RegionKind string

const (
	KindAxisAligned RegionKind = "axis_aligned"
	KindRotated     RegionKind = "rotated"
)

// Region is a detected specimen outline. Its pixel extents are the only
// input to the millimeter conversion.
type Region interface {
	Kind() RegionKind
	// Bounds is the axis-aligned box enclosing the region.
	Bounds() RectInt
	// Extents returns the measured width and height in pixels.
	Extents() (w, h float64)
	isRegion()
}

// AxisAlignedRect is an upright bounding box.
type AxisAlignedRect RectInt

func (AxisAlignedRect) Kind() RegionKind  { return KindAxisAligned }
func (r AxisAlignedRect) Bounds() RectInt { return RectInt(r) }
func (r AxisAlignedRect) Extents() (float64, float64) {
	return float64(r.Width), float64(r.Height)
}
func (AxisAlignedRect) isRegion() {}

// RotatedRect is a minimum-area rectangle. Angle is in degrees and is kept
// within (-45, 45] so that Size.Width stays the mostly-horizontal side.
type RotatedRect struct {
	Center Point2D `json:"center"`
	Size   Size    `json:"size"`
	Angle  float64 `json:"angle"`
}

// NewRotatedRect builds a rotated rect and normalizes its angle.
func NewRotatedRect(center Point2D, size Size, angle float64) RotatedRect {
	angle = math.Mod(angle, 180)
	if angle <= -90 {
		angle += 180
	} else if angle > 90 {
		angle -= 180
	}
	switch {
	case angle > 45:
		angle -= 90
		size.Width, size.Height = size.Height, size.Width
	case angle <= -45:
		angle += 90
		size.Width, size.Height = size.Height, size.Width
	}
	return RotatedRect{Center: center, Size: size, Angle: angle}
}

func (RotatedRect) Kind() RegionKind { return KindRotated }

func (r RotatedRect) Extents() (float64, float64) {
	return r.Size.Width, r.Size.Height
}

// Corners returns the four vertices in drawing order.
func (r RotatedRect) Corners() []Point2D {
	rad := r.Angle * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	hw, hh := r.Size.Width/2, r.Size.Height/2
	offsets := [4][2]float64{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	pts := make([]Point2D, 4)
	for i, o := range offsets {
		pts[i] = r.Center.Add(Point2D{
			X: o[0]*cos - o[1]*sin,
			Y: o[0]*sin + o[1]*cos,
		})
	}
	return pts
}

func (r RotatedRect) Bounds() RectInt {
	return BoundingBox(r.Corners()).Outer()
}

func (RotatedRect) isRegion() {}

// regionJSON is the tagged wire form shared by both region kinds.
type regionJSON struct {
	Kind    RegionKind   `json:"kind"`
	Rect    *RectInt     `json:"rect,omitempty"`
	Rotated *RotatedRect `json:"rotated,omitempty"`
}

// MarshalRegion encodes a region with its kind tag. A nil region encodes as null.
func MarshalRegion(r Region) ([]byte, error) {
	switch v := r.(type) {
	case nil:
		return []byte("null"), nil
	case AxisAlignedRect:
		rect := RectInt(v)
		return json.Marshal(regionJSON{Kind: KindAxisAligned, Rect: &rect})
	case RotatedRect:
		return json.Marshal(regionJSON{Kind: KindRotated, Rotated: &v})
	default:
		return nil, errors.Errorf("unsupported region type %T", r)
	}
}

// UnmarshalRegion decodes the output of MarshalRegion.
func UnmarshalRegion(data []byte) (Region, error) {
	if string(data) == "null" || len(data) == 0 {
		return nil, nil
	}
	var raw regionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	switch raw.Kind {
	case KindAxisAligned:
		if raw.Rect == nil {
			return nil, errors.Errorf("region %q without rect", raw.Kind)
		}
		return AxisAlignedRect(*raw.Rect), nil
	case KindRotated:
		if raw.Rotated == nil {
			return nil, errors.Errorf("region %q without rotated rect", raw.Kind)
		}
		return *raw.Rotated, nil
	default:
		return nil, errors.Errorf("unknown region kind %q", raw.Kind)
	}
}
