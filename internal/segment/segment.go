// Package segment isolates candidate specimen regions in a frame.
//
// Each strategy is a distinct algorithm. Callers pick one by ID; nothing here
// guesses which one suits an image. All strategies assume the frame has
// already been brought to the resolution its calibration was computed for.
package segment

import (
	"image"
	"math"
	"sort"

	"specimen-gauge/pkg/colorutil"
	"specimen-gauge/pkg/geometry"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Strategy IDs.
const (
	IDGrayscale    = "grayscale"
	IDRedHue       = "red-hue"
	IDRedDye       = "red-dye"
	IDSkinInverse  = "skin-inverse"
	defaultKernelN = 5
)

var (
	// ErrUnknownStrategy is returned by New for an unregistered ID.
	ErrUnknownStrategy = errors.New("unknown segmentation strategy")
	// ErrInvalidFrame is returned for empty frames or frames that are not 8-bit BGR.
	ErrInvalidFrame = errors.New("invalid frame")
)

// Strategy turns a BGR frame into candidate regions.
type Strategy interface {
	ID() string
	Segment(frame gocv.Mat) (*Output, error)
}

// Candidate is one detected contour considered for specimen selection.
type Candidate struct {
	Region  geometry.Region
	Area    float64 // enclosed contour area in px²
	Contour []image.Point
}

// Output is the result of one Segment call. Tracer is nil when the strategy
// performs no margin check. Call Close to release the tracer mask.
type Output struct {
	Candidates []Candidate
	Tracer     *gocv.Mat
}

// HasTracer reports whether a tracer mask was produced.
func (o *Output) HasTracer() bool {
	return o != nil && o.Tracer != nil && !o.Tracer.Empty()
}

// Close releases native resources.
func (o *Output) Close() error {
	if o == nil || o.Tracer == nil {
		return nil
	}
	err := o.Tracer.Close()
	o.Tracer = nil
	return err
}

// New returns the strategy registered under id with default options.
func New(id string) (Strategy, error) {
	switch id {
	case IDGrayscale:
		return NewGrayscaleThreshold(DefaultGrayscaleOptions()), nil
	case IDRedHue:
		return NewRedHue(DefaultRedHueOptions()), nil
	case IDRedDye:
		return NewRedHue(RedDyeOptions()), nil
	case IDSkinInverse:
		return NewSkinInverse(DefaultSkinOptions()), nil
	default:
		return nil, errors.Wrapf(ErrUnknownStrategy, "%q (known: %v)", id, IDs())
	}
}

// IDs lists the registered strategy IDs in sorted order.
func IDs() []string {
	ids := []string{IDGrayscale, IDRedHue, IDRedDye, IDSkinInverse}
	sort.Strings(ids)
	return ids
}

// ValidateFrame checks the frame layout every strategy expects.
func ValidateFrame(frame gocv.Mat) error {
	if frame.Empty() {
		return errors.Wrap(ErrInvalidFrame, "empty frame")
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return errors.Wrapf(ErrInvalidFrame, "expected 8-bit BGR, got mat type %v", frame.Type())
	}
	return nil
}

// maskUnion ORs the InRange masks of every range into one 8-bit mask.
func maskUnion(hsv gocv.Mat, ranges []colorutil.Range) gocv.Mat {
	out := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8U)
	part := gocv.NewMat()
	defer part.Close()
	for _, r := range ranges {
		gocv.InRangeWithScalar(hsv, lowerScalar(r), upperScalar(r), &part)
		gocv.BitwiseOr(out, part, &out)
	}
	return out
}

func lowerScalar(r colorutil.Range) gocv.Scalar {
	return gocv.NewScalar(r.Lower.H, r.Lower.S, r.Lower.V, 0)
}

func upperScalar(r colorutil.Range) gocv.Scalar {
	return gocv.NewScalar(r.Upper.H, r.Upper.S, r.Upper.V, 0)
}

func inAny(c colorutil.HSV, ranges []colorutil.Range) bool {
	for _, r := range ranges {
		if r.Contains(c) {
			return true
		}
	}
	return false
}

// contourOptions controls how contours become candidates.
type contourOptions struct {
	mode    gocv.RetrievalMode
	rotated bool    // minimum-area rectangles instead of upright boxes
	grow    int     // pixels added to each side of upright boxes
	minArea float64 // candidates below this area are dropped
}

func findCandidates(mask gocv.Mat, opts contourOptions) []Candidate {
	contours := gocv.FindContours(mask, opts.mode, gocv.ChainApproxSimple)
	defer contours.Close()

	cols, rows := mask.Cols(), mask.Rows()
	cands := make([]Candidate, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area < opts.minArea {
			continue
		}

		var region geometry.Region
		if opts.rotated {
			// gocv reports integer sizes; only the angle is taken from it
			rr := gocv.MinAreaRect(c)
			center, size := rotatedExtents(c.ToPoints(), rr.Angle)
			region = geometry.NewRotatedRect(center, size, rr.Angle)
		} else {
			box := geometry.FromImageRect(gocv.BoundingRect(c))
			if opts.grow > 0 {
				box = box.Expand(opts.grow).Clamp(cols, rows)
			}
			region = geometry.AxisAlignedRect(box)
		}

		cands = append(cands, Candidate{Region: region, Area: area, Contour: c.ToPoints()})
	}
	return cands
}

// rotatedExtents projects pts onto the axes of a rectangle rotated by
// angleDeg and returns the float center and size of their span. Width lies
// along the angle direction, as in OpenCV's RotatedRect.
func rotatedExtents(pts []image.Point, angleDeg float64) (geometry.Point2D, geometry.Size) {
	if len(pts) == 0 {
		return geometry.Point2D{}, geometry.Size{}
	}
	sin, cos := math.Sincos(angleDeg * math.Pi / 180)
	minU, minV := math.Inf(1), math.Inf(1)
	maxU, maxV := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		x, y := float64(p.X), float64(p.Y)
		u := x*cos + y*sin
		v := -x*sin + y*cos
		minU, maxU = math.Min(minU, u), math.Max(maxU, u)
		minV, maxV = math.Min(minV, v), math.Max(maxV, v)
	}
	cu, cv := (minU+maxU)/2, (minV+maxV)/2
	center := geometry.Point2D{X: cu*cos - cv*sin, Y: cu*sin + cv*cos}
	return center, geometry.Size{Width: maxU - minU, Height: maxV - minV}
}

func kernel(n int) gocv.Mat {
	if n <= 0 {
		n = defaultKernelN
	}
	return gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: n, Y: n})
}
