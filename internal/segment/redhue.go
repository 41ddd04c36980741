package segment

import (
	"specimen-gauge/pkg/colorutil"

	"gocv.io/x/gocv"
)

// RedHueOptions configures RedHue. Red straddles hue 0/180 in OpenCV's HSV,
// so it is covered by two ranges.
type RedHueOptions struct {
	Red  []colorutil.Range
	Dark colorutil.Range

	// SpecimenFromRed measures the red-dyed region and returns the near-black
	// mask as tracer. When false the dark region is the specimen and the red
	// dye is the tracer painted around it.
	SpecimenFromRed bool

	// Rotated measures minimum-area rectangles instead of upright boxes.
	Rotated bool
}

// DefaultRedHueOptions returns the live-rig settings: dark specimen, red tracer.
func DefaultRedHueOptions() RedHueOptions {
	return RedHueOptions{
		Red: []colorutil.Range{
			{Lower: colorutil.HSV{H: 0, S: 70, V: 50}, Upper: colorutil.HSV{H: 10, S: 255, V: 255}},
			{Lower: colorutil.HSV{H: 170, S: 70, V: 50}, Upper: colorutil.HSV{H: 180, S: 255, V: 255}},
		},
		Dark: colorutil.Range{Lower: colorutil.HSV{}, Upper: colorutil.HSV{H: 180, S: 255, V: 60}},
	}
}

// RedDyeOptions returns the bench-rig settings: a red-dyed specimen measured
// with rotated rectangles, stricter saturation, darker black ceiling.
func RedDyeOptions() RedHueOptions {
	return RedHueOptions{
		Red: []colorutil.Range{
			{Lower: colorutil.HSV{H: 0, S: 120, V: 70}, Upper: colorutil.HSV{H: 10, S: 255, V: 255}},
			{Lower: colorutil.HSV{H: 170, S: 120, V: 70}, Upper: colorutil.HSV{H: 180, S: 255, V: 255}},
		},
		Dark:            colorutil.Range{Lower: colorutil.HSV{}, Upper: colorutil.HSV{H: 180, S: 255, V: 50}},
		SpecimenFromRed: true,
		Rotated:         true,
	}
}

// Classify reports which of the two masks a single HSV sample falls into.
func (o RedHueOptions) Classify(c colorutil.HSV) (red, dark bool) {
	return inAny(c, o.Red), o.Dark.Contains(c)
}

// RedHue segments in HSV space. One mask supplies outer-contour candidates,
// the other is returned as the tracer mask for margin checking.
type RedHue struct {
	opts RedHueOptions
}

// NewRedHue creates the strategy.
func NewRedHue(opts RedHueOptions) *RedHue {
	return &RedHue{opts: opts}
}

func (r *RedHue) ID() string {
	if r.opts.SpecimenFromRed {
		return IDRedDye
	}
	return IDRedHue
}

// Options returns the configured options.
func (r *RedHue) Options() RedHueOptions { return r.opts }

func (r *RedHue) Segment(frame gocv.Mat) (*Output, error) {
	if err := ValidateFrame(frame); err != nil {
		return nil, err
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	red := maskUnion(hsv, r.opts.Red)
	dark := maskUnion(hsv, []colorutil.Range{r.opts.Dark})

	specimen, tracer := dark, red
	if r.opts.SpecimenFromRed {
		specimen, tracer = red, dark
	}
	defer specimen.Close()

	cands := findCandidates(specimen, contourOptions{
		mode:    gocv.RetrievalExternal,
		rotated: r.opts.Rotated,
	})
	return &Output{Candidates: cands, Tracer: &tracer}, nil
}
