package segment

import (
	"gocv.io/x/gocv"
)

// GrayscaleOptions configures GrayscaleThreshold.
type GrayscaleOptions struct {
	Threshold  float32 // luminance cut, 0-255
	KernelSize int     // erosion structuring element (square)

	// Invert makes pixels at or below Threshold the foreground, which suits
	// a dark specimen on a bright slide. With Invert false the bright
	// background is the foreground and the specimen shows up as a hole.
	Invert bool

	// CompensateErosion grows each upright box by the erosion radius so
	// extents are measured at the pre-erosion boundary of foreground blobs.
	CompensateErosion bool
}

// DefaultGrayscaleOptions returns the luminance settings used on the live rig.
func DefaultGrayscaleOptions() GrayscaleOptions {
	return GrayscaleOptions{
		Threshold:         100,
		KernelSize:        5,
		Invert:            true,
		CompensateErosion: true,
	}
}

// GrayscaleThreshold binarizes luminance at a fixed level, erodes once to
// suppress speckle and returns every contour of the full hierarchy. It yields
// many candidates, noise included, and no tracer mask.
type GrayscaleThreshold struct {
	opts GrayscaleOptions
}

// NewGrayscaleThreshold creates the strategy.
func NewGrayscaleThreshold(opts GrayscaleOptions) *GrayscaleThreshold {
	if opts.KernelSize <= 0 {
		opts.KernelSize = defaultKernelN
	}
	return &GrayscaleThreshold{opts: opts}
}

func (g *GrayscaleThreshold) ID() string { return IDGrayscale }

// Options returns the configured options.
func (g *GrayscaleThreshold) Options() GrayscaleOptions { return g.opts }

func (g *GrayscaleThreshold) Segment(frame gocv.Mat) (*Output, error) {
	if err := ValidateFrame(frame); err != nil {
		return nil, err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	typ := gocv.ThresholdBinary
	if g.opts.Invert {
		typ = gocv.ThresholdBinaryInv
	}
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, g.opts.Threshold, 255, typ)

	k := kernel(g.opts.KernelSize)
	defer k.Close()
	eroded := gocv.NewMat()
	defer eroded.Close()
	gocv.Erode(binary, &eroded, k)

	grow := 0
	if g.opts.CompensateErosion {
		grow = g.opts.KernelSize / 2
	}

	return &Output{
		Candidates: findCandidates(eroded, contourOptions{
			mode: gocv.RetrievalTree,
			grow: grow,
		}),
	}, nil
}
