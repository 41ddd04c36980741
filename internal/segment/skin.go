package segment

import (
	"specimen-gauge/pkg/colorutil"

	"gocv.io/x/gocv"
)

// SkinOptions configures SkinInverse.
type SkinOptions struct {
	Skin       []colorutil.Range
	KernelSize int
	MinArea    float64 // px²; smaller candidates are dropped before ranking
}

// DefaultSkinOptions returns two hue bands around typical skin tones.
func DefaultSkinOptions() SkinOptions {
	return SkinOptions{
		Skin: []colorutil.Range{
			{Lower: colorutil.HSV{H: 0, S: 40, V: 60}, Upper: colorutil.HSV{H: 25, S: 255, V: 255}},
			{Lower: colorutil.HSV{H: 165, S: 40, V: 60}, Upper: colorutil.HSV{H: 180, S: 255, V: 255}},
		},
		KernelSize: 5,
		MinArea:    500,
	}
}

// IsSkin reports whether a single HSV sample is treated as skin.
func (o SkinOptions) IsSkin(c colorutil.HSV) bool {
	return inAny(c, o.Skin)
}

// SkinInverse treats everything that is not skin-colored as specimen, for
// in-situ images where the sample sits on the patient.
type SkinInverse struct {
	opts SkinOptions
}

// NewSkinInverse creates the strategy.
func NewSkinInverse(opts SkinOptions) *SkinInverse {
	if opts.KernelSize <= 0 {
		opts.KernelSize = defaultKernelN
	}
	return &SkinInverse{opts: opts}
}

func (s *SkinInverse) ID() string { return IDSkinInverse }

// Options returns the configured options.
func (s *SkinInverse) Options() SkinOptions { return s.opts }

func (s *SkinInverse) Segment(frame gocv.Mat) (*Output, error) {
	if err := ValidateFrame(frame); err != nil {
		return nil, err
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	skin := maskUnion(hsv, s.opts.Skin)
	defer skin.Close()

	notSkin := gocv.NewMat()
	defer notSkin.Close()
	gocv.BitwiseNot(skin, &notSkin)

	k := kernel(s.opts.KernelSize)
	defer k.Close()

	// Close small gaps, then remove salt-and-pepper noise
	gocv.MorphologyEx(notSkin, &notSkin, gocv.MorphClose, k)
	gocv.MorphologyEx(notSkin, &notSkin, gocv.MorphOpen, k)

	return &Output{
		Candidates: findCandidates(notSkin, contourOptions{
			mode:    gocv.RetrievalExternal,
			minArea: s.opts.MinArea,
		}),
	}, nil
}
