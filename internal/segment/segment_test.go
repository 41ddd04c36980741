package segment

import (
	"image"
	"math"
	"testing"

	"specimen-gauge/internal/synth"
	"specimen-gauge/pkg/colorutil"
	"specimen-gauge/pkg/geometry"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestNewKnowsEveryID(t *testing.T) {
	for _, id := range IDs() {
		s, err := New(id)
		require.NoError(t, err, id)
		assert.Equal(t, id, s.ID())
	}

	_, err := New("watershed")
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}

func TestValidateFrame(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	assert.True(t, errors.Is(ValidateFrame(empty), ErrInvalidFrame))

	gray := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8U)
	defer gray.Close()
	assert.True(t, errors.Is(ValidateFrame(gray), ErrInvalidFrame))

	_, err := NewRedHue(DefaultRedHueOptions()).Segment(gray)
	assert.Error(t, err)
}

func TestGrayscaleRecoversPreErosionBox(t *testing.T) {
	frame := synth.Centered(100, 80).Render()
	defer frame.Close()

	out, err := NewGrayscaleThreshold(DefaultGrayscaleOptions()).Segment(frame)
	require.NoError(t, err)
	defer out.Close()

	require.Len(t, out.Candidates, 1)
	assert.False(t, out.HasTracer())
	assert.Equal(t, geometry.AxisAlignedRect{X: 270, Y: 200, Width: 100, Height: 80}, out.Candidates[0].Region)
}

func TestGrayscaleBlankFrameHasNoCandidates(t *testing.T) {
	s := synth.Centered(0, 0)
	frame := s.Render()
	defer frame.Close()

	out, err := NewGrayscaleThreshold(DefaultGrayscaleOptions()).Segment(frame)
	require.NoError(t, err)
	assert.Empty(t, out.Candidates)
}

func TestRedHueSpecimenAndTracer(t *testing.T) {
	frame := synth.Centered(100, 80).WithBand(5).Render()
	defer frame.Close()

	out, err := NewRedHue(DefaultRedHueOptions()).Segment(frame)
	require.NoError(t, err)
	defer out.Close()

	require.Len(t, out.Candidates, 1)
	assert.Equal(t, geometry.AxisAlignedRect{X: 270, Y: 200, Width: 100, Height: 80}, out.Candidates[0].Region)

	require.True(t, out.HasTracer())
	// Band area: 110x90 minus the 100x80 specimen
	assert.Equal(t, 110*90-100*80, gocv.CountNonZero(*out.Tracer))
}

func TestRedDyeMeasuresRedRegion(t *testing.T) {
	s := synth.Centered(100, 80)
	s.Color = colorutil.Red
	frame := s.Render()
	defer frame.Close()

	out, err := NewRedHue(RedDyeOptions()).Segment(frame)
	require.NoError(t, err)
	defer out.Close()

	require.Len(t, out.Candidates, 1)
	c := out.Candidates[0]
	assert.Equal(t, geometry.KindRotated, c.Region.Kind())
	w, h := c.Region.Extents()
	assert.InDelta(t, 99, w, 1)
	assert.InDelta(t, 79, h, 1)
	assert.Zero(t, gocv.CountNonZero(*out.Tracer))
}

func TestRedHueClassify(t *testing.T) {
	opts := DefaultRedHueOptions()
	red, dark := opts.Classify(colorutil.ToHSV(colorutil.Red))
	assert.True(t, red)
	assert.False(t, dark)

	red, dark = opts.Classify(colorutil.ToHSV(colorutil.Black))
	assert.False(t, red)
	assert.True(t, dark)

	// Hue near 180 wraps into the second red range
	red, _ = opts.Classify(colorutil.HSV{H: 178, S: 200, V: 200})
	assert.True(t, red)
}

func TestSkinInverseFindsNonSkinRegion(t *testing.T) {
	s := synth.Centered(100, 80)
	s.Background = synth.SkinTone
	s.Extra = []geometry.RectInt{{X: 10, Y: 10, Width: 8, Height: 8}}
	frame := s.Render()
	defer frame.Close()

	opts := DefaultSkinOptions()
	assert.True(t, opts.IsSkin(colorutil.ToHSV(synth.SkinTone)))
	assert.False(t, opts.IsSkin(colorutil.ToHSV(colorutil.Black)))

	out, err := NewSkinInverse(opts).Segment(frame)
	require.NoError(t, err)

	// The 8x8 blob is under the area floor
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, geometry.RectInt{X: 270, Y: 200, Width: 100, Height: 80}, out.Candidates[0].Region.Bounds())
}

func TestRotatedExtentsKeepSubpixelSize(t *testing.T) {
	// A diamond: a 45° square whose side is 10·√2, not a whole pixel count.
	diamond := []image.Point{{X: 0, Y: 10}, {X: 10, Y: 0}, {X: 20, Y: 10}, {X: 10, Y: 20}}
	center, size := rotatedExtents(diamond, 45)
	assert.InDelta(t, 10*math.Sqrt2, size.Width, 1e-9)
	assert.InDelta(t, 10*math.Sqrt2, size.Height, 1e-9)
	assert.InDelta(t, 10, center.X, 1e-9)
	assert.InDelta(t, 10, center.Y, 1e-9)

	upright := []image.Point{{X: 270, Y: 200}, {X: 369, Y: 200}, {X: 369, Y: 279}, {X: 270, Y: 279}}
	center, size = rotatedExtents(upright, 0)
	assert.Equal(t, geometry.Size{Width: 99, Height: 79}, size)
	assert.Equal(t, geometry.Point2D{X: 319.5, Y: 239.5}, center)

	// Width follows the angle direction
	_, size = rotatedExtents(upright, 90)
	assert.InDelta(t, 79, size.Width, 1e-9)
	assert.InDelta(t, 99, size.Height, 1e-9)

	_, size = rotatedExtents(nil, 30)
	assert.Zero(t, size)
}
