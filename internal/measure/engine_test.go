package measure

import (
	"testing"

	"specimen-gauge/internal/calibration"
	"specimen-gauge/internal/margin"
	"specimen-gauge/internal/rank"
	"specimen-gauge/internal/segment"
	"specimen-gauge/internal/synth"
	"specimen-gauge/pkg/geometry"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func measureScene(t *testing.T, s synth.Scene, strategy, policy string, overlay bool) (Result, error) {
	t.Helper()
	frame := s.Render()
	defer frame.Close()
	return NewEngine(Options{Overlay: overlay}).MeasureByID(&frame, strategy, policy, calibration.LiveRig())
}

func TestGrayscaleLargest(t *testing.T) {
	res, err := measureScene(t, synth.Centered(100, 80), segment.IDGrayscale, rank.IDLargest, true)
	require.NoError(t, err)

	assert.InDelta(t, 7.23, res.WidthMM, 1e-9)
	assert.InDelta(t, 5.3568, res.HeightMM, 1e-9)
	assert.Nil(t, res.MarginOK)
	assert.False(t, res.MarginUnmeasurable)
	assert.Equal(t, "n/a", res.MarginLabel())
	assert.Equal(t, segment.IDGrayscale, res.Strategy)
	assert.Equal(t, rank.IDLargest, res.Policy)
}

func TestRedHueMarginVerdict(t *testing.T) {
	res, err := measureScene(t, synth.Centered(100, 80).WithBand(5), segment.IDRedHue, rank.IDLargest, true)
	require.NoError(t, err)
	require.NotNil(t, res.MarginOK)
	assert.True(t, *res.MarginOK)
	assert.InDelta(t, 7.23, res.WidthMM, 1e-9)

	res, err = measureScene(t, synth.Centered(100, 80).WithBand(5, "left"), segment.IDRedHue, rank.IDLargest, true)
	require.NoError(t, err)
	require.NotNil(t, res.MarginOK)
	assert.False(t, *res.MarginOK)
	assert.Equal(t, "insufficient", res.MarginLabel())
}

func TestNoCandidateIsZeroResult(t *testing.T) {
	res, err := measureScene(t, synth.Centered(0, 0), segment.IDGrayscale, rank.IDLargest, true)
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Zero(t, res.WidthMM)
	assert.Zero(t, res.HeightMM)
	assert.Nil(t, res.MarginOK)
	assert.Equal(t, "no specimen", res.String())
}

func TestMarginUnmeasurableStillMeasures(t *testing.T) {
	frame := synth.Centered(100, 80).WithBand(5).Render()
	defer frame.Close()

	// 1 mm/px: the 0.2 mm margin rounds to zero pixels
	prof, err := calibration.New(1, 1, 0.2)
	require.NoError(t, err)

	res, err := NewEngine(Options{}).MeasureByID(&frame, segment.IDRedHue, rank.IDLargest, prof)
	require.Error(t, err)
	assert.True(t, errors.Is(err, margin.ErrMarginUnmeasurable))
	assert.True(t, res.MarginUnmeasurable)
	assert.Nil(t, res.MarginOK)
	assert.Equal(t, 100.0, res.WidthMM)
	assert.Equal(t, 80.0, res.HeightMM)
}

func TestOverlayOnlyWhenEnabled(t *testing.T) {
	s := synth.Centered(100, 80)
	prof := calibration.LiveRig()

	plain := s.Render()
	defer plain.Close()
	ref := plain.Clone()
	defer ref.Close()

	_, err := NewEngine(Options{Overlay: false}).MeasureByID(&plain, segment.IDGrayscale, rank.IDLargest, prof)
	require.NoError(t, err)
	assert.Zero(t, diffCount(t, plain, ref))

	drawn := s.Render()
	defer drawn.Close()
	_, err = NewEngine(Options{Overlay: true}).MeasureByID(&drawn, segment.IDGrayscale, rank.IDLargest, prof)
	require.NoError(t, err)
	assert.NotZero(t, diffCount(t, drawn, ref))
}

func TestInvalidInputs(t *testing.T) {
	e := NewEngine(Options{})
	prof := calibration.LiveRig()

	empty := gocv.NewMat()
	defer empty.Close()
	_, err := e.MeasureByID(&empty, segment.IDGrayscale, rank.IDLargest, prof)
	assert.True(t, errors.Is(err, ErrInvalidFrame))

	_, err = e.MeasureByID(nil, segment.IDGrayscale, rank.IDLargest, prof)
	assert.True(t, errors.Is(err, ErrInvalidFrame))

	frame := synth.Centered(10, 10).Render()
	defer frame.Close()
	_, err = e.MeasureByID(&frame, "nope", rank.IDLargest, prof)
	assert.True(t, errors.Is(err, segment.ErrUnknownStrategy))
	_, err = e.MeasureByID(&frame, segment.IDGrayscale, "nope", prof)
	assert.True(t, errors.Is(err, rank.ErrUnknownPolicy))
	_, err = e.MeasureByID(&frame, segment.IDGrayscale, rank.IDLargest, calibration.Profile{})
	assert.True(t, errors.Is(err, calibration.ErrInvalidCalibration))
}

func TestResultRoundTrip(t *testing.T) {
	ok := false
	for _, r := range []Result{
		{},
		{
			WidthMM: 7.23, HeightMM: 5.3568, MarginOK: &ok,
			Region:   geometry.AxisAlignedRect{X: 270, Y: 200, Width: 100, Height: 80},
			Strategy: segment.IDRedHue, Policy: rank.IDLargest,
		},
		{
			WidthMM: 3.1, HeightMM: 2.5, MarginUnmeasurable: true,
			Region: geometry.NewRotatedRect(geometry.Point2D{X: 50, Y: 60}, geometry.Size{Width: 99, Height: 79}, 12.5),
		},
	} {
		data, err := Encode(r)
		require.NoError(t, err)
		got, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := Decode([]byte(`{"region":{"kind":"hexagon"}}`))
	assert.Error(t, err)
}

func diffCount(t *testing.T, a, b gocv.Mat) int {
	t.Helper()
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)
	return gocv.CountNonZero(gray)
}
