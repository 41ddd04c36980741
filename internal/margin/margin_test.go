package margin

import (
	"testing"

	"specimen-gauge/internal/calibration"
	"specimen-gauge/internal/segment"
	"specimen-gauge/internal/synth"
	"specimen-gauge/pkg/geometry"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var specimen = geometry.AxisAlignedRect{X: 270, Y: 200, Width: 100, Height: 80}

// tracerFor renders a banded scene and returns its red mask.
func tracerFor(t *testing.T, s synth.Scene) gocv.Mat {
	t.Helper()
	frame := s.Render()
	defer frame.Close()

	out, err := segment.NewRedHue(segment.DefaultRedHueOptions()).Segment(frame)
	require.NoError(t, err)
	require.True(t, out.HasTracer())
	return *out.Tracer
}

func TestFullBandPasses(t *testing.T) {
	mask := tracerFor(t, synth.Centered(100, 80).WithBand(5))
	defer mask.Close()

	rep, err := Check(specimen, &mask, calibration.LiveRig())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.MarginPx)
	assert.Equal(t, geometry.RectInt{X: 267, Y: 197, Width: 106, Height: 86}, rep.Box)
	assert.True(t, rep.OK())
	assert.Empty(t, rep.Missing())
}

func TestEachMissingSideFails(t *testing.T) {
	for _, side := range Sides() {
		t.Run(side.String(), func(t *testing.T) {
			mask := tracerFor(t, synth.Centered(100, 80).WithBand(5, side.String()))
			defer mask.Close()

			ok, err := Validate(specimen, &mask, calibration.LiveRig())
			require.NoError(t, err)
			assert.False(t, ok)

			rep, err := Check(specimen, &mask, calibration.LiveRig())
			require.NoError(t, err)
			assert.Equal(t, []Side{side}, rep.Missing())
		})
	}
}

func TestUnmeasurable(t *testing.T) {
	mask := tracerFor(t, synth.Centered(100, 80).WithBand(5))
	defer mask.Close()

	zero, err := calibration.New(1, 1, 0.2)
	require.NoError(t, err)
	_, err = Validate(specimen, &mask, zero)
	assert.True(t, errors.Is(err, ErrMarginUnmeasurable))

	_, err = Validate(specimen, nil, calibration.LiveRig())
	assert.True(t, errors.Is(err, ErrMarginUnmeasurable))

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = Validate(specimen, &empty, calibration.LiveRig())
	assert.True(t, errors.Is(err, ErrMarginUnmeasurable))

	// Clamped to a 1-pixel sliver at the frame corner
	corner := geometry.AxisAlignedRect{X: -10, Y: -10, Width: 8, Height: 8}
	_, err = Validate(corner, &mask, calibration.LiveRig())
	assert.True(t, errors.Is(err, ErrMarginUnmeasurable))
}

func TestSpecimenAtFrameEdgeIsClamped(t *testing.T) {
	s := synth.Centered(100, 80).WithBand(5)
	s.Specimen.X = 0
	mask := tracerFor(t, s)
	defer mask.Close()

	region := geometry.AxisAlignedRect(s.Specimen)
	rep, err := Check(region, &mask, calibration.LiveRig())
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Box.X)
	assert.Equal(t, geometry.RectInt{X: 0, Y: 197, Width: 3, Height: 86}, rep.Strips[Left])
	// Only the corners of the top and bottom band reach the left strip
	assert.Equal(t, 3*6, rep.Counts[Left])
}
