package geometry

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectIntExpandClamp(t *testing.T) {
	r := RectInt{X: 2, Y: 3, Width: 10, Height: 5}

	assert.Equal(t, RectInt{X: -1, Y: 0, Width: 16, Height: 11}, r.Expand(3))
	assert.Equal(t, RectInt{X: 0, Y: 0, Width: 15, Height: 11}, r.Expand(3).Clamp(100, 100))
	assert.Equal(t, RectInt{X: 0, Y: 0, Width: 8, Height: 6}, r.Expand(3).Clamp(8, 6))
	assert.True(t, RectInt{X: 50, Y: 50, Width: 4, Height: 4}.Clamp(10, 10).Empty())
}

func TestNewRotatedRectNormalizesAngle(t *testing.T) {
	for _, tc := range []struct {
		name      string
		angle     float64
		size      Size
		wantAngle float64
		wantSize  Size
	}{
		{"upright", 0, Size{100, 80}, 0, Size{100, 80}},
		{"quarter turn", 90, Size{80, 100}, 0, Size{100, 80}},
		{"negative quarter turn", -90, Size{80, 100}, 0, Size{100, 80}},
		{"small tilt", -10, Size{100, 80}, -10, Size{100, 80}},
		{"steep tilt", 70, Size{80, 100}, -20, Size{100, 80}},
		{"boundary", 45, Size{100, 80}, 45, Size{100, 80}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rr := NewRotatedRect(Point2D{X: 50, Y: 50}, tc.size, tc.angle)
			assert.InDelta(t, tc.wantAngle, rr.Angle, 1e-9)
			assert.Equal(t, tc.wantSize, rr.Size)
		})
	}
}

func TestRotatedRectBounds(t *testing.T) {
	rr := NewRotatedRect(Point2D{X: 100, Y: 50}, Size{Width: 40, Height: 20}, 0)
	assert.Equal(t, RectInt{X: 80, Y: 40, Width: 40, Height: 20}, rr.Bounds())

	w, h := rr.Extents()
	assert.Equal(t, 40.0, w)
	assert.Equal(t, 20.0, h)
}

func TestRegionJSON(t *testing.T) {
	regions := []Region{
		AxisAlignedRect{X: 1, Y: 2, Width: 3, Height: 4},
		NewRotatedRect(Point2D{X: 10, Y: 20}, Size{Width: 30, Height: 15}, 12.5),
		nil,
	}
	for _, r := range regions {
		data, err := MarshalRegion(r)
		require.NoError(t, err)

		back, err := UnmarshalRegion(data)
		require.NoError(t, err)
		assert.Equal(t, r, back)
	}

	_, err := UnmarshalRegion([]byte(`{"kind":"hexagon"}`))
	assert.Error(t, err)
}

func TestRegionJSONErrors(t *testing.T) {
	cases := map[string]string{
		`{"kind":"hexagon"}`:      `unknown region kind "hexagon"`,
		`{"kind":"axis_aligned"}`: "without rect",
		`{"kind":"rotated"}`:      "without rotated rect",
	}
	for in, msg := range cases {
		_, err := UnmarshalRegion([]byte(in))
		require.Error(t, err, in)
		assert.Contains(t, err.Error(), msg)

		// Errors carry a stack trace like the rest of the tree.
		_, traced := err.(interface{ StackTrace() errors.StackTrace })
		assert.True(t, traced, in)
	}
}
