package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHSV(t *testing.T) {
	red := ToHSV(Red)
	assert.InDelta(t, 0, red.H, 1e-9)
	assert.InDelta(t, 255, red.S, 1e-9)
	assert.InDelta(t, 255, red.V, 1e-9)

	black := ToHSV(Black)
	assert.Zero(t, black.V)

	blue := ToHSV(color.RGBA{B: 255, A: 255})
	assert.InDelta(t, 120, blue.H, 1e-9)
}

func TestRangeContains(t *testing.T) {
	lowRed := Range{Lower: HSV{0, 70, 50}, Upper: HSV{10, 255, 255}}

	assert.True(t, lowRed.Contains(ToHSV(Red)))
	assert.False(t, lowRed.Contains(ToHSV(White)))
	assert.False(t, lowRed.Contains(ToHSV(Black)))
}
