package rank

import (
	"testing"

	"specimen-gauge/internal/calibration"
	"specimen-gauge/internal/segment"
	"specimen-gauge/pkg/geometry"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(area float64, w, h int) segment.Candidate {
	return segment.Candidate{
		Region: geometry.AxisAlignedRect{Width: w, Height: h},
		Area:   area,
	}
}

func TestEmptyInputSelectsNothing(t *testing.T) {
	prof := calibration.LiveRig()
	for _, p := range []Policy{Largest{}, SecondLargest{}, AreaFiltered{MinAreaPx: 10}} {
		_, ok := Rank(nil, p, prof)
		assert.False(t, ok, p.ID())
	}
}

func TestLargestTiesGoToFirst(t *testing.T) {
	cands := []segment.Candidate{cand(10, 1, 1), cand(50, 2, 2), cand(50, 3, 3), cand(5, 4, 4)}
	got, ok := Rank(cands, Largest{}, calibration.LiveRig())
	require.True(t, ok)
	assert.Equal(t, cands[1], got)
}

func TestSecondLargest(t *testing.T) {
	prof := calibration.LiveRig()

	one := []segment.Candidate{cand(7, 1, 1)}
	got, ok := Rank(one, SecondLargest{}, prof)
	require.True(t, ok)
	assert.Equal(t, one[0], got)

	// Equal areas keep their input order under the stable sort
	cands := []segment.Candidate{cand(100, 1, 1), cand(900, 2, 2), cand(100, 3, 3)}
	got, ok = Rank(cands, SecondLargest{}, prof)
	require.True(t, ok)
	assert.Equal(t, cands[0], got)

	// Input order is untouched
	assert.Equal(t, 900.0, cands[1].Area)
}

func TestAreaFilteredDropsSmallAndThin(t *testing.T) {
	prof, err := calibration.New(0.1, 0.1, 0.2)
	require.NoError(t, err)

	cands := []segment.Candidate{
		cand(5000, 100, 100), // 10mm x 10mm
		cand(8000, 400, 15),  // 1.5mm tall: too thin
		cand(50, 30, 30),     // under the area floor
	}
	got, ok := Rank(cands, AreaFiltered{MinAreaPx: 100}, prof)
	require.True(t, ok)
	assert.Equal(t, cands[0], got)

	_, ok = Rank(cands[1:], AreaFiltered{MinAreaPx: 100}, prof)
	assert.False(t, ok)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{
		"largest":            Largest{},
		"":                   Largest{},
		"second-largest":     SecondLargest{},
		"area-filtered":      AreaFiltered{},
		"area-filtered:1500": AreaFiltered{MinAreaPx: 1500},
	} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	assert.Equal(t, "area-filtered:1500", AreaFiltered{MinAreaPx: 1500}.ID())

	for _, in := range []string{"biggest", "largest:3", "area-filtered:x", "area-filtered:-1"} {
		_, err := ParsePolicy(in)
		assert.True(t, errors.Is(err, ErrUnknownPolicy), in)
	}
}
