// Package rank picks the specimen among segmentation candidates.
package rank

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"specimen-gauge/internal/calibration"
	"specimen-gauge/internal/segment"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Policy IDs.
const (
	IDLargest       = "largest"
	IDSecondLargest = "second-largest"
	IDAreaFiltered  = "area-filtered"
)

// MinSideMM is the smallest width or height, after calibration, that
// AreaFiltered accepts.
const MinSideMM = 2.0

// ErrUnknownPolicy is returned by ParsePolicy.
var ErrUnknownPolicy = errors.New("unknown ranking policy")

// Policy selects one candidate. Pick returns false when nothing qualifies.
type Policy interface {
	ID() string
	Pick(cands []segment.Candidate, prof calibration.Profile) (segment.Candidate, bool)
}

// Rank applies policy to cands. An empty input is not an error.
func Rank(cands []segment.Candidate, policy Policy, prof calibration.Profile) (segment.Candidate, bool) {
	if len(cands) == 0 || policy == nil {
		return segment.Candidate{}, false
	}
	return policy.Pick(cands, prof)
}

// Largest picks the candidate with maximum area; ties go to the first one
// encountered.
type Largest struct{}

func (Largest) ID() string { return IDLargest }

func (Largest) Pick(cands []segment.Candidate, _ calibration.Profile) (segment.Candidate, bool) {
	if len(cands) == 0 {
		return segment.Candidate{}, false
	}
	return cands[floats.MaxIdx(areas(cands))], true
}

// SecondLargest picks the second-largest candidate by area, on the
// assumption that the largest contour is the slide or frame edge. With a
// single candidate it returns that one.
type SecondLargest struct{}

func (SecondLargest) ID() string { return IDSecondLargest }

func (SecondLargest) Pick(cands []segment.Candidate, _ calibration.Profile) (segment.Candidate, bool) {
	switch len(cands) {
	case 0:
		return segment.Candidate{}, false
	case 1:
		return cands[0], true
	}
	sorted := make([]segment.Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Area > sorted[j].Area
	})
	return sorted[1], true
}

// AreaFiltered drops candidates below MinAreaPx or narrower than MinSideMM
// on either axis, then picks the largest survivor.
type AreaFiltered struct {
	MinAreaPx float64
}

func (a AreaFiltered) ID() string {
	if a.MinAreaPx == 0 {
		return IDAreaFiltered
	}
	return fmt.Sprintf("%s:%s", IDAreaFiltered, strconv.FormatFloat(a.MinAreaPx, 'f', -1, 64))
}

func (a AreaFiltered) Pick(cands []segment.Candidate, prof calibration.Profile) (segment.Candidate, bool) {
	kept := make([]segment.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Area < a.MinAreaPx {
			continue
		}
		if c.Region != nil {
			w, h := c.Region.Extents()
			if prof.WidthMM(w) < MinSideMM || prof.HeightMM(h) < MinSideMM {
				continue
			}
		}
		kept = append(kept, c)
	}
	return Largest{}.Pick(kept, prof)
}

// ParsePolicy resolves "largest", "second-largest" or "area-filtered[:N]".
func ParsePolicy(s string) (Policy, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(s), ":")
	switch name {
	case IDLargest, "":
		if hasArg {
			break
		}
		return Largest{}, nil
	case IDSecondLargest:
		if hasArg {
			break
		}
		return SecondLargest{}, nil
	case IDAreaFiltered:
		if !hasArg {
			return AreaFiltered{}, nil
		}
		minArea, err := strconv.ParseFloat(arg, 64)
		if err != nil || minArea < 0 {
			return nil, errors.Wrapf(ErrUnknownPolicy, "bad minimum area %q", arg)
		}
		return AreaFiltered{MinAreaPx: minArea}, nil
	}
	return nil, errors.Wrapf(ErrUnknownPolicy, "%q", s)
}

func areas(cands []segment.Candidate) []float64 {
	out := make([]float64, len(cands))
	for i, c := range cands {
		out[i] = c.Area
	}
	return out
}
