// Package measure turns one frame into a specimen measurement.
//
// The engine composes a segmentation strategy, a ranking policy, the
// calibration profile and the margin validator. It is pure with respect to
// its inputs apart from the overlay it may draw onto the frame, and it
// never resizes the frame.
package measure

import (
	"specimen-gauge/internal/calibration"
	"specimen-gauge/internal/margin"
	"specimen-gauge/internal/rank"
	"specimen-gauge/internal/segment"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ErrInvalidFrame is returned for empty frames or frames that are not 8-bit BGR.
var ErrInvalidFrame = segment.ErrInvalidFrame

// Options configures an Engine.
type Options struct {
	// Overlay draws contour, bounding shape, labels and margin status onto
	// the frame passed to Measure.
	Overlay bool
	Logger  *zap.SugaredLogger
}

// DefaultOptions enables overlays.
func DefaultOptions() Options {
	return Options{Overlay: true}
}

// Engine measures specimens. It holds no per-frame state and is safe for
// concurrent use on distinct frames.
type Engine struct {
	overlay bool
	log     *zap.SugaredLogger
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{overlay: opts.Overlay, log: log}
}

// Measure runs segment, rank, convert, margin check and overlay on frame.
//
// No candidate yields the zero Result and a nil error. When the margin
// cannot be sampled the measured Result is still returned, flagged
// MarginUnmeasurable, together with an error wrapping
// margin.ErrMarginUnmeasurable.
func (e *Engine) Measure(frame *gocv.Mat, s segment.Strategy, p rank.Policy, prof calibration.Profile) (Result, error) {
	if frame == nil {
		return Result{}, errors.Wrap(ErrInvalidFrame, "nil frame")
	}
	if s == nil || p == nil {
		return Result{}, errors.New("measure: strategy and policy are required")
	}
	if !prof.Valid() {
		return Result{}, errors.Wrap(calibration.ErrInvalidCalibration, "measure")
	}

	out, err := s.Segment(*frame)
	if err != nil {
		return Result{}, errors.Wrapf(err, "segment %s", s.ID())
	}
	defer out.Close()

	res := Result{Strategy: s.ID(), Policy: p.ID()}

	best, ok := rank.Rank(out.Candidates, p, prof)
	if !ok {
		e.log.Debugw("measure: no specimen", "strategy", s.ID(), "policy", p.ID(), "candidates", len(out.Candidates))
		if e.overlay {
			drawNoSpecimen(frame)
		}
		return res, nil
	}

	wPx, hPx := best.Region.Extents()
	res.Region = best.Region
	res.WidthMM = prof.WidthMM(wPx)
	res.HeightMM = prof.HeightMM(hPx)

	var (
		rep     *margin.Report
		mErr    error
		checked = out.HasTracer()
	)
	if checked {
		r, err := margin.Check(best.Region, out.Tracer, prof)
		switch {
		case err != nil:
			res.MarginUnmeasurable = true
			mErr = err
		default:
			ok := r.OK()
			res.MarginOK = &ok
			rep = &r
		}
	}

	e.log.Debugw("measure: specimen",
		"strategy", s.ID(),
		"policy", p.ID(),
		"candidates", len(out.Candidates),
		"width_px", wPx,
		"height_px", hPx,
		"width_mm", res.WidthMM,
		"height_mm", res.HeightMM,
		"margin", res.MarginLabel(),
	)

	if e.overlay {
		drawResult(frame, best, res, rep)
	}

	if mErr != nil {
		return res, errors.Wrapf(mErr, "measure %s", s.ID())
	}
	return res, nil
}

// MeasureByID resolves the strategy and policy by ID and measures frame.
func (e *Engine) MeasureByID(frame *gocv.Mat, strategyID, policyID string, prof calibration.Profile) (Result, error) {
	s, err := segment.New(strategyID)
	if err != nil {
		return Result{}, err
	}
	p, err := rank.ParsePolicy(policyID)
	if err != nil {
		return Result{}, err
	}
	return e.Measure(frame, s, p, prof)
}

// MeasureByID measures with a default engine.
func MeasureByID(frame *gocv.Mat, strategyID, policyID string, prof calibration.Profile) (Result, error) {
	return NewEngine(DefaultOptions()).MeasureByID(frame, strategyID, policyID, prof)
}
