// Package session drives a frame source through the measurement engine:
// live preview, capture of one immutable unit and its persistence.
package session

import (
	"context"
	"image"
	"sync"
	"time"

	"specimen-gauge/internal/calibration"
	"specimen-gauge/internal/measure"
	"specimen-gauge/internal/narrative"
	"specimen-gauge/internal/rank"
	"specimen-gauge/internal/segment"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var (
	// ErrDeviceRead is returned when the source fails; the device has been released.
	ErrDeviceRead = errors.New("frame source read failed")
	// ErrPersistence wraps persister failures; the captured unit is kept for retry.
	ErrPersistence = errors.New("persistence failed")
	// ErrInvalidTransition is returned for operations not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// Display receives every annotated frame. The frame is only valid for the
// duration of the call.
type Display interface {
	Show(frame gocv.Mat)
}

// Persister stores a captured unit.
type Persister interface {
	Persist(ctx context.Context, c *Capture, a Annotation) error
}

// Annotation is caller-supplied metadata stored alongside a capture.
type Annotation struct {
	Note       string
	Narrative  string
	Operator   string
	PatientRef string // CPF, digits or formatted
	// Excised marks a removed specimen; otherwise the image is in situ.
	Excised bool
	// Observations are passed to the narrator, not stored.
	Observations string
}

// Options configures a Session.
type Options struct {
	Profile  calibration.Profile
	Strategy segment.Strategy
	Policy   rank.Policy

	Engine   *measure.Engine // nil: overlays on
	Display  Display
	Narrator narrative.Narrator // nil: no narrative is requested
	Logger   *zap.SugaredLogger
}

// Frame is the outcome of the most recent tick.
type Frame struct {
	Result measure.Result
	Err    error // measurement error, e.g. an unmeasurable margin
	At     time.Time
}

// latest holds the mats behind the latest Frame.
type latest struct {
	Frame
	clean     gocv.Mat
	annotated gocv.Mat
}

func (l *latest) close() error {
	return multierr.Combine(l.clean.Close(), l.annotated.Close())
}

// Session is one preview/capture/persist pipeline over a single source.
type Session struct {
	opener Opener
	opts   Options
	engine *measure.Engine
	log    *zap.SugaredLogger

	// io serializes device access. Lock order: io, then mu.
	io  sync.Mutex
	src Source

	mu         sync.Mutex
	state      State
	latest     *latest
	pending    *Capture
	persisting *Capture // unit inside a persister call
	ending     bool
	stats      stats

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
}

// New creates an idle session.
func New(opener Opener, opts Options) (*Session, error) {
	if opener == nil {
		return nil, errors.New("session: opener is required")
	}
	if !opts.Profile.Valid() {
		return nil, errors.Wrap(calibration.ErrInvalidCalibration, "session")
	}
	if opts.Strategy == nil || opts.Policy == nil {
		return nil, errors.New("session: strategy and policy are required")
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	engine := opts.Engine
	if engine == nil {
		engine = measure.NewEngine(measure.Options{Overlay: true, Logger: log})
	}
	return &Session{
		opener:    opener,
		opts:      opts,
		engine:    engine,
		log:       log,
		listeners: make(map[EventType][]EventListener),
	}, nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Latest returns the outcome of the most recent tick.
func (s *Session) Latest() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Frame{}, false
	}
	return s.latest.Frame, true
}

// Start acquires the source and begins previewing.
func (s *Session) Start(ctx context.Context) error {
	s.io.Lock()

	s.mu.Lock()
	if s.state != Idle {
		st := s.state
		s.mu.Unlock()
		s.io.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "start from %s", st)
	}
	s.mu.Unlock()

	src, err := s.opener(ctx)
	if err != nil {
		s.io.Unlock()
		return errors.Wrap(ErrDeviceRead, err.Error())
	}
	s.src = src

	s.mu.Lock()
	s.ending = false
	s.state = Previewing
	s.mu.Unlock()
	s.io.Unlock()

	s.log.Infow("session: started", "strategy", s.opts.Strategy.ID(), "policy", s.opts.Policy.ID())
	s.emit(EventStateChanged, Transition{From: Idle, To: Previewing})
	return nil
}

// Tick reads one frame, measures it and replaces the latest slot. Ticks
// are allowed while a unit is captured; the frozen unit is unaffected.
//
// A device failure releases the source, returns the session to Idle and
// yields ErrDeviceRead. A measurement error is returned with the Frame and
// does not stop the session.
func (s *Session) Tick(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	var evs events
	s.io.Lock()
	f, err := s.tick(&evs)
	s.io.Unlock()

	s.flush(evs)
	return f, err
}

// tick does the work of Tick with s.io held.
func (s *Session) tick(evs *events) (Frame, error) {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st != Previewing && st != Captured {
		return Frame{}, errors.Wrapf(ErrInvalidTransition, "tick in %s", st)
	}
	if s.src == nil {
		return Frame{}, errors.Wrap(ErrInvalidTransition, "tick after end")
	}

	start := time.Now()
	raw := gocv.NewMat()
	defer raw.Close()
	if err := s.src.Read(&raw); err != nil {
		return Frame{}, s.deviceFailed(err, evs)
	}

	annotated := s.fit(raw)
	clean := annotated.Clone()

	res, mErr := s.engine.Measure(&annotated, s.opts.Strategy, s.opts.Policy, s.opts.Profile)
	if errors.Is(mErr, measure.ErrInvalidFrame) {
		// The source produced something unusable
		clean.Close()
		annotated.Close()
		return Frame{}, s.deviceFailed(mErr, evs)
	}

	if s.opts.Display != nil {
		s.opts.Display.Show(annotated)
	}

	f := Frame{Result: res, Err: mErr, At: time.Now()}
	next := &latest{Frame: f, clean: clean, annotated: annotated}

	s.mu.Lock()
	prev := s.latest
	s.latest = next
	s.stats.record(time.Since(start), mErr != nil)
	s.mu.Unlock()

	if prev != nil {
		_ = prev.close()
	}
	evs.add(EventFrame, f)
	return f, mErr
}

// fit copies raw at the profile's resolution.
func (s *Session) fit(raw gocv.Mat) gocv.Mat {
	w, h := s.opts.Profile.Resolution()
	if w == 0 || raw.Empty() || (raw.Cols() == w && raw.Rows() == h) {
		return raw.Clone()
	}
	out := gocv.NewMat()
	gocv.Resize(raw, &out, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	return out
}

// deviceFailed releases the source and the latest slot, drops the pending
// unit and goes Idle. Must be called with s.io held.
func (s *Session) deviceFailed(cause error, evs *events) error {
	err := errors.Wrap(ErrDeviceRead, cause.Error())
	s.log.Warnw("session: device failure", "error", cause)

	closeErr := s.releaseSource()

	s.mu.Lock()
	from := s.state
	stale := s.latest
	s.latest = nil
	s.state = Idle
	s.pending = nil
	s.ending = false
	s.stats.failures++
	s.mu.Unlock()

	if stale != nil {
		closeErr = multierr.Append(closeErr, stale.close())
	}
	if closeErr != nil {
		s.log.Warnw("session: release after failure", "error", closeErr)
	}
	evs.add(EventDeviceError, err)
	evs.add(EventStateChanged, Transition{From: from, To: Idle})
	return err
}

// Capture freezes the latest clean frame, its annotated copy and its
// result as one immutable unit. The caller owns the returned Capture and
// must Close it.
func (s *Session) Capture() (*Capture, error) {
	s.mu.Lock()
	if s.state != Previewing {
		st := s.state
		s.mu.Unlock()
		return nil, errors.Wrapf(ErrInvalidTransition, "capture in %s", st)
	}
	if s.latest == nil {
		s.mu.Unlock()
		return nil, errors.Wrap(ErrInvalidTransition, "capture before first frame")
	}
	c := &Capture{
		ID:         uuid.New(),
		CapturedAt: s.latest.At,
		Frame:      s.latest.clean.Clone(),
		Annotated:  s.latest.annotated.Clone(),
		Result:     s.latest.Result,
		Err:        s.latest.Err,
	}
	s.pending = c
	s.state = Captured
	s.mu.Unlock()

	s.log.Infow("session: captured", "id", c.ID, "result", c.Result.String())
	s.emit(EventStateChanged, Transition{From: Previewing, To: Captured})
	s.emit(EventCaptured, c)
	return c, nil
}

// Discard drops the captured unit without persisting it and resumes
// previewing. It is refused while the unit is being persisted.
func (s *Session) Discard() error {
	s.mu.Lock()
	if s.state != Captured {
		st := s.state
		s.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "discard in %s", st)
	}
	if s.persisting != nil && s.persisting == s.pending {
		s.mu.Unlock()
		return errors.Wrap(ErrInvalidTransition, "discard during persist")
	}
	to := Previewing
	if s.ending {
		to = Idle
		s.ending = false
	}
	s.pending = nil
	s.state = to
	s.mu.Unlock()

	s.emit(EventStateChanged, Transition{From: Captured, To: to})
	return nil
}

// Persist stores the captured unit. On failure the unit stays captured and
// Persist may be retried. On success the session returns to Previewing, or
// to Idle when End was called while the unit was pending. A second Persist
// of the same unit while the first is running is refused.
//
// If the session moved on while the persister ran (a device failure sent it
// to Idle), the unit is still reported stored and the state is left alone.
func (s *Session) Persist(ctx context.Context, p Persister, a Annotation) error {
	if p == nil {
		return errors.Wrap(ErrPersistence, "no persister")
	}

	s.mu.Lock()
	if s.state != Captured || s.pending == nil {
		st := s.state
		s.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "persist in %s", st)
	}
	if s.persisting == s.pending {
		s.mu.Unlock()
		return errors.Wrap(ErrInvalidTransition, "persist already in progress")
	}
	c := s.pending
	s.persisting = c
	s.mu.Unlock()

	if a.Narrative == "" {
		a.Narrative = narrative.Summary(ctx, s.opts.Narrator, narrative.Request{
			Result:       c.Result,
			Excised:      a.Excised,
			Observations: a.Observations,
			MinMarginMM:  s.opts.Profile.MinMarginMM(),
		}, s.log)
	}

	err := p.Persist(ctx, c, a)

	s.mu.Lock()
	if s.persisting == c {
		s.persisting = nil
	}
	if err != nil {
		s.mu.Unlock()
		s.log.Warnw("session: persist failed", "id", c.ID, "error", err)
		return errors.Wrap(ErrPersistence, err.Error())
	}
	current := s.state == Captured && s.pending == c
	to := s.state
	if current {
		to = Previewing
		if s.ending {
			to = Idle
			s.ending = false
		}
		s.pending = nil
		s.state = to
	}
	s.mu.Unlock()

	s.log.Infow("session: persisted", "id", c.ID)
	if !current {
		s.log.Warnw("session: unit persisted after the session moved on", "id", c.ID, "state", to.String())
		s.emit(EventPersisted, c)
		return nil
	}
	s.emit(EventStateChanged, Transition{From: Captured, To: Persisted})
	s.emit(EventPersisted, c)
	s.emit(EventStateChanged, Transition{From: Persisted, To: to})
	return nil
}

// End releases the device and the latest slot. With a unit still captured
// the session stays Captured until Persist or Discard, then goes Idle.
func (s *Session) End() error {
	s.io.Lock()

	err := s.releaseSource()

	s.mu.Lock()
	from := s.state
	if s.latest != nil {
		err = multierr.Append(err, s.latest.close())
		s.latest = nil
	}
	to := Idle
	if from == Captured {
		s.ending = true
		to = Captured
	}
	s.state = to
	s.mu.Unlock()
	s.io.Unlock()

	s.log.Infow("session: ended", "from", from.String())
	if from != to {
		s.emit(EventStateChanged, Transition{From: from, To: to})
	}
	return err
}

// Run ticks every interval until ctx is done or the session leaves the
// preview states. A tick in progress is never interrupted.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Tick(ctx); err != nil {
			switch {
			case errors.Is(err, ErrDeviceRead):
				return err
			case errors.Is(err, ErrInvalidTransition):
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				s.log.Debugw("session: tick", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Session) releaseSource() error {
	if s.src == nil {
		return nil
	}
	err := s.src.Close()
	s.src = nil
	return err
}
