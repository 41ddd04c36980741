package session

import (
	"context"

	"go.uber.org/multierr"
)

// OneShot runs the whole pipeline once: start, one tick, capture, persist
// (when persister is non-nil) and end. It is how stored images are
// measured. The returned Capture is owned by the caller; its Err field
// carries any measurement error, such as an unmeasurable margin.
func OneShot(ctx context.Context, opener Opener, opts Options, persister Persister, a Annotation) (c *Capture, err error) {
	s, err := New(opener, opts)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, s.End())
		if err != nil && c != nil {
			c.Close()
			c = nil
		}
	}()

	if _, err := s.Tick(ctx); err != nil && s.State() == Idle {
		return nil, err
	}

	c, err = s.Capture()
	if err != nil {
		return nil, err
	}

	if persister == nil {
		return c, s.Discard()
	}
	if err := s.Persist(ctx, persister, a); err != nil {
		return c, err
	}
	return c, nil
}
