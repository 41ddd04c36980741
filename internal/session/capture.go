package session

import (
	"time"

	"specimen-gauge/internal/measure"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// Capture is one frozen unit: the clean frame that gets persisted, the
// annotated frame shown to the operator and the measurement of that frame.
type Capture struct {
	ID         uuid.UUID
	CapturedAt time.Time
	Frame      gocv.Mat
	Annotated  gocv.Mat
	Result     measure.Result
	Err        error // measurement error of the frozen frame, if any
}

// PNG encodes the clean frame.
func (c *Capture) PNG() ([]byte, error) {
	return EncodePNG(c.Frame)
}

// AnnotatedPNG encodes the annotated frame.
func (c *Capture) AnnotatedPNG() ([]byte, error) {
	return EncodePNG(c.Annotated)
}

// Close releases both frames.
func (c *Capture) Close() error {
	if c == nil {
		return nil
	}
	return multierr.Combine(c.Frame.Close(), c.Annotated.Close())
}

// EncodePNG encodes a mat as PNG bytes.
func EncodePNG(m gocv.Mat) ([]byte, error) {
	if m.Empty() {
		return nil, errors.New("encode png: empty frame")
	}
	buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
	if err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	defer buf.Close()

	// GetBytes aliases native memory
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
