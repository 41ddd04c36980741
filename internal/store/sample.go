// Package store persists captured specimen units.
package store

import (
	"strings"
	"time"
	"unicode"

	"specimen-gauge/internal/measure"
	"specimen-gauge/internal/session"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Sample is one persisted capture.
type Sample struct {
	ID         uuid.UUID
	CapturedAt time.Time
	ImagePNG   []byte
	WidthMM    float64
	HeightMM   float64
	MarginOK   *bool
	Result     measure.Result
	Note       string
	Narrative  string
	Operator   string
	PatientID  *int64 // nil when the sample is not linked to a patient
}

// NewSample builds the persisted form of a capture. Only the clean frame is stored.
func NewSample(c *session.Capture, a session.Annotation) (Sample, error) {
	if c == nil {
		return Sample{}, errors.New("nil capture")
	}
	img, err := c.PNG()
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		ID:         c.ID,
		CapturedAt: c.CapturedAt,
		ImagePNG:   img,
		WidthMM:    c.Result.WidthMM,
		HeightMM:   c.Result.HeightMM,
		MarginOK:   c.Result.MarginOK,
		Result:     c.Result,
		Note:       strings.TrimSpace(a.Note),
		Narrative:  strings.TrimSpace(a.Narrative),
		Operator:   strings.TrimSpace(a.Operator),
	}, nil
}

// CPFDigits strips everything but digits from a CPF ("123.456.789-09" → "12345678909").
func CPFDigits(cpf string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, cpf)
}
