package measure

import (
	"encoding/json"
	"fmt"

	"specimen-gauge/pkg/geometry"

	"github.com/pkg/errors"
)

// Result is one measurement. The zero value means no specimen was found.
type Result struct {
	WidthMM  float64
	HeightMM float64

	// MarginOK is nil when the strategy has no tracer or the margin could
	// not be sampled.
	MarginOK           *bool
	MarginUnmeasurable bool

	Region   geometry.Region
	Strategy string
	Policy   string
}

// Found reports whether a specimen was selected.
func (r Result) Found() bool {
	return r.Region != nil
}

// MarginLabel is a short status word for logs and overlays.
func (r Result) MarginLabel() string {
	switch {
	case r.MarginUnmeasurable:
		return "unmeasurable"
	case r.MarginOK == nil:
		return "n/a"
	case *r.MarginOK:
		return "ok"
	default:
		return "insufficient"
	}
}

func (r Result) String() string {
	if !r.Found() {
		return "no specimen"
	}
	return fmt.Sprintf("%.2f x %.2f mm (margin %s)", r.WidthMM, r.HeightMM, r.MarginLabel())
}

type resultJSON struct {
	WidthMM            float64         `json:"width_mm"`
	HeightMM           float64         `json:"height_mm"`
	MarginOK           *bool           `json:"margin_ok"`
	MarginUnmeasurable bool            `json:"margin_unmeasurable,omitempty"`
	Region             json.RawMessage `json:"region"`
	Strategy           string          `json:"strategy,omitempty"`
	Policy             string          `json:"policy,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	region, err := geometry.MarshalRegion(r.Region)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resultJSON{
		WidthMM:            r.WidthMM,
		HeightMM:           r.HeightMM,
		MarginOK:           r.MarginOK,
		MarginUnmeasurable: r.MarginUnmeasurable,
		Region:             region,
		Strategy:           r.Strategy,
		Policy:             r.Policy,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	region, err := geometry.UnmarshalRegion(raw.Region)
	if err != nil {
		return err
	}
	*r = Result{
		WidthMM:            raw.WidthMM,
		HeightMM:           raw.HeightMM,
		MarginOK:           raw.MarginOK,
		MarginUnmeasurable: raw.MarginUnmeasurable,
		Region:             region,
		Strategy:           raw.Strategy,
		Policy:             raw.Policy,
	}
	return nil
}

// Encode serializes a result for persistence.
func Encode(r Result) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode result")
	}
	return data, nil
}

// Decode parses the output of Encode.
func Decode(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, errors.Wrap(err, "decode result")
	}
	return r, nil
}
