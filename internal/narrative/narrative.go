// Package narrative asks a language model for a short clinical summary of a
// measurement. The narrative is advisory: failures never block persistence.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"specimen-gauge/internal/measure"

	"go.uber.org/zap"
)

// Narrator turns a prompt into free text.
type Narrator interface {
	Narrate(ctx context.Context, prompt string) (string, error)
}

// Request is the measurement context a narrative is written for.
type Request struct {
	Result measure.Result
	// Excised is true for a specimen already removed from the patient. The
	// margin line is included only then.
	Excised      bool
	Observations string
	// MinMarginMM is quoted in the margin line; 0 means 0.2.
	MinMarginMM float64
}

// Eligible reports whether a narrative should be requested: a specimen was
// found and, for an excised specimen, a margin verdict exists. In-situ
// analysis needs only the size.
func (r Request) Eligible() bool {
	if !r.Result.Found() || r.Result.WidthMM <= 0 || r.Result.HeightMM <= 0 {
		return false
	}
	return !r.Excised || r.Result.MarginOK != nil
}

// BuildPrompt renders the prompt for r.
func BuildPrompt(r Request) string {
	minMarginMM := r.MinMarginMM
	if minMarginMM <= 0 {
		minMarginMM = defaultMarginMM
	}

	var b strings.Builder
	if r.Excised {
		b.WriteString("The analysis is performed on a specimen already removed from the patient.\n")
	} else {
		b.WriteString("The analysis is performed directly on the patient's body.\n")
	}
	b.WriteString("Analyze a microscopic specimen with the following characteristics:\n")
	fmt.Fprintf(&b, "- Width: %.2f mm\n", r.Result.WidthMM)
	fmt.Fprintf(&b, "- Height: %.2f mm\n", r.Result.HeightMM)
	if r.Excised && r.Result.MarginOK != nil {
		if *r.Result.MarginOK {
			fmt.Fprintf(&b, "- Excision margin: OK (>=%.1fmm)\n", minMarginMM)
		} else {
			fmt.Fprintf(&b, "- Excision margin: insufficient (<%.1fmm)\n", minMarginMM)
		}
	}
	fmt.Fprintf(&b, "- Physician observations: %s\n", strings.TrimSpace(r.Observations))
	b.WriteString("Based on these data, provide a brief clinical analysis and recommendations.")
	return b.String()
}

// Summary returns the narrative for r, or "" when n is nil, r is not
// eligible or the narrator fails.
func Summary(ctx context.Context, n Narrator, r Request, log *zap.SugaredLogger) string {
	if n == nil || !r.Eligible() {
		return ""
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	text, err := n.Narrate(ctx, BuildPrompt(r))
	if err != nil {
		log.Warnw("narrative: request failed", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

const defaultMarginMM = 0.2
