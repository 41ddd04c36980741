package narrative

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-pro"

// Gemini is a Narrator backed by the Gemini API.
type Gemini struct {
	APIKey   string
	Model    string
	Attempts int
}

// NewGemini creates a Gemini narrator.
func NewGemini(apiKey, model string) *Gemini {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{
		APIKey:   strings.TrimSpace(apiKey),
		Model:    model,
		Attempts: 3,
	}
}

// Narrate sends prompt and returns the first text part of the reply.
func (g *Gemini) Narrate(ctx context.Context, prompt string) (string, error) {
	if g.APIKey == "" {
		return "", errors.New("gemini: GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return "", errors.Wrap(err, "gemini: client")
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0.2),
	}

	attempts := g.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	// Retry transient failures
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := m.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
			}
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return "", errors.New("gemini: empty response")
		}
		return txt, nil
	}
	return "", errors.Wrapf(lastErr, "gemini: %d attempts", attempts)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
