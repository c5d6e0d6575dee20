package retrieval

import (
	"context"
	"fmt"
	"strings"
)

const (
	diseaseSentinel    = "not appear to be a standard medical condition"
	medicationSentinel = "not appear to be a standard medication"
)

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerativeDisease asks a generative model for a five-point disease summary.
type GenerativeDisease struct {
	gen Generator
}

// NewGenerativeDisease creates the generative disease provider.
func NewGenerativeDisease(gen Generator) *GenerativeDisease {
	return &GenerativeDisease{gen: gen}
}

// Name implements Provider.
func (g *GenerativeDisease) Name() string { return "generative" }

// Attempt implements Provider.
func (g *GenerativeDisease) Attempt(ctx context.Context, topic string) (Answer, error) {
	text, err := generate(ctx, g.gen, diseasePrompt(topic), diseaseSentinel)
	if err != nil {
		return Answer{}, err
	}
	return Answer{Body: fmt.Sprintf("## Information About %s\n\n%s\n", title(topic), text)}, nil
}

// GenerativeMedication asks a generative model about a single medication.
type GenerativeMedication struct {
	gen Generator
}

// NewGenerativeMedication creates the generative medication provider.
func NewGenerativeMedication(gen Generator) *GenerativeMedication {
	return &GenerativeMedication{gen: gen}
}

// Name implements Provider.
func (g *GenerativeMedication) Name() string { return "generative" }

// Attempt implements Provider.
func (g *GenerativeMedication) Attempt(ctx context.Context, topic string) (Answer, error) {
	text, err := generate(ctx, g.gen, medicationPrompt(topic), medicationSentinel)
	if err != nil {
		return Answer{}, err
	}
	return Answer{Body: fmt.Sprintf(`### %s Information

%s

> *Note: This information is AI-generated as this medication wasn't found in our primary database. Always consult your healthcare provider.*
`, title(topic), text)}, nil
}

func generate(ctx context.Context, gen Generator, prompt, sentinel string) (string, error) {
	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: generate: %w", ErrProviderUnavailable, err)
	}
	text = strings.TrimSpace(text)
	if text == "" || strings.Contains(text, sentinel) {
		return "", ErrNoResult
	}
	return text, nil
}

func diseasePrompt(topic string) string {
	return fmt.Sprintf(`Please provide accurate, concise information about the disease or condition '%[1]s' in this format:

1. What is %[1]s?
2. Common symptoms
3. How is it transmitted/caused?
4. Common treatments and medications
5. Prevention measures

Format the response in clear Markdown with appropriate headers.
Make your answer concise but informative.
If this is not a recognized medical condition, please say "This does not appear to be a standard medical condition."`, topic)
}

func medicationPrompt(topic string) string {
	return fmt.Sprintf(`Please provide accurate, concise information about the medication '%s' in this format:

1. Purpose: What is this medication typically used for?
2. Typical Usage: How is it typically used?
3. Common Dosage: What is the typical dosage? (with disclaimer that actual dosage should come from doctor)
4. Important Warnings: What are key warnings or side effects?

If this is not a recognized medication, please respond with "This does not appear to be a standard medication."
Format the response in clear Markdown with appropriate headers.`, topic)
}
