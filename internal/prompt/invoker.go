package prompt

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/docchat/internal/llm"
)

// Invoker runs a prompt with named inputs and returns the generated text.
type Invoker interface {
	Invoke(ctx context.Context, inputs map[string]any) (string, error)
}

// Runner binds a Template to a provider.
type Runner struct {
	tmpl     *Template
	provider llm.Provider

	// Temperature, when set, overrides the template's own parameter.
	Temperature *float64
}

// NewRunner returns a Runner for tmpl on provider.
func NewRunner(tmpl *Template, provider llm.Provider) *Runner {
	return &Runner{tmpl: tmpl, provider: provider}
}

// WithTemperature sets the temperature override and returns r.
func (r *Runner) WithTemperature(t float64) *Runner {
	r.Temperature = &t
	return r
}

func (r *Runner) Invoke(ctx context.Context, inputs map[string]any) (string, error) {
	messages, err := r.tmpl.Render(inputs)
	if err != nil {
		return "", err
	}

	temperature := r.tmpl.Parameters.Temperature
	if r.Temperature != nil {
		temperature = r.Temperature
	}

	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   r.tmpl.Parameters.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", r.provider.Name(), err)
	}
	return resp.Content, nil
}
