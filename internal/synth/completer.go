// Package synth provides ContentSynthesizer implementations: a production
// completer backed by an LLM provider, and a deterministic fixture double
// for tests and offline runs.
package synth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/julianshen/codetutor/internal/provider"
)

// zero pins generation temperature for reproducibility. Outputs produced
// with a non-zero temperature must be flagged as non-reproducible instead.
var zero = 0.0

// Completer adapts an LLMProvider to the pipeline's ContentSynthesizer
// interface. Calls are rate limited so fan-out stages respect the
// generative API's limits rather than the CPU count.
type Completer struct {
	provider  provider.LLMProvider
	model     string
	maxTokens int
	limiter   *rate.Limiter
}

// NewCompleter creates a Completer. rps caps requests per second; rps <= 0
// disables rate limiting.
func NewCompleter(p provider.LLMProvider, model string, maxTokens int, rps float64) *Completer {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Completer{
		provider:  p,
		model:     model,
		maxTokens: maxTokens,
		limiter:   limiter,
	}
}

// Complete sends a prompt to the LLM and returns the full response text.
// It blocks on the rate limiter first, so concurrent callers queue up
// instead of bursting past the API limit.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req := provider.CompletionRequest{
		Model:       c.model,
		Messages:    []provider.Message{provider.NewUserMessage(prompt)},
		MaxTokens:   c.maxTokens,
		Temperature: &zero,
	}

	ch, err := c.provider.Stream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}

	var parts []string
	for evt := range ch {
		switch evt.Type {
		case "text_delta":
			parts = append(parts, evt.Text)
		case "error":
			return "", fmt.Errorf("llm stream error: %w", evt.Error)
		}
	}

	return strings.Join(parts, ""), nil
}
