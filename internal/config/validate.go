package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/branchreview/internal/gitctx"
	"github.com/dshills/branchreview/internal/providers"
	"github.com/dshills/branchreview/internal/review"
)

// ValidationError lists every problem found in a Config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// ValidateLocal checks the settings needed for git and token work only.
func (c Config) ValidateLocal() error {
	var p []string
	if c.Tokenizer == "" {
		p = append(p, "tokenizer is empty")
	}
	if c.TokenLimit <= 0 {
		p = append(p, fmt.Sprintf("token_limit must be positive (got %d)", c.TokenLimit))
	}
	if c.Baseline == "" {
		p = append(p, "baseline is empty")
	}
	if c.Remote == "" {
		p = append(p, "remote is empty")
	}
	switch gitctx.DiffBase(c.DiffBase) {
	case gitctx.DiffBaseMergeBase, gitctx.DiffBaseTip:
	default:
		p = append(p, fmt.Sprintf("diff_base must be merge-base or tip (got %q)", c.DiffBase))
	}
	if c.ContextLines < 0 {
		p = append(p, "context_lines must not be negative")
	}
	if len(p) > 0 {
		return &ValidationError{Problems: p}
	}
	return nil
}

// Validate checks everything a review run needs, including the
// provider's credential, endpoint and API version.
func (c Config) Validate() error {
	var p []string
	if err := c.ValidateLocal(); err != nil {
		p = append(p, err.(*ValidationError).Problems...)
	}

	if !slices.Contains(providers.Names, c.Provider) {
		p = append(p, fmt.Sprintf("unknown provider %q (want one of %s)", c.Provider, strings.Join(providers.Names, ", ")))
	}
	if c.Model == "" {
		p = append(p, "model is empty")
	}
	switch c.Provider {
	case "azure":
		if c.Endpoint == "" {
			p = append(p, "azure endpoint is not set (AZUREAI_ENDPOINT)")
		}
		if c.APIKey == "" {
			p = append(p, "azure API key is not set (AZUREAI_KEY)")
		}
		if c.APIVersion == "" {
			p = append(p, "azure API version is not set (AZUREAI_API_VERSION)")
		}
	case "openai", "github", "anthropic":
		if c.APIKey == "" {
			p = append(p, fmt.Sprintf("%s API key is not set (%s)", c.Provider, KeyVar(c.Provider)))
		}
	}

	r := c.Review
	if _, err := review.ParseFraming(r.Framing); err != nil {
		p = append(p, err.Error())
	}
	if r.MaxTokens <= 0 {
		p = append(p, "review.max_tokens must be positive")
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		p = append(p, fmt.Sprintf("review.temperature must be between 0 and 2 (got %g)", r.Temperature))
	}
	if r.TopP <= 0 || r.TopP > 1 {
		p = append(p, fmt.Sprintf("review.top_p must be in (0, 1] (got %g)", r.TopP))
	}
	if r.Retries < 0 {
		p = append(p, "review.retries must not be negative")
	}
	if r.RetryBackoff < 0 {
		p = append(p, "review.retry_backoff must not be negative")
	}
	if r.Concurrency < 1 {
		p = append(p, "review.concurrency must be at least 1")
	}
	if r.RequestsPerMinute < 0 {
		p = append(p, "review.requests_per_minute must not be negative")
	}
	if r.Timeout <= 0 {
		p = append(p, "review.timeout must be positive")
	}

	if len(p) > 0 {
		return &ValidationError{Problems: p}
	}
	return nil
}
