// Package tokens estimates the size of text in model tokens.
//
// A [Budgeter] wraps exactly one tokenizer for the lifetime of a run so that
// every budget comparison uses the same scale. The default is the tiktoken
// encoding for gpt-4 (cl100k_base), loaded from ranks embedded in the
// binary; "heuristic" selects a bytes/4 estimator that needs no ranks.
package tokens

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	tkloader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultTokenizer is the reference tokenizer used when none is configured.
const DefaultTokenizer = "gpt-4"

// Heuristic names the byte-based estimator.
const Heuristic = "heuristic"

// charsPerToken is the divisor for the byte-based estimator.
const charsPerToken = 4

func init() {
	tiktoken.SetBpeLoader(tkloader.NewOfflineLoader())
}

// Budgeter counts tokens with a single fixed tokenizer.
type Budgeter struct {
	name   string
	encode func(string) int
}

// New returns a Budgeter for a tiktoken model name (e.g. "gpt-4"), a
// tiktoken encoding name (e.g. "cl100k_base"), or [Heuristic].
// An empty name selects [DefaultTokenizer].
func New(name string) (*Budgeter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTokenizer
	}
	if name == Heuristic {
		return &Budgeter{name: name, encode: estimateBytes}, nil
	}

	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		var encErr error
		enc, encErr = tiktoken.GetEncoding(name)
		if encErr != nil {
			return nil, fmt.Errorf("unknown tokenizer %q: %w", name, err)
		}
	}
	return &Budgeter{
		name: name,
		encode: func(text string) int {
			// Special-token text inside a diff is counted, not rejected.
			return len(enc.Encode(text, []string{"all"}, nil))
		},
	}, nil
}

// Name returns the tokenizer name the Budgeter was built with.
func (b *Budgeter) Name() string { return b.name }

// Estimate returns the token count of text. Estimate("") is 0.
func (b *Budgeter) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return b.encode(text)
}

// FitsWithin reports whether text is at most limit tokens.
func (b *Budgeter) FitsWithin(text string, limit int) bool {
	return b.Estimate(text) <= limit
}

// estimateBytes is (len+3)/4, so 1 to 4 bytes map to 1 token.
func estimateBytes(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}
