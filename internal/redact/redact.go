package redact

import (
	"path/filepath"
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

// secretPatterns are regex heuristics for common secret types.
var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// AWS secret access keys
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	// Generic secrets/tokens/passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// GitHub fine-grained tokens
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Anthropic API keys
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	// OpenAI API keys
	regexp.MustCompile(`sk-(proj-)?[A-Za-z0-9]{20,}`),
	// Azure storage / service connection strings
	regexp.MustCompile(`(?i)AccountKey=[A-Za-z0-9/+=]{20,}`),
	// Long hex strings in key/secret/token assignments
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// DefaultPaths are files whose whole diff is withheld.
var DefaultPaths = []string{"**/.env", "**/.env.*", "**/*.pem", "**/*.key", "**/*secrets*"}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllLiteralString(result, placeholder)
	}
	return result
}

// Scrub replaces every occurrence of each literal with [REDACTED]. Empty
// literals are ignored.
func Scrub(text string, literals ...string) string {
	for _, lit := range literals {
		if lit == "" {
			continue
		}
		text = strings.ReplaceAll(text, lit, placeholder)
	}
	return text
}

// ShouldRedactPath checks if a file path matches any of the redaction path patterns.
func ShouldRedactPath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		// "**/name" also matches name in any directory.
		cleanPattern := strings.TrimPrefix(pattern, "**/")
		if cleanPattern != pattern {
			matched, err = filepath.Match(cleanPattern, filepath.Base(path))
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}

// Options configures a Redactor.
type Options struct {
	// Patterns enables the regex secret heuristics.
	Patterns bool
	// Paths are glob patterns whose file content is withheld entirely.
	Paths []string
	// Literals are exact strings, such as the configured credential,
	// that are always scrubbed.
	Literals []string
}

// Redactor cleans outbound text. A nil Redactor leaves text unchanged.
type Redactor struct {
	opts Options
}

// New returns a Redactor for opts.
func New(opts Options) *Redactor {
	return &Redactor{opts: opts}
}

// Text redacts a block of text that belongs to no particular file.
func (r *Redactor) Text(text string) string {
	if r == nil {
		return text
	}
	if r.opts.Patterns {
		text = Secrets(text)
	}
	return Scrub(text, r.opts.Literals...)
}

// File redacts one file's diff body, withholding it when the path matches
// a path pattern.
func (r *Redactor) File(path, body string) string {
	if r == nil {
		return body
	}
	if r.opts.Patterns && ShouldRedactPath(path, r.opts.Paths) {
		return placeholder + " (file content redacted by path policy)"
	}
	return r.Text(body)
}

// Patterns reports whether the secret heuristics are on.
func (r *Redactor) Patterns() bool {
	return r != nil && r.opts.Patterns
}

// Withholds reports whether File would drop path's content entirely.
func (r *Redactor) Withholds(path string) bool {
	return r != nil && r.opts.Patterns && ShouldRedactPath(path, r.opts.Paths)
}
