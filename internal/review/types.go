package review

import "fmt"

// Mode is how a diff was split into requests.
type Mode string

const (
	// ModeNone means nothing was sent.
	ModeNone Mode = "none"
	// ModeWhole sends the whole diff in one request.
	ModeWhole Mode = "whole"
	// ModePerFile sends one request per file.
	ModePerFile Mode = "per-file"
)

// Request is one payload bound for the completion service.
type Request struct {
	Index int
	// Path is empty for a whole-diff request.
	Path    string
	Payload string
	// Tokens is the payload's token estimate.
	Tokens int
}

// Result is the review of one Request. Text is always set: either the
// service's answer or a placeholder describing why there is none.
type Result struct {
	Index    int
	Path     string
	Text     string
	Err      error
	Attempts int
	// TokensUsed is what the service reported for the successful call.
	TokensUsed int
	Skipped    bool
}

// Degraded reports whether Text is a placeholder.
func (r Result) Degraded() bool {
	return r.Err != nil
}

// Report is the ordered outcome of one dispatch.
type Report struct {
	Mode    Mode
	Results []Result
}

// Degraded counts placeholder results.
func (r Report) Degraded() int {
	n := 0
	for _, res := range r.Results {
		if res.Degraded() {
			n++
		}
	}
	return n
}

// TokensUsed sums the service-reported usage.
func (r Report) TokensUsed() int {
	n := 0
	for _, res := range r.Results {
		n += res.TokensUsed
	}
	return n
}

func unavailable(req Request, attempts int, err error) Result {
	text := fmt.Sprintf("review unavailable: %v", err)
	if req.Path != "" {
		text = fmt.Sprintf("review unavailable for %s: %v", req.Path, err)
	}
	return Result{Index: req.Index, Path: req.Path, Text: text, Err: err, Attempts: attempts}
}

func skipped(req Request, cause error) Result {
	text := fmt.Sprintf("review skipped: %v", cause)
	if req.Path != "" {
		text = fmt.Sprintf("review skipped for %s: %v", req.Path, cause)
	}
	return Result{Index: req.Index, Path: req.Path, Text: text, Err: cause, Skipped: true}
}
