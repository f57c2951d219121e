package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/branchreview/internal/diffparse"
	"github.com/dshills/branchreview/internal/review"
)

// NoChangesText is the review body written when the diff is empty.
const NoChangesText = "No changes to review.\n"

// Document is everything that goes into the review artifact.
type Document struct {
	NoChanges bool
	// Range names the compared refs for the no-changes message.
	Range    string
	Report   review.Report
	Warnings []diffparse.Warning
}

// MarkdownWriter renders the review artifact. A whole-diff review is
// written verbatim; per-file reviews become one "## <path>" section each,
// in diff order.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, doc Document) error {
	ew := &errWriter{w: w}

	switch {
	case doc.NoChanges:
		if doc.Range != "" {
			ew.printf("No changes between %s; nothing to review.\n", doc.Range)
		} else {
			ew.printf("%s", NoChangesText)
		}
	case doc.Report.Mode == review.ModeWhole:
		for _, res := range doc.Report.Results {
			ew.printf("%s", res.Text)
		}
	default:
		for i, res := range doc.Report.Results {
			if i > 0 {
				ew.printf("\n")
			}
			ew.printf("## %s\n\n%s\n", res.Path, strings.TrimRight(res.Text, "\n"))
		}
		if len(doc.Warnings) > 0 {
			if len(doc.Report.Results) > 0 {
				ew.printf("\n")
			}
			ew.printf("## Warnings\n\n")
			for _, warn := range doc.Warnings {
				ew.printf("- segment dropped at %s\n", warn.String())
			}
		}
	}
	return ew.err
}

// Markdown renders doc to a string.
func Markdown(doc Document) string {
	var b strings.Builder
	// strings.Builder never fails.
	_ = (&MarkdownWriter{}).Write(&b, doc)
	return b.String()
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
