package pipeline

import (
	"context"

	"github.com/dshills/branchreview/internal/diffparse"
	"github.com/dshills/branchreview/internal/gitctx"
	"github.com/dshills/branchreview/internal/review"
)

// FileEstimate is one file's share of the diff.
type FileEstimate struct {
	Path   string
	Tokens int
	Fits   bool
}

// Inspection is a dry run: what would be reviewed, without sending it.
type Inspection struct {
	Resolution gitctx.Resolution
	DiffTokens int
	TokenLimit int
	// WholeFits reports whether the diff would go out as one request.
	WholeFits bool
	Files     []FileEstimate
	Warnings  []diffparse.Warning
}

// Inspect resolves, extracts, segments and measures without dispatching
// or writing artifacts. Files are measured as the payload a per-file
// review would send.
func (p *Pipeline) Inspect(ctx context.Context, opts Options) (*Inspection, error) {
	res, diff, err := p.extract(ctx, opts, p.logger)
	if err != nil {
		return nil, err
	}

	seg := diffparse.Segment(diff)
	in := &Inspection{
		Resolution: res,
		DiffTokens: p.budget.Estimate(diff),
		TokenLimit: p.tokenLimit,
		Warnings:   seg.Warnings,
		Files:      make([]FileEstimate, 0, len(seg.Changes)),
	}
	in.WholeFits = in.DiffTokens <= p.tokenLimit
	for _, fc := range seg.Changes {
		n := p.budget.Estimate(review.PerFilePayload(p.redactor, fc))
		in.Files = append(in.Files, FileEstimate{Path: fc.Path, Tokens: n, Fits: n <= p.tokenLimit})
	}
	return in, nil
}
