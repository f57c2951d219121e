package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/branchreview/internal/artifact"
	"github.com/dshills/branchreview/internal/diffparse"
	"github.com/dshills/branchreview/internal/gitctx"
	"github.com/dshills/branchreview/internal/output"
	"github.com/dshills/branchreview/internal/redact"
	"github.com/dshills/branchreview/internal/review"
	"github.com/dshills/branchreview/internal/tokens"
)

// Options selects what a run compares and what it writes.
type Options struct {
	Resolve gitctx.ResolveOptions
	Diff    gitctx.DiffOptions
	// HTML also writes review.html.
	HTML bool
}

// Timing records how long each part of a run took.
type Timing struct {
	Git      time.Duration
	Dispatch time.Duration
	Total    time.Duration
}

// Outcome summarises a completed run.
type Outcome struct {
	RunID      string
	Resolution gitctx.Resolution
	NoChanges  bool
	DiffTokens int
	TokenLimit int
	Mode       review.Mode
	Report     review.Report
	Warnings   []diffparse.Warning
	Degraded   int
	DiffPath   string
	ReviewPath string
	HTMLPath   string
	Timing     Timing
}

// Pipeline runs resolve, extract, segment, budget and dispatch against one
// repository and persists the artifacts.
type Pipeline struct {
	repo       *gitctx.Repo
	budget     *tokens.Budgeter
	dispatcher *review.Dispatcher
	store      *artifact.Store
	tokenLimit int
	redactor   *redact.Redactor
	logger     *slog.Logger
}

// Deps are the collaborators a Pipeline sequences.
type Deps struct {
	Repo       *gitctx.Repo
	Budgeter   *tokens.Budgeter
	Dispatcher *review.Dispatcher
	Store      *artifact.Store
	TokenLimit int
	// Redactor is applied to per-file payloads when Inspect measures them.
	// It should match the dispatcher's.
	Redactor *redact.Redactor
	Logger   *slog.Logger
}

// New creates a Pipeline. A nil logger uses slog.Default().
func New(d Deps) *Pipeline {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := d.TokenLimit
	if limit <= 0 && d.Dispatcher != nil {
		limit = d.Dispatcher.TokenLimit()
	}
	if limit <= 0 {
		limit = review.DefaultTokenLimit
	}
	return &Pipeline{
		repo:       d.Repo,
		budget:     d.Budgeter,
		dispatcher: d.Dispatcher,
		store:      d.Store,
		tokenLimit: limit,
		redactor:   d.Redactor,
		logger:     logger,
	}
}

// Run executes one review. Fatal errors are *StageError; artifacts
// written before the failing stage are kept.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{RunID: uuid.NewString(), TokenLimit: p.tokenLimit, Mode: review.ModeNone}
	logger := p.logger.With("run_id", out.RunID)

	if err := p.clearArtifacts(logger); err != nil {
		return out, err
	}

	res, diff, err := p.extract(ctx, opts, logger)
	out.Resolution = res
	out.Timing.Git = time.Since(start)
	if err != nil {
		return out, err
	}

	out.DiffPath, err = p.store.Write(artifact.DiffFile, diff)
	if err != nil {
		return out, stageErr(StageWrite, err)
	}
	logger.Info("diff written", "stage", StageWrite, "path", out.DiffPath, "bytes", len(diff))

	if diff == "" {
		out.NoChanges = true
		logger.Info("no changes; skipping review", "stage", StageExtract, "range", res.Range())
		doc := output.Document{NoChanges: true, Range: res.Range()}
		if err := p.writeReview(out, doc, opts, logger); err != nil {
			return out, err
		}
		out.Timing.Total = time.Since(start)
		return out, nil
	}

	seg := diffparse.Segment(diff)
	out.Warnings = seg.Warnings
	for _, w := range seg.Warnings {
		logger.Warn("segment dropped", "stage", StageSegment, "line", w.Line, "reason", w.Reason, "header", w.Header)
	}
	logger.Info("diff segmented", "stage", StageSegment, "files", len(seg.Changes))
	logger.Debug("segment order", "stage", StageSegment, "paths", seg.Paths())

	out.DiffTokens = p.budget.Estimate(diff)
	logger.Info("diff measured", "stage", StageBudget,
		"tokens", out.DiffTokens, "limit", p.tokenLimit, "tokenizer", p.budget.Name())

	dispatchStart := time.Now()
	out.Report = p.dispatcher.Dispatch(ctx, diff, seg.Changes)
	out.Timing.Dispatch = time.Since(dispatchStart)
	out.Mode = out.Report.Mode
	out.Degraded = out.Report.Degraded()
	logger.Info("reviews collected", "stage", StageDispatch,
		"mode", out.Mode, "requests", len(out.Report.Results), "degraded", out.Degraded)

	doc := output.Document{Report: out.Report}
	if out.Mode == review.ModePerFile {
		doc.Warnings = seg.Warnings
	}
	if err := p.writeReview(out, doc, opts, logger); err != nil {
		return out, err
	}

	out.Timing.Total = time.Since(start)
	return out, nil
}

// clearArtifacts removes the previous run's files so a failed or
// narrower run cannot leave stale results next to fresh ones.
func (p *Pipeline) clearArtifacts(logger *slog.Logger) error {
	for _, name := range []string{artifact.DiffFile, artifact.ReviewFile, artifact.HTMLFile} {
		if err := p.store.Remove(name); err != nil {
			return stageErr(StageWrite, err)
		}
	}
	logger.Debug("artifacts cleared", "stage", StageWrite, "dir", p.store.Dir())
	return nil
}

func (p *Pipeline) extract(ctx context.Context, opts Options, logger *slog.Logger) (gitctx.Resolution, string, error) {
	meta, err := p.repo.Meta(ctx)
	if err != nil {
		return gitctx.Resolution{}, "", stageErr(StageResolve, err)
	}
	logger.Info("repository opened", "stage", StageResolve, "root", meta.Root, "head", meta.Head)

	res, err := p.repo.Resolve(ctx, opts.Resolve)
	if err != nil {
		return res, "", stageErr(StageResolve, err)
	}
	logger.Info("refs resolved", "stage", StageResolve, "range", res.Range(), "target", res.Target)

	diff, err := p.repo.Diff(ctx, res.Left, res.Right, opts.Diff)
	if err != nil {
		return res, "", stageErr(StageExtract, err)
	}
	return res, diff, nil
}

func (p *Pipeline) writeReview(out *Outcome, doc output.Document, opts Options, logger *slog.Logger) error {
	md := output.Markdown(doc)

	var err error
	out.ReviewPath, err = p.store.Write(artifact.ReviewFile, md)
	if err != nil {
		return stageErr(StageWrite, err)
	}
	logger.Info("review written", "stage", StageWrite, "path", out.ReviewPath)

	if !opts.HTML {
		return nil
	}
	title := "Review of " + out.Resolution.Target
	out.HTMLPath, err = p.store.Write(artifact.HTMLFile, output.HTMLPage(title, md))
	if err != nil {
		return stageErr(StageWrite, err)
	}
	logger.Info("html review written", "stage", StageWrite, "path", out.HTMLPath)
	return nil
}
