package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/dshills/branchreview/internal/diffparse"
	"github.com/dshills/branchreview/internal/providers"
	"github.com/dshills/branchreview/internal/redact"
	"github.com/dshills/branchreview/internal/tokens"
)

// Defaults applied by NewDispatcher to zero options.
const (
	DefaultTokenLimit  = 6000
	DefaultRetries     = 2
	DefaultConcurrency = 4
)

// Options controls dispatch.
type Options struct {
	TokenLimit int
	// Retries is the number of extra attempts after a failed call.
	// Negative means none.
	Retries int
	// RetryBackoff is the first retry delay, doubling after that. Zero
	// retries immediately.
	RetryBackoff      time.Duration
	Concurrency       int
	RequestsPerMinute int
	Framing           Framing
	Instruction       string
	MaxTokens         int
	Temperature       *float64
	TopP              *float64
	// Redactor cleans payloads before they leave the process. Nil sends
	// them unchanged.
	Redactor *redact.Redactor
}

// Dispatcher plans and sends review requests.
type Dispatcher struct {
	completer providers.Completer
	budget    *tokens.Budgeter
	opts      Options
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil logger uses slog.Default().
func NewDispatcher(c providers.Completer, b *tokens.Budgeter, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TokenLimit <= 0 {
		opts.TokenLimit = DefaultTokenLimit
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Framing == "" {
		opts.Framing = FramingSystem
	}
	if opts.Instruction == "" {
		opts.Instruction = defaultInstruction
	}

	d := &Dispatcher{
		completer: c,
		budget:    b,
		opts:      opts,
		logger:    logger,
	}
	if opts.RequestsPerMinute > 0 {
		d.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return d
}

// TokenLimit returns the limit that selects whole-diff review.
func (d *Dispatcher) TokenLimit() int {
	return d.opts.TokenLimit
}

// Plan decides between whole-diff and per-file review and builds the
// requests. Per-file requests follow the order of changes.
func (d *Dispatcher) Plan(diff string, changes []diffparse.FileChange) (Mode, []Request) {
	if diff == "" {
		return ModeNone, nil
	}

	total := d.budget.Estimate(diff)
	if total <= d.opts.TokenLimit {
		d.logger.Info("diff fits token limit; reviewing whole diff", "tokens", total, "limit", d.opts.TokenLimit)
		payload := d.redactWhole(diff, changes)
		return ModeWhole, []Request{{Index: 0, Payload: payload, Tokens: total}}
	}

	d.logger.Info("diff exceeds token limit; reviewing per file",
		"tokens", total, "limit", d.opts.TokenLimit, "files", len(changes))
	reqs := make([]Request, len(changes))
	for i, fc := range changes {
		payload := PerFilePayload(d.opts.Redactor, fc)
		n := d.budget.Estimate(payload)
		if n > d.opts.TokenLimit {
			d.logger.Warn("file exceeds token limit; sending whole",
				"path", fc.Path, "tokens", n, "limit", d.opts.TokenLimit)
		}
		reqs[i] = Request{Index: i, Path: fc.Path, Payload: payload, Tokens: n}
	}
	return ModePerFile, reqs
}

func (d *Dispatcher) redactWhole(diff string, changes []diffparse.FileChange) string {
	r := d.opts.Redactor
	for _, fc := range changes {
		if !r.Withholds(fc.Path) {
			continue
		}
		rebuilt := make([]diffparse.FileChange, len(changes))
		for i, c := range changes {
			c.Body = r.File(c.Path, c.Body)
			rebuilt[i] = c
		}
		return r.Text(diffparse.Reassemble(rebuilt))
	}
	return r.Text(diff)
}

// Dispatch plans the requests for diff and sends them.
func (d *Dispatcher) Dispatch(ctx context.Context, diff string, changes []diffparse.FileChange) Report {
	mode, reqs := d.Plan(diff, changes)
	return Report{Mode: mode, Results: d.Send(ctx, reqs)}
}

// Send issues every request and returns one Result per request, in
// request order. Cancellation of ctx stops new dispatches; calls already
// started finish on their own.
func (d *Dispatcher) Send(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	p := pool.New().WithMaxGoroutines(d.opts.Concurrency)

	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("skipping request", "path", req.Path, "error", context.Cause(ctx))
			results[i] = skipped(req, context.Cause(ctx))
			continue
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				results[i] = skipped(req, err)
				continue
			}
		}
		p.Go(func() {
			// The pool may have held this request while earlier ones ran.
			if ctx.Err() != nil {
				results[i] = skipped(req, context.Cause(ctx))
				return
			}
			results[i] = d.send(ctx, req)
		})
	}
	p.Wait()
	return results
}

// send runs one request through the retry policy. Each call runs on a
// context detached from ctx; ctx only stops further attempts.
func (d *Dispatcher) send(ctx context.Context, req Request) Result {
	callCtx := context.WithoutCancel(ctx)
	creq := providers.CompletionRequest{
		Messages:    Messages(d.opts.Framing, d.opts.Instruction, req.Payload),
		MaxTokens:   d.opts.MaxTokens,
		Temperature: d.opts.Temperature,
		TopP:        d.opts.TopP,
	}

	var (
		resp     providers.CompletionResponse
		lastErr  error
		attempts int
	)
	op := func() error {
		attempts++
		start := time.Now()
		r, err := d.completer.Complete(callCtx, creq)
		if err != nil {
			lastErr = err
			return err
		}
		d.logger.Debug("review received",
			"path", req.Path, "attempt", attempts, "tokens", r.TokensUsed, "elapsed", time.Since(start))
		resp = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		d.logger.Warn("review request failed; retrying",
			"path", req.Path, "attempt", attempts, "retry_in", wait, "class", providers.Class(err), "error", err)
	}

	if err := backoff.RetryNotify(op, d.retryPolicy(ctx), notify); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		d.logger.Error("review unavailable",
			"path", req.Path, "attempt", attempts, "class", providers.Class(lastErr), "error", lastErr)
		return unavailable(req, attempts, lastErr)
	}

	return Result{
		Index:      req.Index,
		Path:       req.Path,
		Text:       resp.Content,
		Attempts:   attempts,
		TokensUsed: resp.TokensUsed,
	}
}

func (d *Dispatcher) retryPolicy(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if d.opts.RetryBackoff > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = d.opts.RetryBackoff
		eb.MaxElapsedTime = 0
		b = eb
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.opts.Retries)), ctx)
}
