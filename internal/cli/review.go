package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/branchreview/internal/artifact"
	"github.com/dshills/branchreview/internal/config"
	"github.com/dshills/branchreview/internal/gitctx"
	"github.com/dshills/branchreview/internal/pipeline"
	"github.com/dshills/branchreview/internal/providers"
	"github.com/dshills/branchreview/internal/redact"
	"github.com/dshills/branchreview/internal/review"
	"github.com/dshills/branchreview/internal/tokens"
)

var reviewCmd = &cobra.Command{
	Use:   "review [branch]",
	Short: "Review a branch against its baseline",
	Long: "Review the changes on a branch (default: the current branch) since it diverged from the " +
		"baseline. The raw diff is written to git.diff and the review to review.md.",
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

func init() {
	addReviewFlags(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	repo, err := openRepo()
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg, repo.WithLogger(logger), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out, err := p.Run(ctx, pipeline.Options{
		Resolve: resolveOptions(cfg, args),
		Diff:    diffOptions(cfg),
		HTML:    cfg.HTML,
	})
	if err != nil {
		return err
	}

	report(cmd, out)
	if out.Degraded > 0 && flagStrict {
		exitCode = ExitDegraded
	}
	return nil
}

// buildPipeline wires the collaborators for a review run.
func buildPipeline(cfg config.Config, repo *gitctx.Repo, logger *slog.Logger) (*pipeline.Pipeline, error) {
	budget, err := tokens.New(cfg.Tokenizer)
	if err != nil {
		return nil, configError(err)
	}

	completer, err := providers.New(providers.Settings{
		Provider:   cfg.Provider,
		Endpoint:   cfg.Endpoint,
		APIKey:     cfg.APIKey,
		APIVersion: cfg.APIVersion,
		Model:      cfg.Model,
		Timeout:    cfg.Review.Timeout.Std(),
	})
	if err != nil {
		return nil, configError(err)
	}

	framing, err := review.ParseFraming(cfg.Review.Framing)
	if err != nil {
		return nil, configError(err)
	}
	instruction := review.DefaultInstruction()
	if cfg.Review.PromptFile != "" {
		instruction, err = review.LoadInstruction(cfg.Review.PromptFile)
		if err != nil {
			return nil, configError(err)
		}
	}

	redactor := newRedactor(cfg)
	if !redactor.Patterns() {
		logger.Warn("secret redaction is disabled")
	}

	store, err := artifact.New(cfg.OutDir, cfg.APIKey)
	if err != nil {
		return nil, &codedError{code: ExitRuntimeError, err: err}
	}

	temperature, topP := cfg.Review.Temperature, cfg.Review.TopP
	dispatcher := review.NewDispatcher(completer, budget, review.Options{
		TokenLimit:        cfg.TokenLimit,
		Retries:           cfg.Review.Retries,
		RetryBackoff:      cfg.Review.RetryBackoff.Std(),
		Concurrency:       cfg.Review.Concurrency,
		RequestsPerMinute: cfg.Review.RequestsPerMinute,
		Framing:           framing,
		Instruction:       instruction,
		MaxTokens:         cfg.Review.MaxTokens,
		Temperature:       &temperature,
		TopP:              &topP,
		Redactor:          redactor,
	}, logger)

	return pipeline.New(pipeline.Deps{
		Repo:       repo,
		Budgeter:   budget,
		Dispatcher: dispatcher,
		Store:      store,
		TokenLimit: cfg.TokenLimit,
		Redactor:   redactor,
		Logger:     logger,
	}), nil
}

func report(cmd *cobra.Command, out *pipeline.Outcome) {
	w := cmd.ErrOrStderr()
	if out.NoChanges {
		status(w, color.FgGreen, "No changes between %s; nothing to review.", out.Resolution.Range())
	} else {
		status(w, color.FgCyan, "Reviewed %s (%s): %d tokens, limit %d, %s review, %d request(s)",
			out.Resolution.Target, out.Resolution.Range(), out.DiffTokens, out.TokenLimit,
			out.Mode, len(out.Report.Results))
		if out.Degraded > 0 {
			status(w, color.FgYellow, "%d review(s) unavailable; see placeholders in %s", out.Degraded, out.ReviewPath)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.ReviewPath)
	if out.HTMLPath != "" {
		fmt.Fprintln(cmd.OutOrStdout(), out.HTMLPath)
	}
	status(w, color.FgGreen, "Done in %s (git %s, review %s)",
		out.Timing.Total.Round(time.Millisecond), out.Timing.Git.Round(time.Millisecond),
		out.Timing.Dispatch.Round(time.Millisecond))
}

// newRedactor builds the outbound redaction policy. The credential is
// always scrubbed, even with --no-redact.
func newRedactor(cfg config.Config) *redact.Redactor {
	opts := redact.Options{Literals: []string{cfg.APIKey}}
	if cfg.Privacy.RedactSecrets && !flagNoRedact {
		opts.Patterns = true
		opts.Paths = cfg.Privacy.RedactPaths
	}
	return redact.New(opts)
}
