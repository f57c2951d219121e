package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/branchreview/internal/pipeline"
	"github.com/dshills/branchreview/internal/tokens"
)

var segmentsCmd = &cobra.Command{
	Use:   "segments [branch]",
	Short: "Show how a branch's diff splits into files and what each costs",
	Long: "Resolve and extract the diff exactly as review does, split it per file and print each " +
		"file's token estimate against the limit. Nothing is sent and no credentials are needed.",
	Args: cobra.MaximumNArgs(1),
	RunE: runSegments,
}

func init() {
	addRepoFlags(segmentsCmd)
}

func runSegments(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateLocal(); err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	budget, err := tokens.New(cfg.Tokenizer)
	if err != nil {
		return configError(err)
	}
	repo, err := openRepo()
	if err != nil {
		return err
	}
	p := pipeline.New(pipeline.Deps{
		Repo:       repo.WithLogger(logger),
		Budgeter:   budget,
		TokenLimit: cfg.TokenLimit,
		Redactor:   newRedactor(cfg),
		Logger:     logger,
	})

	in, err := p.Inspect(cmd.Context(), pipeline.Options{
		Resolve: resolveOptions(cfg, args),
		Diff:    diffOptions(cfg),
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	mode := "per-file"
	if in.WholeFits {
		mode = "whole"
	}
	if in.DiffTokens == 0 {
		mode = "none"
	}
	fmt.Fprintf(w, "%s %s: %d tokens (limit %d, %s review, tokenizer %s)\n",
		in.Resolution.Target, in.Resolution.Range(), in.DiffTokens, in.TokenLimit, mode, budget.Name())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tTOKENS\tFITS")
	for _, f := range in.Files {
		fits := "yes"
		if !f.Fits {
			fits = "no"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", f.Path, f.Tokens, fits)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, warn := range in.Warnings {
		fmt.Fprintf(w, "warning: segment dropped at %s\n", warn)
	}
	return nil
}
