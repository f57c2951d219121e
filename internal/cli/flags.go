package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dshills/branchreview/internal/config"
	"github.com/dshills/branchreview/internal/gitctx"
)

// Repository and branch flags shared by review and segments.
var (
	flagRepo        string
	flagGitDir      string
	flagWorkTree    string
	flagWorkingTree bool
)

// Review-only flags that are not config keys.
var (
	flagStrict   bool
	flagNoRedact bool
)

// configFlags maps flag names to the config keys they override.
var configFlags = map[string]string{
	"baseline":            "baseline",
	"remote":              "remote",
	"diff-base":           "diff_base",
	"context-lines":       "context_lines",
	"include":             "include",
	"exclude":             "exclude",
	"token-limit":         "token_limit",
	"tokenizer":           "tokenizer",
	"out-dir":             "out_dir",
	"html":                "html",
	"provider":            "provider",
	"model":               "model",
	"framing":             "review.framing",
	"prompt-file":         "review.prompt_file",
	"retries":             "review.retries",
	"concurrency":         "review.concurrency",
	"requests-per-minute": "review.requests_per_minute",
	"timeout":             "review.timeout",
}

func addRepoFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&flagRepo, "repo", "", "Repository directory (default: current directory)")
	f.StringVar(&flagGitDir, "git-dir", "", "Git directory, for a split git-dir/work-tree layout")
	f.StringVar(&flagWorkTree, "work-tree", "", "Work tree, for a split git-dir/work-tree layout")
	f.BoolVar(&flagWorkingTree, "working-tree", false, "Include uncommitted changes (target must be checked out)")
	f.String("baseline", "", "Baseline branch (default main)")
	f.String("remote", "", "Remote used to fetch missing branches (default origin)")
	f.String("diff-base", "", "Diff from the merge-base or the baseline tip (merge-base, tip)")
	f.Int("context-lines", 0, "Context lines in the diff")
	f.String("include", "", "Only diff these path globs (comma-separated)")
	f.String("exclude", "", "Leave these path globs out of the diff (comma-separated)")
	f.Int("token-limit", 0, "Largest diff sent as one request")
	f.String("tokenizer", "", "Tokenizer for budgeting (tiktoken model or encoding name, or heuristic)")
}

func addReviewFlags(cmd *cobra.Command) {
	addRepoFlags(cmd)
	f := cmd.Flags()
	f.String("out-dir", "", "Directory for git.diff and review.md")
	f.Bool("html", false, "Also write review.html")
	f.String("provider", "", "Completion provider (azure, openai, github, ollama, anthropic)")
	f.String("model", "", "Model or deployment name")
	f.String("framing", "", "Prompt framing (system, inline, assistant)")
	f.String("prompt-file", "", "File holding a replacement review instruction")
	f.Int("retries", 0, "Retries per request after a failure")
	f.Int("concurrency", 0, "Requests in flight at once")
	f.Int("requests-per-minute", 0, "Request rate cap (0 means none)")
	f.Duration("timeout", 0, "Per-request timeout")
	f.BoolVar(&flagStrict, "strict", false, "Exit 1 when any review is unavailable")
	f.BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
}

// buildOverrides collects the config flags the user actually set.
func buildOverrides(fs *pflag.FlagSet) map[string]string {
	m := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		if key, ok := configFlags[f.Name]; ok {
			m[key] = f.Value.String()
		}
	})
	return m
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		File:      flagConfig,
		DotEnv:    ".env",
		Overrides: buildOverrides(cmd.Flags()),
	})
	if err != nil {
		return config.Config{}, configError(err)
	}
	return cfg, nil
}

func openRepo() (*gitctx.Repo, error) {
	if flagGitDir != "" || flagWorkTree != "" {
		if flagRepo != "" {
			return nil, errors.New("--repo cannot be combined with --git-dir or --work-tree")
		}
		return gitctx.OpenSplit(flagGitDir, flagWorkTree), nil
	}
	return gitctx.Open(flagRepo), nil
}

func resolveOptions(cfg config.Config, args []string) gitctx.ResolveOptions {
	opts := gitctx.ResolveOptions{
		Baseline:    cfg.Baseline,
		Remote:      cfg.Remote,
		Base:        gitctx.DiffBase(cfg.DiffBase),
		WorkingTree: flagWorkingTree,
	}
	if len(args) > 0 {
		opts.Target = args[0]
	}
	return opts
}

func diffOptions(cfg config.Config) gitctx.DiffOptions {
	return gitctx.DiffOptions{
		ContextLines: cfg.ContextLines,
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
	}
}
