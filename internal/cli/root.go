package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/branchreview/internal/config"
	"github.com/dshills/branchreview/internal/gitctx"
	"github.com/dshills/branchreview/internal/pipeline"
)

// version is overridden at build time with -ldflags "-X".
var version = "0.1.0"

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitDegraded     = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitRuntimeError = 4
)

// Global flags
var (
	flagConfig  string
	flagVerbose bool
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "branchreview",
	Short: "Review a branch's changes with an LLM",
	Long: "branchreview diffs a branch against its baseline, sends the diff (or each file, " +
		"when the diff is too large) to a chat completion service and writes the review to review.md.",
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Flags parsed; errors from here on are not usage errors.
		cmd.SilenceUsage = true
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: $XDG_CONFIG_HOME/branchreview/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors; no status lines")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(segmentsCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Run executes the root command and returns an exit code.
func Run() int {
	return execute(os.Args[1:], os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) int {
	exitCode = ExitSuccess
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}
	return exitCode
}

// exitCode is set by command handlers that succeed with a non-zero status.
var exitCode = ExitSuccess

// codedError carries an explicit exit code.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func configError(err error) error {
	return &codedError{code: ExitConfigError, err: err}
}

// exitCodeFor maps a command error to an exit code. Errors that carry no
// classification are cobra's own argument and flag errors.
func exitCodeFor(err error) int {
	var (
		coded *codedError
		verr  *config.ValidationError
		stage *pipeline.StageError
		cmd   *gitctx.CommandError
	)
	switch {
	case errors.As(err, &coded):
		return coded.code
	case errors.As(err, &verr):
		return ExitConfigError
	case errors.As(err, &stage), errors.As(err, &cmd):
		return ExitRuntimeError
	default:
		return ExitUsageError
	}
}

// newLogger builds the process logger. --verbose and --quiet win over
// the configured level.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch {
	case flagVerbose:
		lvl = slog.LevelDebug
	case flagQuiet:
		lvl = slog.LevelWarn
	default:
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl = slog.LevelInfo
		}
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// status prints a human status line unless --quiet is set.
func status(w io.Writer, attr color.Attribute, format string, args ...any) {
	if flagQuiet {
		return
	}
	color.New(attr).Fprintf(w, strings.TrimRight(format, "\n")+"\n", args...)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print branchreview version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "branchreview version %s\n", version)
	},
}
