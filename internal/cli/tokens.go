package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/branchreview/internal/tokens"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens [file...]",
	Short: "Estimate the token count of files or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		budget, err := tokens.New(cfg.Tokenizer)
		if err != nil {
			return configError(err)
		}

		w := cmd.OutOrStdout()
		if len(args) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			fmt.Fprintf(w, "%d\n", budget.Estimate(string(data)))
			return nil
		}

		total := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return &codedError{code: ExitRuntimeError, err: err}
			}
			n := budget.Estimate(string(data))
			total += n
			fmt.Fprintf(w, "%d\t%s\n", n, path)
		}
		if len(args) > 1 {
			fmt.Fprintf(w, "%d\ttotal\n", total)
		}
		return nil
	},
}

func init() {
	tokensCmd.Flags().String("tokenizer", "", "Tokenizer (tiktoken model or encoding name, or heuristic)")
}
