package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/dshills/branchreview/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage branchreview configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Config file already exists at %s\n", path)
			return nil
		}

		if _, err := config.Save(config.Default(), path); err != nil {
			return configError(fmt.Errorf("writing config: %w", err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Config file created at %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}

		// Only the file is edited; environment and flags must not leak in.
		cfg := config.Default()
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return configError(fmt.Errorf("parsing %s: %w", path, err))
			}
		}

		if err := config.SetField(&cfg, args[0], args[1]); err != nil {
			return configError(err)
		}

		if _, err := config.Save(cfg, path); err != nil {
			return configError(fmt.Errorf("saving config: %w", err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if err := toml.NewEncoder(w).Encode(cfg); err != nil {
			return err
		}

		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
		fmt.Fprintf(tw, "# credential (%s)\t%s\n", config.KeyVar(cfg.Provider), cfg.MaskedKey())
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(tw, "# status\t%v\n", err)
		} else {
			fmt.Fprintln(tw, "# status\tready")
		}
		return tw.Flush()
	},
}

func configFilePath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", configError(err)
	}
	return path, nil
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}
