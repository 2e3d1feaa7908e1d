package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/relay/cli/internal/config"
	"github.com/telhawk-systems/relay/cli/pkg/output"
)

// NewRootCmd builds the relayctl command tree. Each call returns a fresh
// tree with its own flag state.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		noColor bool
		cfg     = config.Default()
	)

	rootCmd := &cobra.Command{
		Use:   "relayctl",
		Short: "Relay command-line tool",
		Long: `relayctl talks to the relay services from your terminal.

Submit messages through the intake service, forward payloads straight to
the ingestion listener, seed test traffic, and print the effective
service configuration.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				output.DisableColor()
			}
			loaded, err := config.Load(cfgFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
				return nil
			}
			*cfg = *loaded
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "relayctl config file (default: $HOME/.relayctl/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newSubmitCmd(cfg),
		newForwardCmd(cfg),
		newSeedCmd(cfg),
		newConfigCmd(cfg),
	)

	return rootCmd
}

func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		output.Error("%v", err)
	}
	return err
}

// stringFlag returns the flag value, or fallback when the flag was left empty.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return fallback
	}
	return v
}
