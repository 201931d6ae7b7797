// Package cmd defines and implements the CLI commands for the scope crawler.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bounty-scope-crawler",
		Short: "Collects in-scope domains from public bug bounty programs.",
		Long: `bounty-scope-crawler walks the public program directory, visits every
program page, and records each in-scope domain together with the program
it came from. Pages are fetched through a chain of backends so a blocked
or failing path falls through to the next one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML, or JSON)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
