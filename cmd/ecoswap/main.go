package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "ecoswap",
	Short: "Community exchange for borrowing, recycling and repairing items",
	Long: `ecoswap lists items people are willing to lend, finds the closest
matches for a search, and uses a local language model to filter results and
suggest what to do with things nobody needs anymore.

Run "ecoswap start" to serve the HTTP API, then use the other commands as a
client.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/ecoswap/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd, mcpCmd)
	rootCmd.AddCommand(searchCmd, submitCmd, discoverCmd, nearbyCmd, assistCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
