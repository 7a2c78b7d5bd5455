// Package cli implements the ringline command line interface.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/ringline/ringline/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"       _             _ _\n" +
		"  _ __(_)_ __   __ _| (_)_ __   ___\n" +
		" | '__| | '_ \\ / _` | | | '_ \\ / _ \\\n" +
		" | |  | | | | | (_| | | | | | |  __/\n" +
		" |_|  |_|_| |_|\\__, |_|_|_| |_|\\___|\n" +
		"               |___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "ringline",
	Short: "Ringline - phone voice bot",
	Long:  color.CyanString(logo) + "\nA conversation orchestration core for phone voice bots.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(title))
	fmt.Println()
}
