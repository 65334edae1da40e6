// Package cmd implements the chattmt CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "chattmt",
	Short: "chattmt — conversational assistant with session memory",
	Long: "chattmt — a conversational assistant that compresses long histories\n" +
		"into a structured session memory and decides per turn whether to\n" +
		"rewrite, augment, clarify or answer.",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(statusCmd)
}
