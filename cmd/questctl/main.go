package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "questctl",
		Short:         "Operator tool for Squad Quest housekeeping",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(resetWeeklyCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(tokenCmd())

	return rootCmd
}
