package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/agentstatus/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the agentstatus version",
	// Printing the version needs no configuration.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
