package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display version information for the AWS snapshot utility.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "AWS Snapshot Utility (shotty)")
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
