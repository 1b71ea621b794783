package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tmix",
	Run: func(cmd *cobra.Command, args []string) {
		version := versionString()
		if version == "" {
			version = "unknown version"
		}

		fmt.Fprintf(cmd.OutOrStdout(), "tmix %s, %s/%s, commit: %s\n",
			version, runtime.GOOS, runtime.GOARCH, gitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
