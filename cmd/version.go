package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luma/regbridge/internal/meta"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build information",
	Args:  cobra.NoArgs,

	Run: func(cmd *cobra.Command, args []string) {
		info := meta.GetInfo()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "regbridge %s (protocol %q)\n", info.Version, info.Protocol)
		fmt.Fprintf(out, "  build:    %s on %s\n", info.Build, info.Branch)
		fmt.Fprintf(out, "  built at: %s\n", info.BuildTime)
		fmt.Fprintf(out, "  platform: %s, %s\n", info.Platform, info.GoVersion)
	},
}
