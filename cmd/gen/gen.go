package gen

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/luma/regbridge/internal/meta"
)

// NewCmd builds the gen command and its man and markdown generators.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate regbridge documentation",
	}

	cmd.AddCommand(
		newDocCmd("man", "man pages", func(root *cobra.Command, dir string) error {
			return doc.GenManTree(root, &doc.GenManHeader{
				Section: "1",
				Manual:  "regbridge Manual",
				Source:  fmt.Sprintf("regbridge %s", meta.Version),
			}, dir)
		}),
		newDocCmd("markdown", "markdown pages", doc.GenMarkdownTree),
	)

	return cmd
}

// newDocCmd wraps a cobra/doc tree generator in a command that writes into
// --dir, creating it when missing.
func newDocCmd(name, what string, generate func(root *cobra.Command, dir string) error) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   name,
		Short: "Generate " + what + " for regbridge",
		Long: fmt.Sprintf(`Generate up-to-date %s for regbridge and its subcommands, one
file per command, in --dir.`, what),
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if err := os.MkdirAll(dir, 0o750); err != nil {
				return err
			}

			root := cmd.Root()
			root.DisableAutoGenTag = true

			fmt.Fprintf(out, "Writing %s to %s\n", what, dir)
			if err := generate(root, dir); err != nil {
				return fmt.Errorf("generating %s: %w", what, err)
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dir, "dir", name, "The directory to write into")

	// For bash-completion
	if err := flags.SetAnnotation("dir", cobra.BashCompSubdirsInDir, []string{}); err != nil {
		panic(err)
	}

	return cmd
}
