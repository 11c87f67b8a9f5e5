package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/arbor/internal/cli"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the bookmark tree",
	Long: `Prints every group with its bookmarks. Line bookmarks are nested under their file.
With --watch the tree is printed again whenever the source changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		format, _ := cmd.Flags().GetString("format")
		popup, _ := cmd.Flags().GetBool("popup")
		watch, _ := cmd.Flags().GetBool("watch")
		noColor, _ := cmd.Flags().GetBool("no-color")

		width := 0
		if term.IsTerminal(int(os.Stdout.Fd())) {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = w
			}
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.RunTree(sigCtx, cli.TreeOptions{
			ConfigPath: configPath,
			Debug:      debug,
			Format:     format,
			Popup:      popup,
			Watch:      watch,
			NoColor:    noColor,
			Width:      width,
			Out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().StringP("format", "f", cli.FormatText, "Output format: text, mermaid or json")
	treeCmd.Flags().Bool("popup", false, "Show line bookmarks only")
	treeCmd.Flags().BoolP("watch", "w", false, "Print the tree again on every source change")
	treeCmd.Flags().Bool("no-color", false, "Disable colors")

	// 'tree' is the default command.
	rootCmd.RunE = treeCmd.RunE
	rootCmd.Flags().AddFlagSet(treeCmd.Flags())
}
