package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/extbuild/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete the generated bundles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, _ := cmd.Flags().GetBool("cache")
			return c.app.Clean(cmd.Context(), app.CleanOptions{Cache: cache})
		},
	}

	cmd.Flags().Bool("cache", false, "Also remove the build cache")

	return cmd
}
