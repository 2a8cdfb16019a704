package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sortgate/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Replay pending writes and refresh the cache now",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := gatewayClient.Sync(cmd.Context())
		if err != nil {
			return fmt.Errorf("syncing: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.RenderOK(res.Message))
		fmt.Fprintf(out, "  Replayed:      %d\n", res.Replayed)
		fmt.Fprintf(out, "  Items:         %d\n", res.ItemsCount)
		fmt.Fprintf(out, "  Trash bins:    %d\n", res.TrashBinsCount)
		fmt.Fprintf(out, "  Still pending: %d\n", res.PendingPostsCount)
		return nil
	},
}
