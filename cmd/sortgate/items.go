package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:     "items",
	Short:   "List recyclable items",
	GroupID: "data",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := gatewayClient.Items(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing items: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		printRecordsTable(cmd.OutOrStdout(), resp, "items")
		return nil
	},
}

var binsCmd = &cobra.Command{
	Use:     "bins",
	Short:   "List trash bins",
	GroupID: "data",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := gatewayClient.TrashBins(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing trash bins: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		printRecordsTable(cmd.OutOrStdout(), resp, "trash bins")
		return nil
	},
}

var binItemsCmd = &cobra.Command{
	Use:     "bin-items <trashbin-id>",
	Short:   "List the items that belong in a trash bin",
	GroupID: "data",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid trash bin id %q: must be an integer", args[0])
		}
		resp, err := gatewayClient.TrashBinItems(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("listing items for trash bin %d: %w", id, err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		out := cmd.OutOrStdout()
		for _, name := range resp.Items {
			fmt.Fprintln(out, name)
		}
		fmt.Fprintf(out, "\n%d items in bin %d from %s\n", len(resp.Items), resp.TrashBinID, formatSource(resp.Source, resp.LastUpdated))
		return nil
	},
}
