package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sortgate/internal/model"
)

var sendCmd = &cobra.Command{
	Use:     "send <trashbin-name> <item-name>",
	Short:   "Record that an item was put in a trash bin",
	GroupID: "data",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dirty, _ := cmd.Flags().GetBool("dirty")
		w := model.SelectionWrite{Location: args[0], Item: args[1], Dirty: dirty}
		if err := model.ValidateSelection(w); err != nil {
			return err
		}

		resp, err := gatewayClient.Send(cmd.Context(), w)
		if err != nil {
			return fmt.Errorf("sending selection: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		printSelection(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	sendCmd.Flags().Bool("dirty", false, "mark the item as dirty")
}
