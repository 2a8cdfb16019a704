package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sortgate/internal/client"
	"github.com/alfredjeanlab/sortgate/internal/ui"
)

var (
	httpURL    string
	jsonOutput bool
	noColor    bool

	gatewayClient client.GatewayClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("SORTGATE_HTTP_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:           "sortgate <command>",
	Short:         "Resilient gateway between sorting stations and the reference database",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ColorEnabled(cmd.OutOrStdout()) {
			ui.ForceNoColor()
		}
		gatewayClient = client.NewHTTPClient(httpURL)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if gatewayClient != nil {
			gatewayClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "gateway HTTP URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Data
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(binsCmd)
	rootCmd.AddCommand(binItemsCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
