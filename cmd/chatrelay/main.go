// Command chatrelay relays messages between host conversations and slack channels
package main

import (
	"fmt"
	"os"

	"github.com/alexandre-normand/chatrelay"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "chatrelay",
		Short:        "Relay messages between host conversations and slack channels",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "chatrelay.yaml", "path to the configuration file")
	root.AddCommand(newLinksCmd(&configPath))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the relay version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatrelay v%s\n", chatrelay.VERSION)
		},
	})

	return root
}
