package main

import (
	"fmt"

	"github.com/alexandre-normand/chatrelay/config"
	"github.com/alexandre-normand/chatrelay/synclink"
	"github.com/spf13/cobra"
)

func newLinksCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "List the persisted links",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewViperFromFile(*configPath)
			if err != nil {
				return err
			}

			name := v.GetString(config.NameKey)
			storer, err := newStorer(v, name)
			if err != nil {
				return err
			}
			defer storer.Close()

			registry, err := synclink.NewRegistry(name, storer, synclink.OptionDefaultExternalTag(v.GetString(config.SlackTeamTagKey)))
			if err != nil {
				return err
			}

			links := registry.All()
			if len(links) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No links configured")
				return nil
			}

			for _, l := range links {
				fmt.Fprintln(cmd.OutOrStdout(), l.String())
			}

			return nil
		},
	}
}
