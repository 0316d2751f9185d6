package main

import (
	"github.com/evmtools/ethcli/core"
	"github.com/spf13/cobra"
)

func newEventCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "event",
		Short: "Event related operations (not implemented)",
		RunE: func(c *cobra.Command, args []string) error {
			action := ""
			if len(args) > 0 {
				action = args[0]
			}
			return execute(c, opts, &core.Command{Resource: "event", Action: action})
		},
	}
}
