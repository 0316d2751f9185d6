package main

import (
	"github.com/defiweb/go-eth/hexutil"
	"github.com/evmtools/ethcli/core"
	"github.com/spf13/cobra"
)

func newUtilsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "utils",
		Short: "Collection of utils",
	}

	run := func(action string) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			return execute(c, opts, &core.Command{Resource: "utils", Action: action})
		}
	}

	sign := &cobra.Command{
		Use:   "sign",
		Short: "Signs raw data or a transaction with the configured private key, without submitting",
		RunE: func(c *cobra.Command, args []string) error {
			command := &core.Command{Resource: "utils", Action: "sign"}

			raw, err := c.Flags().GetString("raw")
			if err != nil {
				return err
			}
			if raw != "" {
				b, err := hexutil.HexToBytes(raw)
				if err != nil {
					return core.NewValidationError("invalid --raw hex: " + err.Error())
				}
				command.Data = b
			} else {
				if command.Request, err = txRequestFromFlags(c.Flags()); err != nil {
					return err
				}
			}
			return execute(c, opts, command)
		},
	}
	sign.Flags().String("raw", "", "Raw byte data to sign instead of a transaction, hex encoded")
	registerTxFlags(sign.Flags())

	cmd.AddCommand(
		&cobra.Command{
			Use:   "accounts",
			Short: "Gets the accounts known by the node",
			RunE:  run("accounts"),
		},
		&cobra.Command{
			Use:   "chain-id",
			Short: "Gets the chain id from the node",
			RunE:  run("chain-id"),
		},
		&cobra.Command{
			Use:   "protocol-version",
			Short: "Gets the ethereum protocol version",
			RunE:  run("protocol-version"),
		},
		&cobra.Command{
			Use:   "sync-status",
			Short: "Gets the current sync status of the node",
			RunE:  run("sync-status"),
		},
		sign,
	)
	return cmd
}
