package main

import (
	"github.com/evmtools/ethcli/core"
	"github.com/spf13/cobra"
)

func newBlockCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Block related operations",
	}
	registerSelectorFlags(cmd.PersistentFlags(), "hash", "number", "tag")

	run := func(action string, includeTx bool) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			sel, err := selectorFromFlags(c.Flags(), "hash", "number", "tag")
			if err != nil {
				return err
			}
			return execute(c, opts, &core.Command{
				Resource:  "block",
				Action:    action,
				Block:     sel,
				IncludeTx: includeTx,
			})
		}
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Gets a block using the provided identifier",
		RunE: func(c *cobra.Command, args []string) error {
			includeTx, err := c.Flags().GetBool("include-tx")
			if err != nil {
				return err
			}
			return run("get", includeTx)(c, args)
		},
	}
	get.Flags().Bool("include-tx", false, "Include full transaction objects instead of hashes")

	cmd.AddCommand(
		get,
		&cobra.Command{
			Use:   "number",
			Short: "Gets the number of the most recent block",
			RunE:  run("number", false),
		},
		&cobra.Command{
			Use:   "transaction-count",
			Short: "Gets the number of transactions in the block with the provided identifier",
			RunE:  run("transaction-count", false),
		},
		&cobra.Command{
			Use:   "uncle-count",
			Short: "Gets the number of uncle blocks for the block with the provided identifier",
			RunE:  run("uncle-count", false),
		},
		&cobra.Command{
			Use:   "receipts",
			Short: "Gets the transaction receipts for the block with the provided identifier",
			RunE:  run("receipts", false),
		},
	)
	return cmd
}
