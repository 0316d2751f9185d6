package main

import (
	"github.com/defiweb/go-eth/types"
	"github.com/evmtools/ethcli/core"
	"github.com/spf13/cobra"
)

func newAccountCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account related operations",
	}
	cmd.PersistentFlags().String("address", "", "Ethereum address of the account")
	cmd.PersistentFlags().String("ens", "", "ENS name of the account")
	registerSelectorFlags(cmd.PersistentFlags(), "block-hash", "block-number", "block-tag")

	run := func(action string, slot *string) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			address, err := c.Flags().GetString("address")
			if err != nil {
				return err
			}
			ens, err := c.Flags().GetString("ens")
			if err != nil {
				return err
			}
			account, err := core.NewAccountIdentifier(address, ens)
			if err != nil {
				return err
			}
			sel, err := selectorFromFlags(c.Flags(), "block-hash", "block-number", "block-tag")
			if err != nil {
				return err
			}
			command := &core.Command{
				Resource: "account",
				Action:   action,
				Account:  account,
				Block:    sel,
			}
			if slot != nil && *slot != "" {
				h, err := types.HashFromHex(*slot, types.PadLeft)
				if err != nil {
					return core.NewValidationError("invalid --slot value " + *slot)
				}
				command.Slot = &h
			}
			return execute(c, opts, command)
		}
	}

	storageAt := &cobra.Command{
		Use:   "storage-at",
		Short: "Gets the data stored in the provided slot of the account",
	}
	var slot string
	storageAt.Flags().StringVar(&slot, "slot", "", "Storage slot to read, hex encoded")
	storageAt.RunE = run("storage-at", &slot)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "balance",
			Short: "Gets the balance of the account",
			RunE:  run("balance", nil),
		},
		&cobra.Command{
			Use:   "code",
			Short: "Gets the bytecode deployed at the account address",
			RunE:  run("code", nil),
		},
		&cobra.Command{
			Use:   "nonce",
			Short: "Gets the next nonce for the account, including pending transactions",
			RunE:  run("nonce", nil),
		},
		&cobra.Command{
			Use:   "transaction-count",
			Short: "Gets the number of transactions sent from the account",
			RunE:  run("transaction-count", nil),
		},
		storageAt,
	)
	return cmd
}
