package main

import (
	"github.com/defiweb/go-eth/types"
	"github.com/evmtools/ethcli/core"
	"github.com/spf13/cobra"
)

func newTransactionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transaction",
		Short: "Transaction related operations",
	}
	cmd.PersistentFlags().String("hash", "", "Hash of the target transaction")
	registerSelectorFlags(cmd.PersistentFlags(), "block-hash", "block-number", "block-tag")
	cmd.PersistentFlags().Uint64("index", 0, "Index of the transaction within the selected block")

	baseCommand := func(c *cobra.Command, action string) (*core.Command, error) {
		command := &core.Command{Resource: "transaction", Action: action}

		hash, err := c.Flags().GetString("hash")
		if err != nil {
			return nil, err
		}
		if hash != "" {
			h, err := types.HashFromHex(hash, types.PadNone)
			if err != nil {
				return nil, core.NewValidationError("invalid transaction hash " + hash)
			}
			command.TxHash = &h
		}

		if command.Block, err = selectorFromFlags(c.Flags(), "block-hash", "block-number", "block-tag"); err != nil {
			return nil, err
		}
		if command.Index, err = flagUint64Ptr(c.Flags(), "index"); err != nil {
			return nil, err
		}
		return command, nil
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Gets a transaction by hash, or by block identifier and index",
		RunE: func(c *cobra.Command, args []string) error {
			command, err := baseCommand(c, "get")
			if err != nil {
				return err
			}
			return execute(c, opts, command)
		},
	}

	receipt := &cobra.Command{
		Use:   "receipt",
		Short: "Gets the receipt of a mined transaction",
		RunE: func(c *cobra.Command, args []string) error {
			command, err := baseCommand(c, "receipt")
			if err != nil {
				return err
			}
			return execute(c, opts, command)
		},
	}

	call := &cobra.Command{
		Use:   "call",
		Short: "Executes a read-only call against the selected block",
		RunE: func(c *cobra.Command, args []string) error {
			command, err := baseCommand(c, "call")
			if err != nil {
				return err
			}
			if command.Request, err = txRequestFromFlags(c.Flags()); err != nil {
				return err
			}
			return execute(c, opts, command)
		},
	}
	registerTxFlags(call.Flags())

	sendRun := func(action string) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			command, err := baseCommand(c, action)
			if err != nil {
				return err
			}
			if command.Request, err = txRequestFromFlags(c.Flags()); err != nil {
				return err
			}
			if command.Wait, err = c.Flags().GetBool("wait"); err != nil {
				return err
			}
			if command.WaitTimeout, err = c.Flags().GetDuration("confirmation-timeout"); err != nil {
				return err
			}
			if action == "send-raw" {
				// --data carries the already-signed RLP bytes here.
				command.RawTx = command.Request.Data
				command.Request = nil
			}
			return execute(c, opts, command)
		}
	}

	send := &cobra.Command{
		Use:   "send",
		Short: "Signs a transaction with the configured private key and submits it via eth_sendRawTransaction",
		RunE:  sendRun("send"),
	}
	sendNode := &cobra.Command{
		Use:   "send-node",
		Short: "Submits an unsigned transaction via eth_sendTransaction for node-side signing",
		RunE:  sendRun("send-node"),
	}
	sendRaw := &cobra.Command{
		Use:   "send-raw",
		Short: "Submits already-signed transaction bytes via eth_sendRawTransaction",
		RunE:  sendRun("send-raw"),
	}
	for _, sc := range []*cobra.Command{send, sendNode, sendRaw} {
		registerTxFlags(sc.Flags())
		sc.Flags().Bool("wait", false, "Wait for the transaction receipt before exiting")
		sc.Flags().Duration("confirmation-timeout", core.DefaultConfirmationTimeout, "How long to poll for the receipt when --wait is set")
	}

	cmd.AddCommand(get, receipt, call, send, sendNode, sendRaw)
	return cmd
}
