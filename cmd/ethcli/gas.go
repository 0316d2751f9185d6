package main

import (
	"github.com/evmtools/ethcli/core"
	"github.com/spf13/cobra"
)

func newGasCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gas",
		Short: "Gas related operations",
	}

	run := func(action string) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			return execute(c, opts, &core.Command{Resource: "gas", Action: action})
		}
	}

	estimate := &cobra.Command{
		Use:   "estimate",
		Short: "Estimates the gas used by the provided transaction",
		RunE: func(c *cobra.Command, args []string) error {
			req, err := txRequestFromFlags(c.Flags())
			if err != nil {
				return err
			}
			sel, err := selectorFromFlags(c.Flags(), "block-hash", "block-number", "block-tag")
			if err != nil {
				return err
			}
			return execute(c, opts, &core.Command{
				Resource: "gas",
				Action:   "estimate",
				Request:  req,
				Block:    sel,
			})
		},
	}
	registerTxFlags(estimate.Flags())
	registerSelectorFlags(estimate.Flags(), "block-hash", "block-number", "block-tag")

	history := &cobra.Command{
		Use:   "history",
		Short: "Gets base fee and priority fee history for the requested block range",
		RunE: func(c *cobra.Command, args []string) error {
			count, err := c.Flags().GetUint64("block-count")
			if err != nil {
				return err
			}
			percentiles, err := c.Flags().GetFloat64Slice("percentiles")
			if err != nil {
				return err
			}
			sel, err := selectorFromFlags(c.Flags(), "block-hash", "block-number", "block-tag")
			if err != nil {
				return err
			}
			return execute(c, opts, &core.Command{
				Resource:    "gas",
				Action:      "history",
				BlockCount:  count,
				Percentiles: percentiles,
				Block:       sel,
			})
		},
	}
	history.Flags().Uint64("block-count", 0, "Number of blocks in the requested range")
	history.Flags().Float64Slice("percentiles", nil, "Monotonically increasing reward percentiles to sample")
	registerSelectorFlags(history.Flags(), "block-hash", "block-number", "block-tag")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "price",
			Short: "Gets the current estimated gas price",
			RunE:  run("price"),
		},
		&cobra.Command{
			Use:   "fee",
			Short: "Gets the current estimated max priority fee per gas",
			RunE:  run("fee"),
		},
		estimate,
		history,
	)
	return cmd
}
