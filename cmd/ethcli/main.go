//  Copyright (C) 2021-2023 Chronicle Labs, Inc.
//
//  This program is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Affero General Public License as
//  published by the Free Software Foundation, either version 3 of the
//  License, or (at your option) any later version.
//
//  This program is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Affero General Public License for more details.
//
//  You should have received a copy of the GNU Affero General Public License
//  along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/evmtools/ethcli/core"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	PrivKey    string
	RPCURL     string
	Out        string
	File       string
	ConfigFile string
	Verbose    bool
}

func (o *options) config() (*core.Config, error) {
	return core.LoadConfig(core.ConfigOverrides{
		PrivKey:    o.PrivKey,
		RPCURL:     o.RPCURL,
		Out:        o.Out,
		File:       o.File,
		ConfigFile: o.ConfigFile,
	})
}

// execute runs one parsed command through the dispatch pipeline and renders
// the outcome. The returned error carries the exit-code category.
func execute(cmd *cobra.Command, opts *options, c *core.Command) error {
	cfg, err := opts.config()
	if err != nil {
		core.NewRenderer(&core.Config{Out: core.OutputConsole}).RenderError(err)
		return err
	}
	renderer := core.NewRenderer(cfg)

	dispatcher, err := core.NewDispatcher(cfg)
	if err != nil {
		renderer.RenderError(err)
		return err
	}

	res, err := dispatcher.Dispatch(cmd.Context(), c)
	if res != nil {
		// A confirmation timeout still returns the transaction hash, render
		// whatever the pipeline produced before reporting the error.
		if rerr := renderer.Render(res); rerr != nil {
			logger.Errorf("failed to render result: %v", rerr)
		}
	}
	if err != nil {
		renderer.RenderError(err)
		return err
	}
	return nil
}

func main() {
	var opts options

	root := &cobra.Command{
		Use:           "ethcli",
		Short:         "Command line client for Ethereum JSON-RPC nodes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.Verbose {
				logger.SetLevel(logger.DebugLevel)
			} else {
				logger.SetLevel(logger.WarnLevel)
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.PrivKey, "priv-key", "", "Private key in format `0x******` or `******`, enables local transaction signing")
	root.PersistentFlags().StringVar(&opts.RPCURL, "rpc-url", "", "Node HTTP RPC URL, normally starts with https://****")
	root.PersistentFlags().StringVar(&opts.Out, "out", "", "Output mode: console or json")
	root.PersistentFlags().StringVar(&opts.File, "file", "", "Write the result to the given file instead of stdout")
	root.PersistentFlags().StringVar(&opts.ConfigFile, "config-file", "", "Path to a JSON config file, CLI flags take precedence")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newBlockCmd(&opts),
		newAccountCmd(&opts),
		newTransactionCmd(&opts),
		newEventCmd(&opts),
		newGasCmd(&opts),
		newUtilsCmd(&opts),
	)

	// An interrupt during receipt polling only stops local waiting, the
	// submitted transaction stays on the network.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(core.ExitCode(err))
	}
}
