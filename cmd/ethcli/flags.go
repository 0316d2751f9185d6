package main

import (
	"math/big"

	"github.com/defiweb/go-eth/hexutil"
	"github.com/defiweb/go-eth/types"
	"github.com/evmtools/ethcli/core"
	"github.com/spf13/pflag"
)

// registerSelectorFlags adds a block selector flag triple under the given
// names. Conflict and format checks happen in core.NewBlockSelector so the
// router sees the same validation regardless of which command parsed it.
func registerSelectorFlags(fs *pflag.FlagSet, hashFlag, numberFlag, tagFlag string) {
	fs.String(hashFlag, "", "Hash of the target block")
	fs.Uint64(numberFlag, 0, "Number of the target block")
	fs.String(tagFlag, "", "Tag of the target block: latest, earliest, pending, safe or finalized")
}

func selectorFromFlags(fs *pflag.FlagSet, hashFlag, numberFlag, tagFlag string) (*core.BlockSelector, error) {
	hash, err := fs.GetString(hashFlag)
	if err != nil {
		return nil, err
	}
	tag, err := fs.GetString(tagFlag)
	if err != nil {
		return nil, err
	}
	var number *uint64
	if fs.Changed(numberFlag) {
		n, err := fs.GetUint64(numberFlag)
		if err != nil {
			return nil, err
		}
		number = &n
	}
	return core.NewBlockSelector(hash, number, tag)
}

// registerTxFlags adds the transaction field flags shared by send, call,
// estimate and sign actions.
func registerTxFlags(fs *pflag.FlagSet) {
	fs.String("from", "", "Address of the account the transaction is sent from")
	fs.String("to", "", "Address of the account to send the transaction to")
	fs.String("ens-to", "", "ENS name of the account to send the transaction to")
	fs.String("value", "", "Amount of wei to send, decimal or 0x-prefixed hex")
	fs.String("data", "", "Calldata to send to the target account, hex encoded")
	fs.Uint64("gas", 0, "Gas limit")
	fs.String("gas-price", "", "Legacy gas price in wei")
	fs.String("max-fee", "", "EIP-1559 max fee per gas in wei")
	fs.String("max-priority-fee", "", "EIP-1559 max priority fee per gas in wei")
	fs.Uint64("nonce", 0, "Transaction nonce")
	fs.Uint64("chain-id", 0, "Chain id used for signing")
}

func flagBigInt(fs *pflag.FlagSet, name string) (*big.Int, error) {
	s, err := fs.GetString(name)
	if err != nil || s == "" {
		return nil, err
	}
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, core.NewValidationError("invalid --" + name + " value " + s)
	}
	return n, nil
}

func flagUint64Ptr(fs *pflag.FlagSet, name string) (*uint64, error) {
	if !fs.Changed(name) {
		return nil, nil
	}
	n, err := fs.GetUint64(name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// txRequestFromFlags builds the TransactionRequest the pipeline starts from.
func txRequestFromFlags(fs *pflag.FlagSet) (*core.TransactionRequest, error) {
	req := &core.TransactionRequest{}

	if from, err := fs.GetString("from"); err != nil {
		return nil, err
	} else if from != "" {
		addr, err := types.AddressFromHex(from)
		if err != nil {
			return nil, core.NewValidationError("invalid --from address " + from)
		}
		req.From = &addr
	}

	to, err := fs.GetString("to")
	if err != nil {
		return nil, err
	}
	ensTo, err := fs.GetString("ens-to")
	if err != nil {
		return nil, err
	}
	if to != "" || ensTo != "" {
		id, err := core.NewAccountIdentifier(to, ensTo)
		if err != nil {
			return nil, err
		}
		req.To = id
	}

	if req.Value, err = flagBigInt(fs, "value"); err != nil {
		return nil, err
	}
	if req.GasPrice, err = flagBigInt(fs, "gas-price"); err != nil {
		return nil, err
	}
	if req.MaxFeePerGas, err = flagBigInt(fs, "max-fee"); err != nil {
		return nil, err
	}
	if req.MaxPriorityFeePerGas, err = flagBigInt(fs, "max-priority-fee"); err != nil {
		return nil, err
	}

	if data, err := fs.GetString("data"); err != nil {
		return nil, err
	} else if data != "" {
		b, err := hexutil.HexToBytes(data)
		if err != nil {
			return nil, core.NewValidationError("invalid --data hex: " + err.Error())
		}
		req.Data = b
	}

	if req.GasLimit, err = flagUint64Ptr(fs, "gas"); err != nil {
		return nil, err
	}
	if req.Nonce, err = flagUint64Ptr(fs, "nonce"); err != nil {
		return nil, err
	}
	if req.ChainID, err = flagUint64Ptr(fs, "chain-id"); err != nil {
		return nil, err
	}

	return req, nil
}
