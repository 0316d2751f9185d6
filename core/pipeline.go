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

package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/defiweb/go-eth/hexutil"
	"github.com/defiweb/go-eth/types"
	"github.com/defiweb/go-eth/wallet"
	"github.com/ethereum/go-ethereum/crypto"
	logger "github.com/sirupsen/logrus"
)

// Receipt polling cadence, roughly one mainnet block.
var receiptPollInterval = 12 * time.Second

// DefaultConfirmationTimeout bounds the wait-for-receipt loop.
const DefaultConfirmationTimeout = 5 * time.Minute

// SendResult is the terminal value of a submission. The hash is always
// present, the receipt only when the caller asked to wait and a receipt
// appeared within the bound.
type SendResult struct {
	TxHash  types.Hash      `json:"transactionHash"`
	Receipt json.RawMessage `json:"receipt,omitempty"`
}

// Pipeline builds, signs and submits transactions. The two submission paths,
// local-sign-then-eth_sendRawTransaction and node-signed eth_sendTransaction,
// are mutually exclusive and selected by the CLI subcommand, never inferred
// from key presence.
type Pipeline struct {
	gateway  *Gateway
	resolver *Resolver
	key      *wallet.PrivateKey
}

func NewPipeline(gateway *Gateway, resolver *Resolver, key *wallet.PrivateKey) *Pipeline {
	return &Pipeline{gateway: gateway, resolver: resolver, key: key}
}

// filled is a TransactionRequest after the Filled state: the receiver is
// resolved and every field needed for signing has a value.
type filled struct {
	From     types.Address
	To       *types.Address
	Value    *big.Int
	Data     []byte
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
	ChainID  uint64
}

func (f *filled) callParams() callParams {
	p := callParams{From: f.From.String()}
	if f.To != nil {
		p.To = f.To.String()
	}
	if f.Value != nil {
		p.Value = hexutil.BigIntToHex(f.Value)
	}
	if len(f.Data) > 0 {
		p.Data = hexutil.BytesToHex(f.Data)
	}
	if f.GasPrice != nil {
		p.GasPrice = hexutil.BigIntToHex(f.GasPrice)
	}
	return p
}

// fill populates unset nonce, gas and fee fields from node defaults. It
// issues only the calls for fields the caller left unset, a fully specified
// request fills with zero network calls.
func (p *Pipeline) fill(ctx context.Context, req *TransactionRequest, from types.Address) (*filled, error) {
	f := &filled{
		From:  from,
		Value: req.Value,
		Data:  req.Data,
	}

	if req.To != nil {
		to, err := p.resolver.ResolveAccount(ctx, req.To)
		if err != nil {
			return nil, err
		}
		f.To = &to
	}

	if req.Nonce != nil {
		f.Nonce = *req.Nonce
	} else {
		nonce, err := p.gateway.CallUint64(ctx, "eth_getTransactionCount", from.String(), string(BlockTagPending))
		if err != nil {
			return nil, err
		}
		f.Nonce = nonce
	}

	// Local signing produces legacy transactions, so a missing gas price is
	// taken from the node even when 1559 fee flags were supplied.
	if req.GasPrice != nil {
		f.GasPrice = req.GasPrice
	} else {
		gasPrice, err := p.gateway.CallBigInt(ctx, "eth_gasPrice")
		if err != nil {
			return nil, err
		}
		f.GasPrice = gasPrice
	}

	if req.GasLimit != nil {
		f.GasLimit = *req.GasLimit
	} else {
		gasLimit, err := p.gateway.CallUint64(ctx, "eth_estimateGas", f.callParams())
		if err != nil {
			return nil, err
		}
		f.GasLimit = gasLimit
	}

	if req.ChainID != nil {
		f.ChainID = *req.ChainID
	} else {
		chainID, err := p.gateway.CallUint64(ctx, "eth_chainId")
		if err != nil {
			return nil, err
		}
		f.ChainID = chainID
	}

	return f, nil
}

// SendLocal runs the full Built -> Filled -> Signed -> Submitted pipeline:
// fills defaults, signs with the configured key and submits the raw bytes via
// eth_sendRawTransaction. A missing key is a terminal SigningError raised
// before any network call.
func (p *Pipeline) SendLocal(ctx context.Context, req *TransactionRequest, wait bool, timeout time.Duration) (*SendResult, error) {
	signed, err := p.SignTransaction(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := hexutil.HexToBytes(signed.Raw)
	if err != nil {
		return nil, signingErrorf("failed to decode signed transaction: %v", err)
	}

	hash, err := p.submitRaw(ctx, raw, "local")
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, hash, wait, timeout)
}

// buildCallParams turns a TransactionRequest into the canonical call object
// shared by eth_call, eth_estimateGas and eth_sendTransaction, resolving an
// ENS receiver when needed.
func buildCallParams(ctx context.Context, r *Resolver, req *TransactionRequest) (callParams, error) {
	params := callParams{}
	if req.From != nil {
		params.From = req.From.String()
	}
	if req.To != nil {
		to, err := r.ResolveAccount(ctx, req.To)
		if err != nil {
			return callParams{}, err
		}
		params.To = to.String()
	}
	if req.Value != nil {
		params.Value = hexutil.BigIntToHex(req.Value)
	}
	if len(req.Data) > 0 {
		params.Data = hexutil.BytesToHex(req.Data)
	}
	if req.GasLimit != nil {
		params.Gas = hexutil.BigIntToHex(new(big.Int).SetUint64(*req.GasLimit))
	}
	if req.GasPrice != nil {
		params.GasPrice = hexutil.BigIntToHex(req.GasPrice)
	}
	if req.MaxFeePerGas != nil {
		params.MaxFeePerGas = hexutil.BigIntToHex(req.MaxFeePerGas)
	}
	if req.MaxPriorityFeePerGas != nil {
		params.MaxPriorityFeePerGas = hexutil.BigIntToHex(req.MaxPriorityFeePerGas)
	}
	if req.Nonce != nil {
		params.Nonce = hexutil.BigIntToHex(new(big.Int).SetUint64(*req.Nonce))
	}
	return params, nil
}

// SendNode forwards the unsigned call object to eth_sendTransaction for
// node-side signing. The node fills nonce, gas and fees for fields left
// unset, so no fill calls are issued here.
func (p *Pipeline) SendNode(ctx context.Context, req *TransactionRequest, wait bool, timeout time.Duration) (*SendResult, error) {
	if req.From == nil {
		return nil, validationErrorf("missing --from, node-side signing requires an unlocked account address")
	}

	params, err := buildCallParams(ctx, p.resolver, req)
	if err != nil {
		return nil, err
	}

	out, err := p.gateway.CallString(ctx, "eth_sendTransaction", params)
	if err != nil {
		return nil, err
	}
	hash, err := types.HashFromHex(out, types.PadNone)
	if err != nil {
		return nil, &TransportError{Method: "eth_sendTransaction", Err: err}
	}
	SubmittedTxCounter.WithLabelValues("node").Inc()

	return p.finish(ctx, hash, wait, timeout)
}

// SendRaw submits already-signed transaction bytes unchanged.
func (p *Pipeline) SendRaw(ctx context.Context, raw []byte, wait bool, timeout time.Duration) (*SendResult, error) {
	if len(raw) == 0 {
		return nil, validationErrorf("missing raw transaction bytes, provide --data")
	}
	hash, err := p.submitRaw(ctx, raw, "raw")
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, hash, wait, timeout)
}

// SignTransaction fills and signs a request without submitting it. Returns
// the raw bytes and the hash they would have on chain.
func (p *Pipeline) SignTransaction(ctx context.Context, req *TransactionRequest) (*SignedTransaction, error) {
	if p.key == nil {
		return nil, signingErrorf("no private key configured, provide one with --priv-key or in the config file")
	}

	from := p.key.Address()
	if req.From != nil && *req.From != from {
		return nil, signingErrorf("--from %s does not match the configured key address %s", req.From, from)
	}

	f, err := p.fill(ctx, req, from)
	if err != nil {
		return nil, err
	}

	tx := (&types.Transaction{}).
		SetFrom(f.From).
		SetNonce(f.Nonce).
		SetGasLimit(f.GasLimit).
		SetGasPrice(f.GasPrice).
		SetChainID(f.ChainID)
	if f.To != nil {
		tx.SetTo(*f.To)
	}
	if f.Value != nil {
		tx.SetValue(f.Value)
	}
	if len(f.Data) > 0 {
		tx.SetInput(f.Data)
	}

	if err := p.key.SignTransaction(tx); err != nil {
		return nil, signingErrorf("failed to sign transaction: %v", err)
	}
	raw, err := tx.Raw()
	if err != nil {
		return nil, signingErrorf("failed to encode signed transaction: %v", err)
	}

	hash, err := types.HashFromBytes(crypto.Keccak256(raw), types.PadNone)
	if err != nil {
		return nil, signingErrorf("failed to hash signed transaction: %v", err)
	}
	return &SignedTransaction{Raw: hexutil.BytesToHex(raw), TxHash: hash}, nil
}

// SignMessage signs raw byte data with the configured key (EIP-191).
func (p *Pipeline) SignMessage(data []byte) (*SignedMessage, error) {
	if p.key == nil {
		return nil, signingErrorf("no private key configured, provide one with --priv-key or in the config file")
	}
	if len(data) == 0 {
		return nil, validationErrorf("missing data to sign, provide --data")
	}
	sig, err := p.key.SignMessage(data)
	if err != nil {
		return nil, signingErrorf("failed to sign message: %v", err)
	}
	return &SignedMessage{Signer: p.key.Address(), Signature: sig.String()}, nil
}

// SignedTransaction is the output of sign-without-submit.
type SignedTransaction struct {
	Raw    string     `json:"raw"`
	TxHash types.Hash `json:"transactionHash"`
}

// SignedMessage is the output of raw data signing.
type SignedMessage struct {
	Signer    types.Address `json:"signer"`
	Signature string        `json:"signature"`
}

func (p *Pipeline) submitRaw(ctx context.Context, raw []byte, path string) (types.Hash, error) {
	out, err := p.gateway.CallString(ctx, "eth_sendRawTransaction", hexutil.BytesToHex(raw))
	if err != nil {
		return types.Hash{}, err
	}
	hash, err := types.HashFromHex(out, types.PadNone)
	if err != nil {
		return types.Hash{}, &TransportError{Method: "eth_sendRawTransaction", Err: err}
	}
	SubmittedTxCounter.WithLabelValues(path).Inc()
	logger.WithField("txHash", hash).Infof("transaction submitted")
	return hash, nil
}

func (p *Pipeline) finish(ctx context.Context, hash types.Hash, wait bool, timeout time.Duration) (*SendResult, error) {
	res := &SendResult{TxHash: hash}
	if !wait {
		return res, nil
	}
	receipt, err := p.WaitForReceipt(ctx, hash, timeout)
	if err != nil {
		// The transaction is already on the network, the hash stays in the
		// result even when polling gave up.
		return res, err
	}
	res.Receipt = receipt
	return res, nil
}

// WaitForReceipt polls eth_getTransactionReceipt until a receipt appears or
// the timeout elapses. A timeout or interrupt only stops local polling, the
// submitted transaction is unaffected and may still be included later.
func (p *Pipeline) WaitForReceipt(ctx context.Context, hash types.Hash, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &ConfirmationTimeoutError{TxHash: hash, Timeout: timeout}
			}
			return nil, fmt.Errorf("receipt polling for transaction %s interrupted: %w", hash, ctx.Err())
		case <-ticker.C:
			logger.WithField("txHash", hash).Debugf("checking transaction confirmation")

			receipt, err := p.gateway.CallRaw(ctx, "eth_getTransactionReceipt", hash.String())
			if err != nil {
				logger.WithField("txHash", hash).Errorf("failed to get transaction receipt: %v", err)
				continue
			}
			if len(receipt) == 0 || bytes.Equal(receipt, []byte("null")) {
				continue
			}
			return receipt, nil
		}
	}
}
