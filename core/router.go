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
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sort"
	"strings"

	"github.com/defiweb/go-eth/hexutil"
)

// requirement is an argument precondition checked before any network call.
type requirement struct {
	name    string
	present func(*Command) bool
}

var (
	needsBlock = requirement{
		name:    "block identifier (--hash, --number or --tag)",
		present: func(c *Command) bool { return c.Block != nil },
	}
	needsAccount = requirement{
		name:    "account identifier (--address or --ens)",
		present: func(c *Command) bool { return c.Account != nil },
	}
	needsTxHash = requirement{
		name:    "transaction hash (--hash)",
		present: func(c *Command) bool { return c.TxHash != nil },
	}
	needsTxRef = requirement{
		name:    "transaction reference (--hash, or a block identifier with --index)",
		present: func(c *Command) bool { return c.TxHash != nil || (c.Block != nil && c.Index != nil) },
	}
	needsSlot = requirement{
		name:    "storage slot (--slot)",
		present: func(c *Command) bool { return c.Slot != nil },
	}
	needsRequest = requirement{
		name:    "transaction fields",
		present: func(c *Command) bool { return c.Request != nil },
	}
	needsRawTx = requirement{
		name:    "raw transaction bytes (--data)",
		present: func(c *Command) bool { return len(c.RawTx) > 0 },
	}
	needsBlockCount = requirement{
		name:    "block count (--block-count)",
		present: func(c *Command) bool { return c.BlockCount > 0 },
	}
	needsSignable = requirement{
		name:    "data to sign (--data or transaction fields)",
		present: func(c *Command) bool { return len(c.Data) > 0 || c.Request != nil },
	}
)

// actionDescriptor describes one (resource, action) route: what the action
// needs, which terminal RPC method(s) it maps to and whether it mutates chain
// state. The table is data, adding a method is a table-only change.
type actionDescriptor struct {
	Methods  []string
	Mutating bool
	Requires []requirement
	Run      func(ctx context.Context, d *Dispatcher, cmd *Command) (any, error)
}

var dispatchTable = map[string]map[string]actionDescriptor{
	"block": {
		"get": {
			Methods:  []string{"eth_getBlockByHash", "eth_getBlockByNumber"},
			Requires: []requirement{needsBlock},
			Run:      runBlockGet,
		},
		"number": {
			Methods: []string{"eth_blockNumber"},
			Run:     runBlockNumber,
		},
		"transaction-count": {
			Methods:  []string{"eth_getBlockTransactionCountByHash", "eth_getBlockTransactionCountByNumber"},
			Requires: []requirement{needsBlock},
			Run:      runBlockTransactionCount,
		},
		"uncle-count": {
			Methods:  []string{"eth_getUncleCountByBlockHash", "eth_getUncleCountByBlockNumber"},
			Requires: []requirement{needsBlock},
			Run:      runBlockUncleCount,
		},
		"receipts": {
			Methods:  []string{"eth_getBlockReceipts"},
			Requires: []requirement{needsBlock},
			Run:      runBlockReceipts,
		},
	},
	"account": {
		"balance": {
			Methods:  []string{"eth_getBalance"},
			Requires: []requirement{needsAccount},
			Run:      runAccountBalance,
		},
		"code": {
			Methods:  []string{"eth_getCode"},
			Requires: []requirement{needsAccount},
			Run:      runAccountCode,
		},
		"transaction-count": {
			Methods:  []string{"eth_getTransactionCount"},
			Requires: []requirement{needsAccount},
			Run:      runAccountTransactionCount,
		},
		"nonce": {
			Methods:  []string{"eth_getTransactionCount"},
			Requires: []requirement{needsAccount},
			Run:      runAccountNonce,
		},
		"storage-at": {
			Methods:  []string{"eth_getStorageAt"},
			Requires: []requirement{needsAccount, needsSlot},
			Run:      runAccountStorageAt,
		},
	},
	"transaction": {
		"get": {
			Methods: []string{
				"eth_getTransactionByHash",
				"eth_getTransactionByBlockHashAndIndex",
				"eth_getTransactionByBlockNumberAndIndex",
			},
			Requires: []requirement{needsTxRef},
			Run:      runTransactionGet,
		},
		"receipt": {
			Methods:  []string{"eth_getTransactionReceipt"},
			Requires: []requirement{needsTxHash},
			Run:      runTransactionReceipt,
		},
		"call": {
			Methods:  []string{"eth_call"},
			Requires: []requirement{needsRequest},
			Run:      runTransactionCall,
		},
		"send": {
			Methods:  []string{"eth_sendRawTransaction"},
			Mutating: true,
			Requires: []requirement{needsRequest},
			Run:      runTransactionSend,
		},
		"send-node": {
			Methods:  []string{"eth_sendTransaction"},
			Mutating: true,
			Requires: []requirement{needsRequest},
			Run:      runTransactionSendNode,
		},
		"send-raw": {
			Methods:  []string{"eth_sendRawTransaction"},
			Mutating: true,
			Requires: []requirement{needsRawTx},
			Run:      runTransactionSendRaw,
		},
	},
	"gas": {
		"price": {
			Methods: []string{"eth_gasPrice"},
			Run:     runGasPrice,
		},
		"fee": {
			Methods: []string{"eth_maxPriorityFeePerGas"},
			Run:     runGasFee,
		},
		"estimate": {
			Methods:  []string{"eth_estimateGas"},
			Requires: []requirement{needsRequest},
			Run:      runGasEstimate,
		},
		"history": {
			Methods:  []string{"eth_feeHistory"},
			Requires: []requirement{needsBlockCount},
			Run:      runGasHistory,
		},
	},
	"utils": {
		"accounts": {
			Methods: []string{"eth_accounts"},
			Run:     runUtilsAccounts,
		},
		"chain-id": {
			Methods: []string{"eth_chainId"},
			Run:     runUtilsChainID,
		},
		"protocol-version": {
			Methods: []string{"eth_protocolVersion"},
			Run:     runUtilsProtocolVersion,
		},
		"sync-status": {
			Methods: []string{"eth_syncing"},
			Run:     runUtilsSyncStatus,
		},
		"sign": {
			Requires: []requirement{needsSignable},
			Run:      runUtilsSign,
		},
	},
	// Event filtering is not implemented, the resource is registered so the
	// error names it rather than reporting an unknown resource.
	"event": {},
}

// Dispatcher wires the gateway, resolver and pipeline for one invocation.
type Dispatcher struct {
	gateway  *Gateway
	resolver *Resolver
	pipeline *Pipeline
	config   *Config
}

// NewDispatcher builds the production dispatcher over an HTTP transport.
func NewDispatcher(cfg *Config) (*Dispatcher, error) {
	gateway, err := NewHTTPGateway(cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	return newDispatcher(cfg, gateway)
}

// NewDispatcherWithTransport builds a dispatcher over a caller-supplied
// transport. Used by tests.
func NewDispatcherWithTransport(cfg *Config, t Transport) (*Dispatcher, error) {
	return newDispatcher(cfg, NewGateway(t))
}

func newDispatcher(cfg *Config, gateway *Gateway) (*Dispatcher, error) {
	key, err := cfg.Key()
	if err != nil {
		return nil, err
	}
	resolver := NewResolver(gateway)
	return &Dispatcher{
		gateway:  gateway,
		resolver: resolver,
		pipeline: NewPipeline(gateway, resolver, key),
		config:   cfg,
	}, nil
}

// Dispatch routes a parsed command through the static table: validates the
// required arguments locally, then runs the action. Validation failures never
// reach the network.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *Command) (any, error) {
	actions, ok := dispatchTable[cmd.Resource]
	if !ok {
		return nil, validationErrorf("unknown resource %q, expected one of %s", cmd.Resource, strings.Join(resourceNames(), ", "))
	}
	if len(actions) == 0 {
		return nil, validationErrorf("%s operations are not implemented", cmd.Resource)
	}
	desc, ok := actions[cmd.Action]
	if !ok {
		return nil, validationErrorf("unknown action %q for resource %q, expected one of %s",
			cmd.Action, cmd.Resource, strings.Join(actionNames(actions), ", "))
	}
	for _, req := range desc.Requires {
		if !req.present(cmd) {
			return nil, validationErrorf("missing %s for %s %s", req.name, cmd.Resource, cmd.Action)
		}
	}

	res, err := desc.Run(ctx, d, cmd)
	if err != nil {
		// Run funcs return concrete types, so a failed call would leave a
		// typed nil in the interface. Only a confirmation timeout carries a
		// value worth rendering, the submitted transaction hash.
		var timeoutErr *ConfirmationTimeoutError
		if errors.As(err, &timeoutErr) {
			return res, err
		}
		return nil, err
	}
	return res, nil
}

func resourceNames() []string {
	names := make([]string, 0, len(dispatchTable))
	for name := range dispatchTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func actionNames(actions map[string]actionDescriptor) []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runBlockGet(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	if cmd.Block.ByHash() {
		return d.gateway.CallRaw(ctx, "eth_getBlockByHash", cmd.Block.Hash().String(), cmd.IncludeTx)
	}
	param, err := BlockNumberParam(cmd.Block)
	if err != nil {
		return nil, err
	}
	return d.gateway.CallRaw(ctx, "eth_getBlockByNumber", param, cmd.IncludeTx)
}

func runBlockNumber(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	return d.gateway.CallBigInt(ctx, "eth_blockNumber")
}

func runBlockTransactionCount(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	if cmd.Block.ByHash() {
		return d.gateway.CallBigInt(ctx, "eth_getBlockTransactionCountByHash", cmd.Block.Hash().String())
	}
	param, err := BlockNumberParam(cmd.Block)
	if err != nil {
		return nil, err
	}
	return d.gateway.CallBigInt(ctx, "eth_getBlockTransactionCountByNumber", param)
}

func runBlockUncleCount(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	if cmd.Block.ByHash() {
		return d.gateway.CallBigInt(ctx, "eth_getUncleCountByBlockHash", cmd.Block.Hash().String())
	}
	param, err := BlockNumberParam(cmd.Block)
	if err != nil {
		return nil, err
	}
	return d.gateway.CallBigInt(ctx, "eth_getUncleCountByBlockNumber", param)
}

// runBlockReceipts needs a block number for eth_getBlockReceipts, a hash
// selector is resolved through eth_getBlockByHash first (two-call action).
func runBlockReceipts(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	var param string
	if cmd.Block.ByHash() {
		var blk struct {
			Number string `json:"number"`
		}
		if err := d.gateway.Call(ctx, &blk, "eth_getBlockByHash", cmd.Block.Hash().String(), false); err != nil {
			return nil, err
		}
		if blk.Number == "" {
			return json.RawMessage("null"), nil
		}
		param = blk.Number
	} else {
		p, err := BlockNumberParam(cmd.Block)
		if err != nil {
			return nil, err
		}
		param = p
	}
	return d.gateway.CallRaw(ctx, "eth_getBlockReceipts", param)
}

func runAccountBalance(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	param, err := BlockNumberParam(DefaultLatest(cmd.Block))
	if err != nil {
		return nil, err
	}
	addr, err := d.resolver.ResolveAccount(ctx, cmd.Account)
	if err != nil {
		return nil, err
	}
	return d.gateway.CallBigInt(ctx, "eth_getBalance", addr.String(), param)
}

func runAccountCode(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	param, err := BlockNumberParam(DefaultLatest(cmd.Block))
	if err != nil {
		return nil, err
	}
	addr, err := d.resolver.ResolveAccount(ctx, cmd.Account)
	if err != nil {
		return nil, err
	}
	return d.gateway.CallString(ctx, "eth_getCode", addr.String(), param)
}

func runAccountTransactionCount(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	param, err := BlockNumberParam(DefaultLatest(cmd.Block))
	if err != nil {
		return nil, err
	}
	addr, err := d.resolver.ResolveAccount(ctx, cmd.Account)
	if err != nil {
		return nil, err
	}
	return d.gateway.CallBigInt(ctx, "eth_getTransactionCount", addr.String(), param)
}

// runAccountNonce is transaction-count pinned to the pending block, the value
// a new transaction from this account should use.
func runAccountNonce(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	addr, err := d.resolver.ResolveAccount(ctx, cmd.Account)
	if err != nil {
		return nil, err
	}
	return d.gateway.CallBigInt(ctx, "eth_getTransactionCount", addr.String(), string(BlockTagPending))
}

func runAccountStorageAt(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	param, err := BlockNumberParam(DefaultLatest(cmd.Block))
	if err != nil {
		return nil, err
	}
	addr, err := d.resolver.ResolveAccount(ctx, cmd.Account)
	if err != nil {
		return nil, err
	}
	return d.gateway.CallString(ctx, "eth_getStorageAt", addr.String(), cmd.Slot.String(), param)
}

func runTransactionGet(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	if cmd.TxHash != nil {
		if cmd.Block != nil || cmd.Index != nil {
			return nil, validationErrorf("conflicting transaction reference, provide either --hash or a block identifier with --index")
		}
		return d.gateway.CallRaw(ctx, "eth_getTransactionByHash", cmd.TxHash.String())
	}
	index := hexutil.BigIntToHex(new(big.Int).SetUint64(*cmd.Index))
	if cmd.Block.ByHash() {
		return d.gateway.CallRaw(ctx, "eth_getTransactionByBlockHashAndIndex", cmd.Block.Hash().String(), index)
	}
	param, err := BlockNumberParam(cmd.Block)
	if err != nil {
		return nil, err
	}
	return d.gateway.CallRaw(ctx, "eth_getTransactionByBlockNumberAndIndex", param, index)
}

func runTransactionReceipt(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	return d.gateway.CallRaw(ctx, "eth_getTransactionReceipt", cmd.TxHash.String())
}

func runTransactionCall(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	param, err := BlockNumberParam(DefaultLatest(cmd.Block))
	if err != nil {
		return nil, err
	}
	params, err := d.requestCallParams(ctx, cmd.Request)
	if err != nil {
		return nil, err
	}
	return d.gateway.CallString(ctx, "eth_call", params, param)
}

func runTransactionSend(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	return d.pipeline.SendLocal(ctx, cmd.Request, cmd.Wait, cmd.WaitTimeout)
}

func runTransactionSendNode(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	return d.pipeline.SendNode(ctx, cmd.Request, cmd.Wait, cmd.WaitTimeout)
}

func runTransactionSendRaw(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	return d.pipeline.SendRaw(ctx, cmd.RawTx, cmd.Wait, cmd.WaitTimeout)
}

func runGasPrice(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	return d.gateway.CallBigInt(ctx, "eth_gasPrice")
}

func runGasFee(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	return d.gateway.CallBigInt(ctx, "eth_maxPriorityFeePerGas")
}

func runGasEstimate(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	param, err := BlockNumberParam(DefaultLatest(cmd.Block))
	if err != nil {
		return nil, err
	}
	params, err := d.requestCallParams(ctx, cmd.Request)
	if err != nil {
		return nil, err
	}
	return d.gateway.CallBigInt(ctx, "eth_estimateGas", params, param)
}

func runGasHistory(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	param, err := BlockNumberParam(DefaultLatest(cmd.Block))
	if err != nil {
		return nil, err
	}
	percentiles := cmd.Percentiles
	if percentiles == nil {
		percentiles = []float64{}
	}
	count := hexutil.BigIntToHex(new(big.Int).SetUint64(cmd.BlockCount))
	return d.gateway.CallRaw(ctx, "eth_feeHistory", count, param, percentiles)
}

func runUtilsAccounts(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	return d.gateway.CallRaw(ctx, "eth_accounts")
}

func runUtilsChainID(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	return d.gateway.CallBigInt(ctx, "eth_chainId")
}

func runUtilsProtocolVersion(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	return d.gateway.CallRaw(ctx, "eth_protocolVersion")
}

func runUtilsSyncStatus(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	return d.gateway.CallRaw(ctx, "eth_syncing")
}

func runUtilsSign(ctx context.Context, d *Dispatcher, cmd *Command) (any, error) {
	if len(cmd.Data) > 0 {
		return d.pipeline.SignMessage(cmd.Data)
	}
	return d.pipeline.SignTransaction(ctx, cmd.Request)
}

// requestCallParams builds the canonical call object for read-only execution
// methods, resolving an ENS receiver when needed.
func (d *Dispatcher) requestCallParams(ctx context.Context, req *TransactionRequest) (callParams, error) {
	return buildCallParams(ctx, d.resolver, req)
}
