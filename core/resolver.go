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
	"fmt"
	"math/big"
	"strings"

	"github.com/defiweb/go-eth/abi"
	"github.com/defiweb/go-eth/hexutil"
	"github.com/defiweb/go-eth/types"
	"github.com/ethereum/go-ethereum/crypto"
	logger "github.com/sirupsen/logrus"
)

// ENSRegistryAddress is the canonical ENS registry deployed on mainnet and
// most testnets.
var ENSRegistryAddress = types.MustAddressFromHex("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var (
	ensResolverMethod = abi.MustParseMethod("resolver(bytes32)(address)")
	ensAddrMethod     = abi.MustParseMethod("addr(bytes32)(address)")
)

// callParams is the canonical JSON-RPC call object for eth_call,
// eth_estimateGas and eth_sendTransaction.
type callParams struct {
	From                 string `json:"from,omitempty"`
	To                   string `json:"to,omitempty"`
	Gas                  string `json:"gas,omitempty"`
	GasPrice             string `json:"gasPrice,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
	Value                string `json:"value,omitempty"`
	Data                 string `json:"data,omitempty"`
	Nonce                string `json:"nonce,omitempty"`
}

// BlockNumberParam returns the canonical number-or-tag parameter for RPC
// methods that do not accept a block hash. A hash-bearing selector is a
// validation error, never silently coerced.
func BlockNumberParam(s *BlockSelector) (string, error) {
	if s == nil {
		return "", validationErrorf("missing block identifier, provide --hash, --number or --tag")
	}
	switch {
	case s.hash != nil:
		return "", validationErrorf("block hash %s cannot be used here, the method requires a block number or tag", s.hash)
	case s.number != nil:
		return hexutil.BigIntToHex(new(big.Int).SetUint64(*s.number)), nil
	default:
		return string(s.tag), nil
	}
}

// BlockHashParam returns the canonical hash parameter for RPC methods that
// accept only a block hash.
func BlockHashParam(s *BlockSelector) (string, error) {
	if s == nil {
		return "", validationErrorf("missing block identifier, provide --hash")
	}
	if s.hash == nil {
		return "", validationErrorf("block selector %s cannot be used here, the method requires a block hash", s)
	}
	return s.hash.String(), nil
}

// DefaultLatest substitutes the latest tag for an absent selector. Used by
// account methods where the block is an optional refinement.
func DefaultLatest(s *BlockSelector) *BlockSelector {
	if s == nil {
		return TagSelector(BlockTagLatest)
	}
	return s
}

// Namehash computes the EIP-137 node hash for an ENS name.
func Namehash(name string) [32]byte {
	var node [32]byte
	if name == "" {
		return node
	}
	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = [32]byte(crypto.Keccak256(node[:], labelHash))
	}
	return node
}

// Resolver turns human-facing identifiers into canonical RPC parameters.
// Resolution is idempotent and never mutates shared state.
type Resolver struct {
	gateway *Gateway
}

func NewResolver(gateway *Gateway) *Resolver {
	return &Resolver{gateway: gateway}
}

// ResolveAccount returns the 20-byte address for an account identifier.
// Plain addresses pass through unchanged without any network call. ENS names
// are resolved through the registry, failure is terminal for the command.
func (r *Resolver) ResolveAccount(ctx context.Context, id *AccountIdentifier) (types.Address, error) {
	if id == nil {
		return types.ZeroAddress, validationErrorf("missing account identifier, provide --address or --ens")
	}
	if id.IsAddress() {
		return id.Address(), nil
	}
	return r.resolveENS(ctx, id.ENS())
}

func (r *Resolver) resolveENS(ctx context.Context, name string) (types.Address, error) {
	node := Namehash(name)

	resolverAddr, err := r.callForAddress(ctx, ENSRegistryAddress, ensResolverMethod, node)
	if err != nil {
		return types.ZeroAddress, &ResolutionError{Name: name, Err: err}
	}
	if resolverAddr == types.ZeroAddress {
		return types.ZeroAddress, &ResolutionError{Name: name, Err: fmt.Errorf("no resolver set for name")}
	}

	addr, err := r.callForAddress(ctx, resolverAddr, ensAddrMethod, node)
	if err != nil {
		return types.ZeroAddress, &ResolutionError{Name: name, Err: err}
	}
	if addr == types.ZeroAddress {
		return types.ZeroAddress, &ResolutionError{Name: name, Err: fmt.Errorf("name has no address record")}
	}

	logger.WithField("ens", name).Debugf("resolved to %s", addr)
	return addr, nil
}

// callForAddress performs one eth_call against the latest block and decodes a
// single address return value.
func (r *Resolver) callForAddress(ctx context.Context, to types.Address, method *abi.Method, node [32]byte) (types.Address, error) {
	calldata, err := method.EncodeArgs(node)
	if err != nil {
		return types.ZeroAddress, fmt.Errorf("failed to encode %s args: %v", method.Name(), err)
	}

	out, err := r.gateway.CallString(ctx, "eth_call",
		callParams{To: to.String(), Data: hexutil.BytesToHex(calldata)},
		string(BlockTagLatest),
	)
	if err != nil {
		return types.ZeroAddress, err
	}

	b, err := hexutil.HexToBytes(out)
	if err != nil {
		return types.ZeroAddress, fmt.Errorf("malformed %s return data: %v", method.Name(), err)
	}

	var addr types.Address
	if err := method.DecodeValues(b, &addr); err != nil {
		return types.ZeroAddress, fmt.Errorf("failed to decode %s result: %v", method.Name(), err)
	}
	return addr, nil
}
