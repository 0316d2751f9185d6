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
	"math/big"
	"time"

	"github.com/defiweb/go-eth/types"
)

// BlockTag is a symbolic block reference accepted by the node.
type BlockTag string

const (
	BlockTagLatest    BlockTag = "latest"
	BlockTagEarliest  BlockTag = "earliest"
	BlockTagPending   BlockTag = "pending"
	BlockTagSafe      BlockTag = "safe"
	BlockTagFinalized BlockTag = "finalized"
)

// ParseBlockTag validates a user-supplied tag string.
func ParseBlockTag(s string) (BlockTag, error) {
	switch BlockTag(s) {
	case BlockTagLatest, BlockTagEarliest, BlockTagPending, BlockTagSafe, BlockTagFinalized:
		return BlockTag(s), nil
	}
	return "", validationErrorf("unknown block tag %q, expected one of latest, earliest, pending, safe, finalized", s)
}

// BlockSelector identifies a block by exactly one of a number, a hash or a
// symbolic tag. The no-variant case is represented by a nil *BlockSelector so
// callers decide whether a default applies.
type BlockSelector struct {
	number *uint64
	hash   *types.Hash
	tag    BlockTag
}

// NewBlockSelector builds a selector from raw CLI inputs. Supplying more than
// one variant is a validation error, supplying none yields a nil selector.
func NewBlockSelector(hash string, number *uint64, tag string) (*BlockSelector, error) {
	provided := 0
	if hash != "" {
		provided++
	}
	if number != nil {
		provided++
	}
	if tag != "" {
		provided++
	}
	if provided == 0 {
		return nil, nil
	}
	if provided > 1 {
		return nil, validationErrorf("conflicting block identifiers, provide only one of --hash, --number or --tag")
	}
	if hash != "" {
		h, err := types.HashFromHex(hash, types.PadNone)
		if err != nil {
			return nil, validationErrorf("invalid block hash %q: %v", hash, err)
		}
		return &BlockSelector{hash: &h}, nil
	}
	if number != nil {
		n := *number
		return &BlockSelector{number: &n}, nil
	}
	t, err := ParseBlockTag(tag)
	if err != nil {
		return nil, err
	}
	return &BlockSelector{tag: t}, nil
}

// TagSelector returns a selector for a symbolic tag.
func TagSelector(tag BlockTag) *BlockSelector {
	return &BlockSelector{tag: tag}
}

// NumberSelector returns a selector for an explicit block number.
func NumberSelector(n uint64) *BlockSelector {
	return &BlockSelector{number: &n}
}

// ByHash reports whether the selector carries a block hash.
func (s *BlockSelector) ByHash() bool {
	return s != nil && s.hash != nil
}

// Hash returns the selected block hash. Only valid when ByHash is true.
func (s *BlockSelector) Hash() types.Hash {
	return *s.hash
}

func (s *BlockSelector) String() string {
	switch {
	case s == nil:
		return "<none>"
	case s.hash != nil:
		return s.hash.String()
	case s.number != nil:
		return new(big.Int).SetUint64(*s.number).String()
	default:
		return string(s.tag)
	}
}

// AccountIdentifier is either a 20-byte address or an ENS name. ENS names
// must be resolved before any RPC call that needs an address.
type AccountIdentifier struct {
	address *types.Address
	ens     string
}

// NewAccountIdentifier builds an identifier from raw CLI inputs. Exactly one
// of address or ens must be provided.
func NewAccountIdentifier(address, ens string) (*AccountIdentifier, error) {
	if address != "" && ens != "" {
		return nil, validationErrorf("conflicting account identifiers, provide only one of --address or --ens")
	}
	if address == "" && ens == "" {
		return nil, validationErrorf("missing account identifier, provide --address or --ens")
	}
	if address != "" {
		a, err := types.AddressFromHex(address)
		if err != nil {
			return nil, validationErrorf("invalid address %q: %v", address, err)
		}
		return &AccountIdentifier{address: &a}, nil
	}
	return &AccountIdentifier{ens: ens}, nil
}

// AddressIdentifier wraps an already-parsed address.
func AddressIdentifier(addr types.Address) *AccountIdentifier {
	return &AccountIdentifier{address: &addr}
}

// IsAddress reports whether the identifier already carries an address.
func (a *AccountIdentifier) IsAddress() bool {
	return a != nil && a.address != nil
}

// Address returns the wrapped address. Only valid when IsAddress is true.
func (a *AccountIdentifier) Address() types.Address {
	return *a.address
}

// ENS returns the wrapped ENS name.
func (a *AccountIdentifier) ENS() string {
	return a.ens
}

func (a *AccountIdentifier) String() string {
	if a == nil {
		return "<none>"
	}
	if a.address != nil {
		return a.address.String()
	}
	return a.ens
}

// TransactionRequest collects transaction fields from CLI flags. Unset fields
// are filled from node defaults by the pipeline before signing.
type TransactionRequest struct {
	From                 *types.Address
	To                   *AccountIdentifier
	Value                *big.Int
	Data                 []byte
	Nonce                *uint64
	GasLimit             *uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	ChainID              *uint64
}

// Command is a single parsed CLI invocation, immutable once built.
type Command struct {
	Resource string
	Action   string

	Block     *BlockSelector
	Account   *AccountIdentifier
	TxHash    *types.Hash
	Index     *uint64
	IncludeTx bool
	Slot      *types.Hash

	Request *TransactionRequest
	RawTx   []byte
	Data    []byte

	Wait        bool
	WaitTimeout time.Duration

	BlockCount  uint64
	Percentiles []float64
}
