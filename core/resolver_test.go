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
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/defiweb/go-eth/rpc/transport"
	"github.com/defiweb/go-eth/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	resolverAddrHex = "0x4976fb03C32e5B8cfe2b6cCB31c09Ba78EBaBa41"
	vitalikAddrHex  = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
)

// addressWord encodes an address as a 32-byte ABI return word.
func addressWord(addr string) string {
	return "0x" + strings.Repeat("0", 24) + strings.ToLower(strings.TrimPrefix(addr, "0x"))
}

const zeroWord = "0x0000000000000000000000000000000000000000000000000000000000000000"

func TestNamehash(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"eth", "93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae"},
		{"foo.eth", "de9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f"},
		{"FOO.eth", "de9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f"},
	}
	for _, tt := range tests {
		node := Namehash(tt.name)
		assert.Equal(t, tt.want, hex.EncodeToString(node[:]), "namehash(%q)", tt.name)
	}
}

func TestResolveAccountAddressPassThrough(t *testing.T) {
	ft := newFakeTransport()
	r := NewResolver(NewGateway(ft))

	id, err := NewAccountIdentifier(vitalikAddrHex, "")
	require.NoError(t, err)

	addr, err := r.ResolveAccount(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.MustAddressFromHex(vitalikAddrHex), addr)
	assert.Empty(t, ft.calls, "plain addresses must not hit the network")
}

func TestResolveAccountMissing(t *testing.T) {
	r := NewResolver(NewGateway(newFakeTransport()))

	_, err := r.ResolveAccount(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestResolveENS(t *testing.T) {
	ft := newFakeTransport().
		respond("eth_call", addressWord(resolverAddrHex)).
		respond("eth_call", addressWord(vitalikAddrHex))
	r := NewResolver(NewGateway(ft))

	id, err := NewAccountIdentifier("", "vitalik.eth")
	require.NoError(t, err)

	addr, err := r.ResolveAccount(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.MustAddressFromHex(vitalikAddrHex), addr)
	require.Equal(t, []string{"eth_call", "eth_call"}, ft.methods())

	node := Namehash("vitalik.eth")
	assert.JSONEq(t, fmt.Sprintf(
		`[{"to":"%s","data":"0x0178b8bf%s"},"latest"]`,
		ENSRegistryAddress, hex.EncodeToString(node[:]),
	), ft.paramsJSON(0))
	assert.JSONEq(t, fmt.Sprintf(
		`[{"to":"%s","data":"0x3b3b57de%s"},"latest"]`,
		resolverAddrHex, hex.EncodeToString(node[:]),
	), ft.paramsJSON(1))
}

func TestResolveENSNoResolver(t *testing.T) {
	ft := newFakeTransport().respond("eth_call", zeroWord)
	r := NewResolver(NewGateway(ft))

	id, err := NewAccountIdentifier("", "nobody.eth")
	require.NoError(t, err)

	_, err = r.ResolveAccount(context.Background(), id)
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "nobody.eth", resErr.Name)
	assert.Equal(t, ExitResolution, ExitCode(err))
	assert.Len(t, ft.calls, 1, "a missing resolver must short-circuit the addr lookup")
}

func TestResolveENSNoAddressRecord(t *testing.T) {
	ft := newFakeTransport().
		respond("eth_call", addressWord(resolverAddrHex)).
		respond("eth_call", zeroWord)
	r := NewResolver(NewGateway(ft))

	id, err := NewAccountIdentifier("", "empty.eth")
	require.NoError(t, err)

	_, err = r.ResolveAccount(context.Background(), id)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, ExitResolution, ExitCode(err))
}

func TestResolveENSWrapsRPCError(t *testing.T) {
	ft := newFakeTransport().failWith("eth_call", &transport.RPCError{Code: -32000, Message: "out of gas"})
	r := NewResolver(NewGateway(ft))

	id, err := NewAccountIdentifier("", "vitalik.eth")
	require.NoError(t, err)

	_, err = r.ResolveAccount(context.Background(), id)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, ExitResolution, ExitCode(err), "resolution wins over the wrapped rpc error")
}

func TestBlockNumberParam(t *testing.T) {
	param, err := BlockNumberParam(NumberSelector(17081411))
	require.NoError(t, err)
	assert.Equal(t, "0x1050343", param)

	param, err = BlockNumberParam(TagSelector(BlockTagFinalized))
	require.NoError(t, err)
	assert.Equal(t, "finalized", param)

	_, err = BlockNumberParam(nil)
	assert.Equal(t, ExitValidation, ExitCode(err))

	sel, err := NewBlockSelector("0x"+strings.Repeat("ab", 32), nil, "")
	require.NoError(t, err)
	_, err = BlockNumberParam(sel)
	require.Error(t, err, "hash selectors must not be coerced to a number parameter")
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestBlockHashParam(t *testing.T) {
	hash := "0x" + strings.Repeat("ab", 32)
	sel, err := NewBlockSelector(hash, nil, "")
	require.NoError(t, err)

	param, err := BlockHashParam(sel)
	require.NoError(t, err)
	assert.Equal(t, hash, param)

	_, err = BlockHashParam(TagSelector(BlockTagLatest))
	assert.Equal(t, ExitValidation, ExitCode(err))

	_, err = BlockHashParam(nil)
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestDefaultLatest(t *testing.T) {
	param, err := BlockNumberParam(DefaultLatest(nil))
	require.NoError(t, err)
	assert.Equal(t, "latest", param)

	sel := NumberSelector(7)
	assert.Same(t, sel, DefaultLatest(sel))
}
