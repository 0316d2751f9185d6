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
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/defiweb/go-eth/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development key, account 0 of the default hardhat/anvil mnemonic.
const (
	testPrivKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testKeyAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testTxHash  = "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"
	weiPerEther = 1000000000000000000
)

func newTestPipeline(t *testing.T, ft *fakeTransport, withKey bool) *Pipeline {
	t.Helper()
	cfg := &Config{RPCURL: DefaultRPCURL, Out: OutputConsole}
	if withKey {
		cfg.PrivKey = testPrivKey
	}
	key, err := cfg.Key()
	require.NoError(t, err)
	gateway := NewGateway(ft)
	return NewPipeline(gateway, NewResolver(gateway), key)
}

func shortPollInterval(t *testing.T) {
	t.Helper()
	old := receiptPollInterval
	receiptPollInterval = 5 * time.Millisecond
	t.Cleanup(func() { receiptPollInterval = old })
}

func TestSendLocalFillsAndSubmits(t *testing.T) {
	ft := newFakeTransport().
		respond("eth_getTransactionCount", "0x0").
		respond("eth_gasPrice", "0x3b9aca00").
		respond("eth_estimateGas", "0x5208").
		respond("eth_chainId", "0x1").
		respond("eth_sendRawTransaction", testTxHash)
	p := newTestPipeline(t, ft, true)

	res, err := p.SendLocal(context.Background(), &TransactionRequest{
		To:    AddressIdentifier(types.MustAddressFromHex(vitalikAddrHex)),
		Value: new(big.Int).SetUint64(weiPerEther),
	}, false, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"eth_getTransactionCount",
		"eth_gasPrice",
		"eth_estimateGas",
		"eth_chainId",
		"eth_sendRawTransaction",
	}, ft.methods())
	assert.JSONEq(t, fmt.Sprintf(`["%s", "pending"]`, testKeyAddr), ft.paramsJSON(0))
	assert.Equal(t, testTxHash, res.TxHash.String())
	assert.Nil(t, res.Receipt)
}

func TestSendLocalFullySpecifiedSkipsFill(t *testing.T) {
	ft := newFakeTransport().respond("eth_sendRawTransaction", testTxHash)
	p := newTestPipeline(t, ft, true)

	nonce := uint64(7)
	gasLimit := uint64(21000)
	chainID := uint64(1)
	_, err := p.SendLocal(context.Background(), &TransactionRequest{
		To:       AddressIdentifier(types.MustAddressFromHex(vitalikAddrHex)),
		Value:    big.NewInt(1),
		Nonce:    &nonce,
		GasLimit: &gasLimit,
		GasPrice: big.NewInt(1000000000),
		ChainID:  &chainID,
	}, false, 0)
	require.NoError(t, err)

	require.Equal(t, []string{"eth_sendRawTransaction"}, ft.methods(),
		"a fully specified request must not issue fill calls")
	raw, ok := ft.calls[0].params[0].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(raw, "0x"))
	assert.Greater(t, len(raw), 2)
}

func TestSendLocalWithoutKey(t *testing.T) {
	ft := newFakeTransport()
	p := newTestPipeline(t, ft, false)

	_, err := p.SendLocal(context.Background(), &TransactionRequest{}, false, 0)
	require.Error(t, err)

	var sigErr *SigningError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, ExitSigning, ExitCode(err))
	assert.Empty(t, ft.calls, "a missing key must fail before any network call")
}

func TestSignTransactionFromMismatch(t *testing.T) {
	ft := newFakeTransport()
	p := newTestPipeline(t, ft, true)

	other := types.MustAddressFromHex(vitalikAddrHex)
	_, err := p.SignTransaction(context.Background(), &TransactionRequest{From: &other})
	require.Error(t, err)

	var sigErr *SigningError
	require.ErrorAs(t, err, &sigErr)
	assert.Contains(t, err.Error(), "does not match")
	assert.Empty(t, ft.calls)
}

func TestSignTransaction(t *testing.T) {
	ft := newFakeTransport().
		respond("eth_getTransactionCount", "0x2").
		respond("eth_gasPrice", "0x3b9aca00").
		respond("eth_estimateGas", "0x5208").
		respond("eth_chainId", "0x1")
	p := newTestPipeline(t, ft, true)

	signed, err := p.SignTransaction(context.Background(), &TransactionRequest{
		To:    AddressIdentifier(types.MustAddressFromHex(vitalikAddrHex)),
		Value: big.NewInt(1),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed.Raw, "0x"))
	assert.NotEqual(t, types.Hash{}, signed.TxHash)
	assert.Len(t, ft.calls, 4, "signing must not submit anything")
}

func TestSignMessage(t *testing.T) {
	p := newTestPipeline(t, newFakeTransport(), true)

	msg, err := p.SignMessage([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, types.MustAddressFromHex(testKeyAddr), msg.Signer)
	assert.NotEmpty(t, msg.Signature)
}

func TestSignMessageWithoutKey(t *testing.T) {
	p := newTestPipeline(t, newFakeTransport(), false)

	_, err := p.SignMessage([]byte("hello"))
	var sigErr *SigningError
	require.ErrorAs(t, err, &sigErr)
}

func TestSignMessageEmptyData(t *testing.T) {
	p := newTestPipeline(t, newFakeTransport(), true)

	_, err := p.SignMessage(nil)
	require.Error(t, err)
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestSendNodeRequiresFrom(t *testing.T) {
	ft := newFakeTransport()
	p := newTestPipeline(t, ft, false)

	_, err := p.SendNode(context.Background(), &TransactionRequest{}, false, 0)
	require.Error(t, err)
	assert.Equal(t, ExitValidation, ExitCode(err))
	assert.Empty(t, ft.calls)
}

func TestSendNodeForwardsUnsignedCallObject(t *testing.T) {
	ft := newFakeTransport().respond("eth_sendTransaction", testTxHash)
	p := newTestPipeline(t, ft, false)

	from := types.MustAddressFromHex(testKeyAddr)
	res, err := p.SendNode(context.Background(), &TransactionRequest{
		From:  &from,
		To:    AddressIdentifier(types.MustAddressFromHex(vitalikAddrHex)),
		Value: new(big.Int).SetUint64(weiPerEther),
	}, false, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"eth_sendTransaction"}, ft.methods())
	assert.JSONEq(t, fmt.Sprintf(
		`[{"from":"%s","to":"%s","value":"0xde0b6b3a7640000"}]`,
		testKeyAddr, vitalikAddrHex,
	), ft.paramsJSON(0))
	assert.Equal(t, testTxHash, res.TxHash.String())
}

func TestSendRaw(t *testing.T) {
	ft := newFakeTransport().respond("eth_sendRawTransaction", testTxHash)
	p := newTestPipeline(t, ft, false)

	res, err := p.SendRaw(context.Background(), []byte{0x01, 0x02}, false, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `["0x0102"]`, ft.paramsJSON(0))
	assert.Equal(t, testTxHash, res.TxHash.String())
}

func TestSendRawEmpty(t *testing.T) {
	ft := newFakeTransport()
	p := newTestPipeline(t, ft, false)

	_, err := p.SendRaw(context.Background(), nil, false, 0)
	require.Error(t, err)
	assert.Equal(t, ExitValidation, ExitCode(err))
	assert.Empty(t, ft.calls)
}

func TestWaitForReceiptFound(t *testing.T) {
	shortPollInterval(t)

	receipt := json.RawMessage(`{"status":"0x1"}`)
	ft := newFakeTransport().
		respond("eth_getTransactionReceipt", nil).
		respond("eth_getTransactionReceipt", receipt)
	p := newTestPipeline(t, ft, false)

	hash, err := types.HashFromHex(testTxHash, types.PadNone)
	require.NoError(t, err)

	got, err := p.WaitForReceipt(context.Background(), hash, time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, string(receipt), string(got))
	assert.Equal(t, []string{"eth_getTransactionReceipt", "eth_getTransactionReceipt"}, ft.methods())
}

func TestWaitForReceiptTimeout(t *testing.T) {
	shortPollInterval(t)

	ft := newFakeTransport().respond("eth_getTransactionReceipt", nil)
	p := newTestPipeline(t, ft, false)

	hash, err := types.HashFromHex(testTxHash, types.PadNone)
	require.NoError(t, err)

	_, err = p.WaitForReceipt(context.Background(), hash, 12*time.Millisecond)
	require.Error(t, err)

	var timeoutErr *ConfirmationTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, hash, timeoutErr.TxHash)
	assert.Equal(t, ExitConfirmationTimeout, ExitCode(err))
}

func TestWaitForReceiptInterrupted(t *testing.T) {
	shortPollInterval(t)

	p := newTestPipeline(t, newFakeTransport(), false)

	hash, err := types.HashFromHex(testTxHash, types.PadNone)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.WaitForReceipt(ctx, hash, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "interrupted")

	var timeoutErr *ConfirmationTimeoutError
	assert.False(t, errors.As(err, &timeoutErr), "an interrupt is not a timeout")
}

func TestSendRawKeepsHashOnConfirmationTimeout(t *testing.T) {
	shortPollInterval(t)

	ft := newFakeTransport().
		respond("eth_sendRawTransaction", testTxHash).
		respond("eth_getTransactionReceipt", nil)
	p := newTestPipeline(t, ft, false)

	res, err := p.SendRaw(context.Background(), []byte{0x01}, true, 12*time.Millisecond)
	require.Error(t, err)

	var timeoutErr *ConfirmationTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.NotNil(t, res, "the hash must survive a confirmation timeout")
	assert.Equal(t, testTxHash, res.TxHash.String())
	assert.Nil(t, res.Receipt)
}
