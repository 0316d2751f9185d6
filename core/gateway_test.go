package core

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/defiweb/go-eth/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayCallBigInt(t *testing.T) {
	ft := newFakeTransport().respond("eth_blockNumber", "0x1050343")
	g := NewGateway(ft)

	n, err := g.CallBigInt(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(17081411), n)
	assert.Equal(t, []string{"eth_blockNumber"}, ft.methods())
}

func TestGatewayCallUint64(t *testing.T) {
	ft := newFakeTransport().respond("eth_chainId", "0x1")
	g := NewGateway(ft)

	n, err := g.CallUint64(context.Background(), "eth_chainId")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestGatewayCallUint64Overflow(t *testing.T) {
	ft := newFakeTransport().respond("eth_chainId", "0x10000000000000000")
	g := NewGateway(ft)

	_, err := g.CallUint64(context.Background(), "eth_chainId")
	require.Error(t, err)

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Contains(t, err.Error(), "overflows uint64")
}

func TestGatewayCallRaw(t *testing.T) {
	ft := newFakeTransport().respond("eth_syncing", false)
	g := NewGateway(ft)

	raw, err := g.CallRaw(context.Background(), "eth_syncing")
	require.NoError(t, err)
	assert.JSONEq(t, "false", string(raw))
}

func TestGatewayClassifiesRPCError(t *testing.T) {
	ft := newFakeTransport().failWith("eth_getBalance", &transport.RPCError{
		Code:    -32000,
		Message: "header not found",
	})
	g := NewGateway(ft)

	_, err := g.CallBigInt(context.Background(), "eth_getBalance", "0x0", "latest")
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "eth_getBalance", rpcErr.Method)
	assert.Equal(t, int64(-32000), rpcErr.Code)
	assert.Equal(t, "header not found", rpcErr.Message)
	assert.Equal(t, ExitRPC, ExitCode(err))
}

func TestGatewayClassifiesTransportError(t *testing.T) {
	ft := newFakeTransport().failWith("eth_blockNumber", errors.New("connection refused"))
	g := NewGateway(ft)

	_, err := g.CallBigInt(context.Background(), "eth_blockNumber")
	require.Error(t, err)

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "eth_blockNumber", tErr.Method)
	assert.Equal(t, ExitTransport, ExitCode(err))
}

func TestGatewayMalformedQuantity(t *testing.T) {
	ft := newFakeTransport().respond("eth_gasPrice", "not-a-quantity")
	g := NewGateway(ft)

	_, err := g.CallBigInt(context.Background(), "eth_gasPrice")
	require.Error(t, err)

	var tErr *TransportError
	assert.ErrorAs(t, err, &tErr)
}
