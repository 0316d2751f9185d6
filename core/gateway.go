package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/defiweb/go-eth/hexutil"
	"github.com/defiweb/go-eth/rpc/transport"
	logger "github.com/sirupsen/logrus"
)

// Transport sends a single JSON-RPC request and decodes the result into the
// given value. *transport.HTTP from go-eth is the production implementation,
// tests inject a fake.
type Transport interface {
	Call(ctx context.Context, result any, method string, args ...any) error
}

// Gateway is the retryless JSON-RPC call boundary. It owns one transport
// handle for the process lifetime and holds no other state. A single failure
// is surfaced to the caller, who decides whether to re-invoke the command.
type Gateway struct {
	transport Transport
}

func NewGateway(t Transport) *Gateway {
	return &Gateway{transport: t}
}

// NewHTTPGateway builds a gateway over an HTTP transport for the given URL.
func NewHTTPGateway(rpcURL string) (*Gateway, error) {
	t, err := transport.NewHTTP(transport.HTTPOptions{URL: rpcURL})
	if err != nil {
		return nil, &TransportError{Method: "connect", Err: err}
	}
	return NewGateway(t), nil
}

// Call issues one JSON-RPC request. A well-formed error response from the
// node becomes an *RPCError, everything else an *TransportError.
func (g *Gateway) Call(ctx context.Context, result any, method string, params ...any) error {
	logger.WithField("method", method).Debugf("rpc call")
	RPCRequestsCounter.WithLabelValues(method).Inc()

	err := g.transport.Call(ctx, result, method, params...)
	if err == nil {
		return nil
	}

	var rpcErr *transport.RPCError
	if errors.As(err, &rpcErr) {
		RPCErrorsCounter.WithLabelValues(method, "rpc").Inc()
		return &RPCError{Method: method, Code: int64(rpcErr.Code), Message: rpcErr.Message}
	}
	RPCErrorsCounter.WithLabelValues(method, "transport").Inc()
	return &TransportError{Method: method, Err: err}
}

// CallRaw returns the undecoded result payload for rendering.
func (g *Gateway) CallRaw(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := g.Call(ctx, &raw, method, params...); err != nil {
		return nil, err
	}
	return raw, nil
}

// CallString decodes a plain JSON string result.
func (g *Gateway) CallString(ctx context.Context, method string, params ...any) (string, error) {
	var s string
	if err := g.Call(ctx, &s, method, params...); err != nil {
		return "", err
	}
	return s, nil
}

// CallBigInt decodes a hex quantity result.
func (g *Gateway) CallBigInt(ctx context.Context, method string, params ...any) (*big.Int, error) {
	s, err := g.CallString(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	n, err := hexutil.HexToBigInt(s)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	return n, nil
}

// CallUint64 decodes a hex quantity result that fits in 64 bits.
func (g *Gateway) CallUint64(ctx context.Context, method string, params ...any) (uint64, error) {
	n, err := g.CallBigInt(ctx, method, params...)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, &TransportError{Method: method, Err: fmt.Errorf("quantity %s overflows uint64", n)}
	}
	return n.Uint64(), nil
}
