package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// rpcCall is one recorded request as seen by the transport.
type rpcCall struct {
	method string
	params []any
}

// scriptStep is one scripted response. Steps are consumed in order, a call
// whose method does not match the next step is reported as an error.
type scriptStep struct {
	method string
	result any
	err    error
}

// fakeTransport replays a scripted sequence of JSON-RPC responses and records
// every call it receives. Results are round-tripped through encoding/json so
// decoding behaves exactly as with a real node reply.
type fakeTransport struct {
	steps []scriptStep
	calls []rpcCall
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{}
}

func (f *fakeTransport) respond(method string, result any) *fakeTransport {
	f.steps = append(f.steps, scriptStep{method: method, result: result})
	return f
}

func (f *fakeTransport) failWith(method string, err error) *fakeTransport {
	f.steps = append(f.steps, scriptStep{method: method, err: err})
	return f
}

func (f *fakeTransport) Call(ctx context.Context, result any, method string, args ...any) error {
	f.calls = append(f.calls, rpcCall{method: method, params: args})
	if len(f.steps) == 0 {
		return fmt.Errorf("unexpected call to %s", method)
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	if step.method != method {
		return fmt.Errorf("expected call to %s, got %s", step.method, method)
	}
	if step.err != nil {
		return step.err
	}
	if result == nil {
		return nil
	}
	b, err := json.Marshal(step.result)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, result)
}

// methods returns the recorded call methods in order.
func (f *fakeTransport) methods() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.method
	}
	return out
}

// paramsJSON returns the recorded params of call i as a JSON array.
func (f *fakeTransport) paramsJSON(i int) string {
	params := f.calls[i].params
	if params == nil {
		params = []any{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return err.Error()
	}
	return string(b)
}
