package socketserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/testbridge/internal/protocol"
)

func testTable() HandlerTable {
	return HandlerTable{
		"echo": func(ctx context.Context, params json.RawMessage) (any, error) {
			var v any
			if err := json.Unmarshal(params, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
		"fail": func(ctx context.Context, params json.RawMessage) (any, error) {
			return nil, errors.New("disk on fire")
		},
		"failSilently": func(ctx context.Context, params json.RawMessage) (any, error) {
			return nil, errors.New("")
		},
		"panicValue": func(ctx context.Context, params json.RawMessage) (any, error) {
			panic(42)
		},
		"panicError": func(ctx context.Context, params json.RawMessage) (any, error) {
			panic(fmt.Errorf("exploded mid-flight"))
		},
	}
}

func TestDispatchEcho(t *testing.T) {
	d := NewDispatcher(testTable(), nil)

	resp := d.Dispatch(context.Background(), &protocol.Request{
		ID:     "1",
		Method: "echo",
		Params: json.RawMessage(`{"x":1}`),
	})

	assert.Equal(t, "1", resp.ID)
	assert.Empty(t, resp.Error)
	assert.Equal(t, map[string]any{"x": float64(1)}, resp.Result)
}

func TestDispatchUnknownMethod(t *testing.T) {
	d := NewDispatcher(testTable(), nil)

	resp := d.Dispatch(context.Background(), &protocol.Request{ID: "7", Method: "missing"})

	assert.Equal(t, "7", resp.ID)
	assert.Equal(t, "Unknown method: missing", resp.Error)
	assert.Nil(t, resp.Result)

	line, err := resp.Encode()
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(line, &raw))
	_, hasResult := raw["result"]
	assert.False(t, hasResult)
}

func TestDispatchHandlerError(t *testing.T) {
	d := NewDispatcher(testTable(), nil)

	resp := d.Dispatch(context.Background(), &protocol.Request{ID: "e", Method: "fail"})
	assert.Equal(t, "disk on fire", resp.Error)
}

func TestDispatchMessagelessFailureUsesFallback(t *testing.T) {
	d := NewDispatcher(testTable(), nil)

	resp := d.Dispatch(context.Background(), &protocol.Request{ID: "s", Method: "failSilently"})
	assert.Equal(t, "Handler failed", resp.Error)
}

func TestDispatchRecoversPanics(t *testing.T) {
	d := NewDispatcher(testTable(), nil)

	// A non-error panic value is never serialized; only the fixed
	// fallback message goes on the wire.
	resp := d.Dispatch(context.Background(), &protocol.Request{ID: "p1", Method: "panicValue"})
	assert.Equal(t, "Handler failed", resp.Error)

	resp = d.Dispatch(context.Background(), &protocol.Request{ID: "p2", Method: "panicError"})
	assert.Equal(t, "exploded mid-flight", resp.Error)
}

func TestDispatchEmptyTable(t *testing.T) {
	d := NewDispatcher(nil, nil)

	resp := d.Dispatch(context.Background(), &protocol.Request{ID: "x", Method: "anything"})
	assert.Equal(t, "Unknown method: anything", resp.Error)
}
