package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/testbridge/internal/bridge"
)

func TestDiagnosticHandlers(t *testing.T) {
	b := bridge.New(bridge.WithSocketDir(t.TempDir()))
	defer b.Dispose()
	table := diagnosticHandlers(b)

	result, err := table["echo"](context.Background(), json.RawMessage(`{"n":2}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(2)}, result)

	result, err = table["ping"](context.Background(), nil)
	require.NoError(t, err)
	pong, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, pong["pong"])

	result, err = table["bridge.status"](context.Background(), nil)
	require.NoError(t, err)
	st, ok := result.(bridge.Status)
	require.True(t, ok)
	assert.False(t, st.BridgeReady)
}
