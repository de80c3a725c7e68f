package socketserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/testbridge/internal/protocol"
)

func sockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "bridge.sock")
}

func startServer(t *testing.T, table HandlerTable, opts ...Option) *Server {
	t.Helper()
	srv, err := Listen(sockPath(t), table, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func dial(t *testing.T, path string) (net.Conn, *bufio.Reader) {
	t.Helper()
	sock, err := net.Dial("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { sock.Close() })
	return sock, bufio.NewReader(sock)
}

func readResponse(t *testing.T, r *bufio.Reader) *protocol.Response {
	t.Helper()
	line, err := r.ReadBytes('\n')
	require.NoError(t, err)
	var resp protocol.Response
	require.NoError(t, json.Unmarshal(line, &resp))
	return &resp
}

func TestServerEchoRoundTrip(t *testing.T) {
	srv := startServer(t, testTable())
	sock, r := dial(t, srv.Path())

	_, err := sock.Write([]byte(`{"id":"1","method":"echo","params":{"x":1}}` + "\n"))
	require.NoError(t, err)

	resp := readResponse(t, r)
	assert.Equal(t, "1", resp.ID)
	assert.Empty(t, resp.Error)
	assert.Equal(t, map[string]any{"x": float64(1)}, resp.Result)
}

func TestServerUnknownMethod(t *testing.T) {
	srv := startServer(t, testTable())
	sock, r := dial(t, srv.Path())

	_, err := sock.Write([]byte(`{"id":"9","method":"missing","params":null}` + "\n"))
	require.NoError(t, err)

	resp := readResponse(t, r)
	assert.Equal(t, "9", resp.ID)
	assert.Equal(t, "Unknown method: missing", resp.Error)
}

// A malformed line must be dropped silently: no response, no disconnect,
// and the next valid request on the same connection still answers.
func TestServerMalformedLineIsolation(t *testing.T) {
	srv := startServer(t, testTable())
	sock, r := dial(t, srv.Path())

	_, err := sock.Write([]byte("this is not json\n" + `{"id":"2","method":"echo","params":"ok"}` + "\n"))
	require.NoError(t, err)

	resp := readResponse(t, r)
	assert.Equal(t, "2", resp.ID, "the only response must belong to the valid request")
	assert.Equal(t, "ok", resp.Result)
}

// Two requests in one chunk, the first against a slow handler: both
// responses arrive, correlated by id, in whichever order the handlers
// finish.
func TestServerConcurrentHandlersOnOneConnection(t *testing.T) {
	table := testTable()
	table["slow"] = func(ctx context.Context, params json.RawMessage) (any, error) {
		time.Sleep(150 * time.Millisecond)
		return "slow done", nil
	}

	srv := startServer(t, table)
	sock, r := dial(t, srv.Path())

	chunk := `{"id":"a","method":"slow","params":null}` + "\n" +
		`{"id":"b","method":"echo","params":"fast"}` + "\n"
	_, err := sock.Write([]byte(chunk))
	require.NoError(t, err)

	got := map[string]*protocol.Response{}
	for i := 0; i < 2; i++ {
		resp := readResponse(t, r)
		got[resp.ID] = resp
	}

	require.Contains(t, got, "a")
	require.Contains(t, got, "b")
	assert.Equal(t, "slow done", got["a"].Result)
	assert.Equal(t, "fast", got["b"].Result)
}

func TestServerMultipleClients(t *testing.T) {
	srv := startServer(t, testTable())

	for i := 0; i < 3; i++ {
		sock, r := dial(t, srv.Path())
		payload := fmt.Sprintf("client-%d", i)
		_, err := sock.Write([]byte(fmt.Sprintf(`{"id":"%d","method":"echo","params":%q}`+"\n", i, payload)))
		require.NoError(t, err)

		resp := readResponse(t, r)
		assert.Equal(t, fmt.Sprintf("%d", i), resp.ID)
		assert.Equal(t, payload, resp.Result)
	}
}

// A handler failure on one connection must not disturb another client.
func TestServerFailureDoesNotCrossConnections(t *testing.T) {
	srv := startServer(t, testTable())

	sockA, rA := dial(t, srv.Path())
	sockB, rB := dial(t, srv.Path())

	_, err := sockA.Write([]byte(`{"id":"a","method":"panicValue","params":null}` + "\n"))
	require.NoError(t, err)
	_, err = sockB.Write([]byte(`{"id":"b","method":"echo","params":"fine"}` + "\n"))
	require.NoError(t, err)

	respB := readResponse(t, rB)
	assert.Equal(t, "fine", respB.Result)

	respA := readResponse(t, rA)
	assert.Equal(t, "Handler failed", respA.Error)
}

func TestListenRemovesStaleSocketFile(t *testing.T) {
	path := sockPath(t)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	srv, err := Listen(path, testTable())
	require.NoError(t, err)
	defer srv.Close()

	sock, r := dial(t, path)
	_, err = sock.Write([]byte(`{"id":"1","method":"echo","params":1}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, "1", readResponse(t, r).ID)
}

func TestListenBindErrorPropagates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "bridge.sock")

	srv, err := Listen(path, testTable())
	require.Error(t, err)
	assert.Nil(t, srv)
}

func TestCloseRemovesSocketFileAndIsIdempotent(t *testing.T) {
	path := sockPath(t)
	srv, err := Listen(path, testTable())
	require.NoError(t, err)

	require.NoError(t, srv.Close())
	require.NoError(t, srv.Close())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "socket file must be removed on close")
}

func TestConnectionLimit(t *testing.T) {
	srv := startServer(t, testTable(), WithMaxConnections(1))

	first, rFirst := dial(t, srv.Path())
	_, err := first.Write([]byte(`{"id":"1","method":"echo","params":1}` + "\n"))
	require.NoError(t, err)
	readResponse(t, rFirst)

	// The second client is accepted by the kernel but closed by the
	// server immediately; its read must hit EOF without a response.
	second, rSecond := dial(t, srv.Path())
	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = rSecond.ReadBytes('\n')
	assert.Error(t, err)
}
