package socketclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/codefionn/testbridge/internal/logger"
	"github.com/codefionn/testbridge/internal/protocol"
)

// ErrClosed is returned for calls attempted or in flight after the client
// shut down.
var ErrClosed = errors.New("socket client is closed")

// CallError is a failure reported by the bridge itself (unknown method or
// handler failure), as opposed to a transport problem.
type CallError struct {
	Method  string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("bridge call %s failed: %s", e.Method, e.Message)
}

// Config holds client configuration
type Config struct {
	// SocketPath is the path to the bridge's Unix socket
	SocketPath string
	// ConnectTimeout bounds the total time spent dialing, retries included
	ConnectTimeout time.Duration
	// DialRetryInterval is the initial delay between dial attempts
	DialRetryInterval time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		ConnectTimeout:    5 * time.Second,
		DialRetryInterval: 100 * time.Millisecond,
	}
}

// response mirrors protocol.Response with the result left raw so callers
// can decode into their own types.
type response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// Client is the companion-process side of the bridge: it dials the socket
// and issues requests, correlating responses by id. Calls may be issued
// concurrently from any goroutine; responses arrive in completion order,
// not request order.
type Client struct {
	cfg *Config
	log *logger.Logger

	conn    net.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan *response

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client for the socket at path with default settings.
func NewClient(path string) *Client {
	cfg := DefaultConfig()
	cfg.SocketPath = path
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with explicit configuration.
func NewClientWithConfig(cfg *Config) *Client {
	return &Client{
		cfg:     cfg,
		log:     logger.Global().WithPrefix("client"),
		pending: make(map[string]chan *response),
		done:    make(chan struct{}),
	}
}

// Connect dials the bridge socket, retrying with backoff until the socket
// answers, the configured timeout elapses, or ctx is cancelled. The bridge
// may still be mid-start when the companion launches; retrying here absorbs
// that window.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.SocketPath == "" {
		return errors.New("socket path not configured")
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.DialRetryInterval
	policy.MaxElapsedTime = c.cfg.ConnectTimeout

	var conn net.Conn
	dial := func() error {
		var err error
		conn, err = net.Dial("unix", c.cfg.SocketPath)
		return err
	}
	if err := backoff.Retry(dial, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("failed to connect to bridge socket %s: %w", c.cfg.SocketPath, err)
	}

	c.conn = conn
	go c.readLoop()

	c.log.Debug("Connected to bridge at %s", c.cfg.SocketPath)
	return nil
}

// Call sends one request and waits for its response. params may be any
// JSON-marshalable value (json.RawMessage passes through). A response-level
// error comes back as *CallError; transport failures and cancellation come
// back as ordinary errors. The raw result is returned for the caller to
// decode.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.conn == nil {
		return nil, errors.New("client is not connected")
	}

	var raw json.RawMessage
	switch p := params.(type) {
	case nil:
		raw = json.RawMessage("null")
	case json.RawMessage:
		raw = p
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params for %s: %w", method, err)
		}
		raw = data
	}

	id := uuid.NewString()
	ch := make(chan *response, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	line, err := json.Marshal(&protocol.Request{ID: id, Method: method, Params: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request for %s: %w", method, err)
	}
	line = append(line, '\n')

	c.writeMu.Lock()
	_, err = c.conn.Write(line)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send request for %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return nil, &CallError{Method: method, Message: resp.Error}
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Close tears the connection down and fails every in-flight call with
// ErrClosed. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
	return nil
}

func (c *Client) readLoop() {
	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Debug("Bridge connection lost: %v", err)
				c.Close()
			}
			return
		}

		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			c.log.Warn("Discarding malformed response line: %v", err)
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		c.pendingMu.Unlock()
		if !ok {
			c.log.Debug("Dropping response for unknown id %q", resp.ID)
			continue
		}
		ch <- &resp
	}
}
