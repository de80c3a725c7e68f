package bridge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codefionn/testbridge/internal/logger"
	"github.com/codefionn/testbridge/internal/socketserver"
)

// ErrHandlersNotSet is returned by Start before any handler table has been
// registered. The check runs before any socket operation.
var ErrHandlersNotSet = errors.New("Handlers must be set before starting the bridge")

// listener is the part of socketserver.Server the manager uses.
type listener interface {
	Path() string
	Close() error
}

// Manager owns the bridge start/stop state machine.
//
// One mutex guards handlers, server handle, path, and status, so racing
// Start/Stop/SetHandlers calls serialize instead of interleaving. Every
// status transition is published while that lock is still held: a
// subscriber can never observe a status that Status() would not also
// return.
type Manager struct {
	log       *logger.Logger
	publisher *Publisher

	dir      string
	prefix   string
	maxConns int

	// listen is swapped out by tests.
	listen func(path string, table socketserver.HandlerTable) (listener, error)

	mu       sync.Mutex
	handlers socketserver.HandlerTable
	server   listener
	path     string
	status   Status
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSocketDir overrides the directory for generated socket paths.
// The default is os.TempDir().
func WithSocketDir(dir string) ManagerOption {
	return func(m *Manager) { m.dir = dir }
}

// WithPrefix overrides the leading component of generated socket names.
func WithPrefix(prefix string) ManagerOption {
	return func(m *Manager) { m.prefix = prefix }
}

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(log *logger.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithMaxConnections caps concurrent companion connections.
func WithMaxConnections(n int) ManagerOption {
	return func(m *Manager) { m.maxConns = n }
}

// NewManager creates a Manager in the idle state.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		log:       logger.Global(),
		publisher: NewPublisher(),
		prefix:    "testbridge",
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dir == "" {
		m.dir = os.TempDir()
	}
	m.listen = func(path string, table socketserver.HandlerTable) (listener, error) {
		return socketserver.Listen(path, table,
			socketserver.WithLogger(m.log),
			socketserver.WithMaxConnections(m.maxConns))
	}
	return m
}

// SetHandlers replaces the handler table wholesale. Callable at any time;
// the table survives stop/restart and the current status is untouched.
func (m *Manager) SetHandlers(table socketserver.HandlerTable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = table
}

// Start brings the bridge up and returns the socket path.
//
// Starting an already-running bridge is a no-op that returns the existing
// path; no second listener is created. Without handlers it fails fast with
// ErrHandlersNotSet, status unchanged.
func (m *Manager) Start() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked()
}

func (m *Manager) startLocked() (string, error) {
	if m.server != nil {
		m.log.Debug("Bridge already running at %s", m.path)
		return m.path, nil
	}
	if m.handlers == nil {
		return "", ErrHandlersNotSet
	}

	m.setStatusLocked(Status{Starting: true})

	path := m.generatePath()
	srv, err := m.listen(path, m.handlers)
	if err != nil {
		m.server = nil
		m.path = ""
		m.setStatusLocked(Status{Error: err.Error()})
		m.log.Error("Bridge start failed: %v", err)
		return "", err
	}

	m.server = srv
	m.path = path
	m.setStatusLocked(Status{BridgeReady: true, SocketPath: path})
	m.log.Info("Bridge started at %s", path)
	return path, nil
}

// Stop tears the bridge down. Stopping an idle bridge succeeds silently
// and touches nothing.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	return nil
}

func (m *Manager) stopLocked() {
	if m.server == nil {
		return
	}

	if err := m.server.Close(); err != nil {
		m.log.Warn("Error closing bridge server: %v", err)
	}
	// The server removes its own socket file; this second delete covers a
	// close that died halfway. Failures are irrelevant either way.
	_ = os.Remove(m.path)

	m.server = nil
	m.path = ""
	m.setStatusLocked(Status{})
	m.log.Info("Bridge stopped")
}

// Restart stops then starts under a single critical section, so no window
// exists where two listeners are live. Returns the new socket path.
func (m *Manager) Restart() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	return m.startLocked()
}

// Status returns the latest committed status snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsRunning reports whether a listener is live.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.server != nil
}

// SocketPath returns the live socket path, or empty when not running.
func (m *Manager) SocketPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Subscribe attaches a status listener; its first value is the current
// snapshot.
func (m *Manager) Subscribe() *Subscription {
	return m.publisher.Subscribe()
}

// setStatusLocked commits the new status and publishes it. Caller holds
// m.mu, which is what makes "publish strictly after commit" hold.
func (m *Manager) setStatusLocked(s Status) {
	m.status = s
	m.publisher.Publish(s)
}

// generatePath builds a fresh socket path. Pid plus a nanosecond timestamp
// keeps concurrent managers on distinct files.
func (m *Manager) generatePath() string {
	name := fmt.Sprintf("%s-mcp-%d-%d.sock", m.prefix, os.Getpid(), time.Now().UnixNano())
	return filepath.Join(m.dir, name)
}
