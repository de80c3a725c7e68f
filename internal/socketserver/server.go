package socketserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/codefionn/testbridge/internal/logger"
)

// Server accepts connections on a Unix domain socket and serves the
// newline-delimited request/response protocol over each of them.
//
// The handler table is shared across connections; decode buffers are not.
// The server owns the socket file: it clears a stale file before binding
// and removes the file again on Close.
type Server struct {
	path       string
	listener   net.Listener
	dispatcher *Dispatcher
	log        *logger.Logger
	maxConns   int

	connMu  sync.RWMutex
	conns   map[string]*conn
	connSeq int

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMaxConnections caps concurrent clients. Zero or negative means
// unlimited.
func WithMaxConnections(n int) Option {
	return func(s *Server) { s.maxConns = n }
}

// Listen binds the server to path and starts accepting connections.
//
// A leftover file at path (stale socket from a previous crash) is removed
// first, ignoring failures. A bind error is returned as-is with no
// resources retained.
func Listen(path string, table HandlerTable, opts ...Option) (*Server, error) {
	s := &Server{
		path:  path,
		log:   logger.Global(),
		conns: make(map[string]*conn),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dispatcher = NewDispatcher(table, s.log)

	// Best-effort removal of a stale socket file. If the path is truly
	// busy the bind below reports it.
	_ = os.Remove(path)

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	s.listener = listener

	go s.acceptLoop()

	s.log.Info("Bridge socket server listening on %s", path)
	return s, nil
}

// Path returns the socket path the server is bound to.
func (s *Server) Path() string {
	return s.path
}

// Close stops accepting new connections and removes the socket file.
//
// Already-accepted connections are left alone: in-flight handlers keep
// running and their responses may still be flushed after Close returns.
func (s *Server) Close() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if err := s.listener.Close(); err != nil {
			s.log.Warn("Error closing socket listener: %v", err)
		}
		_ = os.Remove(s.path)
		s.log.Info("Bridge socket server stopped (%s)", s.path)
	})
	return nil
}

// ConnCount returns the number of currently tracked connections.
func (s *Server) ConnCount() int {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	for {
		sock, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("Error accepting connection: %v", err)
			continue
		}

		if s.maxConns > 0 && s.ConnCount() >= s.maxConns {
			s.log.Warn("Connection limit (%d) reached, rejecting client", s.maxConns)
			sock.Close()
			continue
		}

		c := newConn(s.nextConnID(), sock, s.dispatcher, s.log)
		s.track(c)
		go func() {
			defer s.untrack(c)
			c.serve(context.Background())
		}()
	}
}

func (s *Server) nextConnID() string {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.connSeq++
	return fmt.Sprintf("conn_%d", s.connSeq)
}

func (s *Server) track(c *conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conns[c.id] = c
	s.log.Info("Client %s connected (total: %d)", c.id, len(s.conns))
}

func (s *Server) untrack(c *conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.conns, c.id)
	s.log.Info("Client %s disconnected (total: %d)", c.id, len(s.conns))
}
