package socketserver

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/codefionn/testbridge/internal/logger"
	"github.com/codefionn/testbridge/internal/protocol"
)

// conn serves one accepted client. The read loop owns the decode buffer
// exclusively; every decoded request is dispatched on its own goroutine so
// a slow handler never stalls decoding of later lines.
type conn struct {
	id         string
	sock       net.Conn
	dispatcher *Dispatcher
	log        *logger.Logger

	send      chan *protocol.Response
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(id string, sock net.Conn, dispatcher *Dispatcher, log *logger.Logger) *conn {
	return &conn{
		id:         id,
		sock:       sock,
		dispatcher: dispatcher,
		log:        log,
		send:       make(chan *protocol.Response, 64),
		done:       make(chan struct{}),
	}
}

// serve runs the read loop until the client disconnects or errors, with the
// write loop pumping responses in the background. It returns once the
// connection is torn down; in-flight handlers may outlive it and their late
// responses are dropped.
func (c *conn) serve(ctx context.Context) {
	defer c.close()

	go c.writeLoop()

	var decoder protocol.LineDecoder
	buf := make([]byte, 4096)
	for {
		n, err := c.sock.Read(buf)
		if n > 0 {
			for _, line := range decoder.Feed(buf[:n]) {
				c.handleLine(ctx, line)
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				c.log.Debug("Client %s closed the connection", c.id)
			case errors.Is(err, net.ErrClosed):
				c.log.Debug("Client %s connection already closed", c.id)
			default:
				c.log.Error("Read error on client %s: %v", c.id, err)
			}
			return
		}
	}
}

// handleLine parses one complete line and kicks off its handler. Malformed
// JSON is logged and dropped without a response; the connection stays up.
func (c *conn) handleLine(ctx context.Context, line []byte) {
	req, err := protocol.ParseRequest(line)
	if err != nil {
		c.log.Warn("Discarding malformed line from client %s: %v", c.id, err)
		return
	}

	go func() {
		resp := c.dispatcher.Dispatch(ctx, req)
		c.enqueue(resp)
	}()
}

// enqueue hands a response to the write loop. Responses racing a teardown
// are discarded; there is no one left to read them.
func (c *conn) enqueue(resp *protocol.Response) {
	select {
	case c.send <- resp:
	case <-c.done:
	}
}

func (c *conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case resp := <-c.send:
			line, err := resp.Encode()
			if err != nil {
				c.log.Error("Failed to encode response %s for client %s: %v", resp.ID, c.id, err)
				continue
			}
			if _, err := c.sock.Write(line); err != nil {
				c.log.Error("Write error on client %s: %v", c.id, err)
				c.close()
				return
			}
		}
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.sock.Close()
	})
}
