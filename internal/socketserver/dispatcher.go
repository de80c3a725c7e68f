package socketserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codefionn/testbridge/internal/logger"
	"github.com/codefionn/testbridge/internal/protocol"
)

// Handler processes one request's params and produces its result.
// Handlers may block for as long as they like (shell commands, approval
// waits); the bridge imposes no timeout of its own.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// HandlerTable maps method names to handlers. It is replaced wholesale via
// the lifecycle manager and never mutated by the server.
type HandlerTable map[string]Handler

// fallbackErrorMessage is used when a handler failure carries no usable
// message, so arbitrary panic values never leak onto the wire.
const fallbackErrorMessage = "Handler failed"

// Dispatcher routes decoded requests to the shared handler table.
type Dispatcher struct {
	table HandlerTable
	log   *logger.Logger
}

// NewDispatcher creates a dispatcher over the given table.
func NewDispatcher(table HandlerTable, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Global()
	}
	return &Dispatcher{table: table, log: log}
}

// Dispatch invokes the handler for req and returns exactly one response.
// A panicking or failing handler is contained here; it can never take down
// the connection or affect other in-flight requests.
func (d *Dispatcher) Dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {
	handler, ok := d.table[req.Method]
	if !ok {
		return protocol.NewError(req.ID, fmt.Sprintf("Unknown method: %s", req.Method))
	}

	result, err := d.invoke(ctx, handler, req.Params)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = fallbackErrorMessage
		}
		d.log.Debug("Handler for %s failed: %s", req.Method, msg)
		return protocol.NewError(req.ID, msg)
	}
	return protocol.NewResult(req.ID, result)
}

func (d *Dispatcher) invoke(ctx context.Context, handler Handler, params json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Handler panicked: %v", r)
			if perr, ok := r.(error); ok && perr.Error() != "" {
				err = perr
				return
			}
			err = fmt.Errorf("%s", fallbackErrorMessage)
		}
	}()
	return handler(ctx, params)
}
