// Package socketserver implements the Unix domain socket server side of the
// bridge: accepting companion connections, framing the line protocol, and
// dispatching requests to host-registered handlers.
//
// # Architecture
//
//   - Server: binds the socket, owns the socket file's lifecycle, and
//     accepts connections
//   - conn: one per accepted client; a read loop feeds a per-connection
//     LineDecoder and a write loop serializes responses back out
//   - Dispatcher: looks up the method in the shared HandlerTable and
//     contains handler failures
//
// # Message protocol
//
// Communication uses JSON messages delimited by newlines:
//
//	{"id":"<string>","method":"<string>","params":<any>}\n
//
// Every request receives exactly one response on its originating
// connection, correlated by id. Handlers run concurrently, across
// connections and across requests on one connection, so responses are not
// ordered. Malformed lines are dropped silently; the client is expected to
// time out on its own if it cares.
package socketserver
