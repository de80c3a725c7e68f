// Package socketclient implements the companion-process side of the
// bridge protocol: dialing the Unix socket, issuing requests, and
// correlating newline-delimited JSON responses by id.
//
// The MCP companion uses this to invoke handlers registered by the host
// extension. Calls are safe to issue concurrently; a slow handler on the
// bridge side delays only its own call.
package socketclient
