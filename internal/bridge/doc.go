// Package bridge coordinates the lifecycle of the local MCP bridge: the
// Unix socket server that lets the companion process call back into
// handlers registered by the host.
//
// Manager is the state machine (idle → starting → ready | failed), owner
// of the socket path and of the single live listener. Publisher fans
// status snapshots out to any number of subscribers with replay of the
// current value on subscribe. Bridge is the façade most callers use, with
// a factory constructor plus a process-wide Default/ResetDefault shim.
//
// The socket is process-local; access control is filesystem permissions on
// the socket file, nothing more.
package bridge
