//go:build !linux && !darwin

package socketutil

import "github.com/codefionn/testbridge/internal/logger"

// detectBridge is the platform-specific implementation for non-Unix
// systems. Unix domain sockets are unsupported there, so detection always
// reports no bridge.
func detectBridge(path string) bool {
	logger.Debug("Bridge detection skipped: Unix sockets not supported on this platform")
	return false
}
