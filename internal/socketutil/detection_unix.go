//go:build linux || darwin

package socketutil

import (
	"net"
	"os"

	"github.com/codefionn/testbridge/internal/logger"
)

// detectBridge is the platform-specific implementation for Unix-like
// systems.
func detectBridge(path string) bool {
	if path == "" {
		logger.Debug("No socket path given, skipping bridge detection")
		return false
	}

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Socket file does not exist: %s", path)
		} else {
			logger.Debug("Error checking socket file: %v", err)
		}
		return false
	}

	if stat.Mode()&os.ModeSocket == 0 {
		logger.Debug("File exists but is not a socket: %s", path)
		return false
	}

	// A stale file from a crashed bridge still stats as a socket; only an
	// accepted dial proves someone is listening.
	conn, err := net.DialTimeout("unix", path, DetectTimeout)
	if err != nil {
		logger.Debug("Socket exists but connection failed: %v", err)
		return false
	}
	conn.Close()

	logger.Debug("Detected active bridge at: %s", path)
	return true
}
