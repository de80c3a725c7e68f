// Package socketutil provides shared helpers for probing the bridge socket.
package socketutil

import (
	"fmt"
	"os"
	"time"
)

// DetectTimeout is how long a probe waits for the bridge to answer a dial.
const DetectTimeout = 1 * time.Second

// DetectBridge checks whether a live bridge is listening at path.
//
// On Unix-like systems it verifies the file exists, is a socket, and
// accepts a connection. On platforms without Unix domain sockets it always
// returns false.
func DetectBridge(path string) bool {
	return detectBridge(path)
}

// DetectionInfo returns a human-readable description of the socket state
// at path, for status output and logs.
func DetectionInfo(path string) string {
	if path == "" {
		return "socket path: (not configured)"
	}

	info := fmt.Sprintf("socket path: %s", path)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return info + " (not found)"
		}
		return info + fmt.Sprintf(" (error: %v)", err)
	}

	if DetectBridge(path) {
		return info + " (active bridge detected)"
	}
	return info + " (exists but bridge not responding)"
}
