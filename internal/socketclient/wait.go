package socketclient

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// waitPollInterval backstops the watcher: directory watches can miss a
// socket created between the existence check and the watch registration on
// some platforms.
const waitPollInterval = 250 * time.Millisecond

// WaitForSocket blocks until a file appears at path or ctx expires. The
// companion is typically launched in parallel with the bridge start, so the
// socket may not exist yet when the process comes up.
func WaitForSocket(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create socket watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch socket directory: %w", err)
	}

	// Re-check after the watch is in place to close the startup race.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("socket watcher closed")
			}
			if event.Name == path && event.Op.Has(fsnotify.Create) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("socket watcher closed")
			}
			return fmt.Errorf("socket watcher error: %w", err)
		case <-ticker.C:
			if _, err := os.Stat(path); err == nil {
				return nil
			}
		}
	}
}
