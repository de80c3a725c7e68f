// Package mcpsetup registers the bridge companion in a project's .mcp.json
// so MCP-aware agents launch it with the socket path in its environment.
package mcpsetup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/codefionn/testbridge/internal/config"
)

// FileName is the well-known MCP configuration file name.
const FileName = ".mcp.json"

// ServerEntry is one companion server definition inside .mcp.json.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// File is the subset of .mcp.json this package manages. Unknown top-level
// keys survive a rewrite because existing server entries are carried over
// untouched as raw JSON.
type File struct {
	McpServers map[string]json.RawMessage `json:"mcpServers"`
}

// EnsureCompanion records the companion under its configured name in
// projectDir's .mcp.json, pointing its socket env var at socketPath. An
// existing entry for the same name is overwritten (the socket path changes
// on every bridge start); other entries are preserved. Returns the path of
// the file written.
func EnsureCompanion(projectDir string, companion config.CompanionConfig, socketPath string) (string, error) {
	if len(companion.Exec) == 0 {
		return "", fmt.Errorf("companion command is not configured")
	}

	mcpPath := filepath.Join(projectDir, FileName)

	file := File{McpServers: make(map[string]json.RawMessage)}
	if data, err := os.ReadFile(mcpPath); err == nil {
		if err := json.Unmarshal(data, &file); err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", mcpPath, err)
		}
		if file.McpServers == nil {
			file.McpServers = make(map[string]json.RawMessage)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read %s: %w", mcpPath, err)
	}

	entry := ServerEntry{
		Command: companion.Exec[0],
		Args:    companion.Exec[1:],
		Env:     map[string]string{companion.SocketEnv: socketPath},
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to encode companion entry: %w", err)
	}
	file.McpServers[companion.Name] = raw

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", FileName, err)
	}
	data = append(data, '\n')

	// Atomic replace: an agent reading .mcp.json mid-write must never see
	// a truncated file.
	if err := atomic.WriteFile(mcpPath, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", mcpPath, err)
	}

	return mcpPath, nil
}

// CompanionSocket reads the socket path recorded for the named companion,
// or empty when absent.
func CompanionSocket(projectDir string, companion config.CompanionConfig) (string, error) {
	data, err := os.ReadFile(filepath.Join(projectDir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	raw, ok := file.McpServers[companion.Name]
	if !ok {
		return "", nil
	}
	var entry ServerEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", fmt.Errorf("failed to parse companion entry: %w", err)
	}
	return entry.Env[companion.SocketEnv], nil
}
