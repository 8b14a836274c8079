package main

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestFile creates a file named name under a temporary directory and
// returns its path.
func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// resetFlags restores every command flag to its default.
func resetFlags() {
	verbose = false
	arenaSize = 16 * 1024
	sendBufsNum = 4
	sendBufsSize = 32 * 1024
	sendLimit = 0
	sendInMemory = false
	sendMmap = false
	sendStats = false
	headersGet = nil
	headersCap = 20
	headersStats = false
}
