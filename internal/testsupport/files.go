// Package testsupport builds the filesystem fixtures the build pipeline
// tests run against.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// CreateModelDir lays out an esp-sr style model directory containing the
// given multinet models, each with a small deterministic file set, and
// returns the directory. Pass "fst" to include the shared fst model.
func CreateModelDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		base := filepath.Join(dir, "multinet_model", name)
		WriteFile(t, filepath.Join(base, "model.bin"), []byte(name+" weights"))
		WriteFile(t, filepath.Join(base, "config", "net.json"), []byte(`{"layers":3}`))
	}
	return dir
}
