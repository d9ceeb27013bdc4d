package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", path)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[paths]") {
		t.Fatalf("sample config missing [paths] section:\n%s", data)
	}

	// A second init without --overwrite must refuse.
	if _, err := runCommand(t, "config", "init", "--path", path); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if out, err := runCommand(t, "config", "init", "--path", path, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v\n%s", err, out)
	}
}

func TestConfigValidateAndShow(t *testing.T) {
	cfgPath := writeTestConfig(t, t.TempDir())

	out, err := runCommand(t, "-c", cfgPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out, err = runCommand(t, "-c", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "model_dir") || !strings.Contains(out, cfgPath) {
		t.Fatalf("effective config not rendered:\n%s", out)
	}
}

func TestConfigValidateRejectsBadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[assets]\nthreshold = 7.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCommand(t, "-c", cfgPath, "config", "validate"); err == nil {
		t.Fatal("expected validation failure")
	}
}
