package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gofrs/flock"

	"srpack/internal/assetbundle"
	"srpack/internal/config"
	"srpack/internal/history"
	"srpack/internal/srmodel"
	"srpack/internal/testsupport"
)

func floatPtr(v float64) *float64 { return &v }

func testConfig(t *testing.T, modelDir string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.ModelDir = modelDir
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.ScratchDir = t.TempDir()
	return &cfg
}

func TestBuildEndToEnd(t *testing.T) {
	modelDir := testsupport.CreateModelDir(t, "mn6_cn", "mn6_en", "fst")
	cfg := testConfig(t, modelDir)
	output := filepath.Join(t.TempDir(), "assets.bin")

	result, err := New(cfg, nil, nil).Build(context.Background(), Request{
		ModelNames: []string{"mn6_cn", "mn6_en"},
		OutputPath: output,
		CNWakeWord: "你好小智",
		Threshold:  floatPtr(0.25),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.OutputPath != output {
		t.Fatalf("output path %q, want %q", result.OutputPath, output)
	}
	if !reflect.DeepEqual(result.Models, []string{"mn6_cn", "mn6_en", "fst"}) {
		t.Fatalf("models %v", result.Models)
	}
	if !reflect.DeepEqual(result.Languages, []string{"cn", "en"}) {
		t.Fatalf("languages %v", result.Languages)
	}

	image, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(image)) != result.Size {
		t.Fatalf("size %d, file has %d bytes", result.Size, len(image))
	}
	bundle, err := assetbundle.Parse(image)
	if err != nil {
		t.Fatalf("built bundle does not parse: %v", err)
	}
	if bundle.Checksum != result.Checksum {
		t.Fatalf("checksum mismatch: %d vs %d", bundle.Checksum, result.Checksum)
	}

	// The bundle must contain the container and the manifest.
	byName := make(map[string]assetbundle.Record)
	for _, rec := range bundle.Records {
		byName[rec.Name] = rec
	}
	containerRec, ok := byName["srmodels.bin"]
	if !ok {
		t.Fatalf("srmodels.bin missing from bundle: %v", bundle.Records)
	}
	container, err := srmodel.Parse(bundle.Data(containerRec))
	if err != nil {
		t.Fatalf("embedded container does not parse: %v", err)
	}
	if len(container.Models) != 3 {
		t.Fatalf("embedded container has %d models, want 3", len(container.Models))
	}

	manifestRec, ok := byName["index.json"]
	if !ok {
		t.Fatal("index.json missing from bundle")
	}
	var decoded map[string]any
	if err := json.Unmarshal(bundle.Data(manifestRec), &decoded); err != nil {
		t.Fatalf("embedded manifest is not JSON: %v", err)
	}
	mn, ok := decoded["multinet_model"].(map[string]any)
	if !ok {
		t.Fatalf("manifest missing multinet_model: %v", decoded)
	}
	commands, ok := mn["commands"].(map[string]any)
	if !ok {
		t.Fatalf("manifest missing commands: %v", mn)
	}
	if _, ok := commands["cn"]; !ok {
		t.Fatal("cn commands missing")
	}
	if _, ok := commands["en"]; ok {
		t.Fatal("en commands must be absent without an en wake phrase")
	}
}

func bundleManifest(t *testing.T, path string) map[string]any {
	t.Helper()
	image, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	bundle, err := assetbundle.Parse(image)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range bundle.Records {
		if rec.Name != "index.json" {
			continue
		}
		var decoded map[string]any
		if err := json.Unmarshal(bundle.Data(rec), &decoded); err != nil {
			t.Fatal(err)
		}
		return decoded
	}
	t.Fatal("index.json missing from bundle")
	return nil
}

func TestBuildThresholdDefaultsAndOverrides(t *testing.T) {
	modelDir := testsupport.CreateModelDir(t, "mn5q8_cn")
	cfg := testConfig(t, modelDir)
	cfg.Assets.Threshold = 0.4

	// Unset threshold falls back to the configured value.
	output := filepath.Join(t.TempDir(), "assets.bin")
	if _, err := New(cfg, nil, nil).Build(context.Background(), Request{
		ModelNames: []string{"mn5q8_cn"},
		OutputPath: output,
	}); err != nil {
		t.Fatal(err)
	}
	mn := bundleManifest(t, output)["multinet_model"].(map[string]any)
	if got := mn["threshold"].(float64); got != 0.4 {
		t.Fatalf("threshold = %v, want configured 0.4", got)
	}

	// An explicit zero is a value, not "use the default".
	output = filepath.Join(t.TempDir(), "assets.bin")
	if _, err := New(cfg, nil, nil).Build(context.Background(), Request{
		ModelNames: []string{"mn5q8_cn"},
		OutputPath: output,
		Threshold:  floatPtr(0),
	}); err != nil {
		t.Fatal(err)
	}
	mn = bundleManifest(t, output)["multinet_model"].(map[string]any)
	if got := mn["threshold"].(float64); got != 0 {
		t.Fatalf("threshold = %v, want explicit 0", got)
	}
}

func TestBuildRemovesScratchOnSuccess(t *testing.T) {
	modelDir := testsupport.CreateModelDir(t, "mn5q8_cn")
	cfg := testConfig(t, modelDir)

	_, err := New(cfg, nil, nil).Build(context.Background(), Request{
		ModelNames: []string{"mn5q8_cn"},
		OutputPath: filepath.Join(t.TempDir(), "assets.bin"),
	})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch workspaces left behind: %v", entries)
	}
}

func TestBuildRemovesScratchOnFailure(t *testing.T) {
	// The build runs all the way to finalize, which fails because a
	// directory occupies the destination path.
	modelDir := testsupport.CreateModelDir(t, "mn5q8_cn")
	cfg := testConfig(t, modelDir)

	output := filepath.Join(t.TempDir(), "assets.bin")
	if err := os.MkdirAll(output, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := New(cfg, nil, nil).Build(context.Background(), Request{
		ModelNames: []string{"mn5q8_cn"},
		OutputPath: output,
	})
	if err == nil {
		t.Fatal("expected failure")
	}

	entries, readErr := os.ReadDir(cfg.Paths.ScratchDir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch workspaces left behind after failure: %v", entries)
	}
}

func TestBuildRejectsEmptyModelList(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	_, err := New(cfg, nil, nil).Build(context.Background(), Request{
		OutputPath: filepath.Join(t.TempDir(), "assets.bin"),
	})
	if !errors.Is(err, ErrUserInput) {
		t.Fatalf("expected ErrUserInput, got %v", err)
	}
}

func TestBuildRejectsMissingModelDir(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing"))
	_, err := New(cfg, nil, nil).Build(context.Background(), Request{
		ModelNames: []string{"mn6_cn"},
		OutputPath: filepath.Join(t.TempDir(), "assets.bin"),
	})
	if !errors.Is(err, ErrUserInput) {
		t.Fatalf("expected ErrUserInput, got %v", err)
	}
}

func TestBuildRejectsUnresolvableModels(t *testing.T) {
	modelDir := testsupport.CreateModelDir(t, "mn6_cn")
	cfg := testConfig(t, modelDir)
	_, err := New(cfg, nil, nil).Build(context.Background(), Request{
		ModelNames: []string{"mn6_xx"},
		OutputPath: filepath.Join(t.TempDir(), "assets.bin"),
	})
	if !errors.Is(err, ErrUserInput) {
		t.Fatalf("expected ErrUserInput, got %v", err)
	}
}

func TestBuildUsesConfigDefaults(t *testing.T) {
	modelDir := testsupport.CreateModelDir(t, "mn5q8_cn")
	cfg := testConfig(t, modelDir)
	cfg.Assets.Models = []string{"mn5q8_cn"}

	result, err := New(cfg, nil, nil).Build(context.Background(), Request{})
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(cfg.Paths.OutputDir, "assets.bin")
	if result.OutputPath != want {
		t.Fatalf("output %q, want %q", result.OutputPath, want)
	}
}

func TestBuildRecordsHistory(t *testing.T) {
	modelDir := testsupport.CreateModelDir(t, "mn5q8_cn")
	cfg := testConfig(t, modelDir)

	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	result, err := New(cfg, nil, store).Build(context.Background(), Request{
		ModelNames: []string{"mn5q8_cn"},
		OutputPath: filepath.Join(t.TempDir(), "assets.bin"),
	})
	if err != nil {
		t.Fatal(err)
	}

	records, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d history records, want 1", len(records))
	}
	if records[0].OutputPath != result.OutputPath || records[0].Size != result.Size {
		t.Fatalf("history record mismatch: %+v vs %+v", records[0], result)
	}
}

func TestBuildLockBlocksConcurrentOutput(t *testing.T) {
	modelDir := testsupport.CreateModelDir(t, "mn5q8_cn")
	cfg := testConfig(t, modelDir)
	output := filepath.Join(t.TempDir(), "assets.bin")

	// Hold the lock the orchestrator would take.
	o := New(cfg, nil, nil)
	req := Request{ModelNames: []string{"mn5q8_cn"}, OutputPath: output}

	held := flock.New(output + ".lock")
	locked, err := held.TryLock()
	if err != nil {
		t.Fatal(err)
	}
	if !locked {
		t.Fatal("test could not take the lock")
	}
	defer func() {
		_ = held.Unlock()
	}()

	if _, err := o.Build(context.Background(), req); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}
