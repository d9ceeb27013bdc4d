package modelsource

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func makeModel(t *testing.T, modelDir, name string) {
	t.Helper()
	dir := filepath.Join(modelDir, "multinet_model", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "model.bin"), []byte{1}, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveInRequestOrder(t *testing.T) {
	modelDir := t.TempDir()
	makeModel(t, modelDir, "mn5q8_cn")
	makeModel(t, modelDir, "mn5q8_en")

	res, err := Resolve(modelDir, []string{"mn5q8_en", "mn5q8_cn"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Names(), []string{"mn5q8_en", "mn5q8_cn"}) {
		t.Fatalf("unexpected order: %v", res.Names())
	}
	if len(res.Missing) != 0 {
		t.Fatalf("unexpected missing: %v", res.Missing)
	}
}

func TestResolveSkipsMissingModels(t *testing.T) {
	modelDir := t.TempDir()
	makeModel(t, modelDir, "mn5q8_cn")

	res, err := Resolve(modelDir, []string{"mn5q8_cn", "mn5q8_xx"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Names(), []string{"mn5q8_cn"}) {
		t.Fatalf("unexpected models: %v", res.Names())
	}
	if !reflect.DeepEqual(res.Missing, []string{"mn5q8_xx"}) {
		t.Fatalf("unexpected missing: %v", res.Missing)
	}
}

func TestResolveNothingFound(t *testing.T) {
	_, err := Resolve(t.TempDir(), []string{"mn6_cn"}, nil)
	if !errors.Is(err, ErrNoModels) {
		t.Fatalf("expected ErrNoModels, got %v", err)
	}
}

func TestResolveAppendsFSTForMultinet6(t *testing.T) {
	modelDir := t.TempDir()
	makeModel(t, modelDir, "mn6_cn")
	makeModel(t, modelDir, "fst")

	res, err := Resolve(modelDir, []string{"mn6_cn"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Names(), []string{"mn6_cn", "fst"}) {
		t.Fatalf("expected fst supplement, got %v", res.Names())
	}
}

func TestResolveMissingFSTIsNotFatal(t *testing.T) {
	modelDir := t.TempDir()
	makeModel(t, modelDir, "mn7_en")

	res, err := Resolve(modelDir, []string{"mn7_en"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Names(), []string{"mn7_en"}) {
		t.Fatalf("unexpected models: %v", res.Names())
	}
}

func TestResolveNoFSTForOlderMultinet(t *testing.T) {
	modelDir := t.TempDir()
	makeModel(t, modelDir, "mn5q8_cn")
	makeModel(t, modelDir, "fst")

	res, err := Resolve(modelDir, []string{"mn5q8_cn"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Names(), []string{"mn5q8_cn"}) {
		t.Fatalf("fst must not be added for mn5: %v", res.Names())
	}
}
