package srmodel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildSingleModelLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mn6_cn", "a.bin"), []byte{1, 2, 3, 4})
	writeFile(t, filepath.Join(root, "mn6_cn", "b.bin"), []byte{5, 6, 7, 8, 9, 10})

	models, err := Collect(root)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	image, err := NewBuilder(nil).Build(models)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	headerLen := HeaderLength(1, 2)
	if want := 4 + 1*(32+4) + 2*(32+4+4); headerLen != want {
		t.Fatalf("HeaderLength = %d, want %d", headerLen, want)
	}

	if got := binary.LittleEndian.Uint32(image); got != 1 {
		t.Fatalf("model_count = %d, want 1", got)
	}

	c, err := Parse(image)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Models) != 1 || c.Models[0].Name != "mn6_cn" {
		t.Fatalf("unexpected models: %+v", c.Models)
	}
	files := c.Models[0].Files
	if len(files) != 2 {
		t.Fatalf("file count = %d, want 2", len(files))
	}
	if files[0].Name != "a.bin" || files[1].Name != "b.bin" {
		t.Fatalf("unexpected file order: %+v", files)
	}
	if files[0].Offset != uint32(headerLen) {
		t.Fatalf("first offset = %d, want %d", files[0].Offset, headerLen)
	}
	if files[1].Offset != uint32(headerLen)+4 {
		t.Fatalf("second offset = %d, want %d", files[1].Offset, headerLen+4)
	}
	if !bytes.Equal(FileData(image, files[0]), []byte{1, 2, 3, 4}) {
		t.Fatal("first payload mismatch")
	}
	if !bytes.Equal(FileData(image, files[1]), []byte{5, 6, 7, 8, 9, 10}) {
		t.Fatal("second payload mismatch")
	}
}

func TestBuildPreservesRelativePaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mn7_en", "nested", "deep.bin"), []byte{0xAA})
	writeFile(t, filepath.Join(root, "mn7_en", "top.bin"), []byte{0xBB})

	models, err := Collect(root)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, 2)
	for _, f := range models[0].Files {
		names = append(names, f.Name)
	}
	// WalkDir is lexical: "nested" sorts before "top.bin".
	if names[0] != "nested/deep.bin" || names[1] != "top.bin" {
		t.Fatalf("unexpected file names: %v", names)
	}
}

func TestFileRegionsDoNotOverlap(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "alpha", "x.bin"), bytes.Repeat([]byte{1}, 10))
	writeFile(t, filepath.Join(root, "beta", "y.bin"), bytes.Repeat([]byte{2}, 20))
	writeFile(t, filepath.Join(root, "beta", "z.bin"), bytes.Repeat([]byte{3}, 5))

	models, err := Collect(root)
	if err != nil {
		t.Fatal(err)
	}
	image, err := NewBuilder(nil).Build(models)
	if err != nil {
		t.Fatal(err)
	}
	c, err := Parse(image)
	if err != nil {
		t.Fatal(err)
	}

	type region struct{ start, end uint64 }
	var regions []region
	for _, m := range c.Models {
		for _, f := range m.Files {
			end := uint64(f.Offset) + uint64(f.Length)
			if end > uint64(len(image)) {
				t.Fatalf("region for %s exceeds image", f.Name)
			}
			regions = append(regions, region{uint64(f.Offset), end})
		}
	}
	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			a, b := regions[i], regions[j]
			if a.start < b.end && b.start < a.end {
				t.Fatalf("regions overlap: %+v and %+v", a, b)
			}
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mn6_cn", "a.bin"), []byte{1})
	writeFile(t, filepath.Join(root, "mn6_en", "b.bin"), []byte{2})

	first, err := Collect(root)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Collect(root)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(nil)
	imgA, err := b.Build(first)
	if err != nil {
		t.Fatal(err)
	}
	imgB, err := b.Build(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(imgA, imgB) {
		t.Fatal("rebuild of unchanged tree produced different bytes")
	}
}

func TestCollectMissingRoot(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}
}

func TestCollectEmptyRoot(t *testing.T) {
	root := t.TempDir()
	// Loose files beside no subdirectories still count as an empty root.
	writeFile(t, filepath.Join(root, "stray.bin"), []byte{1})
	_, err := Collect(root)
	if !errors.Is(err, ErrNoModels) {
		t.Fatalf("expected ErrNoModels, got %v", err)
	}
}

func TestCollectModelWithNoFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "empty_model"), 0o755); err != nil {
		t.Fatal(err)
	}
	models, err := Collect(root)
	if err != nil {
		t.Fatal(err)
	}
	image, err := NewBuilder(nil).Build(models)
	if err != nil {
		t.Fatal(err)
	}
	c, err := Parse(image)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Models) != 1 || len(c.Models[0].Files) != 0 {
		t.Fatalf("unexpected parse result: %+v", c.Models)
	}
	if c.DataLength != 0 {
		t.Fatalf("expected empty data region, got %d bytes", c.DataLength)
	}
}

func TestBuildTruncatesLongNames(t *testing.T) {
	long := strings.Repeat("n", 40)
	models := []Model{{Name: long, Files: []File{{Name: "f.bin", Data: []byte{1}}}}}
	image, err := NewBuilder(nil).Build(models)
	if err != nil {
		t.Fatal(err)
	}
	c, err := Parse(image)
	if err != nil {
		t.Fatal(err)
	}
	if c.Models[0].Name != long[:32] {
		t.Fatalf("expected truncated name %q, got %q", long[:32], c.Models[0].Name)
	}
}

func TestPackDirWritesContainer(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mn6_cn", "a.bin"), []byte{1, 2})

	path, size, err := NewBuilder(nil).PackDir(root, "srmodels.bin")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(root, "srmodels.bin") {
		t.Fatalf("unexpected path %q", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != size {
		t.Fatalf("reported size %d, on disk %d", size, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(data); err != nil {
		t.Fatalf("written container does not parse: %v", err)
	}
}

func TestParseRejectsGarbageInput(t *testing.T) {
	// Arbitrary text decodes to a huge model count; Parse must report a
	// truncated image, not allocate descriptor tables sized from it.
	inputs := [][]byte{
		[]byte("not an artifact"),
		{0xFF, 0xFF, 0xFF, 0xFF},
		bytes.Repeat([]byte{0xFF}, 64),
	}
	for _, input := range inputs {
		if _, err := Parse(input); !errors.Is(err, ErrTruncated) {
			t.Fatalf("Parse(%q): expected ErrTruncated, got %v", input, err)
		}
	}
}

func TestParseRejectsOversizedFileCount(t *testing.T) {
	var image []byte
	image = binary.LittleEndian.AppendUint32(image, 1)
	name := make([]byte, 32)
	copy(name, "mn6_cn")
	image = append(image, name...)
	image = binary.LittleEndian.AppendUint32(image, 0xFFFFFFFF)

	if _, err := Parse(image); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestParseRejectsTruncatedImage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mn6_cn", "a.bin"), []byte{1, 2, 3, 4})
	models, err := Collect(root)
	if err != nil {
		t.Fatal(err)
	}
	image, err := NewBuilder(nil).Build(models)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(image[:len(image)-2]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
