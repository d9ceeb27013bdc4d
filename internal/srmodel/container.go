package srmodel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"srpack/internal/namecodec"
)

var (
	// ErrPathNotFound reports a missing model root directory.
	ErrPathNotFound = errors.New("model path not found")
	// ErrNoModels reports a root with no model subdirectories.
	ErrNoModels = errors.New("no models found")
	// ErrLayout reports a header whose serialized length disagrees with the
	// precomputed layout. This is an internal defect, never user input.
	ErrLayout = errors.New("container layout inconsistency")
)

// File is one payload inside a model: its path relative to the model root and
// its raw bytes.
type File struct {
	Name string
	Data []byte
}

// Model is a named, ordered set of files. Order is load-bearing: it fixes the
// descriptor order and therefore every on-disk offset.
type Model struct {
	Name  string
	Files []File
}

// descriptor field widths, in bytes.
const (
	countWidth  = 4
	offsetWidth = 4
	lengthWidth = 4
)

// HeaderLength returns the exact byte length of the container header for the
// given model and total file counts.
func HeaderLength(modelCount, fileCount int) int {
	return countWidth +
		modelCount*(namecodec.Width+countWidth) +
		fileCount*(namecodec.Width+offsetWidth+lengthWidth)
}

// Collect enumerates the immediate subdirectories of root as models and walks
// each subtree for files. Enumeration is os.ReadDir order (lexical by name),
// which is deterministic for a given directory snapshot; that order fixes the
// container layout. Symlinks are not followed.
func Collect(root string) ([]Model, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, root)
		}
		return nil, fmt.Errorf("read model root %s: %w", root, err)
	}

	var models []Model
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		model := Model{Name: entry.Name()}
		modelDir := filepath.Join(root, entry.Name())
		walkErr := filepath.WalkDir(modelDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("walk %s: %w", path, err)
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				return fmt.Errorf("read %s: %w", path, readErr)
			}
			rel, relErr := filepath.Rel(modelDir, path)
			if relErr != nil {
				return relErr
			}
			model.Files = append(model.Files, File{Name: filepath.ToSlash(rel), Data: data})
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
		models = append(models, model)
	}

	if len(models) == 0 {
		return nil, fmt.Errorf("%w: %s has no model subdirectories", ErrNoModels, root)
	}
	return models, nil
}

// Builder serializes collected models into the container format.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder returns a Builder that reports name truncation through logger.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{logger: logger}
}

// Build serializes models into a complete container image. The header is laid
// out against a precomputed length; any disagreement aborts with ErrLayout.
func (b *Builder) Build(models []Model) ([]byte, error) {
	fileCount := 0
	dataLen := 0
	for _, model := range models {
		fileCount += len(model.Files)
		for _, file := range model.Files {
			dataLen += len(file.Data)
		}
	}
	headerLen := HeaderLength(len(models), fileCount)

	header := bytes.NewBuffer(make([]byte, 0, headerLen))
	appendUint32(header, uint32(len(models)))

	offset := headerLen
	for _, model := range models {
		b.appendName(header, model.Name, "model")
		appendUint32(header, uint32(len(model.Files)))
		for _, file := range model.Files {
			b.appendName(header, file.Name, "file")
			appendUint32(header, uint32(offset))
			appendUint32(header, uint32(len(file.Data)))
			offset += len(file.Data)
		}
	}

	if header.Len() != headerLen {
		return nil, fmt.Errorf("%w: serialized header is %d bytes, layout computed %d",
			ErrLayout, header.Len(), headerLen)
	}

	out := make([]byte, 0, headerLen+dataLen)
	out = append(out, header.Bytes()...)
	for _, model := range models {
		for _, file := range model.Files {
			out = append(out, file.Data...)
		}
	}
	return out, nil
}

// PackDir collects the models under root and writes the container as outName
// inside root, mirroring the scratch layout the orchestrator stages. It
// returns the written file path and size.
func (b *Builder) PackDir(root, outName string) (string, int64, error) {
	models, err := Collect(root)
	if err != nil {
		return "", 0, err
	}
	image, err := b.Build(models)
	if err != nil {
		return "", 0, err
	}
	outPath := filepath.Join(root, outName)
	if err := os.WriteFile(outPath, image, 0o644); err != nil {
		return "", 0, fmt.Errorf("write container %s: %w", outPath, err)
	}
	return outPath, int64(len(image)), nil
}

func (b *Builder) appendName(buf *bytes.Buffer, name, kind string) {
	field, truncated := namecodec.Encode(name, namecodec.Width)
	if truncated {
		b.logger.Warn("name exceeds field width, truncating",
			slog.String("kind", kind),
			slog.String("name", name),
			slog.Int("width", namecodec.Width))
	}
	buf.Write(field)
}

func appendUint32(buf *bytes.Buffer, v uint32) {
	var field [4]byte
	binary.LittleEndian.PutUint32(field[:], v)
	buf.Write(field[:])
}
