package assetbundle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"srpack/internal/checksum"
	"srpack/internal/namecodec"
)

// ErrTooLarge reports content that does not fit the 32-bit index fields.
var ErrTooLarge = errors.New("bundle content exceeds index field range")

// Marker prefixes every payload in the data region.
var Marker = [2]byte{0x5A, 0x5A}

// HeaderSize is the fixed byte length of the bundle header.
const HeaderSize = 12

// RecordSize is the byte length of one index record.
const RecordSize = namecodec.Width + 4 + 4 + 2 + 2

// DefaultSkipNames are control files excluded from bundling. They configure
// the build itself and are not payload.
var DefaultSkipNames = []string{"config.json"}

// Builder packs a directory into a bundle image.
type Builder struct {
	logger    *slog.Logger
	skipNames map[string]struct{}
}

// NewBuilder returns a Builder that skips skipNames (nil means
// DefaultSkipNames) and reports name truncation through logger.
func NewBuilder(logger *slog.Logger, skipNames []string) *Builder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if skipNames == nil {
		skipNames = DefaultSkipNames
	}
	skip := make(map[string]struct{}, len(skipNames))
	for _, name := range skipNames {
		skip[name] = struct{}{}
	}
	return &Builder{logger: logger, skipNames: skip}
}

// Build packs every eligible file directly inside dir into a bundle image.
// Subdirectories are ignored: the bundle namespace is flat.
func (b *Builder) Build(dir string) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read bundle source %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if _, skip := b.skipNames[entry.Name()]; skip {
			continue
		}
		names = append(names, entry.Name())
	}
	sortByExtension(names)

	type record struct {
		name   string
		offset uint32
		size   uint32
	}
	records := make([]record, 0, len(names))

	var data []byte
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat asset %s: %w", name, err)
		}
		// Size and offset are u32 index fields; checked before the file is
		// read so an oversized asset fails fast instead of truncating.
		if info.Size() > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, name, info.Size())
		}
		if int64(len(data))+int64(len(Marker))+info.Size() > math.MaxUint32 {
			return nil, fmt.Errorf("%w: data region exceeds %d bytes at %s", ErrTooLarge, uint32(math.MaxUint32), name)
		}
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read asset %s: %w", name, err)
		}
		records = append(records, record{
			name:   name,
			offset: uint32(len(data)),
			size:   uint32(len(payload)),
		})
		data = append(data, Marker[:]...)
		data = append(data, payload...)
	}

	index := make([]byte, 0, len(records)*RecordSize)
	for _, rec := range records {
		field, truncated := namecodec.Encode(rec.name, namecodec.Width)
		if truncated {
			b.logger.Warn("asset name exceeds field width, truncating",
				slog.String("name", rec.name),
				slog.Int("width", namecodec.Width))
		}
		index = append(index, field...)
		index = appendUint32(index, rec.size)
		index = appendUint32(index, rec.offset)
		index = appendUint16(index, 0) // reserved width
		index = appendUint16(index, 0) // reserved height
	}

	payloadLen := len(index) + len(data)
	var digest checksum.Digest
	digest.Write(index)
	digest.Write(data)

	out := make([]byte, 0, HeaderSize+payloadLen)
	out = appendUint32(out, uint32(len(records)))
	out = appendUint32(out, digest.Sum32())
	out = appendUint32(out, uint32(payloadLen))
	out = append(out, index...)
	out = append(out, data...)
	return out, nil
}

// WriteFile builds the bundle for dir and writes it to outPath, returning the
// final size.
func (b *Builder) WriteFile(dir, outPath string) (int64, error) {
	image, err := b.Build(dir)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure output directory: %w", err)
	}
	if err := os.WriteFile(outPath, image, 0o644); err != nil {
		return 0, fmt.Errorf("write bundle %s: %w", outPath, err)
	}
	return int64(len(image)), nil
}

// sortByExtension orders names by (extension, base name) ascending, grouping
// files of the same type together. Ties cannot occur: names are unique within
// a directory.
func sortByExtension(names []string) {
	sort.Slice(names, func(i, j int) bool {
		extI, baseI := splitKey(names[i])
		extJ, baseJ := splitKey(names[j])
		if extI != extJ {
			return extI < extJ
		}
		return baseI < baseJ
	})
}

func splitKey(name string) (ext, base string) {
	ext = filepath.Ext(name)
	return ext, strings.TrimSuffix(name, ext)
}

func appendUint32(b []byte, v uint32) []byte {
	var field [4]byte
	binary.LittleEndian.PutUint32(field[:], v)
	return append(b, field[:]...)
}

func appendUint16(b []byte, v uint16) []byte {
	var field [2]byte
	binary.LittleEndian.PutUint16(field[:], v)
	return append(b, field[:]...)
}
