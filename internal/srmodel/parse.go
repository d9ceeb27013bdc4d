package srmodel

import (
	"encoding/binary"
	"errors"
	"fmt"

	"srpack/internal/namecodec"
)

// ErrTruncated reports a container image shorter than its own header claims.
var ErrTruncated = errors.New("container image truncated")

// FileInfo is one parsed file descriptor.
type FileInfo struct {
	Name   string
	Offset uint32
	Length uint32
}

// ModelInfo is one parsed model descriptor.
type ModelInfo struct {
	Name  string
	Files []FileInfo
}

// Container is the parsed view of a container image header.
type Container struct {
	HeaderLength int
	DataLength   int
	Models       []ModelInfo
}

// Parse reads a container image header and validates that every descriptor's
// file region lies within the image. It is producer-side tooling for
// inspection and tests; the device reader is a separate implementation.
func Parse(image []byte) (*Container, error) {
	r := reader{data: image}
	modelCount, err := r.uint32("model count")
	if err != nil {
		return nil, err
	}
	// Counts come from untrusted bytes. Bound them against the remaining
	// image before they size any allocation.
	if err := r.bound(modelCount, modelDescSize, "model descriptors"); err != nil {
		return nil, err
	}

	c := &Container{Models: make([]ModelInfo, 0, modelCount)}
	fileCount := 0
	for i := uint32(0); i < modelCount; i++ {
		name, err := r.name("model name")
		if err != nil {
			return nil, err
		}
		count, err := r.uint32("file count")
		if err != nil {
			return nil, err
		}
		if err := r.bound(count, fileDescSize, "file descriptors"); err != nil {
			return nil, err
		}
		model := ModelInfo{Name: name, Files: make([]FileInfo, 0, count)}
		for j := uint32(0); j < count; j++ {
			fileName, err := r.name("file name")
			if err != nil {
				return nil, err
			}
			offset, err := r.uint32("file offset")
			if err != nil {
				return nil, err
			}
			length, err := r.uint32("file length")
			if err != nil {
				return nil, err
			}
			model.Files = append(model.Files, FileInfo{Name: fileName, Offset: offset, Length: length})
			fileCount++
		}
		c.Models = append(c.Models, model)
	}

	c.HeaderLength = HeaderLength(len(c.Models), fileCount)
	if c.HeaderLength != r.pos {
		return nil, fmt.Errorf("%w: parsed header is %d bytes, layout computed %d",
			ErrLayout, r.pos, c.HeaderLength)
	}
	c.DataLength = len(image) - c.HeaderLength

	for _, model := range c.Models {
		for _, file := range model.Files {
			end := uint64(file.Offset) + uint64(file.Length)
			if end > uint64(len(image)) {
				return nil, fmt.Errorf("%w: %s/%s region [%d, %d) exceeds image size %d",
					ErrTruncated, model.Name, file.Name, file.Offset, end, len(image))
			}
		}
	}
	return c, nil
}

// FileData returns the payload bytes for a parsed descriptor.
func FileData(image []byte, fi FileInfo) []byte {
	return image[fi.Offset : fi.Offset+fi.Length]
}

const (
	modelDescSize = namecodec.Width + 4
	fileDescSize  = namecodec.Width + 4 + 4
)

type reader struct {
	data []byte
	pos  int
}

func (r *reader) bound(count uint32, descSize int, what string) error {
	if uint64(count)*uint64(descSize) > uint64(len(r.data)-r.pos) {
		return fmt.Errorf("%w: %d %s need %d bytes, %d remain",
			ErrTruncated, count, what, uint64(count)*uint64(descSize), len(r.data)-r.pos)
	}
	return nil
}

func (r *reader) uint32(what string) (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("%w: reading %s at offset %d", ErrTruncated, what, r.pos)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) name(what string) (string, error) {
	if r.pos+namecodec.Width > len(r.data) {
		return "", fmt.Errorf("%w: reading %s at offset %d", ErrTruncated, what, r.pos)
	}
	name, err := namecodec.Decode(r.data[r.pos : r.pos+namecodec.Width])
	if err != nil {
		return "", fmt.Errorf("decode %s at offset %d: %w", what, r.pos, err)
	}
	r.pos += namecodec.Width
	return name, nil
}
