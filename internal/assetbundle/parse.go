package assetbundle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"srpack/internal/checksum"
	"srpack/internal/namecodec"
)

var (
	// ErrTruncated reports an image shorter than its header claims.
	ErrTruncated = errors.New("bundle image truncated")
	// ErrChecksum reports a payload whose additive checksum disagrees with
	// the header.
	ErrChecksum = errors.New("bundle checksum mismatch")
	// ErrMarker reports a payload entry missing its 0x5A5A prefix.
	ErrMarker = errors.New("bundle entry marker missing")
)

// Record is one parsed index entry.
type Record struct {
	Name   string
	Size   uint32
	Offset uint32
}

// Bundle is the parsed view of a bundle image.
type Bundle struct {
	TotalFiles    uint32
	Checksum      uint32
	PayloadLength uint32
	Records       []Record

	data []byte // data region
}

// Parse validates a bundle image and returns its index. It checks the header
// length, the additive checksum, and every record's marker and bounds.
func Parse(image []byte) (*Bundle, error) {
	if len(image) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncated, len(image), HeaderSize)
	}
	b := &Bundle{
		TotalFiles:    binary.LittleEndian.Uint32(image[0:]),
		Checksum:      binary.LittleEndian.Uint32(image[4:]),
		PayloadLength: binary.LittleEndian.Uint32(image[8:]),
	}

	payload := image[HeaderSize:]
	if uint64(len(payload)) != uint64(b.PayloadLength) {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d",
			ErrTruncated, len(payload), b.PayloadLength)
	}
	if got := checksum.Sum(payload); got != b.Checksum {
		return nil, fmt.Errorf("%w: computed %d, header says %d", ErrChecksum, got, b.Checksum)
	}

	indexLen := int(b.TotalFiles) * RecordSize
	if indexLen > len(payload) {
		return nil, fmt.Errorf("%w: index needs %d bytes, payload has %d",
			ErrTruncated, indexLen, len(payload))
	}
	index := payload[:indexLen]
	b.data = payload[indexLen:]

	b.Records = make([]Record, 0, b.TotalFiles)
	for i := 0; i < int(b.TotalFiles); i++ {
		rec := index[i*RecordSize:]
		name, err := namecodec.Decode(rec[:namecodec.Width])
		if err != nil {
			return nil, fmt.Errorf("decode record %d name: %w", i, err)
		}
		r := Record{
			Name:   name,
			Size:   binary.LittleEndian.Uint32(rec[namecodec.Width:]),
			Offset: binary.LittleEndian.Uint32(rec[namecodec.Width+4:]),
		}
		end := uint64(r.Offset) + uint64(len(Marker)) + uint64(r.Size)
		if end > uint64(len(b.data)) {
			return nil, fmt.Errorf("%w: record %q region [%d, %d) exceeds data region %d",
				ErrTruncated, r.Name, r.Offset, end, len(b.data))
		}
		if !bytes.Equal(b.data[r.Offset:r.Offset+uint32(len(Marker))], Marker[:]) {
			return nil, fmt.Errorf("%w: record %q at offset %d", ErrMarker, r.Name, r.Offset)
		}
		b.Records = append(b.Records, r)
	}
	return b, nil
}

// Data returns the payload bytes for a parsed record, without the marker.
func (b *Bundle) Data(r Record) []byte {
	start := r.Offset + uint32(len(Marker))
	return b.data[start : start+r.Size]
}
