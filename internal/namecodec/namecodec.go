// Package namecodec encodes and decodes the fixed-width, null-padded
// identifiers used by the srmodels container and asset bundle formats.
//
// Encoding is total: names longer than the field width are truncated at the
// byte level rather than rejected, because the on-flash formats reserve exactly
// 32 bytes per name and the device reader has no escape hatch for longer ones.
// Callers are expected to surface the truncation flag as a warning. Decoding is
// partial and rejects anything that cannot have been produced by Encode.
package namecodec

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// Width is the name field width shared by the container and bundle formats.
const Width = 32

// Encode packs name into exactly width bytes, right-padded with NULs. The
// second return value reports whether the name was truncated to fit.
func Encode(name string, width int) ([]byte, bool) {
	raw := []byte(name)
	truncated := len(raw) > width
	if truncated {
		raw = raw[:width]
	}
	out := make([]byte, width)
	copy(out, raw)
	return out, truncated
}

// Decode strips trailing NUL padding and returns the original name. It fails
// on interior NUL bytes or invalid UTF-8, which indicate a corrupt field
// rather than a padded name.
func Decode(field []byte) (string, error) {
	trimmed := bytes.TrimRight(field, "\x00")
	if bytes.IndexByte(trimmed, 0) >= 0 {
		return "", fmt.Errorf("name field contains interior NUL byte")
	}
	if !utf8.Valid(trimmed) {
		return "", fmt.Errorf("name field is not valid UTF-8")
	}
	return string(trimmed), nil
}
