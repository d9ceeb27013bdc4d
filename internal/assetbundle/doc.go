// Package assetbundle builds the assets.bin flash image: a flat directory of
// files packed behind a sorted index table so the device can locate any asset
// by name without parsing the payloads.
//
// The image is a 12-byte header (file count, additive checksum, payload
// length), an index region of fixed-width records sorted by (extension, base
// name), and a data region where each payload is prefixed with a 0x5A5A
// marker. Index offsets point at the marker, relative to the data region. An
// empty source directory is valid output, not an error.
package assetbundle
