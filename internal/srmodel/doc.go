// Package srmodel builds the srmodels.bin model container: a directory of
// named speech-model subtrees packed into a single little-endian file the
// device maps straight out of flash.
//
// The container is a count of models, one fixed-shape descriptor per model
// (32-byte name, file count, then per file a 32-byte relative path, absolute
// offset, and length), followed by every file payload concatenated in
// descriptor order. Offsets are assigned from a header length computed before
// any descriptor is serialized; a mismatch between the precomputed and actual
// header length means the layout algorithm itself is broken and aborts the
// build rather than emitting a container with corrupt offsets.
package srmodel
