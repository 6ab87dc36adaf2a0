// Package bgzf implements the BGZF block container: the gzip-compatible,
// block-compressed format used by the SAM/BAM family. It decodes and
// encodes individual blocks, decodes the leading alignment-format header,
// and frames the length-prefixed records within a decoded block without
// fully parsing them.
//
// The format is described in full in the package-level constants and in
// the Decode/Encode pair below: a fixed 12-byte gzip header, an extra
// subfield carrying the total block size, a raw DEFLATE payload, and a
// trailing CRC32 plus uncompressed length.
package bgzf
