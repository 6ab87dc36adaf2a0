package bgzf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

const (
	// MaxBlockPayload is the largest decompressed payload a single BGZF
	// block may hold.
	MaxBlockPayload = 65536

	// fixedHeaderLen is the length of the gzip member header up to and
	// including XLEN, before the extra subfields.
	fixedHeaderLen = 12

	// bcExtraLen is the length of the single BC extra subfield this
	// package ever writes: 2 bytes subfield id, 2 bytes subfield
	// length, 2 bytes BSIZE payload.
	bcExtraLen = 6

	// trailerLen is the CRC32 + ISIZE trailer following the deflate
	// stream.
	trailerLen = 8
)

// blockMagic is the fixed 4-byte gzip member magic every BGZF block
// begins with: ID1, ID2, CM (deflate), FLG (FEXTRA set).
var blockMagic = [4]byte{0x1f, 0x8b, 0x08, 0x04}

// EOFMarker is the fixed 28-byte BGZF block that must terminate a
// well-formed file.
var EOFMarker = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0, 0, 0, 0, 0, 0xff,
	6, 0, 0x42, 0x43, 2, 0, 0x1b, 0, 3, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
}

// Block is a decoded BGZF block: its total on-disk size and its
// decompressed payload.
type Block struct {
	Size    int // total compressed size on disk, including header and trailer
	Payload []byte
}

// Decode reads one BGZF block starting at r's current position,
// validating the magic, the BC extra subfield, and the trailing CRC32
// and length. r must be positioned at a certified or suspected block
// boundary.
func Decode(r io.Reader) (Block, error) {
	var head [fixedHeaderLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return Block{}, fmt.Errorf("%w: block header: %v", wrapIOErr(err), err)
	}
	if !magicEqual(head[:4]) {
		return Block{}, fmt.Errorf("%w: block header", ErrBadMagic)
	}
	xlen := binary.LittleEndian.Uint16(head[10:12])

	extra := make([]byte, xlen)
	if _, err := io.ReadFull(r, extra); err != nil {
		return Block{}, fmt.Errorf("%w: extra subfields: %v", wrapIOErr(err), err)
	}
	bsize, ok := findBSIZE(extra)
	if !ok {
		return Block{}, fmt.Errorf("%w: missing or duplicate BC subfield", ErrMalformed)
	}

	deflateLen := int(bsize) - int(xlen) - 19
	if deflateLen < 0 {
		return Block{}, fmt.Errorf("%w: negative deflate length", ErrMalformed)
	}

	payload, err := inflate(io.LimitReader(r, int64(deflateLen)))
	if err != nil {
		return Block{}, err
	}

	var trailer [trailerLen]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return Block{}, fmt.Errorf("%w: trailer: %v", wrapIOErr(err), err)
	}
	wantCRC := binary.LittleEndian.Uint32(trailer[0:4])
	wantLen := binary.LittleEndian.Uint32(trailer[4:8])

	if gotCRC := crc32.ChecksumIEEE(payload); gotCRC != wantCRC {
		return Block{}, fmt.Errorf("%w: got %#x want %#x", ErrCRCMismatch, gotCRC, wantCRC)
	}
	if int(wantLen) != len(payload) {
		return Block{}, fmt.Errorf("%w: got %d want %d", ErrLengthMismatch, len(payload), wantLen)
	}

	return Block{
		Size:    int(bsize) + 1,
		Payload: payload,
	}, nil
}

// DecodeCompact reads one BGZF block without validating the magic, the
// BC subfield shape, or the trailing CRC32/length — it trusts that r is
// positioned at an offset already certified by the split planner or the
// pair sorter's pass 1. It still consumes the CRC and length bytes so
// the caller's cursor ends up in the right place; it just never checks
// them (see spec's note on the compact decoder discarding the CRC).
//
// Calling this on an uncertified offset is a programmer error: it may
// silently return garbage instead of failing.
func DecodeCompact(r io.Reader) (Block, error) {
	var head [fixedHeaderLen + bcExtraLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return Block{}, fmt.Errorf("%w: block header: %v", wrapIOErr(err), err)
	}
	xlen := binary.LittleEndian.Uint16(head[10:12])
	bsize := binary.LittleEndian.Uint16(head[16:18])

	deflateLen := int(bsize) - int(xlen) - 19
	if deflateLen < 0 {
		return Block{}, fmt.Errorf("%w: negative deflate length", ErrMalformed)
	}

	// Compressed stream plus the 8-byte CRC+length trailer; the
	// trailer bytes are consumed to advance the cursor but never
	// checked.
	raw := make([]byte, deflateLen+trailerLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Block{}, fmt.Errorf("%w: compact block body: %v", wrapIOErr(err), err)
	}

	payload, err := inflate(bytes.NewReader(raw[:deflateLen]))
	if err != nil {
		return Block{}, err
	}

	return Block{
		Size:    int(bsize) + 1,
		Payload: payload,
	}, nil
}

// Encode compresses payload (at most MaxBlockPayload bytes) into a
// single well-formed BGZF block at the given flate compression level.
func Encode(payload []byte, level int) ([]byte, error) {
	if len(payload) > MaxBlockPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockTooLarge, len(payload))
	}

	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, level)
	if err != nil {
		return nil, fmt.Errorf("bgzf: new flate writer: %w", err)
	}
	if _, err := fw.Write(payload); err != nil {
		return nil, fmt.Errorf("bgzf: deflate write: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("bgzf: deflate close: %w", err)
	}

	bsize := compressed.Len() + 25 // 12 + 6 (BC extra) + len(compressed) + 8 - 1
	out := make([]byte, 0, bsize+1)
	out = append(out, blockMagic[:]...)
	out = append(out, 0, 0, 0, 0) // MTIME
	out = append(out, 0, 0xff)    // XFL, OS=unknown
	out = append(out, 6, 0)       // XLEN=6
	out = append(out, 'B', 'C', 2, 0)
	out = binary.LittleEndian.AppendUint16(out, uint16(bsize))
	out = append(out, compressed.Bytes()...)
	out = binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(payload))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	return out, nil
}

// ValidateHeader reports whether buf (at least 16 bytes) begins a
// well-formed BGZF block: magic at 0-3, 'B','C' at 12-13, subfield
// length 2 at 14-15. Used only by the split planner's boundary search;
// it does not validate the CRC or decompress anything.
func ValidateHeader(buf []byte) bool {
	if len(buf) < 16 {
		return false
	}
	if !magicEqual(buf[:4]) {
		return false
	}
	if buf[12] != 'B' || buf[13] != 'C' {
		return false
	}
	return binary.LittleEndian.Uint16(buf[14:16]) == 2
}

func magicEqual(b []byte) bool {
	return b[0] == blockMagic[0] && b[1] == blockMagic[1] && b[2] == blockMagic[2] && b[3] == blockMagic[3]
}

// findBSIZE scans extra for exactly one BC subfield and returns its
// payload. A missing or duplicate BC subfield is reported via ok=false.
func findBSIZE(extra []byte) (bsize uint16, ok bool) {
	found := false
	for i := 0; i+4 <= len(extra); {
		subLen := binary.LittleEndian.Uint16(extra[i+2 : i+4])
		if extra[i] == 'B' && extra[i+1] == 'C' {
			if found || subLen != 2 || i+4+2 > len(extra) {
				return 0, false
			}
			bsize = binary.LittleEndian.Uint16(extra[i+4 : i+6])
			found = true
		}
		i += 4 + int(subLen)
	}
	return bsize, found
}

// inflate decompresses a raw (headerless) DEFLATE stream in full. BGZF
// payloads are bounded at MaxBlockPayload so reading to completion in
// memory is always cheap.
func inflate(r io.Reader) ([]byte, error) {
	fr := flate.NewReader(r)
	defer fr.Close()
	payload, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("bgzf: inflate: %w", err)
	}
	if len(payload) > MaxBlockPayload {
		return nil, fmt.Errorf("%w: decompressed %d bytes", ErrLengthMismatch, len(payload))
	}
	return payload, nil
}

func wrapIOErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return ErrIO
}
