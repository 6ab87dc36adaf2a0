package bgzf

import (
	"encoding/binary"
	"fmt"
)

// headerMagic is the 4-byte magic the alignment-format header begins
// with, per spec.md §3.
var headerMagic = [4]byte{'B', 'A', 'M', 1}

// Reference is one entry in the alignment header's reference
// dictionary: a sequence name and its length.
type Reference struct {
	Name   string
	Length int
}

// Header is the decoded alignment-format header: free text plus an
// ordered reference dictionary.
type Header struct {
	Text       string
	References []Reference
}

// blockSpan records which compressed block a byte of the accumulated
// header buffer came from, so DecodeHeader can report the exact virtual
// offset at which the header ends.
type blockSpan struct {
	coffset    int64
	size       int
	payloadLen int
	bufferFrom int // index into the accumulated buffer where this block's payload starts
}

// HeaderEnd describes where the alignment header finished, for callers
// that need to resume reading alignment records right after it.
//
// End is the virtual offset of the first byte following the header.
// NextBlockCoffset is the on-disk offset of the block after the one End
// points into — the split planner's O[0] — which is the same whether or
// not the header ends exactly on a block boundary. Trailing holds any
// bytes of that last block's payload that come after the header (i.e.
// End.Uoffset() < len(Trailing's block payload)): record data sharing a
// block with the tail of the header. The pair sorter's pass 1 frames and
// indexes these records like any others, so they are written out in
// their sorted position.
// RawPayload is included so callers that must write the header back
// out byte-identical (the pair sorter) never depend on
// Header/Reference round-tripping exactly through re-encoding.
type HeaderEnd struct {
	End              VirtualOffset
	NextBlockCoffset int64
	Trailing         []byte
	RawPayload       []byte
}

// DecodeHeader reads the alignment header starting at r's current
// position. Per spec.md §9, the header is not assumed to fit in the
// first block: blocks are decoded and accumulated until n_ref
// references have been fully consumed. It returns the header and the
// point immediately following the last header byte — the offset the
// split planner's O[0] and the pair sorter's pass 1 should both start
// from.
func DecodeHeader(r *ByteReader) (Header, HeaderEnd, error) {
	var buf []byte
	var spans []blockSpan

	fileLen := r.Len()
	for {
		coffset, err := r.Tell()
		if err != nil {
			return Header{}, HeaderEnd{}, err
		}
		if fileLen > 0 {
			BlockProgressFunc(float64(coffset) * 100 / float64(fileLen))
		}
		blk, err := Decode(r)
		if err != nil {
			return Header{}, HeaderEnd{}, fmt.Errorf("bgzf: decoding header block at %d: %w", coffset, err)
		}
		spans = append(spans, blockSpan{coffset: coffset, size: blk.Size, payloadLen: len(blk.Payload), bufferFrom: len(buf)})
		buf = append(buf, blk.Payload...)

		hdr, consumed, ok, err := tryParseHeader(buf)
		if err != nil {
			return Header{}, HeaderEnd{}, err
		}
		if ok {
			BlockProgressFunc(-1.0)
			last := spans[len(spans)-1]
			uoff := consumed - last.bufferFrom
			return hdr, HeaderEnd{
				End:              NewVirtualOffset(last.coffset, uint16(uoff)),
				NextBlockCoffset: last.coffset + int64(last.size),
				Trailing:         buf[consumed:],
				RawPayload:       buf[:consumed:consumed],
			}, nil
		}
	}
}

// EmptyHeaderPayload returns the encoded bytes of a header with no
// text and no references — the degenerate header a truly empty
// alignment file (spec.md §8 scenario 1) still needs ahead of its EOF
// sentinel.
func EmptyHeaderPayload() []byte {
	buf := make([]byte, 0, 12)
	buf = append(buf, headerMagic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, 0) // l_text
	buf = binary.LittleEndian.AppendUint32(buf, 0) // n_ref
	return buf
}

// tryParseHeader attempts to parse a complete header out of buf. It
// returns ok=false if buf does not yet hold enough bytes, signalling
// the caller to accumulate another block. A malformed magic is
// reported as an error rather than a need-more-data condition: corrupt
// input is not grounds for reading past the end of the file.
func tryParseHeader(buf []byte) (Header, int, bool, error) {
	le := binary.LittleEndian
	if len(buf) < 8 {
		return Header{}, 0, false, nil
	}
	if buf[0] != headerMagic[0] || buf[1] != headerMagic[1] || buf[2] != headerMagic[2] || buf[3] != headerMagic[3] {
		return Header{}, 0, false, fmt.Errorf("%w: alignment header", ErrBadMagic)
	}
	lText := int(le.Uint32(buf[4:8]))
	if len(buf) < 8+lText+4 {
		return Header{}, 0, false, nil
	}
	text := string(buf[8 : 8+lText])
	offs := 8 + lText
	nRef := int(le.Uint32(buf[offs : offs+4]))
	offs += 4

	refs := make([]Reference, 0, nRef)
	for i := 0; i < nRef; i++ {
		if len(buf) < offs+4 {
			return Header{}, 0, false, nil
		}
		lName := int(le.Uint32(buf[offs : offs+4]))
		offs += 4
		if len(buf) < offs+lName+4 {
			return Header{}, 0, false, nil
		}
		name := string(buf[offs : offs+lName-1]) // drop the trailing NUL
		offs += lName
		lRef := int(le.Uint32(buf[offs : offs+4]))
		offs += 4
		refs = append(refs, Reference{Name: name, Length: int(lRef)})
	}

	return Header{Text: text, References: refs}, offs, true, nil
}
