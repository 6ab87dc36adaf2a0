package bgzf

import (
	"encoding/binary"
	"fmt"
)

// record field byte offsets, relative to the start of a record's
// payload (i.e. after the 4-byte block_size length prefix has been
// stripped), per spec.md §3.
const (
	offRefID     = 0
	offPos       = 4
	offLReadName = 8
	offTlen      = 28
	offReadName  = 32
)

// Record is one length-prefixed alignment record, sliced directly out
// of a decoded block's payload: Bytes includes its own 4-byte
// block_size prefix, so it can be written back out verbatim. Uoffset
// is the byte position of Bytes[0] within the block payload it came
// from.
type Record struct {
	Bytes   []byte
	Uoffset int
}

// Split walks payload, splitting it into its length-prefixed alignment
// records. It signals ErrTruncatedRecord if the final record's declared
// block_size runs past the end of payload — records never cross block
// boundaries in this format, and the framer relies on that invariant.
func Split(payload []byte) ([]Record, error) {
	var out []Record
	i := 0
	for i < len(payload) {
		if len(payload)-i < 4 {
			return nil, fmt.Errorf("%w: dangling %d bytes", ErrTruncatedRecord, len(payload)-i)
		}
		blockSize := int(binary.LittleEndian.Uint32(payload[i : i+4]))
		end := i + 4 + blockSize
		if end > len(payload) {
			return nil, fmt.Errorf("%w: record at %d declares %d bytes, only %d remain", ErrTruncatedRecord, i, blockSize, len(payload)-i-4)
		}
		out = append(out, Record{Bytes: payload[i:end], Uoffset: i})
		i = end
	}
	return out, nil
}

// body returns the record's payload with the 4-byte length prefix
// stripped, i.e. the bytes at the fixed offsets of spec.md §3.
func (rec Record) body() []byte {
	return rec.Bytes[4:]
}

// RefID returns the record's reference id (int32 at offset 0).
func (rec Record) RefID() int32 {
	return int32(binary.LittleEndian.Uint32(rec.body()[offRefID:]))
}

// Pos returns the record's 0-based leftmost mapping position (int32 at
// offset 4).
func (rec Record) Pos() int32 {
	return int32(binary.LittleEndian.Uint32(rec.body()[offPos:]))
}

// Tlen returns the record's observed template length (int32 at offset
// 28).
func (rec Record) Tlen() int32 {
	return int32(binary.LittleEndian.Uint32(rec.body()[offTlen:]))
}

// ReadName returns the record's NUL-terminated read name, with the
// terminator stripped.
func (rec Record) ReadName() string {
	b := rec.body()
	l := int(b[offLReadName])
	name := b[offReadName : offReadName+l]
	if l > 0 && name[l-1] == 0 {
		name = name[:l-1]
	}
	return string(name)
}
