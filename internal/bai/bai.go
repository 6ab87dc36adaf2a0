package bai

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// magic is the fixed 4-byte BAI index magic.
var magic = [4]byte{'B', 'A', 'I', 1}

// Index holds the region-lookup structures for every reference in a
// sequence dictionary.
type Index struct {
	Refs []Reference
}

// Reference holds the binned index and linear index for one reference
// sequence.
type Reference struct {
	Bins      map[uint32]Bin
	Intervals []Offset

	Unmapped      Chunk
	TotalMapped   uint64
	TotalUnmapped uint64
}

// Bin is a list of chunks.
type Bin []Chunk

// Chunk is a contiguous virtual-offset range within a bin.
type Chunk struct{ Begin, End Offset }

// Offset is a virtual offset: the same (coffset, uoffset) packing as
// bgzf.VirtualOffset, duplicated here so this package has no core
// dependency — see DESIGN.md on why this stays unwired.
type Offset uint64

// Coffset returns the compressed block start.
func (o Offset) Coffset() int64 { return int64(o >> 16) }

// Uoffset returns the byte offset within the decompressed block.
func (o Offset) Uoffset() uint16 { return uint16(o & 0xFFFF) }

// Load reads a BAI index file in full.
func Load(path string) (*Index, error) {
	le := binary.LittleEndian

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 8)
	if _, err := io.ReadFull(f, head); err != nil {
		return nil, err
	}
	if !bytes.Equal(head[:4], magic[:]) {
		return nil, fmt.Errorf("bai: bad magic %v", head[:4])
	}
	n := int32(le.Uint32(head[4:]))

	idx := &Index{Refs: make([]Reference, n)}
	tmp := make([]byte, 8)
	for i := range idx.Refs {
		if _, err := io.ReadFull(f, tmp[:4]); err != nil {
			return nil, err
		}
		nBins := int32(le.Uint32(tmp[:4]))
		ref := Reference{Bins: make(map[uint32]Bin, nBins)}

		for j := int32(0); j < nBins; j++ {
			if _, err := io.ReadFull(f, tmp); err != nil {
				return nil, err
			}
			binID := le.Uint32(tmp[:4])
			nChunks := int32(le.Uint32(tmp[4:]))
			chunks := make([]Chunk, nChunks)
			if err := binary.Read(f, le, &chunks); err != nil {
				return nil, err
			}
			if binID == unmappedBinID {
				if len(chunks) < 2 {
					return nil, fmt.Errorf("bai: malformed unmapped bin for reference %d", i)
				}
				ref.Unmapped = chunks[0]
				ref.TotalMapped = uint64(chunks[1].Begin)
				ref.TotalUnmapped = uint64(chunks[1].End)
				continue
			}
			ref.Bins[binID] = chunks
		}

		if _, err := io.ReadFull(f, tmp[:4]); err != nil {
			return nil, err
		}
		nIntervals := int32(le.Uint32(tmp[:4]))
		ref.Intervals = make([]Offset, nIntervals)
		if err := binary.Read(f, le, &ref.Intervals); err != nil {
			return nil, err
		}
		idx.Refs[i] = ref
	}
	return idx, nil
}

// unmappedBinID is the reserved bin id holding unmapped-read chunk
// metadata instead of an alignment chunk list.
const unmappedBinID = 37450

// bin computes the smallest bin fully covering [beginPos, endPos),
// using the 5-level binning scheme shared by region indexes.
func bin(beginPos, endPos uint64) uint32 {
	endPos = (endPos - 1) >> 14
	beginPos >>= 14

	switch {
	case beginPos == endPos:
		return ((1<<15)-1)/7 + uint32(beginPos)
	case (beginPos >> 3) == (endPos >> 3):
		return ((1<<12)-1)/7 + uint32(beginPos>>3)
	case (beginPos >> 6) == (endPos >> 6):
		return ((1<<9)-1)/7 + uint32(beginPos>>6)
	case (beginPos >> 9) == (endPos >> 9):
		return ((1<<6)-1)/7 + uint32(beginPos>>9)
	case (beginPos >> 12) == (endPos >> 12):
		return ((1<<3)-1)/7 + uint32(beginPos>>12)
	default:
		return 0
	}
}

// FindBin returns the chunks of the smallest bin fully covering
// [beginPos, endPos) on this reference, mirroring joiningdata-bam's
// single-bin GetMap lookup via getBin.
func (r Reference) FindBin(beginPos, endPos uint64) (Bin, bool) {
	chunks, ok := r.Bins[bin(beginPos, endPos)]
	return chunks, ok
}

// OverlappingChunks returns every chunk across every bin that could
// hold an alignment overlapping [beginPos, endPos) — the exhaustive,
// multi-level counterpart to FindBin's single smallest-covering-bin
// lookup.
func (r Reference) OverlappingChunks(beginPos, endPos uint64) []Chunk {
	var out []Chunk
	for _, id := range bins(beginPos, endPos) {
		out = append(out, r.Bins[id]...)
	}
	return out
}

// bins returns every bin id that could hold alignments overlapping
// [beginPos, endPos).
func bins(beginPos, endPos uint64) []uint32 {
	res := make([]uint32, 1, ((1<<18)-1)/7)

	endPos = (endPos - 1) >> 14
	beginPos >>= 14

	for k := 1 + beginPos>>12; k <= 1+(endPos>>12); k++ {
		res = append(res, uint32(k))
	}
	for k := 9 + beginPos>>9; k <= 9+(endPos>>9); k++ {
		res = append(res, uint32(k))
	}
	for k := 73 + beginPos>>6; k <= 73+(endPos>>6); k++ {
		res = append(res, uint32(k))
	}
	for k := 585 + beginPos>>3; k <= 585+(endPos>>3); k++ {
		res = append(res, uint32(k))
	}
	for k := 4681 + beginPos; k <= 4681+endPos; k++ {
		res = append(res, uint32(k))
	}
	return res
}
