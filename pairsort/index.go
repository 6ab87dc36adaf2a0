package pairsort

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/joiningdata/bgzfsort/bgzf"
)

// PairOffsets is everything needed to re-fetch both mates of one pair:
// the virtual offset of each mate's record.
type PairOffsets struct {
	A, B bgzf.VirtualOffset
}

// pairWithCoord is the transient pass-1/pass-2 representation; the
// front coordinate is discarded once a reference's bucket is sorted.
type pairWithCoord struct {
	FrontCoord int32
	Pair       PairOffsets
}

// Index is the in-memory result of pass 1: pair offsets bucketed by
// reference id, plus the inter-reference pairs the writer never emits
// (see spec.md §9 and DESIGN.md's resolution of that open question).
type Index struct {
	ByRef          map[int32][]pairWithCoord
	InterReference []PairOffsets
}

// InterReferencePairs reports how many pairs span two different
// references. These are indexed but intentionally never written to
// output — the original source populates an equivalent list and never
// drains it, and this core makes that policy explicit instead of
// silent.
func (idx *Index) InterReferencePairs() int {
	return len(idx.InterReference)
}

// SortedReferenceIDs returns the reference ids with at least one pair,
// in ascending order — the order pass 3 writes them in.
func (idx *Index) SortedReferenceIDs() []int32 {
	ids := make([]int32, 0, len(idx.ByRef))
	for id := range idx.ByRef {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedPairs returns reference refID's pairs, stably sorted by
// front_coord ascending (pass 2), with the coordinate column dropped.
func (idx *Index) SortedPairs(refID int32) []PairOffsets {
	bucket := idx.ByRef[refID]
	sort.SliceStable(bucket, func(i, j int) bool {
		return bucket[i].FrontCoord < bucket[j].FrontCoord
	})
	out := make([]PairOffsets, len(bucket))
	for i, p := range bucket {
		out[i] = p.Pair
	}
	return out
}

// pendingMate holds the first-seen record of a not-yet-complete pair.
type pendingMate struct {
	refID    int32
	pos      int32
	tlen     int32
	readName string
	offset   bgzf.VirtualOffset
}

// BuildIndex runs pass 1 over path: it iterates every alignment record
// from headerEnd onward (including any trailing record bytes sharing a
// block with the tail of the header) and indexes mate pairs by
// reference id and leftmost coordinate.
func BuildIndex(path string, headerEnd bgzf.HeaderEnd) (*Index, error) {
	r, err := bgzf.OpenByteReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	eofOffset, err := trailingEOFOffset(r)
	if err != nil {
		return nil, err
	}

	idx := &Index{ByRef: make(map[int32][]pairWithCoord)}
	var pending *pendingMate

	consume := func(coffset int64, baseUoffset int, payload []byte) error {
		recs, err := bgzf.Split(payload)
		if err != nil {
			return fmt.Errorf("pairsort: framing block at %d: %w", coffset, err)
		}
		for _, rec := range recs {
			off := bgzf.NewVirtualOffset(coffset, uint16(baseUoffset+rec.Uoffset))
			if pending == nil {
				pending = &pendingMate{
					refID:    rec.RefID(),
					pos:      rec.Pos(),
					tlen:     rec.Tlen(),
					readName: rec.ReadName(),
					offset:   off,
				}
				continue
			}
			if rec.ReadName() != pending.readName || rec.Tlen()+pending.tlen != 0 {
				return fmt.Errorf("%w: %q (tlen %d) followed by %q (tlen %d)",
					ErrMateOrderViolation, pending.readName, pending.tlen, rec.ReadName(), rec.Tlen())
			}
			if rec.RefID() == pending.refID {
				front := pending.pos
				if rec.Pos() < front {
					front = rec.Pos()
				}
				idx.ByRef[pending.refID] = append(idx.ByRef[pending.refID], pairWithCoord{
					FrontCoord: front,
					Pair:       PairOffsets{A: pending.offset, B: off},
				})
			} else {
				idx.InterReference = append(idx.InterReference, PairOffsets{A: pending.offset, B: off})
			}
			pending = nil
		}
		return nil
	}

	if len(headerEnd.Trailing) > 0 {
		if err := consume(headerEnd.End.Coffset(), int(headerEnd.End.Uoffset()), headerEnd.Trailing); err != nil {
			return nil, err
		}
	}

	if err := r.Seek(headerEnd.NextBlockCoffset); err != nil {
		return nil, err
	}
	for {
		coffset, err := r.Tell()
		if err != nil {
			return nil, err
		}
		if coffset >= eofOffset {
			break
		}
		blk, err := bgzf.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("pairsort: decoding block at %d: %w", coffset, err)
		}
		if err := consume(coffset, 0, blk.Payload); err != nil {
			return nil, err
		}
	}

	if pending != nil {
		return nil, fmt.Errorf("%w: dangling first mate %q", ErrOddReadCount, pending.readName)
	}
	return idx, nil
}

// trailingEOFOffset verifies path ends with the BGZF EOF sentinel and
// returns the byte offset it starts at.
func trailingEOFOffset(r *bgzf.ByteReader) (int64, error) {
	size := r.Len()
	eofLen := int64(len(bgzf.EOFMarker))
	if size < eofLen {
		return 0, fmt.Errorf("pairsort: file is only %d bytes, shorter than the eof marker", size)
	}
	offset := size - eofLen
	if err := r.Seek(offset); err != nil {
		return 0, err
	}
	buf := make([]byte, eofLen)
	if err := r.ReadFull(buf); err != nil {
		return 0, fmt.Errorf("pairsort: reading trailing eof marker: %w", err)
	}
	if !bytes.Equal(buf, bgzf.EOFMarker) {
		return 0, fmt.Errorf("pairsort: file does not end with the bgzf eof marker")
	}
	return offset, nil
}
