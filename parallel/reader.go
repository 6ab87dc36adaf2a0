// Package parallel implements the derivable parallel reader (spec's
// C7): given the split planner's offsets, it exposes one independent
// record iterator per partition, each a private C1+C2+C4 pipeline over
// a half-open byte range. Iterators share no state and may be driven
// from separate goroutines.
package parallel

import (
	"fmt"
	"io"

	"github.com/joiningdata/bgzfsort/bgzf"
	"github.com/joiningdata/bgzfsort/split"
)

// Reader iterates the alignment records of one partition, from its
// start offset (inclusive) up to its end offset (exclusive). It is not
// safe for concurrent use; open one Reader per goroutine.
type Reader struct {
	r         *bgzf.ByteReader
	end       int64
	pending   []bgzf.Record
	pendingAt int
	done      bool
}

// Open positions a Reader at start and prepares it to decode records
// up to, but not including, end.
func Open(path string, start, end int64) (*Reader, error) {
	r, err := bgzf.OpenByteReader(path)
	if err != nil {
		return nil, err
	}
	if err := r.Seek(start); err != nil {
		r.Close()
		return nil, err
	}
	return &Reader{r: r, end: end}, nil
}

// Next returns the next record in the partition, or io.EOF once the
// partition's end offset has been reached.
func (rd *Reader) Next() (bgzf.Record, error) {
	for rd.pendingAt >= len(rd.pending) {
		if rd.done {
			return bgzf.Record{}, io.EOF
		}
		off, err := rd.r.Tell()
		if err != nil {
			return bgzf.Record{}, err
		}
		if off >= rd.end {
			rd.done = true
			return bgzf.Record{}, io.EOF
		}
		blk, err := bgzf.Decode(rd.r)
		if err != nil {
			return bgzf.Record{}, fmt.Errorf("parallel: decoding block at %d: %w", off, err)
		}
		recs, err := bgzf.Split(blk.Payload)
		if err != nil {
			return bgzf.Record{}, fmt.Errorf("parallel: framing block at %d: %w", off, err)
		}
		rd.pending = recs
		rd.pendingAt = 0
	}
	rec := rd.pending[rd.pendingAt]
	rd.pendingAt++
	return rec, nil
}

// Close releases the partition's file handle.
func (rd *Reader) Close() error {
	return rd.r.Close()
}

// OpenAll plans n partitions over path (via split.Plan) and opens a
// Reader for each.
func OpenAll(path string, n int, sidecarPath string) ([]*Reader, error) {
	offsets, _, err := split.Plan(path, n, sidecarPath)
	if err != nil {
		return nil, err
	}
	readers := make([]*Reader, n)
	for i := 0; i < n; i++ {
		rd, err := Open(path, offsets[i], offsets[i+1])
		if err != nil {
			for _, opened := range readers[:i] {
				opened.Close()
			}
			return nil, err
		}
		readers[i] = rd
	}
	return readers, nil
}
