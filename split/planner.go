package split

import (
	"bytes"
	"fmt"
	"io"

	"github.com/joiningdata/bgzfsort/bgzf"
)

const (
	// searchWindow is the window size read on each boundary-search
	// probe, per spec.md §4.5.
	searchWindow = 5000

	// searchStep is the distance advanced when the window contains no
	// magic bytes at all.
	searchStep = searchWindow - 100

	// falsePositiveStep is the distance advanced past a magic-byte
	// occurrence that failed header validation, so the same false
	// positive is never rematched.
	falsePositiveStep = 4
)

// Plan produces a strictly increasing sequence of N block-aligned byte
// offsets over the BGZF file at path, plus a trailing EOF offset — the
// boundaries worker i should read between (O[i], inclusive) and
// O[i+1] (exclusive). When sidecarPath is non-empty, the sanctioned
// offsets in that auxiliary index are used instead of probing the file
// directly.
func Plan(path string, n int, sidecarPath string) (offsets []int64, eofOffset int64, err error) {
	if n < 1 {
		return nil, 0, fmt.Errorf("split: parallelism must be >= 1, got %d", n)
	}

	r, err := bgzf.OpenByteReader(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	eofOffset, err = checkTrailingEOF(r)
	if err != nil {
		return nil, 0, err
	}

	// A file consisting only of the EOF sentinel has no header block at
	// all; treat the degenerate case directly rather than trying to
	// decode a header out of the EOF marker's empty payload.
	var firstDataBlock int64
	if eofOffset > 0 {
		if err := r.Seek(0); err != nil {
			return nil, 0, err
		}
		_, headerEnd, err := bgzf.DecodeHeader(r)
		if err != nil {
			return nil, 0, fmt.Errorf("split: decoding header: %w", err)
		}
		firstDataBlock = headerEnd.NextBlockCoffset
	}

	var starts []int64
	if sidecarPath != "" {
		starts, err = planWithSidecar(sidecarPath, n)
	} else {
		starts, err = planWithoutSidecar(r, firstDataBlock, eofOffset, n)
	}
	if err != nil {
		return nil, 0, err
	}

	offsets = append(starts, eofOffset)
	return offsets, eofOffset, nil
}

// checkTrailingEOF verifies the file ends with the 28-byte BGZF EOF
// sentinel and returns the byte offset at which it begins.
func checkTrailingEOF(r *bgzf.ByteReader) (int64, error) {
	size := r.Len()
	eofLen := int64(len(bgzf.EOFMarker))
	if size < eofLen {
		return 0, fmt.Errorf("%w: file is only %d bytes", ErrTruncatedFile, size)
	}
	offset := size - eofLen
	if err := r.Seek(offset); err != nil {
		return 0, err
	}
	buf := make([]byte, eofLen)
	if err := r.ReadFull(buf); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncatedFile, err)
	}
	if !bytes.Equal(buf, bgzf.EOFMarker) {
		return 0, fmt.Errorf("%w: trailing bytes do not match", ErrTruncatedFile)
	}
	return offset, nil
}

// planWithSidecar picks N evenly spaced, distinct block-start offsets
// out of the sidecar index, per spec.md §4.5.
func planWithSidecar(sidecarPath string, n int) ([]int64, error) {
	entries, err := bgzf.ReadSidecarIndex(sidecarPath)
	if err != nil {
		return nil, err
	}
	count := len(entries)
	if count < 2 {
		return nil, fmt.Errorf("%w: sidecar index has only %d entries", ErrOverPartition, count)
	}

	idx := linspace(1, int64(count-1), n+1)
	starts := make([]int64, n)
	seen := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		c := entries[idx[i]].Coffset
		if seen[c] {
			return nil, fmt.Errorf("%w: n=%d requested against a %d-entry index", ErrOverPartition, n, count)
		}
		seen[c] = true
		starts[i] = c
	}
	return starts, nil
}

// planWithoutSidecar computes N evenly spaced probe points across
// [firstDataBlock, eofOffset) and searches forward from each for the
// nearest valid block start.
func planWithoutSidecar(r *bgzf.ByteReader, firstDataBlock, eofOffset int64, n int) ([]int64, error) {
	probes := linspace(firstDataBlock, eofOffset, n+1)[:n]

	starts := make([]int64, n)
	seen := make(map[int64]bool, n)
	for i, probe := range probes {
		start, err := searchNearestBlock(r, probe)
		if err != nil {
			return nil, err
		}
		if seen[start] {
			return nil, fmt.Errorf("%w: n=%d requested against too few blocks", ErrOverPartition, n)
		}
		seen[start] = true
		starts[i] = start
	}
	return starts, nil
}

// searchNearestBlock implements the block-boundary search of spec.md
// §4.5: scan forward for the magic bytes, then validate the candidate
// header; on a false positive (the magic occurring inside compressed
// payload by chance), advance by 4 bytes and keep searching.
func searchNearestBlock(r *bgzf.ByteReader, probeOffset int64) (int64, error) {
	cursor := probeOffset
	for {
		if err := r.Seek(cursor); err != nil {
			return 0, err
		}
		window := make([]byte, searchWindow)
		m, err := readAvailable(r, window)
		if err != nil {
			return 0, err
		}
		window = window[:m]

		idx := bytes.Index(window, blockMagicBytes())
		if idx < 0 {
			cursor += searchStep
			continue
		}
		candidate := cursor + int64(idx)

		if err := r.Seek(candidate); err != nil {
			return 0, err
		}
		head := make([]byte, searchWindow)
		m, err = readAvailable(r, head)
		if err != nil {
			return 0, err
		}
		head = head[:m]

		if bgzf.ValidateHeader(head) {
			return candidate, nil
		}
		cursor = candidate + falsePositiveStep
	}
}

func blockMagicBytes() []byte {
	return []byte{0x1f, 0x8b, 0x08, 0x04}
}

// readAvailable reads up to len(buf) bytes, tolerating a short read at
// end of file — the boundary search's last window is routinely
// shorter than searchWindow.
func readAvailable(r *bgzf.ByteReader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			if err == io.EOF {
				break
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// linspace returns count values evenly spaced between a and b
// inclusive, rounded to the nearest integer. count must be >= 1.
func linspace(a, b int64, count int) []int64 {
	out := make([]int64, count)
	if count == 1 {
		out[0] = a
		return out
	}
	span := b - a
	denom := int64(count - 1)
	for i := 0; i < count; i++ {
		// round(a + i*span/denom) using integer arithmetic with a
		// half-denominator bias for rounding instead of truncation.
		num := int64(i) * span
		var v int64
		if num >= 0 {
			v = a + (num+denom/2)/denom
		} else {
			v = a + (num-denom/2)/denom
		}
		out[i] = v
	}
	return out
}
