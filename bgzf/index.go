package bgzf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// IndexEntry is one sanctioned block-start offset from a sidecar block
// index.
type IndexEntry struct {
	Coffset int64
	Uoffset uint64
}

// ReadSidecarIndex loads the auxiliary block index described in
// spec.md §3/§6: an 8-byte little-endian entry count followed by that
// many (coffset:u64, uoffset:u64) pairs. This is the core's own index
// format, used directly by the split planner (§4.5) — distinct from the
// full BAI region index, which stays out of core scope (see
// internal/bai and DESIGN.md).
func ReadSidecarIndex(path string) ([]IndexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sidecar index %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	var countBuf [8]byte
	if _, err := io.ReadFull(f, countBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: sidecar index count: %v", wrapIOErr(err), err)
	}
	n := binary.LittleEndian.Uint64(countBuf[:])

	entries := make([]IndexEntry, n)
	var entryBuf [16]byte
	for i := range entries {
		if _, err := io.ReadFull(f, entryBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: sidecar index entry %d: %v", wrapIOErr(err), i, err)
		}
		entries[i] = IndexEntry{
			Coffset: int64(binary.LittleEndian.Uint64(entryBuf[0:8])),
			Uoffset: binary.LittleEndian.Uint64(entryBuf[8:16]),
		}
	}
	return entries, nil
}
