package pairsort

import (
	"encoding/binary"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joiningdata/bgzfsort/bgzf"
)

const (
	// flushThreshold is the decompressed payload size at which a
	// worker's write buffer is flushed as a new BGZF block.
	flushThreshold = bgzf.MaxBlockPayload

	// cacheCapacity is the number of decoded block payloads each
	// writer worker keeps resident, keyed by coffset.
	cacheCapacity = 1000
)

// blockCache is a per-worker LRU of decoded block payloads, backed by
// a private file handle opened against the original input.
type blockCache struct {
	r     *bgzf.ByteReader
	cache *lru.Cache[int64, []byte]
}

func newBlockCache(path string) (*blockCache, error) {
	r, err := bgzf.OpenByteReader(path)
	if err != nil {
		return nil, err
	}
	c, err := lru.New[int64, []byte](cacheCapacity)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("pairsort: allocating block cache: %w", err)
	}
	return &blockCache{r: r, cache: c}, nil
}

func (bc *blockCache) close() error {
	return bc.r.Close()
}

// payload returns the decoded payload of the block at coffset,
// decoding via the compact codec on a miss. coffset must already be a
// certified block start — it always is here, since it comes straight
// out of pass 1's virtual offsets.
func (bc *blockCache) payload(coffset int64) ([]byte, error) {
	if p, ok := bc.cache.Get(coffset); ok {
		return p, nil
	}
	if err := bc.r.Seek(coffset); err != nil {
		return nil, err
	}
	blk, err := bgzf.DecodeCompact(bc.r)
	if err != nil {
		return nil, fmt.Errorf("pairsort: decoding block at %d: %w", coffset, err)
	}
	bc.cache.Add(coffset, blk.Payload)
	return blk.Payload, nil
}

// recordBytes slices the length-prefixed record at v directly out of
// its (cached) block payload, with the 4-byte block_size prefix
// included — mirroring bgzf.Record.Bytes so the writer can concatenate
// mates without a full bgzf.Split pass over the whole block.
func (bc *blockCache) recordBytes(v bgzf.VirtualOffset) ([]byte, error) {
	payload, err := bc.payload(v.Coffset())
	if err != nil {
		return nil, err
	}
	start := int(v.Uoffset())
	if start+4 > len(payload) {
		return nil, fmt.Errorf("pairsort: record at uoffset %d runs past block end", start)
	}
	blockSize := int(binary.LittleEndian.Uint32(payload[start : start+4]))
	end := start + 4 + blockSize
	if end > len(payload) {
		return nil, fmt.Errorf("pairsort: record at uoffset %d declares %d bytes, past block end", start, blockSize)
	}
	return payload[start:end], nil
}

// writeChunk writes one worker's share of a reference's sorted pairs
// to tmpPath as a sequence of raw BGZF blocks (no header, no EOF — see
// spec.md §6).
func writeChunk(srcPath string, pairs []PairOffsets, tmpPath string, level int) error {
	bc, err := newBlockCache(srcPath)
	if err != nil {
		return err
	}
	defer bc.close()

	out, err := newTempFile(tmpPath)
	if err != nil {
		return err
	}
	defer out.Close()

	var buffer []byte
	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		enc, err := bgzf.Encode(buffer, level)
		if err != nil {
			return err
		}
		if _, err := out.Write(enc); err != nil {
			return fmt.Errorf("pairsort: writing %s: %w", tmpPath, err)
		}
		buffer = buffer[:0]
		return nil
	}

	for _, pair := range pairs {
		a, err := bc.recordBytes(pair.A)
		if err != nil {
			return err
		}
		b, err := bc.recordBytes(pair.B)
		if err != nil {
			return err
		}
		pairLen := len(a) + len(b)
		if len(buffer)+pairLen >= flushThreshold {
			if err := flush(); err != nil {
				return err
			}
		}
		buffer = append(buffer, a...)
		buffer = append(buffer, b...)
	}
	return flush()
}
