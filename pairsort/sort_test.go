package pairsort

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joiningdata/bgzfsort/bgzf"
)

func encodeSortHeader(nRefs int) []byte {
	le := binary.LittleEndian
	var buf []byte
	buf = append(buf, 'B', 'A', 'M', 1)
	buf = le.AppendUint32(buf, 0) // l_text
	buf = le.AppendUint32(buf, uint32(nRefs))
	for i := 0; i < nRefs; i++ {
		name := []byte{byte('A' + i), 0}
		buf = le.AppendUint32(buf, uint32(len(name)))
		buf = append(buf, name...)
		buf = le.AppendUint32(buf, 1000)
	}
	return buf
}

// encodeSortRecord builds one alignment record with the fixed fields
// needed by the sorter: refID, pos, tlen, and a read name shared
// between mates.
func encodeSortRecord(refID, pos, tlen int32, readName string) []byte {
	le := binary.LittleEndian
	name := append([]byte(readName), 0)
	body := make([]byte, 32+len(name))
	le.PutUint32(body[0:4], uint32(refID))
	le.PutUint32(body[4:8], uint32(pos))
	body[8] = byte(len(name))
	le.PutUint32(body[28:32], uint32(tlen))
	copy(body[32:], name)

	out := make([]byte, 4+len(body))
	le.PutUint32(out[0:4], uint32(len(body)))
	copy(out[4:], body)
	return out
}

func buildSortInput(t *testing.T, nRefs int, records [][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.bgzf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	hdr, err := bgzf.Encode(encodeSortHeader(nRefs), 6)
	if err != nil {
		t.Fatalf("Encode header: %v", err)
	}
	if _, err := f.Write(hdr); err != nil {
		t.Fatalf("write header: %v", err)
	}

	var payload []byte
	for _, r := range records {
		payload = append(payload, r...)
	}
	blk, err := bgzf.Encode(payload, 6)
	if err != nil {
		t.Fatalf("Encode records: %v", err)
	}
	if _, err := f.Write(blk); err != nil {
		t.Fatalf("write records: %v", err)
	}
	if _, err := f.Write(bgzf.EOFMarker); err != nil {
		t.Fatalf("write eof: %v", err)
	}
	return path
}

func readAllRecords(t *testing.T, path string) []struct {
	refID int32
	pos   int32
	name  string
} {
	t.Helper()
	r, err := bgzf.OpenByteReader(path)
	if err != nil {
		t.Fatalf("OpenByteReader: %v", err)
	}
	defer r.Close()

	_, headerEnd, err := bgzf.DecodeHeader(r)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}

	eofOffset := r.Len() - int64(len(bgzf.EOFMarker))
	var out []struct {
		refID int32
		pos   int32
		name  string
	}

	appendFrom := func(payload []byte) {
		recs, err := bgzf.Split(payload)
		if err != nil {
			t.Fatalf("Split: %v", err)
		}
		for _, rec := range recs {
			out = append(out, struct {
				refID int32
				pos   int32
				name  string
			}{rec.RefID(), rec.Pos(), rec.ReadName()})
		}
	}

	appendFrom(headerEnd.Trailing)
	if err := r.Seek(headerEnd.NextBlockCoffset); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	for {
		off, err := r.Tell()
		if err != nil {
			t.Fatalf("Tell: %v", err)
		}
		if off >= eofOffset {
			break
		}
		blk, err := bgzf.Decode(r)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		appendFrom(blk.Payload)
	}
	return out
}

func TestSortTwoReferencesMateAdjacent(t *testing.T) {
	records := [][]byte{
		encodeSortRecord(0, 100, 50, "p1"),
		encodeSortRecord(0, 250, -50, "p1"),
		encodeSortRecord(1, 5, 30, "p2"),
		encodeSortRecord(1, 80, -30, "p2"),
		encodeSortRecord(0, 10, 20, "p3"),
		encodeSortRecord(0, 60, -20, "p3"),
	}
	path := buildSortInput(t, 2, records)
	outPath := filepath.Join(t.TempDir(), "out.bgzf")

	s := New(path, 2)
	if err := s.Run(context.Background(), outPath); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := readAllRecords(t, outPath)
	wantOrder := []struct {
		refID int32
		pos   int32
	}{
		{0, 10}, {0, 60}, {0, 100}, {0, 250}, {1, 5}, {1, 80},
	}
	if len(got) != len(wantOrder) {
		t.Fatalf("len(got) = %d, want %d: %+v", len(got), len(wantOrder), got)
	}
	for i, w := range wantOrder {
		if got[i].refID != w.refID || got[i].pos != w.pos {
			t.Fatalf("record %d = (ref %d, pos %d), want (ref %d, pos %d)", i, got[i].refID, got[i].pos, w.refID, w.pos)
		}
	}
}

func TestSortEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bgzf")
	if err := os.WriteFile(path, bgzf.EOFMarker, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	outPath := filepath.Join(t.TempDir(), "out.bgzf")

	s := New(path, 4)
	if err := s.Run(context.Background(), outPath); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := readAllRecords(t, outPath)
	if len(got) != 0 {
		t.Fatalf("len(got) = %d, want 0", len(got))
	}
}

func TestBuildIndexOddReadCount(t *testing.T) {
	// The first two records are mates; the third has no mate to pair with.
	records := [][]byte{
		encodeSortRecord(0, 100, 150, "a"),
		encodeSortRecord(0, 250, -150, "a"),
		encodeSortRecord(0, 50, 0, "c"),
	}
	path := buildSortInput(t, 1, records)

	r, err := bgzf.OpenByteReader(path)
	if err != nil {
		t.Fatalf("OpenByteReader: %v", err)
	}
	defer r.Close()
	_, headerEnd, err := bgzf.DecodeHeader(r)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}

	_, err = BuildIndex(path, headerEnd)
	if !errors.Is(err, ErrOddReadCount) {
		t.Fatalf("got %v, want ErrOddReadCount", err)
	}
}

func TestBuildIndexMateOrderViolation(t *testing.T) {
	records := [][]byte{
		encodeSortRecord(0, 100, 50, "p1"),
		encodeSortRecord(0, 250, 999, "different-name"),
	}
	path := buildSortInput(t, 1, records)

	r, err := bgzf.OpenByteReader(path)
	if err != nil {
		t.Fatalf("OpenByteReader: %v", err)
	}
	defer r.Close()
	_, headerEnd, err := bgzf.DecodeHeader(r)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}

	_, err = BuildIndex(path, headerEnd)
	if !errors.Is(err, ErrMateOrderViolation) {
		t.Fatalf("got %v, want ErrMateOrderViolation", err)
	}
}

func TestBuildIndexInterReferencePairs(t *testing.T) {
	records := [][]byte{
		encodeSortRecord(0, 100, 50, "p1"),
		encodeSortRecord(1, 5, -50, "p1"),
	}
	path := buildSortInput(t, 2, records)

	r, err := bgzf.OpenByteReader(path)
	if err != nil {
		t.Fatalf("OpenByteReader: %v", err)
	}
	defer r.Close()
	_, headerEnd, err := bgzf.DecodeHeader(r)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}

	idx, err := BuildIndex(path, headerEnd)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if idx.InterReferencePairs() != 1 {
		t.Fatalf("InterReferencePairs() = %d, want 1", idx.InterReferencePairs())
	}
	if len(idx.ByRef) != 0 {
		t.Fatalf("ByRef = %+v, want empty (the only pair is inter-reference)", idx.ByRef)
	}
}

func TestPartitionPairsSizes(t *testing.T) {
	pairs := make([]PairOffsets, 10)
	chunks := partitionPairs(pairs, 3)
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		total += len(c)
		if len(c) < 3 || len(c) > 4 {
			t.Fatalf("chunk size %d outside [3,4]", len(c))
		}
	}
	if total != 10 {
		t.Fatalf("total = %d, want 10", total)
	}
}
