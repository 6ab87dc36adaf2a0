package bgzf

import (
	"encoding/binary"
	"errors"
	"testing"
)

// encodeRecord builds one length-prefixed alignment record with only the
// fixed-offset fields populated (everything else zeroed), matching the
// layout of spec.md §3.
func encodeRecord(refID, pos, tlen int32, readName string) []byte {
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

func TestSplitAndProject(t *testing.T) {
	recs := [][]byte{
		encodeRecord(0, 100, 50, "read1"),
		encodeRecord(0, -50, -50, "read1"),
		encodeRecord(2, 9999, 0, "read2"),
	}
	var payload []byte
	for _, r := range recs {
		payload = append(payload, r...)
	}

	got, err := Split(payload)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(got) != len(recs) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(recs))
	}

	want := []struct {
		refID    int32
		pos      int32
		tlen     int32
		readName string
	}{
		{0, 100, 50, "read1"},
		{0, -50, -50, "read1"},
		{2, 9999, 0, "read2"},
	}
	for i, w := range want {
		r := got[i]
		if r.RefID() != w.refID {
			t.Errorf("rec %d: RefID() = %d, want %d", i, r.RefID(), w.refID)
		}
		if r.Pos() != w.pos {
			t.Errorf("rec %d: Pos() = %d, want %d", i, r.Pos(), w.pos)
		}
		if r.Tlen() != w.tlen {
			t.Errorf("rec %d: Tlen() = %d, want %d", i, r.Tlen(), w.tlen)
		}
		if r.ReadName() != w.readName {
			t.Errorf("rec %d: ReadName() = %q, want %q", i, r.ReadName(), w.readName)
		}
	}

	var sum int
	for _, r := range got {
		sum += len(r.Bytes)
	}
	if sum != len(payload) {
		t.Fatalf("sum of record byte lengths = %d, want %d (payload length)", sum, len(payload))
	}
}

func TestSplitTruncatedRecord(t *testing.T) {
	rec := encodeRecord(0, 0, 0, "r")
	_, err := Split(rec[:len(rec)-3])
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Fatalf("got %v, want ErrTruncatedRecord", err)
	}
}

func TestSplitDanglingBytes(t *testing.T) {
	_, err := Split([]byte{1, 2, 3})
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Fatalf("got %v, want ErrTruncatedRecord", err)
	}
}

func TestSplitEmpty(t *testing.T) {
	got, err := Split(nil)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(got) = %d, want 0", len(got))
	}
}

func TestRecordUoffset(t *testing.T) {
	recs := [][]byte{
		encodeRecord(0, 1, 0, "a"),
		encodeRecord(0, 2, 0, "b"),
	}
	var payload []byte
	for _, r := range recs {
		payload = append(payload, r...)
	}
	got, err := Split(payload)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if got[0].Uoffset != 0 {
		t.Fatalf("got[0].Uoffset = %d, want 0", got[0].Uoffset)
	}
	if got[1].Uoffset != len(recs[0]) {
		t.Fatalf("got[1].Uoffset = %d, want %d", got[1].Uoffset, len(recs[0]))
	}
}
