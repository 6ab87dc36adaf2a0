package parallel

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/joiningdata/bgzfsort/bgzf"
)

func encodeParallelHeader() []byte {
	le := binary.LittleEndian
	var buf []byte
	buf = append(buf, 'B', 'A', 'M', 1)
	buf = le.AppendUint32(buf, 0)
	buf = le.AppendUint32(buf, 0)
	return buf
}

func encodeParallelRecord(refID, pos int32) []byte {
	le := binary.LittleEndian
	body := make([]byte, 33)
	le.PutUint32(body[0:4], uint32(refID))
	le.PutUint32(body[4:8], uint32(pos))
	body[8] = 1
	out := make([]byte, 4+len(body))
	le.PutUint32(out[0:4], uint32(len(body)))
	copy(out[4:], body)
	return out
}

func buildParallelFile(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.bgzf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	hdr, err := bgzf.Encode(encodeParallelHeader(), 6)
	if err != nil {
		t.Fatalf("Encode header: %v", err)
	}
	if _, err := f.Write(hdr); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for i := 0; i < n; i++ {
		enc, err := bgzf.Encode(encodeParallelRecord(0, int32(i)), 6)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if _, err := f.Write(enc); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := f.Write(bgzf.EOFMarker); err != nil {
		t.Fatalf("write eof: %v", err)
	}
	return path
}

func TestOpenAllCoversEveryRecordExactlyOnce(t *testing.T) {
	path := buildParallelFile(t, 40)

	readers, err := OpenAll(path, 4, "")
	if err != nil {
		t.Fatalf("OpenAll: %v", err)
	}

	seen := make(map[int32]bool)
	total := 0
	for _, rd := range readers {
		for {
			rec, err := rd.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if seen[rec.Pos()] {
				t.Fatalf("pos %d read more than once", rec.Pos())
			}
			seen[rec.Pos()] = true
			total++
		}
		if err := rd.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if total != 40 {
		t.Fatalf("total = %d, want 40", total)
	}
}

func TestReaderSinglePartitionYieldsAll(t *testing.T) {
	path := buildParallelFile(t, 5)

	readers, err := OpenAll(path, 1, "")
	if err != nil {
		t.Fatalf("OpenAll: %v", err)
	}
	defer readers[0].Close()

	var positions []int32
	for {
		rec, err := readers[0].Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		positions = append(positions, rec.Pos())
	}
	if len(positions) != 5 {
		t.Fatalf("len(positions) = %d, want 5", len(positions))
	}
	for i, p := range positions {
		if p != int32(i) {
			t.Fatalf("positions[%d] = %d, want %d", i, p, i)
		}
	}
}
