package bgzf

import (
	"fmt"
	"io"
	"os"
)

// ByteReader is a positioned, seekable reader over a local file. It owns
// its file handle from Open to Close and is not safe for concurrent use
// — each worker in the parallel reader and pair sorter opens its own
// instance.
type ByteReader struct {
	f    *os.File
	size int64
}

// OpenByteReader opens path for positioned reads.
func OpenByteReader(path string) (*ByteReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}
	return &ByteReader{f: f, size: info.Size()}, nil
}

// Seek positions the reader at offset bytes from the start of the file.
func (r *ByteReader) Seek(offset int64) error {
	if _, err := r.f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek %d: %v", ErrIO, offset, err)
	}
	return nil
}

// Read reads up to len(p) bytes, returning fewer at end of file (a
// short read, not an error) per the io.Reader contract.
func (r *ByteReader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: read: %v", ErrIO, err)
	}
	return n, err
}

// ReadFull reads exactly len(p) bytes, or signals ErrTruncated if the
// file ends first.
func (r *ByteReader) ReadFull(p []byte) error {
	if _, err := io.ReadFull(r.f, p); err != nil {
		return fmt.Errorf("%w: %v", wrapIOErr(err), err)
	}
	return nil
}

// Tell returns the reader's current position.
func (r *ByteReader) Tell() (int64, error) {
	off, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("%w: tell: %v", ErrIO, err)
	}
	return off, nil
}

// Len returns the total size of the underlying file.
func (r *ByteReader) Len() int64 {
	return r.size
}

// Close releases the underlying file handle.
func (r *ByteReader) Close() error {
	return r.f.Close()
}
