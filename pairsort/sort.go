package pairsort

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/klauspost/compress/flate"
	"golang.org/x/sync/errgroup"

	"github.com/joiningdata/bgzfsort/bgzf"
)

// ProgressFunc, when set, is called once per reference as pass 3
// finishes writing it — the same callback-over-polling pattern the
// teacher's loader uses for long-running operations.
type ProgressFunc func(refID int32, pairsWritten int)

// Sorter runs the two-pass mate-pair resort described in spec.md §4.6:
// index pair offsets per reference, then reassemble a block-aligned,
// coordinate-sorted output via a worker pool per reference.
type Sorter struct {
	Path             string
	Parallelism      int
	CompressionLevel int
	Progress         ProgressFunc
}

// New returns a Sorter reading from path with the given worker count
// per reference, using flate's default compression level.
func New(path string, parallelism int) *Sorter {
	return &Sorter{
		Path:             path,
		Parallelism:      parallelism,
		CompressionLevel: flate.DefaultCompression,
	}
}

// Run performs the full sort, writing a well-formed BGZF file to
// outputPath. On any worker failure, the partially written temporary
// files are left in place for diagnosis rather than cleaned up, per
// spec.md §7's propagation policy.
func (s *Sorter) Run(ctx context.Context, outputPath string) error {
	empty, err := isEmptyInput(s.Path)
	if err != nil {
		return err
	}
	if empty {
		// A file consisting only of the EOF sentinel has no header
		// block to decode at all (spec.md §8 scenario 1): the output
		// is the trivial degenerate file, an empty header plus EOF.
		return s.assemble(outputPath, bgzf.EmptyHeaderPayload(), nil)
	}

	r, err := bgzf.OpenByteReader(s.Path)
	if err != nil {
		return err
	}
	_, headerEnd, err := bgzf.DecodeHeader(r)
	closeErr := r.Close()
	if err != nil {
		return fmt.Errorf("pairsort: decoding header: %w", err)
	}
	if closeErr != nil {
		return closeErr
	}

	idx, err := BuildIndex(s.Path, headerEnd)
	if err != nil {
		return err
	}
	if n := idx.InterReferencePairs(); n > 0 {
		log.Printf("pairsort: %d inter-reference pair(s) indexed but not written to output", n)
	}

	refIDs := idx.SortedReferenceIDs()
	refConcatPaths := make([]string, len(refIDs))
	for i, refID := range refIDs {
		pairs := idx.SortedPairs(refID)
		concatPath, err := s.writeReference(ctx, outputPath, refID, pairs)
		if err != nil {
			return fmt.Errorf("pairsort: writing reference %d: %w", refID, err)
		}
		refConcatPaths[i] = concatPath
		if s.Progress != nil {
			s.Progress(refID, len(pairs))
		}
	}

	if err := s.assemble(outputPath, headerEnd.RawPayload, refConcatPaths); err != nil {
		return err
	}
	for _, p := range refConcatPaths {
		_ = os.Remove(p)
	}
	return nil
}

// writeReference partitions refID's sorted pairs into K = min(N,
// pair_count) contiguous chunks, writes each with its own worker, and
// concatenates the results into one per-reference temporary file.
func (s *Sorter) writeReference(ctx context.Context, outputPath string, refID int32, pairs []PairOffsets) (string, error) {
	k := s.Parallelism
	if k < 1 {
		k = 1
	}
	if k > len(pairs) {
		k = len(pairs)
	}
	chunks := partitionPairs(pairs, k)

	g, gctx := errgroup.WithContext(ctx)
	chunkPaths := make([]string, len(chunks))
	for i, chunk := range chunks {
		i, chunk := i, chunk
		chunkPath := fmt.Sprintf("%s.__tmp.refID%d.%d", outputPath, refID, i)
		chunkPaths[i] = chunkPath
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("pairsort: worker %d panicked: %v", i, p)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			return writeChunk(s.Path, chunk, chunkPath, s.CompressionLevel)
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	concatPath := fmt.Sprintf("%s.__tmp.refID%d", outputPath, refID)
	if err := concatFiles(concatPath, chunkPaths); err != nil {
		return "", err
	}
	for _, p := range chunkPaths {
		_ = os.Remove(p)
	}
	return concatPath, nil
}

// partitionPairs splits pairs into k contiguous chunks whose sizes
// differ by at most one, with any leftover distributed to the first
// chunks.
func partitionPairs(pairs []PairOffsets, k int) [][]PairOffsets {
	n := len(pairs)
	base, rem := n/k, n%k
	out := make([][]PairOffsets, k)
	idx := 0
	for i := 0; i < k; i++ {
		size := base
		if i < rem {
			size++
		}
		out[i] = pairs[idx : idx+size]
		idx += size
	}
	return out
}

func (s *Sorter) assemble(outputPath string, headerPayload []byte, refConcatPaths []string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("pairsort: creating %s: %w", outputPath, err)
	}
	defer out.Close()

	headerBlock, err := bgzf.Encode(headerPayload, s.CompressionLevel)
	if err != nil {
		return fmt.Errorf("pairsort: encoding header block: %w", err)
	}
	if _, err := out.Write(headerBlock); err != nil {
		return fmt.Errorf("pairsort: writing header block: %w", err)
	}
	for _, p := range refConcatPaths {
		if err := appendFile(out, p); err != nil {
			return err
		}
	}
	if _, err := out.Write(bgzf.EOFMarker); err != nil {
		return fmt.Errorf("pairsort: writing eof marker: %w", err)
	}
	return nil
}

func concatFiles(dst string, srcs []string) error {
	out, err := newTempFile(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	for _, src := range srcs {
		if err := appendFile(out, src); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(dst *os.File, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("pairsort: opening %s: %w", src, err)
	}
	defer f.Close()
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("pairsort: copying %s into %s: %w", src, dst.Name(), err)
	}
	return nil
}

func newTempFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("pairsort: creating temp file %s: %w", path, err)
	}
	return f, nil
}

// isEmptyInput reports whether path is exactly the 28-byte BGZF EOF
// sentinel and nothing else — the same degenerate condition
// split.Plan special-cases via eofOffset == 0.
func isEmptyInput(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("pairsort: stat %s: %w", path, err)
	}
	if info.Size() != int64(len(bgzf.EOFMarker)) {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("pairsort: reading %s: %w", path, err)
	}
	return string(data) == string(bgzf.EOFMarker), nil
}
