package split

import "errors"

var (
	// ErrTruncatedFile signals that the input does not end in the
	// 28-byte BGZF EOF sentinel.
	ErrTruncatedFile = errors.New("split: file does not end with bgzf eof marker")

	// ErrOverPartition signals that N is too large for this file: the
	// planner produced duplicate block-start offsets.
	ErrOverPartition = errors.New("split: too many partitions requested for this file")
)
