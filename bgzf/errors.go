package bgzf

import "errors"

// Error kinds returned by this package and by split/pairsort. Callers
// should use errors.Is against these sentinels; call sites wrap them
// with fmt.Errorf("%w: ...") to add positional context.
var (
	// ErrIO wraps an underlying read/write/seek/open failure.
	ErrIO = errors.New("bgzf: i/o error")

	// ErrTruncated signals an unexpected short read while consuming a
	// fixed-width field.
	ErrTruncated = errors.New("bgzf: truncated read")

	// ErrBadMagic signals a block or alignment-header magic mismatch.
	ErrBadMagic = errors.New("bgzf: bad magic")

	// ErrMalformed signals a missing or duplicate BC subfield, or a
	// wrong subfield length.
	ErrMalformed = errors.New("bgzf: malformed bgzf block")

	// ErrCRCMismatch signals the decompressed payload's CRC32 does not
	// match the block's trailing CRC.
	ErrCRCMismatch = errors.New("bgzf: crc mismatch")

	// ErrLengthMismatch signals the decompressed payload length does
	// not match the block's trailing length field.
	ErrLengthMismatch = errors.New("bgzf: length mismatch")

	// ErrBlockTooLarge signals an attempted encode of a payload over
	// MaxBlockPayload bytes.
	ErrBlockTooLarge = errors.New("bgzf: block payload too large")

	// ErrTruncatedRecord signals a record's declared length runs past
	// the end of the block containing it.
	ErrTruncatedRecord = errors.New("bgzf: truncated record")
)
