package pairsort

import "errors"

var (
	// ErrMateOrderViolation signals that two records assumed to be
	// mates do not share a read name, or their tlen values do not sum
	// to zero.
	ErrMateOrderViolation = errors.New("pairsort: mate order violation")

	// ErrOddReadCount signals that the input held an odd number of
	// records: a first mate with no second mate to pair it with.
	ErrOddReadCount = errors.New("pairsort: odd read count")
)
