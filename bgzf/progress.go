package bgzf

import (
	"fmt"
	"os"
)

// ProgressFunc is used to report progress during a block- or
// header-scanning operation, as a percentage 0.0-100.0. A sentinel
// value of -1.0 indicates the end of processing.
type ProgressFunc func(percent float64)

// BlockProgressFunc is the default ProgressFunc for this package's
// block and header scanning operations. It does nothing by default.
var BlockProgressFunc ProgressFunc = nullProgressFunc

func nullProgressFunc(percent float64) {
}

// StderrProgressFunc reports progress to os.Stderr.
func StderrProgressFunc(percent float64) {
	if percent < 0.0 {
		fmt.Fprintf(os.Stderr, "\r Done   \n")
		return
	}
	fmt.Fprintf(os.Stderr, "\r%7.2f%%", percent)
}
