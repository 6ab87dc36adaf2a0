// Package bai reads the full BAI region index: a companion file that
// lets a reader seek directly to the alignments overlapping a genomic
// region via a binned interval tree plus a linear index.
//
// This format is explicitly out of the core's scope (spec.md §1, §12):
// the core's own auxiliary index is the much simpler sidecar block
// index read by bgzf.ReadSidecarIndex. This package is kept as adapted
// reference material, not wired into the split planner or pair
// sorter.
package bai
