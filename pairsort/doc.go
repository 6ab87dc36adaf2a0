// Package pairsort implements the mate-pair resorter (spec's C6): a
// streaming two-pass operation over a mate-adjacent alignment file. Pass
// one indexes each pair's offsets by leftmost reference coordinate; pass
// two reassembles a new, block-aligned, reference-and-coordinate-sorted
// BGZF output using a worker pool per reference, each worker backed by
// an LRU cache of decoded blocks.
package pairsort
