// Package split implements the split planner (spec's C5): it divides a
// BGZF file into N block-aligned byte ranges that can be read
// independently and in parallel, either by probing for block boundaries
// directly or by consulting a sidecar block index when one is
// available.
package split
