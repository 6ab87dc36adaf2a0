package bgzf

// VirtualOffset packs a compressed block start (coffset, 48 bits) and a
// byte position within that block's decompressed payload (uoffset, 16
// bits) into one 64-bit value, per spec.md §3.
type VirtualOffset uint64

// NewVirtualOffset packs a coffset/uoffset pair. uoffset must be less
// than the decompressed length of the block at coffset.
func NewVirtualOffset(coffset int64, uoffset uint16) VirtualOffset {
	return VirtualOffset(uint64(coffset)<<16 | uint64(uoffset))
}

// Coffset returns the byte offset, from the start of the file, of the
// compressed block containing this virtual offset.
func (v VirtualOffset) Coffset() int64 {
	return int64(v >> 16)
}

// Uoffset returns the byte offset within the block's decompressed
// payload.
func (v VirtualOffset) Uoffset() uint16 {
	return uint16(v & 0xFFFF)
}
