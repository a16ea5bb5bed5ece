package huf

import (
	"math/bits"
	"unsafe"
)

// Core limits of the block coder
const (
	// BlockSizeMax is the largest block accepted by Compress.
	BlockSizeMax = 128 << 10

	// TableLogAbsoluteMax is the hard ceiling on code length and decode table width.
	TableLogAbsoluteMax = 15
	// TableLogMax is the working ceiling used for statically sized decode tables.
	TableLogMax = 12
	// TableLogDefault is used when no table width is requested.
	TableLogDefault = 11

	// SymbolValueMax is the largest symbol value (one byte).
	SymbolValueMax = 255

	// CTableBound is the largest serialized table header:
	// 2 preamble bytes + 255 stored weights at 4 bits each.
	CTableBound = 2 + (SymbolValueMax+1)/2

	// MinSize4X is the smallest block Compress and Decompress split into four
	// streams. Smaller blocks use a single stream.
	MinSize4X = 256

	jumpTableSize = 6  // three uint16 segment sizes in front of a 4X body
	minSize4X     = 12 // below this a 4X split cannot save anything

	maxNodes = 2 * (SymbolValueMax + 1) // leaves + internal nodes, rounded up
)

// cElt is a compression table element.
// Layout: bits 0-15 hold the code value, bits 16-23 the code length.
type cElt uint32

func packCode(val uint16, nbBits uint8) cElt {
	return cElt(val) | cElt(nbBits)<<16
}

func (e cElt) val() uint16   { return uint16(e) }
func (e cElt) nbBits() uint8 { return uint8(e >> 16) }

func (e cElt) weight(tableLog uint8) uint8 {
	if e.nbBits() == 0 {
		return 0
	}
	return tableLog + 1 - e.nbBits()
}

// highBit returns the index of the highest set bit of v; v must be non-zero.
func highBit(v uint32) int { return bits.Len32(v) - 1 }

// CTableSize returns the number of bytes occupied by the code elements of a
// compression table covering symbols 0..maxSymbolValue.
func CTableSize(maxSymbolValue int) int {
	return (maxSymbolValue + 1) * int(unsafe.Sizeof(cElt(0)))
}

// DTableSize returns the number of cells a decode table of width maxTableLog
// needs: one descriptor plus 2^maxTableLog lookup entries.
func DTableSize(maxTableLog int) int {
	return 1 + 1<<maxTableLog
}

// CompressBound returns the worst-case compressed size of a block of size bytes.
func CompressBound(size int) int {
	return CTableBound + blockBound(size)
}

func blockBound(size int) int {
	return size + size>>8 + 8
}
