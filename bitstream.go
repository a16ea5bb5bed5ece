package huf

import (
	"encoding/binary"

	"github.com/nuclio/errors"
)

// bitWriter packs codes LSB first into a 64-bit container and spills it to
// dst 32 bits at a time. Writes past the end of dst are dropped and reported
// by close.
type bitWriter struct {
	dst       []byte
	pos       int
	container uint64
	nBits     uint8
	overflow  bool
}

func (b *bitWriter) init(dst []byte) {
	*b = bitWriter{dst: dst}
}

// addBits appends the low nbBits of value.
// value must not have bits set above nbBits and the container must have room.
func (b *bitWriter) addBits(value uint16, nbBits uint8) {
	b.container |= uint64(value) << (b.nBits & 63)
	b.nBits += nbBits
}

func (b *bitWriter) encode(e cElt) {
	b.addBits(e.val(), e.nbBits())
}

// flush32 spills 32 bits once at least that many are pending.
func (b *bitWriter) flush32() {
	if b.nBits < 32 {
		return
	}
	if b.pos+4 <= len(b.dst) {
		binary.LittleEndian.PutUint32(b.dst[b.pos:], uint32(b.container))
		b.pos += 4
	} else {
		b.overflow = true
	}
	b.container >>= 32
	b.nBits -= 32
}

// close terminates the stream with the end mark and returns its size.
func (b *bitWriter) close() (int, error) {
	b.addBits(1, 1)
	b.flush32()
	for b.nBits > 0 {
		if b.pos >= len(b.dst) {
			b.overflow = true
			break
		}
		b.dst[b.pos] = byte(b.container)
		b.pos++
		b.container >>= 8
		b.nBits -= min(b.nBits, 8)
	}
	if b.overflow {
		return 0, errors.Wrapf(ErrDestinationTooSmall, "Bitstream does not fit in %d bytes", len(b.dst))
	}
	return b.pos, nil
}

// bitReader reads a bitstream produced by bitWriter backwards, starting at
// the end mark. Unread bits are kept MSB aligned in value.
type bitReader struct {
	in       []byte
	off      int    // in[:off] has not been loaded yet
	value    uint64 // unread bits, top aligned
	bitsRead uint   // bits of value already consumed; above 64 means overread
}

func (b *bitReader) init(in []byte) error {
	if len(in) < 1 {
		return errors.Wrap(ErrCorruptStream, "Empty bitstream")
	}
	last := in[len(in)-1]
	if last == 0 {
		return errors.Wrap(ErrCorruptStream, "Bitstream end mark is missing")
	}
	b.in = in
	b.off = len(in)
	b.value = 0
	b.bitsRead = 64
	b.fill()

	// zero padding above the end mark, then the mark itself
	b.skip(uint8(8 - highBit(uint32(last))))
	return nil
}

// fill refills value so that at least 32 bits are available while input
// remains. It is a no-op when more than 32 bits are already loaded.
func (b *bitReader) fill() {
	if b.bitsRead < 32 {
		return
	}
	if b.off >= 4 {
		v := binary.LittleEndian.Uint32(b.in[b.off-4:])
		b.value |= uint64(v) << (b.bitsRead - 32)
		b.bitsRead -= 32
		b.off -= 4
		return
	}
	for b.off > 0 {
		b.value |= uint64(b.in[b.off-1]) << (b.bitsRead - 8)
		b.bitsRead -= 8
		b.off--
	}
}

// peek returns the next n bits without consuming them; 0 < n < 16.
func (b *bitReader) peek(n uint8) uint16 {
	return uint16(b.value >> (64 - n))
}

func (b *bitReader) skip(n uint8) {
	b.value <<= n
	b.bitsRead += uint(n)
}

// finished reports whether every bit has been consumed, and no more.
func (b *bitReader) finished() bool {
	return b.off == 0 && b.bitsRead == 64
}

// remaining returns the number of bits not yet consumed, or a negative
// number after an overread.
func (b *bitReader) remaining() int {
	return b.off*8 + 64 - int(b.bitsRead)
}
