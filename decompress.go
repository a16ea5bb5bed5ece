package huf

import (
	"encoding/binary"

	"github.com/nuclio/errors"
	"golang.org/x/sync/errgroup"
)

// Decompress regenerates a block produced by Compress into dst, which must
// be exactly the original size. A one byte src is a run of that byte and a
// src as long as dst is stored verbatim; anything else is a table header
// followed by one stream (below MinSize4X bytes) or four.
func Decompress(dst, src []byte) (int, error) {
	if n, done, err := decompressTrivial(dst, src); done {
		return n, err
	}
	return decompressAuto(&DTable{maxTableLog: TableLogAbsoluteMax}, dst, src, streamsFor(len(dst)), false)
}

// Decompress4XDCtx is Decompress forced to the 4 stream layout, with dt as
// reusable table storage.
func Decompress4XDCtx(dt *DTable, dst, src []byte) (int, error) {
	if n, done, err := decompressTrivial(dst, src); done {
		return n, err
	}
	return decompressAuto(dt, dst, src, 4, false)
}

// Decompress4XHufOnly decodes a 4 stream Huffman block, treating run and
// stored blocks as errors.
func Decompress4XHufOnly(dt *DTable, dst, src []byte) (int, error) {
	if err := checkHufOnly(dst, src); err != nil {
		return 0, err
	}
	return decompressAuto(dt, dst, src, 4, false)
}

// Decompress4X2DCtx decodes a 4 stream Huffman block with a single-symbol table.
func Decompress4X2DCtx(dt *DTable, dst, src []byte) (int, error) {
	return decompressWith(dt, dst, src, DecoderX2, 4, false)
}

// Decompress4X4DCtx decodes a 4 stream Huffman block with a double-symbol table.
func Decompress4X4DCtx(dt *DTable, dst, src []byte) (int, error) {
	return decompressWith(dt, dst, src, DecoderX4, 4, false)
}

// Decompress4X2 is Decompress4X2DCtx with a private table.
func Decompress4X2(dst, src []byte) (int, error) {
	return Decompress4X2DCtx(&DTable{maxTableLog: TableLogAbsoluteMax}, dst, src)
}

// Decompress4X4 is Decompress4X4DCtx with a private table.
func Decompress4X4(dst, src []byte) (int, error) {
	return Decompress4X4DCtx(&DTable{maxTableLog: TableLogAbsoluteMax}, dst, src)
}

// Decompress1XDCtx is Decompress forced to the single stream layout, with dt
// as reusable table storage.
func Decompress1XDCtx(dt *DTable, dst, src []byte) (int, error) {
	if n, done, err := decompressTrivial(dst, src); done {
		return n, err
	}
	return decompressAuto(dt, dst, src, 1, false)
}

// Decompress1X2DCtx decodes a single stream Huffman block with a single-symbol table.
func Decompress1X2DCtx(dt *DTable, dst, src []byte) (int, error) {
	return decompressWith(dt, dst, src, DecoderX2, 1, false)
}

// Decompress1X4DCtx decodes a single stream Huffman block with a double-symbol table.
func Decompress1X4DCtx(dt *DTable, dst, src []byte) (int, error) {
	return decompressWith(dt, dst, src, DecoderX4, 1, false)
}

// Decompress1X2 is Decompress1X2DCtx with a private table.
func Decompress1X2(dst, src []byte) (int, error) {
	return Decompress1X2DCtx(&DTable{maxTableLog: TableLogAbsoluteMax}, dst, src)
}

// Decompress1X4 is Decompress1X4DCtx with a private table.
func Decompress1X4(dst, src []byte) (int, error) {
	return Decompress1X4DCtx(&DTable{maxTableLog: TableLogAbsoluteMax}, dst, src)
}

// Decompress1X decodes a single stream body with the loaded table. dst must
// be exactly the regenerated size.
func (dt *DTable) Decompress1X(dst, src []byte) (int, error) {
	if dt.tableLog == 0 {
		return 0, errors.Wrap(ErrTableLogInvalid, "Decode table is empty")
	}
	if err := dt.decodeStream(dst, src); err != nil {
		return 0, err
	}
	return len(dst), nil
}

// Decompress4X decodes a 4 stream body with the loaded table. dst must be
// exactly the regenerated size.
func (dt *DTable) Decompress4X(dst, src []byte) (int, error) {
	return dt.decompress4X(dst, src, false)
}

// streamsFor returns the stream count Compress and Decompress use for a
// block of size bytes.
func streamsFor(size int) int {
	if size >= MinSize4X {
		return 4
	}
	return 1
}

// decompressTrivial handles run and stored blocks. done reports whether src
// was one of them, or could not be anything.
func decompressTrivial(dst, src []byte) (n int, done bool, err error) {
	switch {
	case len(src) > len(dst):
		return 0, true, errors.Wrapf(ErrCorruptStream,
			"Compressed block of %d bytes is larger than its original %d", len(src), len(dst))
	case len(src) == len(dst):
		return copy(dst, src), true, nil
	case len(src) == 1:
		fill(dst, src[0])
		return len(dst), true, nil
	case len(src) == 0:
		return 0, true, errors.Wrap(ErrCorruptStream, "Compressed block is empty")
	}
	return 0, false, nil
}

func checkHufOnly(dst, src []byte) error {
	if len(dst) == 0 {
		return errors.Wrap(ErrDestinationTooSmall, "Destination is empty")
	}
	if len(src) < 2 || len(src) >= len(dst) {
		return errors.Wrapf(ErrCorruptStream, "A %d byte block cannot hold a Huffman coded %d bytes", len(src), len(dst))
	}
	return nil
}

func fill(dst []byte, b byte) {
	if len(dst) == 0 {
		return
	}
	dst[0] = b
	for filled := 1; filled < len(dst); filled *= 2 {
		copy(dst[filled:], dst[:filled])
	}
}

// decompressAuto reads the header with the layout SelectDecoder picks for
// the block's ratio.
func decompressAuto(dt *DTable, dst, src []byte, streams int, parallel bool) (int, error) {
	return decompressWith(dt, dst, src, SelectDecoder(len(dst), len(src)), streams, parallel)
}

func decompressWith(dt *DTable, dst, src []byte, kind DecoderKind, streams int, parallel bool) (int, error) {
	hSize, err := dt.read(src, kind)
	if err != nil {
		return 0, err
	}
	if streams == 4 {
		return dt.decompress4X(dst, src[hSize:], parallel)
	}
	return dt.Decompress1X(dst, src[hSize:])
}

func (dt *DTable) decompress4X(dst, src []byte, parallel bool) (int, error) {
	if dt.tableLog == 0 {
		return 0, errors.Wrap(ErrTableLogInvalid, "Decode table is empty")
	}
	if len(dst) < minSize4X {
		return 0, errors.Wrapf(ErrCorruptStream, "A %d byte block cannot be split in 4 streams", len(dst))
	}
	if len(src) < jumpTableSize+4 {
		return 0, errors.Wrapf(ErrCorruptStream, "4 stream body of %d bytes is truncated", len(src))
	}

	var sizes [4]int
	rest := len(src) - jumpTableSize
	for i := range 3 {
		sizes[i] = int(binary.LittleEndian.Uint16(src[2*i:]))
		if sizes[i] == 0 {
			return 0, errors.Wrapf(ErrCorruptStream, "Stream %d is empty", i)
		}
		rest -= sizes[i]
	}
	if rest < 1 {
		return 0, errors.Wrap(ErrCorruptStream, "Jump table exceeds the block")
	}
	sizes[3] = rest

	segmentSize := (len(dst) + 3) / 4
	var (
		streams [4][]byte
		outputs [4][]byte
	)
	in := src[jumpTableSize:]
	for i := range 4 {
		streams[i], in = in[:sizes[i]], in[sizes[i]:]
		if i < 3 {
			outputs[i] = dst[i*segmentSize : (i+1)*segmentSize]
		} else {
			outputs[i] = dst[3*segmentSize:]
		}
	}

	if !parallel {
		for i := range 4 {
			if err := dt.decodeStream(outputs[i], streams[i]); err != nil {
				return 0, errors.Wrapf(err, "Failed to decode stream %d", i)
			}
		}
		return len(dst), nil
	}

	var group errgroup.Group
	for i := range 4 {
		group.Go(func() error {
			if err := dt.decodeStream(outputs[i], streams[i]); err != nil {
				return errors.Wrapf(err, "Failed to decode stream %d", i)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}
	return len(dst), nil
}

func (dt *DTable) decodeStream(dst, src []byte) error {
	var br bitReader
	if err := br.init(src); err != nil {
		return err
	}
	if dt.kind == DecoderX4 {
		dt.decodeX4(&br, dst)
	} else {
		dt.decodeX2(&br, dst)
	}
	if !br.finished() {
		return errors.Wrapf(ErrCorruptStream, "Stream ended with %d bits unaccounted for", br.remaining())
	}
	return nil
}

// decodeX2 regenerates len(dst) symbols, two per refill. A refill leaves at
// least 32 bits while input lasts, enough for two codes of up to 15 bits;
// past the end the reader yields zeros and the caller detects the overread.
func (dt *DTable) decodeX2(br *bitReader, dst []byte) {
	table := dt.single
	tableLog := dt.tableLog
	i := 0
	for ; i+1 < len(dst); i += 2 {
		br.fill()
		e := table[br.peek(tableLog)]
		br.skip(e.nbBits)
		dst[i] = e.symbol
		e = table[br.peek(tableLog)]
		br.skip(e.nbBits)
		dst[i+1] = e.symbol
	}
	if i < len(dst) {
		br.fill()
		e := table[br.peek(tableLog)]
		br.skip(e.nbBits)
		dst[i] = e.symbol
	}
}

// decodeX4 regenerates len(dst) symbols, up to two per lookup. Both bytes of
// an entry are stored even for single-symbol entries; the next lookup
// overwrites the spare one, so two free bytes must remain. The final symbol
// consumes only its own bits.
func (dt *DTable) decodeX4(br *bitReader, dst []byte) {
	table := dt.double
	tableLog := dt.tableLog
	i := 0
	for i+3 < len(dst) {
		br.fill()
		e := table[br.peek(tableLog)]
		br.skip(e.nbBits)
		dst[i] = byte(e.seq)
		dst[i+1] = byte(e.seq >> 8)
		i += int(e.length)
		e = table[br.peek(tableLog)]
		br.skip(e.nbBits)
		dst[i] = byte(e.seq)
		dst[i+1] = byte(e.seq >> 8)
		i += int(e.length)
	}
	for i+1 < len(dst) {
		br.fill()
		e := table[br.peek(tableLog)]
		br.skip(e.nbBits)
		dst[i] = byte(e.seq)
		dst[i+1] = byte(e.seq >> 8)
		i += int(e.length)
	}
	if i < len(dst) {
		br.fill()
		e := table[br.peek(tableLog)]
		br.skip(e.firstBits)
		dst[i] = byte(e.seq)
	}
}
