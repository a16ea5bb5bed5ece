package huf

import (
	"encoding/binary"

	"github.com/nuclio/errors"
)

// Compress compresses a block of at most BlockSizeMax bytes into dst with
// the default alphabet and table log.
//
// The result n means:
//   - n == 0: src is not worth compressing and nothing was written; store it raw
//   - n == 1: src is a run of dst[0]
//   - otherwise dst[:n] holds a table header and the coded streams
//
// Coded blocks are always at least two bytes shorter than src, so a block's
// size alone tells Decompress which of the three forms it holds.
func Compress(dst, src []byte) (int, error) {
	return Compress2(dst, src, SymbolValueMax, TableLogDefault)
}

// Compress2 is Compress with an explicit alphabet size and code length limit.
// maxSymbolValue 0 selects SymbolValueMax and tableLog 0 selects TableLogDefault.
// Blocks of MinSize4X bytes or more are coded as four streams, smaller ones
// as one.
//
// A tableLog too narrow for the number of distinct symbols in src is raised
// to the smallest one that can code them all, so the header may carry a
// larger table log than requested. Decode tables must be sized from the
// header (see ReadStats) or with TableLogAbsoluteMax.
func Compress2(dst, src []byte, maxSymbolValue, tableLog int) (int, error) {
	wksp := make([]uint32, CompressWorkspaceSize)
	return compress(dst, src, maxSymbolValue, tableLog, wksp, streamsFor(len(src)))
}

// Compress4XWksp is Compress2 always coding four streams, with caller provided
// scratch space of at least CompressWorkspaceSize words. Blocks too small to
// split report 0.
func Compress4XWksp(dst, src []byte, maxSymbolValue, tableLog int, wksp []uint32) (int, error) {
	return compress(dst, src, maxSymbolValue, tableLog, wksp, 4)
}

// Compress1X is Compress2 always coding a single stream.
func Compress1X(dst, src []byte, maxSymbolValue, tableLog int) (int, error) {
	wksp := make([]uint32, CompressWorkspaceSize)
	return Compress1XWksp(dst, src, maxSymbolValue, tableLog, wksp)
}

// Compress1XWksp is Compress1X with caller provided scratch space of at least
// CompressWorkspaceSize words.
func Compress1XWksp(dst, src []byte, maxSymbolValue, tableLog int, wksp []uint32) (int, error) {
	return compress(dst, src, maxSymbolValue, tableLog, wksp, 1)
}

func compress(dst, src []byte, maxSymbolValue, tableLog int, wksp []uint32, streams int) (int, error) {
	if len(wksp) < CompressWorkspaceSize {
		return 0, errors.Wrapf(ErrWorkspaceTooSmall,
			"Compression workspace holds %d words, need %d", len(wksp), CompressWorkspaceSize)
	}
	if len(src) == 0 {
		return 0, nil
	}
	if len(src) > BlockSizeMax {
		return 0, errors.Wrapf(ErrSourceTooLarge, "Block of %d bytes exceeds %d", len(src), BlockSizeMax)
	}
	if maxSymbolValue == 0 {
		maxSymbolValue = SymbolValueMax
	}
	if maxSymbolValue < 0 || maxSymbolValue > SymbolValueMax {
		return 0, errors.Wrapf(ErrAlphabetTooLarge, "Max symbol value %d is out of range", maxSymbolValue)
	}
	if tableLog == 0 {
		tableLog = TableLogDefault
	}
	if tableLog > TableLogAbsoluteMax {
		return 0, errors.Wrapf(ErrTableLogTooLarge, "Table log %d exceeds %d", tableLog, TableLogAbsoluteMax)
	}
	if tableLog < 0 {
		return 0, errors.Wrapf(ErrTableLogInvalid, "Table log %d is negative", tableLog)
	}

	count := (*[SymbolValueMax + 1]uint32)(wksp[:SymbolValueMax+1])
	largest, maxCount := Count(count, src)
	if largest > maxSymbolValue {
		return 0, errors.Wrapf(ErrAlphabetTooLarge, "Symbol %d exceeds max symbol value %d", largest, maxSymbolValue)
	}

	// a single repeated byte
	if maxCount == len(src) {
		if len(dst) < 1 {
			return 0, errors.Wrap(ErrDestinationTooSmall, "Destination is empty")
		}
		dst[0] = src[0]
		return 1, nil
	}
	// flat enough that a table would not pay for itself
	if maxCount == 1 || maxCount < len(src)>>7 {
		return 0, nil
	}
	if streams == 4 && len(src) < minSize4X {
		return 0, nil
	}

	nbSymbols := 0
	for _, c := range count[:largest+1] {
		if c != 0 {
			nbSymbols++
		}
	}
	tableLog = max(OptimalTableLog(tableLog, len(src), largest), minTableLog(nbSymbols))

	ct, err := BuildCTableWksp(count[:largest+1], largest, tableLog, wksp[SymbolValueMax+1:])
	if err != nil {
		return 0, errors.Wrap(err, "Failed to build table")
	}

	hSize := ct.HeaderSize()
	bound := hSize + ct.bodyBound(count[:largest+1], streams)
	if bound >= len(src)-1 {
		return 0, nil
	}
	if bound > len(dst) {
		return 0, errors.Wrapf(ErrDestinationTooSmall, "Compressed block needs up to %d bytes, have %d", bound, len(dst))
	}

	if _, err := ct.WriteHeader(dst); err != nil {
		return 0, err
	}
	var n int
	if streams == 4 {
		n, err = ct.encode4X(dst[hSize:bound], src)
	} else {
		n, err = ct.encodeStream(dst[hSize:bound], src)
	}
	if err != nil {
		return 0, err
	}
	return hSize + n, nil
}

// bodyBound returns the most bytes the coded streams for histogram count can
// occupy: one stream is its payload plus the end mark rounded up to a byte,
// and four streams round up four times behind a jump table.
func (ct *CTable) bodyBound(count []uint32, streams int) int {
	payload := int(ct.payloadBits(count))
	if streams == 4 {
		return jumpTableSize + (payload+4*8)>>3
	}
	return (payload + 8) >> 3
}

// Compress1X codes src as a single stream with ct, without a table header.
// Every byte of src must have a code in ct.
func (ct *CTable) Compress1X(dst, src []byte) (int, error) {
	if i := ct.covers(src); i >= 0 {
		return 0, errors.Wrapf(ErrAlphabetTooLarge, "Symbol %d at offset %d has no code", src[i], i)
	}
	return ct.encodeStream(dst, src)
}

// Compress4X codes src as four streams behind a jump table with ct, without
// a table header. Every byte of src must have a code in ct. Blocks too small
// to split report 0.
func (ct *CTable) Compress4X(dst, src []byte) (int, error) {
	if len(src) < minSize4X {
		return 0, nil
	}
	if i := ct.covers(src); i >= 0 {
		return 0, errors.Wrapf(ErrAlphabetTooLarge, "Symbol %d at offset %d has no code", src[i], i)
	}
	return ct.encode4X(dst, src)
}

// encodeStream writes src back to front so that the decoder, which reads the
// stream from its end, regenerates it front to back.
func (ct *CTable) encodeStream(dst, src []byte) (int, error) {
	var bw bitWriter
	bw.init(dst)
	n := len(src)
	if n&1 != 0 {
		n--
		bw.encode(ct.elts[src[n]])
	}
	// two codes of at most 15 bits on top of fewer than 32 pending
	for n > 0 {
		n -= 2
		bw.encode(ct.elts[src[n+1]])
		bw.encode(ct.elts[src[n]])
		bw.flush32()
	}
	return bw.close()
}

// encode4X splits src into four segments of (len+3)/4 bytes, the last one
// taking the remainder, and codes each as its own stream.
func (ct *CTable) encode4X(dst, src []byte) (int, error) {
	if len(dst) < jumpTableSize {
		return 0, errors.Wrap(ErrDestinationTooSmall, "No room for the jump table")
	}
	segmentSize := (len(src) + 3) / 4
	op := jumpTableSize
	for i := range 4 {
		segment := src[min(i*segmentSize, len(src)):]
		if i < 3 {
			segment = segment[:segmentSize]
		}
		n, err := ct.encodeStream(dst[op:], segment)
		if err != nil {
			return 0, errors.Wrapf(err, "Failed to encode stream %d", i)
		}
		if i < 3 {
			if n > 0xFFFF {
				return 0, errors.Wrapf(ErrDestinationTooSmall, "Stream %d of %d bytes overflows the jump table", i, n)
			}
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(n))
		}
		op += n
	}
	return op, nil
}
