package huf

import (
	"bytes"
	"io"
	"math/bits"

	"github.com/nuclio/errors"
)

// CTable holds a canonical Huffman code for compression.
// A CTable is created via BuildCTable or read back from a serialized header
// with ReadCTable, and encodes blocks with Compress1X and Compress4X.
//
// Header layout (see WriteHeader):
//   - 1 byte tableLog, the longest code length
//   - 1 byte n, the largest symbol value present
//   - ceil(n/2) bytes of 4-bit weights for symbols 0..n-1, high nibble first
//
// The weight of the last symbol is implied by the Kraft equality and never stored.
type CTable struct {
	elts           [SymbolValueMax + 1]cElt
	maxSymbolValue uint8
	tableLog       uint8
}

// TableLog returns the longest code length of the table.
func (ct *CTable) TableLog() int { return int(ct.tableLog) }

// MaxSymbolValue returns the largest symbol with a code.
func (ct *CTable) MaxSymbolValue() int { return int(ct.maxSymbolValue) }

// NbBits returns the code length of symbol s, 0 if s has no code.
func (ct *CTable) NbBits(s byte) int { return int(ct.elts[s].nbBits()) }

// Code returns the code value of symbol s; only the low NbBits(s) bits are used.
func (ct *CTable) Code(s byte) uint16 { return ct.elts[s].val() }

// Weights returns the weight of every symbol 0..MaxSymbolValue.
// Weight w corresponds to a code of tableLog+1-w bits; 0 means unused.
func (ct *CTable) Weights() []uint8 {
	weights := make([]uint8, int(ct.maxSymbolValue)+1)
	for s := range weights {
		weights[s] = ct.elts[s].weight(ct.tableLog)
	}
	return weights
}

// HeaderSize returns the size of the serialized table.
func (ct *CTable) HeaderSize() int {
	return 2 + (int(ct.maxSymbolValue)+1)/2
}

// EstimateSize returns the size in bytes of the header plus the payload bits
// needed to code the histogram count with this table. The end marks and the
// 4X jump table are not included.
func (ct *CTable) EstimateSize(count []uint32) int {
	return ct.HeaderSize() + int((ct.payloadBits(count)+7)>>3)
}

func (ct *CTable) payloadBits(count []uint32) uint64 {
	var total uint64
	for s, c := range count[:min(len(count), int(ct.maxSymbolValue)+1)] {
		total += uint64(c) * uint64(ct.elts[s].nbBits())
	}
	return total
}

// covers returns the first byte of src that has no code, or -1.
func (ct *CTable) covers(src []byte) int {
	for i, b := range src {
		if ct.elts[b].nbBits() == 0 {
			return i
		}
	}
	return -1
}

// WriteHeader serializes the table into dst and returns the bytes written.
func (ct *CTable) WriteHeader(dst []byte) (int, error) {
	size := ct.HeaderSize()
	if len(dst) < size {
		return 0, errors.Wrapf(ErrDestinationTooSmall, "Table header needs %d bytes, have %d", size, len(dst))
	}
	dst[0] = ct.tableLog
	dst[1] = ct.maxSymbolValue
	n := int(ct.maxSymbolValue)
	for i := 0; i < n; i += 2 {
		hi := ct.elts[i].weight(ct.tableLog)
		lo := uint8(0)
		if i+1 < n {
			lo = ct.elts[i+1].weight(ct.tableLog)
		}
		dst[2+i/2] = hi<<4 | lo
	}
	return size, nil
}

// AppendHeader appends the serialized table to dst.
func (ct *CTable) AppendHeader(dst []byte) []byte {
	size := ct.HeaderSize()
	dst = append(dst, make([]byte, size)...)
	_, _ = ct.WriteHeader(dst[len(dst)-size:])
	return dst
}

// WriteTo serializes the table to w.
func (ct *CTable) WriteTo(w io.Writer) (int64, error) {
	var buf [CTableBound]byte
	size, err := ct.WriteHeader(buf[:])
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf[:size])
	return int64(n), err
}

// ReadFrom restores a table written by WriteTo, consuming exactly the header bytes.
func (ct *CTable) ReadFrom(r io.Reader) (int64, error) {
	var buf [CTableBound]byte
	var n int64
	if _, err := io.ReadFull(r, buf[:2]); err != nil {
		return n, errors.Wrap(err, "Failed to read table preamble")
	}
	n += 2
	size := 2 + (int(buf[1])+1)/2
	if _, err := io.ReadFull(r, buf[2:size]); err != nil {
		return n, errors.Wrap(err, "Failed to read table weights")
	}
	n += int64(size - 2)
	read, _, err := ReadCTable(buf[:size], SymbolValueMax)
	if err != nil {
		return n, err
	}
	*ct = *read
	return n, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (ct *CTable) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := ct.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (ct *CTable) UnmarshalBinary(data []byte) error {
	_, err := ct.ReadFrom(bytes.NewReader(data))
	return err
}

// ReadCTable parses a serialized table header and returns the table together
// with the number of header bytes consumed. Headers coding symbols above
// maxSymbolValue are rejected with ErrAlphabetTooLarge.
func ReadCTable(src []byte, maxSymbolValue int) (*CTable, int, error) {
	stats, err := ReadStats(src)
	if err != nil {
		return nil, 0, err
	}
	if stats.NbSymbols-1 > maxSymbolValue {
		return nil, 0, errors.Wrapf(ErrAlphabetTooLarge,
			"Table codes symbols up to %d, alphabet ends at %d", stats.NbSymbols-1, maxSymbolValue)
	}
	ct := &CTable{
		maxSymbolValue: uint8(stats.NbSymbols - 1),
		tableLog:       uint8(stats.TableLog),
	}
	var lengths [SymbolValueMax + 1]uint8
	for s, w := range stats.Weights[:stats.NbSymbols] {
		if w != 0 {
			lengths[s] = uint8(stats.TableLog) + 1 - w
		}
	}
	ct.assignCodes(&lengths)
	return ct, stats.Size, nil
}

// Stats is the decoded content of a table header.
type Stats struct {
	// Weights of symbols 0..NbSymbols-1, including the implied last one
	Weights [SymbolValueMax + 1]uint8

	// RankStats[w] counts the symbols of weight w
	RankStats [TableLogAbsoluteMax + 1]uint32

	NbSymbols int
	TableLog  int

	// Size is the number of header bytes
	Size int
}

// ReadStats decodes and validates a table header from the front of src.
// Besides framing, it checks that every weight fits the table log and that
// the stored weights leave a power of two for the implied last symbol, so
// the described code is complete.
func ReadStats(src []byte) (Stats, error) {
	var stats Stats
	if len(src) < 2 {
		return stats, errors.Wrapf(ErrCorruptHeader, "Table header truncated at %d bytes", len(src))
	}
	tableLog := int(src[0])
	if tableLog < 1 || tableLog > TableLogAbsoluteMax {
		return stats, errors.Wrapf(ErrCorruptHeader, "Table log %d is out of range", tableLog)
	}
	n := int(src[1])
	if n == 0 {
		return stats, errors.Wrap(ErrCorruptHeader, "Table describes a single symbol")
	}
	size := 2 + (n+1)/2
	if len(src) < size {
		return stats, errors.Wrapf(ErrCorruptHeader, "Table header needs %d bytes, have %d", size, len(src))
	}

	total := uint32(0)
	for i := range n {
		w := src[2+i/2]
		if i&1 == 0 {
			w >>= 4
		} else {
			w &= 0xF
		}
		if int(w) > tableLog {
			return stats, errors.Wrapf(ErrCorruptHeader, "Weight %d of symbol %d exceeds table log %d", w, i, tableLog)
		}
		stats.Weights[i] = w
		stats.RankStats[w]++
		if w != 0 {
			total += 1 << (w - 1)
		}
	}

	if total == 0 || total >= 1<<tableLog {
		return stats, errors.Wrapf(ErrCorruptHeader, "Weight sum %d does not fit table log %d", total, tableLog)
	}
	rest := uint32(1)<<tableLog - total
	if rest&(rest-1) != 0 {
		return stats, errors.Wrapf(ErrCorruptHeader, "Weights leave %d, not a power of two", rest)
	}
	last := uint8(bits.Len32(rest))
	stats.Weights[n] = last
	stats.RankStats[last]++

	stats.NbSymbols = n + 1
	stats.TableLog = tableLog
	stats.Size = size
	return stats, nil
}
