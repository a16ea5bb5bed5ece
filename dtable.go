package huf

import (
	"github.com/nuclio/errors"
)

// DecoderKind selects the decode table layout.
type DecoderKind uint8

const (
	// DecoderX2 decodes one symbol per table lookup.
	DecoderX2 DecoderKind = iota
	// DecoderX4 decodes up to two symbols per table lookup.
	DecoderX4
)

func (k DecoderKind) String() string {
	switch k {
	case DecoderX2:
		return "x2"
	case DecoderX4:
		return "x4"
	default:
		return "unknown"
	}
}

// dEltX2 is a single-symbol lookup entry.
type dEltX2 struct {
	symbol uint8
	nbBits uint8
}

// dEltX4 is a double-symbol lookup entry. seq holds the first symbol in its
// low byte and the second, when length is 2, in its high byte. nbBits covers
// the whole entry while firstBits covers the first symbol alone.
type dEltX4 struct {
	seq       uint16
	nbBits    uint8
	length    uint8
	firstBits uint8
}

// DTable is a decode table built from a serialized table header.
//
// A DTable is created with a maximum width and can be refilled from any
// number of headers up to that width with ReadX2 or ReadX4. It is not safe
// to refill a DTable while it is decoding; decoding alone is read only.
type DTable struct {
	maxTableLog uint8
	tableLog    uint8 // 0 until a header has been read
	kind        DecoderKind

	single []dEltX2
	double []dEltX4
}

// NewDTable returns an empty decode table able to hold codes of up to
// maxTableLog bits. maxTableLog 0 selects TableLogMax; larger values are
// clamped to TableLogAbsoluteMax.
func NewDTable(maxTableLog int) *DTable {
	if maxTableLog <= 0 {
		maxTableLog = TableLogMax
	}
	maxTableLog = min(maxTableLog, TableLogAbsoluteMax)
	return &DTable{
		maxTableLog: uint8(maxTableLog),
		single:      make([]dEltX2, 0, 1<<maxTableLog),
	}
}

// TableLog returns the width of the table currently loaded, 0 if none.
func (dt *DTable) TableLog() int { return int(dt.tableLog) }

// MaxTableLog returns the widest table this DTable accepts.
func (dt *DTable) MaxTableLog() int { return int(dt.maxTableLog) }

// Kind returns the layout of the table currently loaded.
func (dt *DTable) Kind() DecoderKind { return dt.kind }

// ReadX2 fills dt with a single-symbol table from the header at the front of
// src and returns the header size.
func (dt *DTable) ReadX2(src []byte) (int, error) {
	return dt.read(src, DecoderX2)
}

// ReadX4 fills dt with a double-symbol table from the header at the front of
// src and returns the header size.
func (dt *DTable) ReadX4(src []byte) (int, error) {
	return dt.read(src, DecoderX4)
}

func (dt *DTable) read(src []byte, kind DecoderKind) (int, error) {
	dt.tableLog = 0
	stats, err := ReadStats(src)
	if err != nil {
		return 0, err
	}
	if err := dt.load(&stats, kind); err != nil {
		return 0, err
	}
	return stats.Size, nil
}

func (dt *DTable) load(stats *Stats, kind DecoderKind) error {
	if stats.TableLog > int(dt.maxTableLog) {
		return errors.Wrapf(ErrTableLogTooLarge,
			"Header table log %d exceeds decode table capacity %d", stats.TableLog, dt.maxTableLog)
	}
	dt.fillX2(stats)
	if kind == DecoderX4 {
		dt.fillX4(uint8(stats.TableLog))
	}
	dt.tableLog = uint8(stats.TableLog)
	dt.kind = kind
	return nil
}

// fillX2 spreads every symbol over the 2^(w-1) consecutive entries whose
// leading bits are its code. Weights are visited from 1 up, so longer codes
// occupy the low indexes.
func (dt *DTable) fillX2(stats *Stats) {
	size := 1 << stats.TableLog
	if cap(dt.single) < size {
		dt.single = make([]dEltX2, size)
	}
	dt.single = dt.single[:size]

	var rankStart [TableLogAbsoluteMax + 1]uint32
	next := uint32(0)
	for w := 1; w <= stats.TableLog; w++ {
		rankStart[w] = next
		next += stats.RankStats[w] << (w - 1)
	}

	for s, w := range stats.Weights[:stats.NbSymbols] {
		if w == 0 {
			continue
		}
		e := dEltX2{symbol: uint8(s), nbBits: uint8(stats.TableLog+1) - w}
		start := rankStart[w]
		end := start + 1<<(w-1)
		for i := start; i < end; i++ {
			dt.single[i] = e
		}
		rankStart[w] = end
	}
}

// fillX4 derives the double-symbol table from the single-symbol one: every
// window decodes its first symbol, and the bits left over decode a second
// one whenever its whole code fits in them.
func (dt *DTable) fillX4(tableLog uint8) {
	size := len(dt.single)
	if cap(dt.double) < size {
		dt.double = make([]dEltX4, size)
	}
	dt.double = dt.double[:size]

	mask := size - 1
	for w := range size {
		first := dt.single[w]
		e := dEltX4{
			seq:       uint16(first.symbol),
			nbBits:    first.nbBits,
			length:    1,
			firstBits: first.nbBits,
		}
		if rest := tableLog - first.nbBits; rest > 0 {
			second := dt.single[(w<<first.nbBits)&mask]
			if second.nbBits <= rest {
				e.seq |= uint16(second.symbol) << 8
				e.nbBits += second.nbBits
				e.length = 2
			}
		}
		dt.double[w] = e
	}
}

// SelectDecoder picks the faster table layout for regenerating dstSize bytes
// from a cSrcSize byte block, from a fixed model of table build and decode
// time per compression ratio. Double-symbol tables cost more to build and
// pay off when the ratio is high.
func SelectDecoder(dstSize, cSrcSize int) DecoderKind {
	if dstSize <= 0 {
		return DecoderX2
	}
	q := 15
	if cSrcSize < dstSize {
		q = cSrcSize * 16 / dstSize
	}
	d256 := uint32(dstSize >> 8)
	t := algoTime[q]
	dTime0 := t[DecoderX2].tableTime + t[DecoderX2].decode256Time*d256
	dTime1 := t[DecoderX4].tableTime + t[DecoderX4].decode256Time*d256
	// larger tables are also harder on the cache
	dTime1 += dTime1 >> 3
	if dTime1 < dTime0 {
		return DecoderX4
	}
	return DecoderX2
}

type algoCost struct {
	tableTime     uint32
	decode256Time uint32
}

// algoTime[q] is indexed by the compression ratio quantized to 16ths.
var algoTime = [16][2]algoCost{
	{{0, 0}, {1, 1}},
	{{0, 0}, {1, 1}},
	{{38, 130}, {1313, 74}},
	{{448, 128}, {1353, 74}},
	{{556, 128}, {1353, 74}},
	{{714, 128}, {1418, 74}},
	{{883, 128}, {1437, 74}},
	{{897, 128}, {1515, 75}},
	{{926, 128}, {1613, 75}},
	{{947, 128}, {1729, 77}},
	{{1107, 128}, {2083, 81}},
	{{1177, 128}, {2379, 87}},
	{{1242, 128}, {2415, 93}},
	{{1349, 128}, {2644, 106}},
	{{1455, 128}, {2422, 124}},
	{{722, 128}, {1891, 145}},
}
