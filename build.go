package huf

import (
	"math"
	"math/bits"

	"github.com/nuclio/errors"
)

// BuildWorkspaceSize is the number of uint32 words BuildCTableWksp needs.
const BuildWorkspaceSize = 2 * maxNodes

// CompressWorkspaceSize is the number of uint32 words the *Wksp compressors
// need: a histogram followed by a build workspace.
const CompressWorkspaceSize = SymbolValueMax + 1 + BuildWorkspaceSize

const noParent = 0xFFFF

// nodeTable is a view of a build workspace as Huffman tree nodes.
// Node i occupies two words: word 2i holds the weight count, word 2i+1 packs
// the parent index (bits 0-15), the symbol (bits 16-23) and the depth (bits 24-31).
type nodeTable []uint32

func (t nodeTable) count(i int) uint32 { return t[2*i] }
func (t nodeTable) parent(i int) int   { return int(t[2*i+1] & 0xFFFF) }
func (t nodeTable) symbol(i int) uint8 { return uint8(t[2*i+1] >> 16) }
func (t nodeTable) nbBits(i int) uint8 { return uint8(t[2*i+1] >> 24) }

func (t nodeTable) set(i int, count uint32, symbol uint8) {
	t[2*i] = count
	t[2*i+1] = uint32(symbol)<<16 | noParent
}

func (t nodeTable) setParent(i, parent int) {
	t[2*i+1] = t[2*i+1]&^0xFFFF | uint32(parent)
}

func (t nodeTable) setNbBits(i int, nbBits uint8) {
	t[2*i+1] = t[2*i+1]&0x00FFFFFF | uint32(nbBits)<<24
}

func (t nodeTable) swap(i, j int) {
	t[2*i], t[2*j] = t[2*j], t[2*i]
	t[2*i+1], t[2*j+1] = t[2*j+1], t[2*i+1]
}

// before orders leaves by ascending count, equal counts by descending symbol.
func (t nodeTable) before(i, j int) bool {
	if t.count(i) != t.count(j) {
		return t.count(i) < t.count(j)
	}
	return t.symbol(i) > t.symbol(j)
}

// sortLeaves orders the first n nodes with an insertion sort. Leaves arrive in
// symbol order, so long runs are already in place.
func (t nodeTable) sortLeaves(n int) {
	for i := 1; i < n; i++ {
		for j := i; j > 0 && t.before(j, j-1); j-- {
			t.swap(j, j-1)
		}
	}
}

// merge builds the tree over n sorted leaves with the two-queue method: leaves
// and internal nodes are both consumed in ascending count order, and a leaf
// wins ties. Internal nodes are appended after the leaves; the root ends up
// at index 2n-2.
func (t nodeTable) merge(n int) {
	leaf, inner, next := 0, n, n
	pick := func() int {
		if leaf < n && (inner >= next || t.count(leaf) <= t.count(inner)) {
			leaf++
			return leaf - 1
		}
		inner++
		return inner - 1
	}
	for next < 2*n-1 {
		a := pick()
		b := pick()
		sum := uint64(t.count(a)) + uint64(t.count(b))
		t.set(next, uint32(min(sum, math.MaxUint32)), 0)
		t.setParent(a, next)
		t.setParent(b, next)
		next++
	}
}

// assignDepths derives leaf depths from parent links. Parents always sit at
// higher indexes than their children, so one downward sweep suffices.
func (t nodeTable) assignDepths(n int) {
	root := 2*n - 2
	t.setNbBits(root, 0)
	for i := root - 1; i >= 0; i-- {
		t.setNbBits(i, t.nbBits(t.parent(i))+1)
	}
}

// limitLengths caps the code lengths of the n sorted leaves at maxNbBits while
// keeping the Kraft sum exactly one, and returns the longest resulting length.
func (t nodeTable) limitLengths(n int, maxNbBits uint8) uint8 {
	largest := uint8(0)
	for i := range n {
		largest = max(largest, t.nbBits(i))
	}
	if largest <= maxNbBits {
		return largest
	}

	// Kraft sum in units of 2^-maxNbBits
	capacity := 1 << maxNbBits
	kraft := 0
	for i := range n {
		if t.nbBits(i) > maxNbBits {
			t.setNbBits(i, maxNbBits)
		}
		kraft += 1 << (maxNbBits - t.nbBits(i))
	}

	// Overfull: lengthen the least frequent among the longest codes still
	// below the cap. Leaves are in ascending count order.
	for kraft > capacity {
		best := -1
		for i := range n {
			nb := t.nbBits(i)
			if nb < maxNbBits && (best < 0 || nb > t.nbBits(best)) {
				best = i
			}
		}
		nb := t.nbBits(best)
		t.setNbBits(best, nb+1)
		kraft -= 1 << (maxNbBits - nb - 1)
	}

	// Underfull: shorten codes, most frequent first, while the gain fits.
	for kraft < capacity {
		for i := n - 1; i >= 0 && kraft < capacity; i-- {
			nb := t.nbBits(i)
			gain := 1 << (maxNbBits - nb)
			if nb > 1 && kraft+gain <= capacity {
				t.setNbBits(i, nb-1)
				kraft += gain
			}
		}
	}

	largest = 0
	for i := range n {
		largest = max(largest, t.nbBits(i))
	}
	return largest
}

// BuildCTable builds a canonical Huffman compression table for the histogram
// count[0..maxSymbolValue] with code lengths capped at maxNbBits (0 selects
// TableLogDefault).
func BuildCTable(count []uint32, maxSymbolValue, maxNbBits int) (*CTable, error) {
	wksp := make([]uint32, BuildWorkspaceSize)
	return BuildCTableWksp(count, maxSymbolValue, maxNbBits, wksp)
}

// BuildCTableWksp is BuildCTable using caller provided scratch space of at
// least BuildWorkspaceSize words.
//
// The result is fully determined by its inputs: equal histograms always
// produce identical tables.
func BuildCTableWksp(count []uint32, maxSymbolValue, maxNbBits int, wksp []uint32) (*CTable, error) {
	if len(wksp) < BuildWorkspaceSize {
		return nil, errors.Wrapf(ErrWorkspaceTooSmall,
			"Build workspace holds %d words, need %d", len(wksp), BuildWorkspaceSize)
	}
	if maxNbBits == 0 {
		maxNbBits = TableLogDefault
	}
	if maxNbBits > TableLogAbsoluteMax {
		return nil, errors.Wrapf(ErrTableLogTooLarge, "Code length limit %d exceeds %d", maxNbBits, TableLogAbsoluteMax)
	}
	if maxNbBits < 0 {
		return nil, errors.Wrapf(ErrTableLogInvalid, "Code length limit %d is negative", maxNbBits)
	}
	if maxSymbolValue < 0 || maxSymbolValue > SymbolValueMax {
		return nil, errors.Wrapf(ErrAlphabetTooLarge, "Max symbol value %d is out of range", maxSymbolValue)
	}
	if len(count) <= maxSymbolValue {
		return nil, errors.Wrapf(ErrAlphabetTooLarge,
			"Histogram covers %d symbols, max symbol value is %d", len(count), maxSymbolValue)
	}

	nodes := nodeTable(wksp[:BuildWorkspaceSize])
	nbSymbols := 0
	largestSymbol := 0
	var total uint64
	for s, c := range count[:maxSymbolValue+1] {
		if c == 0 {
			continue
		}
		nodes.set(nbSymbols, c, uint8(s))
		nbSymbols++
		largestSymbol = s
		total += uint64(c)
	}

	switch {
	case total == 0:
		return nil, errors.Wrap(ErrEmptyInput, "Histogram is empty")
	case nbSymbols < 2:
		return nil, errors.Wrap(ErrTableLogInvalid, "A single symbol has no Huffman code")
	case nbSymbols > 1<<maxNbBits:
		return nil, errors.Wrapf(ErrTableLogInvalid,
			"%d symbols do not fit in codes of at most %d bits", nbSymbols, maxNbBits)
	}

	nodes.sortLeaves(nbSymbols)
	nodes.merge(nbSymbols)
	nodes.assignDepths(nbSymbols)
	tableLog := nodes.limitLengths(nbSymbols, uint8(maxNbBits))

	var lengths [SymbolValueMax + 1]uint8
	for i := range nbSymbols {
		lengths[nodes.symbol(i)] = nodes.nbBits(i)
	}

	ct := &CTable{
		maxSymbolValue: uint8(largestSymbol),
		tableLog:       tableLog,
	}
	ct.assignCodes(&lengths)
	return ct, nil
}

// assignCodes fills the table with canonical codes for the given lengths.
// Values are handed out per length in symbol order, the starting value of
// each length being derived from the population of the longer ones.
func (ct *CTable) assignCodes(lengths *[SymbolValueMax + 1]uint8) {
	var nbPerRank [TableLogAbsoluteMax + 1]uint16
	for _, nb := range lengths[:int(ct.maxSymbolValue)+1] {
		nbPerRank[nb]++
	}

	var valPerRank [TableLogAbsoluteMax + 1]uint16
	next := uint16(0)
	for nb := ct.tableLog; nb > 0; nb-- {
		valPerRank[nb] = next
		next += nbPerRank[nb]
		next >>= 1
	}

	ct.elts = [SymbolValueMax + 1]cElt{}
	for s, nb := range lengths[:int(ct.maxSymbolValue)+1] {
		if nb == 0 {
			continue
		}
		ct.elts[s] = packCode(valPerRank[nb], nb)
		valPerRank[nb]++
	}
}

// OptimalTableLog suggests a code length limit for a block of srcSize bytes
// whose largest symbol is maxSymbolValue. The result lies in
// [1, maxTableLog]; maxTableLog 0 selects TableLogDefault.
func OptimalTableLog(maxTableLog, srcSize, maxSymbolValue int) int {
	if maxTableLog <= 0 {
		maxTableLog = TableLogDefault
	}
	tableLog := maxTableLog
	if srcSize > 1 {
		srcBits := bits.Len(uint(srcSize - 1))
		// small blocks cannot afford wide tables
		if maxBitsSrc := srcBits - 2; maxBitsSrc < tableLog {
			tableLog = maxBitsSrc
		}
		minBits := min(srcBits, bits.Len(uint(maxSymbolValue))+1)
		if minBits > tableLog {
			tableLog = minBits
		}
	}
	return max(1, min(tableLog, maxTableLog))
}

// minTableLog is the narrowest code length limit that can hold nbSymbols codes.
func minTableLog(nbSymbols int) int {
	return bits.Len(uint(nbSymbols - 1))
}
