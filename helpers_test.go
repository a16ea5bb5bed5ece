package huf

import (
	"bytes"
	"math/rand"
	"testing"
)

const lorem = "It is a truth universally acknowledged, that a single man in possession " +
	"of a good fortune, must be in want of a wife. However little known the feelings " +
	"or views of such a man may be on his first entering a neighbourhood, this truth " +
	"is so well fixed in the minds of the surrounding families, that he is considered " +
	"the rightful property of some one or other of their daughters.\n"

// textBlock returns n bytes of English prose.
func textBlock(n int) []byte {
	return bytes.Repeat([]byte(lorem), n/len(lorem)+1)[:n]
}

// skewedBlock returns n bytes over a geometric distribution starting at 'a',
// each letter two thirds as likely as the previous one.
func skewedBlock(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	out := make([]byte, n)
	for i := range out {
		s := 0
		for s < 40 && rng.Intn(3) != 0 {
			s++
		}
		out[i] = byte('a' + s)
	}
	return out
}

// randomBlock returns n uniformly random bytes.
func randomBlock(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	out := make([]byte, n)
	rng.Read(out)
	return out
}

// storedBlock returns what a caller keeps after Compress reported n.
func storedBlock(src, dst []byte, n int) []byte {
	if n == 0 {
		return src
	}
	return dst[:n]
}

// compressBlock runs Compress and returns the stored block.
func compressBlock(t testing.TB, src []byte) []byte {
	t.Helper()
	dst := make([]byte, CompressBound(len(src)))
	n, err := Compress(dst, src)
	if err != nil {
		t.Fatalf("compress %d bytes: %v", len(src), err)
	}
	return storedBlock(src, dst, n)
}

// histogram returns the byte histogram of src and its largest symbol.
func histogram(src []byte) ([]uint32, int) {
	var count [SymbolValueMax + 1]uint32
	maxSymbolValue, _ := Count(&count, src)
	return count[:], maxSymbolValue
}

// kraftSum returns the sum of 2^(tableLog-len) over every coded symbol.
func kraftSum(ct *CTable) int {
	sum := 0
	for s := 0; s <= ct.MaxSymbolValue(); s++ {
		if nb := ct.NbBits(byte(s)); nb > 0 {
			sum += 1 << (ct.TableLog() - nb)
		}
	}
	return sum
}

// prefixFree reports the first pair of symbols where one code prefixes the other.
func prefixFree(ct *CTable) (a, b int, ok bool) {
	for i := 0; i <= ct.MaxSymbolValue(); i++ {
		li := ct.NbBits(byte(i))
		if li == 0 {
			continue
		}
		for j := 0; j <= ct.MaxSymbolValue(); j++ {
			lj := ct.NbBits(byte(j))
			if i == j || lj == 0 || lj < li {
				continue
			}
			if ct.Code(byte(j))>>(lj-li) == ct.Code(byte(i)) {
				return i, j, false
			}
		}
	}
	return 0, 0, true
}
