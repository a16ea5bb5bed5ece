package huf

import "testing"

func TestCountBasic(t *testing.T) {
	var count [SymbolValueMax + 1]uint32

	maxSymbolValue, maxCount := Count(&count, []byte("abracadabra"))
	if maxSymbolValue != 'r' {
		t.Fatalf("maxSymbolValue=%d want %d", maxSymbolValue, 'r')
	}
	if maxCount != 5 {
		t.Fatalf("maxCount=%d want 5", maxCount)
	}
	want := map[byte]uint32{'a': 5, 'b': 2, 'c': 1, 'd': 1, 'r': 2}
	for s, c := range count {
		if c != want[byte(s)] {
			t.Fatalf("count[%q]=%d want %d", s, c, want[byte(s)])
		}
	}
}

func TestCountResetsStaleEntries(t *testing.T) {
	var count [SymbolValueMax + 1]uint32
	for i := range count {
		count[i] = 99
	}
	maxSymbolValue, maxCount := Count(&count, []byte{7, 7, 7})
	if maxSymbolValue != 7 || maxCount != 3 {
		t.Fatalf("got max=%d count=%d", maxSymbolValue, maxCount)
	}
	for s, c := range count {
		if s != 7 && c != 0 {
			t.Fatalf("count[%d]=%d not cleared", s, c)
		}
	}
}

func TestCountEmpty(t *testing.T) {
	var count [SymbolValueMax + 1]uint32
	maxSymbolValue, maxCount := Count(&count, nil)
	if maxSymbolValue != 0 || maxCount != 0 {
		t.Fatalf("empty input: max=%d count=%d", maxSymbolValue, maxCount)
	}
}

func TestCountLanesAgree(t *testing.T) {
	src := randomBlock(4099, 3)
	var count [SymbolValueMax + 1]uint32
	Count(&count, src)

	var naive [SymbolValueMax + 1]uint32
	for _, b := range src {
		naive[b]++
	}
	if count != naive {
		t.Fatalf("interleaved histogram differs from a direct count")
	}
}
