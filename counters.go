package huf

// counters accumulates a byte histogram over four interleaved lanes.
//
// Consecutive equal bytes would otherwise hit the same counter back to back
// and serialize on the store; spreading every fourth byte onto its own lane
// keeps the increments independent. The lanes are summed at the end.
type counters struct {
	lanes [4][SymbolValueMax + 1]uint32
}

// add counts every byte of src.
func (c *counters) add(src []byte) {
	for len(src) >= 4 {
		c.lanes[0][src[0]]++
		c.lanes[1][src[1]]++
		c.lanes[2][src[2]]++
		c.lanes[3][src[3]]++
		src = src[4:]
	}
	for _, b := range src {
		c.lanes[0][b]++
	}
}

// sum folds the lanes into count and reports the highest symbol seen and
// the count of the most frequent one.
func (c *counters) sum(count *[SymbolValueMax + 1]uint32) (maxSymbolValue, maxCount int) {
	for s := range count {
		n := c.lanes[0][s] + c.lanes[1][s] + c.lanes[2][s] + c.lanes[3][s]
		count[s] = n
		if n == 0 {
			continue
		}
		maxSymbolValue = s
		if int(n) > maxCount {
			maxCount = int(n)
		}
	}
	return maxSymbolValue, maxCount
}

// Count fills count with the number of occurrences of every byte value in
// src. It returns the highest byte value present (0 for empty input) and the
// occurrence count of the most frequent byte.
func Count(count *[SymbolValueMax + 1]uint32, src []byte) (maxSymbolValue, maxCount int) {
	var c counters
	c.add(src)
	return c.sum(count)
}
