package huf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestBuildCTableSmall(t *testing.T) {
	ct, err := BuildCTable([]uint32{5, 2, 1, 1}, 3, 11)
	require.NoError(t, err)

	require.Equal(t, 3, ct.TableLog())
	require.Equal(t, 3, ct.MaxSymbolValue())

	type code struct{ NbBits, Value int }
	var got []code
	for s := 0; s < 4; s++ {
		got = append(got, code{ct.NbBits(byte(s)), int(ct.Code(byte(s)))})
	}
	want := []code{{1, 1}, {2, 1}, {3, 0}, {3, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}

	header, err := ct.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte{3, 3, 0x32, 0x10}, header)
	require.Equal(t, []uint8{3, 2, 1, 1}, ct.Weights())
}

func TestBuildCTableTies(t *testing.T) {
	// equal counts: the lowest symbol gets the short code
	ct, err := BuildCTable([]uint32{1, 1, 1}, 2, 11)
	require.NoError(t, err)
	require.Equal(t, 1, ct.NbBits(0))
	require.Equal(t, 2, ct.NbBits(1))
	require.Equal(t, 2, ct.NbBits(2))
}

func TestBuildCTableKraft(t *testing.T) {
	fib := make([]uint32, 24)
	fib[0], fib[1] = 1, 1
	for i := 2; i < len(fib); i++ {
		fib[i] = fib[i-1] + fib[i-2]
	}
	skewed, skewedMax := histogram(skewedBlock(20000, 7))
	text, textMax := histogram(textBlock(50000))
	uniform := make([]uint32, 256)
	for i := range uniform {
		uniform[i] = 10
	}

	cases := []struct {
		name           string
		count          []uint32
		maxSymbolValue int
	}{
		{"fibonacci", fib, len(fib) - 1},
		{"skewed", skewed, skewedMax},
		{"text", text, textMax},
		{"uniform", uniform, 255},
	}

	for _, tc := range cases {
		for _, maxNbBits := range []int{8, 9, 11, 12, 15} {
			ct, err := BuildCTable(tc.count, tc.maxSymbolValue, maxNbBits)
			require.NoError(t, err, "%s/%d", tc.name, maxNbBits)
			require.LessOrEqual(t, ct.TableLog(), maxNbBits, "%s", tc.name)
			require.Equal(t, 1<<ct.TableLog(), kraftSum(ct), "%s/%d: Kraft sum", tc.name, maxNbBits)

			for s, c := range tc.count[:tc.maxSymbolValue+1] {
				if (c != 0) != (ct.NbBits(byte(s)) != 0) {
					t.Fatalf("%s/%d: symbol %d count %d has %d bits", tc.name, maxNbBits, s, c, ct.NbBits(byte(s)))
				}
			}
			if a, b, ok := prefixFree(ct); !ok {
				t.Fatalf("%s/%d: code of %d prefixes code of %d", tc.name, maxNbBits, a, b)
			}
		}
	}
}

func TestBuildCTableLimitsFibonacci(t *testing.T) {
	fib := make([]uint32, 24)
	fib[0], fib[1] = 1, 1
	for i := 2; i < len(fib); i++ {
		fib[i] = fib[i-1] + fib[i-2]
	}
	// unbounded, the rarest symbols would sit 23 levels deep
	ct, err := BuildCTable(fib, len(fib)-1, 11)
	require.NoError(t, err)
	require.Equal(t, 11, ct.TableLog())
	// the most frequent symbol keeps the shortest code
	for s := 0; s < len(fib)-1; s++ {
		require.GreaterOrEqual(t, ct.NbBits(byte(s)), ct.NbBits(byte(len(fib)-1)))
	}
}

func TestBuildCTableFullAlphabetTight(t *testing.T) {
	count := make([]uint32, 256)
	for i := range count {
		count[i] = uint32(1 + i*i)
	}
	ct, err := BuildCTable(count, 255, 8)
	require.NoError(t, err)
	for s := range 256 {
		require.Equal(t, 8, ct.NbBits(byte(s)), "256 symbols in 8 bits leave no choice")
	}
}

func TestBuildCTableDeterministic(t *testing.T) {
	count, maxSymbolValue := histogram(textBlock(10000))
	ct1, err := BuildCTable(count, maxSymbolValue, 11)
	require.NoError(t, err)
	wksp := make([]uint32, BuildWorkspaceSize+17)
	for i := range wksp {
		wksp[i] = 0xDEADBEEF
	}
	ct2, err := BuildCTableWksp(count, maxSymbolValue, 11, wksp)
	require.NoError(t, err)

	h1, _ := ct1.MarshalBinary()
	h2, _ := ct2.MarshalBinary()
	require.Equal(t, h1, h2)
	require.Equal(t, *ct1, *ct2)
}

func TestBuildCTableErrors(t *testing.T) {
	count := []uint32{3, 1, 4, 1, 5}

	_, err := BuildCTable(count, 4, 16)
	require.Equal(t, ErrTableLogTooLarge, Code(err))

	_, err = BuildCTable(count, 256, 11)
	require.Equal(t, ErrAlphabetTooLarge, Code(err))

	_, err = BuildCTable(count, 10, 11)
	require.Equal(t, ErrAlphabetTooLarge, Code(err), "histogram shorter than the alphabet")

	_, err = BuildCTable(make([]uint32, 8), 7, 11)
	require.Equal(t, ErrEmptyInput, Code(err))

	_, err = BuildCTable([]uint32{0, 9, 0}, 2, 11)
	require.Equal(t, ErrTableLogInvalid, Code(err), "single symbol")

	_, err = BuildCTable(count, 4, 2)
	require.Equal(t, ErrTableLogInvalid, Code(err), "5 symbols in 2 bits")

	_, err = BuildCTableWksp(count, 4, 11, make([]uint32, BuildWorkspaceSize-1))
	require.Equal(t, ErrWorkspaceTooSmall, Code(err))

	ct, err := BuildCTable(count, 4, 0)
	require.NoError(t, err, "0 selects the default limit")
	require.LessOrEqual(t, ct.TableLog(), TableLogDefault)
}

func TestBuildCTableSkipsTrailingZeros(t *testing.T) {
	count := make([]uint32, 256)
	count['x'], count['y'] = 3, 1
	ct, err := BuildCTable(count, 255, 11)
	require.NoError(t, err)
	require.Equal(t, int('y'), ct.MaxSymbolValue())
	require.Equal(t, int(2+('y'+1)/2), ct.HeaderSize())
}

func TestOptimalTableLog(t *testing.T) {
	for maxTableLog := 1; maxTableLog <= TableLogAbsoluteMax; maxTableLog++ {
		for _, srcSize := range []int{1, 2, 3, 17, 100, 1000, 4096, BlockSizeMax} {
			for _, maxSymbolValue := range []int{0, 1, 2, 15, 127, 255} {
				got := OptimalTableLog(maxTableLog, srcSize, maxSymbolValue)
				if got < 1 || got > maxTableLog {
					t.Fatalf("OptimalTableLog(%d, %d, %d)=%d out of range",
						maxTableLog, srcSize, maxSymbolValue, got)
				}
			}
		}
	}
	require.Equal(t, TableLogDefault, OptimalTableLog(0, BlockSizeMax, 255))
	// small blocks get narrow tables
	require.Less(t, OptimalTableLog(11, 40, 3), 11)
}
