package huf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecompressVariants(t *testing.T) {
	src := skewedBlock(30000, 21)
	_, maxSymbolValue := histogram(src)

	dst4 := make([]byte, CompressBound(len(src)))
	n4, err := Compress4XWksp(dst4, src, maxSymbolValue, 11, make([]uint32, CompressWorkspaceSize))
	require.NoError(t, err)
	require.Greater(t, n4, 1)
	block4 := dst4[:n4]

	dst1 := make([]byte, CompressBound(len(src)))
	n1, err := Compress1X(dst1, src, maxSymbolValue, 11)
	require.NoError(t, err)
	require.Greater(t, n1, 1)
	block1 := dst1[:n1]

	require.Less(t, n1, n4, "one stream saves the jump table and three end marks")

	dt := NewDTable(TableLogAbsoluteMax)
	variants := []struct {
		name   string
		block  []byte
		decode func(dst, src []byte) (int, error)
	}{
		{"Decompress", block4, Decompress},
		{"Decompress4X2", block4, Decompress4X2},
		{"Decompress4X4", block4, Decompress4X4},
		{"Decompress4XDCtx", block4, func(dst, src []byte) (int, error) { return Decompress4XDCtx(dt, dst, src) }},
		{"Decompress4XHufOnly", block4, func(dst, src []byte) (int, error) { return Decompress4XHufOnly(dt, dst, src) }},
		{"Decompress4X2DCtx", block4, func(dst, src []byte) (int, error) { return Decompress4X2DCtx(dt, dst, src) }},
		{"Decompress4X4DCtx", block4, func(dst, src []byte) (int, error) { return Decompress4X4DCtx(dt, dst, src) }},
		{"Decompress1X2", block1, Decompress1X2},
		{"Decompress1X4", block1, Decompress1X4},
		{"Decompress1XDCtx", block1, func(dst, src []byte) (int, error) { return Decompress1XDCtx(dt, dst, src) }},
		{"Decompress1X2DCtx", block1, func(dst, src []byte) (int, error) { return Decompress1X2DCtx(dt, dst, src) }},
		{"Decompress1X4DCtx", block1, func(dst, src []byte) (int, error) { return Decompress1X4DCtx(dt, dst, src) }},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			out := make([]byte, len(src))
			n, err := v.decode(out, v.block)
			require.NoError(t, err)
			require.Equal(t, len(src), n)
			require.True(t, bytes.Equal(src, out))
		})
	}
}

func TestDecompressParallel(t *testing.T) {
	src := textBlock(BlockSizeMax)
	block := compressBlock(t, src)

	for _, kind := range []DecoderKind{DecoderX2, DecoderX4} {
		dt := NewDTable(0)
		out := make([]byte, len(src))
		_, err := decompressWith(dt, out, block, kind, 4, true)
		require.NoError(t, err)
		require.Equal(t, src, out)
	}
}

func TestDecompressTrivialBlocks(t *testing.T) {
	out := make([]byte, 5)
	n, err := Decompress(out, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(out))

	n, err = Decompress(out, []byte{'q'})
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "qqqqq", string(out))

	_, err = Decompress(out, []byte("too long"))
	require.Equal(t, ErrCorruptStream, Code(err))

	_, err = Decompress(out, nil)
	require.Equal(t, ErrCorruptStream, Code(err))

	n, err = Decompress(nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	dt := NewDTable(0)
	_, err = Decompress4XHufOnly(dt, out, []byte{'q'})
	require.Equal(t, ErrCorruptStream, Code(err), "runs are not Huffman blocks")
	_, err = Decompress4XHufOnly(dt, out, []byte("hello"))
	require.Equal(t, ErrCorruptStream, Code(err), "stored blocks are not Huffman blocks")
	_, err = Decompress4XHufOnly(dt, nil, []byte("hello"))
	require.Equal(t, ErrDestinationTooSmall, Code(err))
}

func TestDecompressCorruptBody(t *testing.T) {
	for _, size := range []int{200, 5000} {
		src := skewedBlock(size, 31)
		block := compressBlock(t, src)
		require.Less(t, len(block), size, "size %d must take the Huffman path", size)

		// the final stream's end mark lives in the last byte
		broken := bytes.Clone(block)
		broken[len(broken)-1] = 0
		_, err := Decompress(make([]byte, size), broken)
		require.Equal(t, ErrCorruptStream, Code(err), "size %d", size)
	}
}

func TestDecompressCorruptJumpTable(t *testing.T) {
	src := skewedBlock(5000, 32)
	block := compressBlock(t, src)
	stats, err := ReadStats(block)
	require.NoError(t, err)
	jump := block[stats.Size:]

	for _, tc := range []struct {
		name  string
		sizes [3]uint16
	}{
		{"empty stream", [3]uint16{0, 10, 10}},
		{"beyond block", [3]uint16{0xFFFF, 0xFFFF, 0xFFFF}},
		{"no room for the last stream", [3]uint16{uint16(len(jump) - 6), 0, 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			broken := bytes.Clone(block)
			for i, s := range tc.sizes {
				binary.LittleEndian.PutUint16(broken[stats.Size+2*i:], s)
			}
			_, err := Decompress(make([]byte, len(src)), broken)
			require.Equal(t, ErrCorruptStream, Code(err))
		})
	}
}

func TestDecompressTableTooWide(t *testing.T) {
	src := skewedBlock(5000, 33)
	block := compressBlock(t, src)
	_, err := Decompress4XDCtx(NewDTable(1), make([]byte, len(src)), block)
	require.Equal(t, ErrTableLogTooLarge, Code(err))
}

// Every single bit flip in the weights must either be rejected before the
// body is touched or still describe a complete code; it must never panic.
func TestDecompressHeaderBitFlips(t *testing.T) {
	for _, size := range []int{200, 3000} {
		src := skewedBlock(size, 34)
		block := compressBlock(t, src)
		stats, err := ReadStats(block)
		require.NoError(t, err)
		tableLog := stats.TableLog

		for pos := 2; pos < stats.Size; pos++ {
			for bit := range 8 {
				broken := bytes.Clone(block)
				broken[pos] ^= 1 << bit

				complete := weightsComplete(broken[2:stats.Size], int(broken[1]), tableLog)
				out := make([]byte, size)
				var err error
				require.NotPanics(t, func() { _, err = Decompress(out, broken) })

				switch {
				case !complete:
					require.Equal(t, ErrCorruptHeader, Code(err), "size %d byte %d bit %d", size, pos, bit)
				case err != nil:
					require.Contains(t, []ErrorCode{ErrCorruptHeader, ErrCorruptStream}, Code(err))
				}
			}
		}
	}
}

// weightsComplete recomputes the header validity check independently.
func weightsComplete(packed []byte, n, tableLog int) bool {
	total := 0
	for i := range n {
		w := int(packed[i/2] >> 4)
		if i&1 == 1 {
			w = int(packed[i/2] & 0xF)
		}
		if w > tableLog {
			return false
		}
		if w > 0 {
			total += 1 << (w - 1)
		}
	}
	rest := 1<<tableLog - total
	return total > 0 && rest > 0 && rest&(rest-1) == 0
}

func TestDecompressRandomGarbage(t *testing.T) {
	for seed := range int64(200) {
		garbage := randomBlock(int(seed%97)+2, seed)
		for _, size := range []int{len(garbage) + 1, 300, 4000} {
			out := make([]byte, size)
			require.NotPanics(t, func() {
				_, _ = Decompress(out, garbage)
				_, _ = Decompress1X4(out, garbage)
				_, _ = Decompress4X4(out, garbage)
			}, "seed %d size %d", seed, size)
		}
	}
}

func FuzzDecompress(f *testing.F) {
	f.Add(compressBlock(f, skewedBlock(1000, 1)), 1000)
	f.Add(compressBlock(f, textBlock(100)), 100)
	f.Fuzz(func(t *testing.T, block []byte, size int) {
		if size < 0 || size > BlockSizeMax {
			return
		}
		out := make([]byte, size)
		_, _ = Decompress(out, block)
		_, _ = Decompress1X2(out, block)
		_, _ = Decompress4X4(out, block)
	})
}

func FuzzRoundtrip(f *testing.F) {
	f.Add(textBlock(1000))
	f.Add(skewedBlock(300, 2))
	f.Fuzz(func(t *testing.T, src []byte) {
		if len(src) > BlockSizeMax {
			return
		}
		block := compressBlock(t, src)
		out := make([]byte, len(src))
		if _, err := Decompress(out, block); err != nil {
			t.Fatalf("decompress: %v", err)
		}
		if !bytes.Equal(src, out) {
			t.Fatalf("roundtrip mismatch")
		}
	})
}
