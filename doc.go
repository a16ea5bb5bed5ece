// Package huf provides canonical Huffman block compression.
//
// # Overview
//
// huf codes blocks of up to 128 KiB byte by byte with a length-limited
// canonical Huffman code built from the block's own histogram. Each coded
// block carries a compact table header (4 bits per symbol) followed by the
// bitstreams. It is the entropy stage found inside LZ-style compressors, and
// is useful on its own for data with a skewed byte distribution.
//
// # Block Forms
//
// Compress reports one of three outcomes, and the stored size alone tells
// Decompress which one it gets back:
//   - 0: not compressible, store the block raw (stored size == original size)
//   - 1: the block is a run of one byte (stored size == 1)
//   - n: a table header and one or four Huffman streams (2 <= n < size-1)
//
// Blocks of MinSize4X bytes or more are split into four streams that can be
// decoded independently, behind a 6 byte jump table.
//
// # Basic Usage
//
//	src := []byte("abracadabra, abracadabra, abracadabra")
//	dst := make([]byte, huf.CompressBound(len(src)))
//	n, err := huf.Compress(dst, src)
//	if err != nil {
//	    return err
//	}
//	switch n {
//	case 0:
//	    stored = src // incompressible
//	default:
//	    stored = dst[:n]
//	}
//
//	out := make([]byte, len(src))
//	_, err = huf.Decompress(out, stored)
//
// Tables can also be built and serialized on their own:
//
//	var count [256]uint32
//	maxSymbol, _ := huf.Count(&count, src)
//	ct, _ := huf.BuildCTable(count[:], maxSymbol, 11)
//	header, _ := ct.MarshalBinary()
//	body := make([]byte, huf.CompressBound(len(src)))
//	n, _ = ct.Compress1X(body, src)
//
//	dt := huf.NewDTable(huf.TableLogMax)
//	dt.ReadX2(header)
//	dt.Decompress1X(out, body[:n])
//
// # Decoders
//
// Two decode table layouts exist. DecoderX2 resolves one symbol per lookup
// and is cheap to build; DecoderX4 resolves up to two and costs more to
// build. SelectDecoder picks one from the block's compression ratio and the
// plain Decompress entry points do so automatically.
//
// # Performance Characteristics
//
// Table build: O(s²) worst case in the alphabet size s (at most 256)
// Encoding: O(n), branch-free per symbol
// Decoding: O(n), one table lookup per symbol (X2) or per symbol pair (X4)
//
// Compression and decompression are allocation free when the *Wksp and
// *DCtx variants are given reusable scratch space.
package huf
