package app

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/axiomhq/huf"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"golang.org/x/sync/errgroup"
)

// A frame is the magic, one flags byte, then a sequence of blocks, each
// preceded by its original and stored sizes as little endian uint32.
const (
	frameMagic      = "HUF1"
	frameHeaderSize = len(frameMagic) + 1
	blockHeaderSize = 8

	flagSingleStream = 1 << 0
)

// BlockInfo describes one block of a frame.
type BlockInfo struct {
	Index        int    `yaml:"index"`
	Offset       int64  `yaml:"offset"`
	OriginalSize int    `yaml:"originalSize"`
	StoredSize   int    `yaml:"storedSize"`
	Kind         string `yaml:"kind"`
	TableLog     int    `yaml:"tableLog,omitempty"`
	NbSymbols    int    `yaml:"nbSymbols,omitempty"`
	HeaderSize   int    `yaml:"headerSize,omitempty"`
}

// FrameInfo summarizes a frame.
type FrameInfo struct {
	SingleStream bool        `yaml:"singleStream"`
	OriginalSize int64       `yaml:"originalSize"`
	StoredSize   int64       `yaml:"storedSize"`
	Blocks       []BlockInfo `yaml:"blocks"`
}

type frameWriter struct {
	logger      logger.Logger
	codec       *huf.Codec
	blockSize   int
	concurrency int
}

func newFrameWriter(parentLogger logger.Logger, codec *huf.Codec, blockSize, concurrency int) (*frameWriter, error) {
	if blockSize <= 0 || blockSize > huf.BlockSizeMax {
		return nil, errors.Errorf("Block size %d is out of range (1..%d)", blockSize, huf.BlockSizeMax)
	}
	if concurrency <= 0 {
		return nil, errors.Errorf("Concurrency must be positive, got %d", concurrency)
	}
	return &frameWriter{
		logger:      parentLogger.GetChild("writer"),
		codec:       codec,
		blockSize:   blockSize,
		concurrency: concurrency,
	}, nil
}

type pendingBlock struct {
	src    []byte
	stored []byte
}

// writeFrame compresses everything readable from r into a frame on w.
// Blocks are compressed in batches of concurrency and written in order.
func (fw *frameWriter) writeFrame(r io.Reader, w io.Writer) (int64, error) {
	header := []byte(frameMagic + "\x00")
	if fw.codec.Config().SingleStream {
		header[len(frameMagic)] |= flagSingleStream
	}
	if _, err := w.Write(header); err != nil {
		return 0, errors.Wrap(err, "Failed to write frame header")
	}
	written := int64(len(header))

	batch := make([]pendingBlock, fw.concurrency)
	for index := 0; ; {
		filled, eof, err := fw.readBatch(r, batch)
		if err != nil {
			return written, err
		}

		group := errgroup.Group{}
		for i := range batch[:filled] {
			block := &batch[i]
			group.Go(func() error {
				stored, _, err := fw.codec.CompressBlock(block.src)
				if err != nil {
					return errors.Wrapf(err, "Failed to compress block %d", index+i)
				}
				block.stored = stored
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return written, err
		}

		for _, block := range batch[:filled] {
			var sizes [blockHeaderSize]byte
			binary.LittleEndian.PutUint32(sizes[0:], uint32(len(block.src)))
			binary.LittleEndian.PutUint32(sizes[4:], uint32(len(block.stored)))
			if _, err := w.Write(sizes[:]); err != nil {
				return written, errors.Wrap(err, "Failed to write block header")
			}
			if _, err := w.Write(block.stored); err != nil {
				return written, errors.Wrap(err, "Failed to write block")
			}
			written += int64(blockHeaderSize + len(block.stored))
		}
		index += filled

		if eof {
			fw.logger.DebugWith("Wrote frame", "blocks", index, "size", written)
			return written, nil
		}
	}
}

// readBatch fills batch with up to len(batch) blocks of blockSize bytes; only
// the last block of the input may be shorter.
func (fw *frameWriter) readBatch(r io.Reader, batch []pendingBlock) (int, bool, error) {
	for i := range batch {
		src := make([]byte, fw.blockSize)
		n, err := io.ReadFull(r, src)
		switch {
		case err == io.EOF:
			return i, true, nil
		case err == io.ErrUnexpectedEOF:
			batch[i] = pendingBlock{src: src[:n]}
			return i + 1, true, nil
		case err != nil:
			return i, false, errors.Wrap(err, "Failed to read input")
		}
		batch[i] = pendingBlock{src: src}
	}
	return len(batch), false, nil
}

// readFrameHeader consumes the frame header and reports its flags.
func readFrameHeader(r io.Reader) (singleStream bool, err error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return false, errors.Wrap(err, "Failed to read frame header")
	}
	if string(header[:len(frameMagic)]) != frameMagic {
		return false, errors.Errorf("Bad frame magic %q", header[:len(frameMagic)])
	}
	flags := header[len(frameMagic)]
	if flags&^flagSingleStream != 0 {
		return false, errors.Errorf("Unknown frame flags %#x", flags)
	}
	return flags&flagSingleStream != 0, nil
}

// nextBlock reads the next block header and payload. It returns io.EOF at a
// clean end of frame.
func nextBlock(r io.Reader, buf []byte) (originalSize int, stored []byte, err error) {
	var sizes [blockHeaderSize]byte
	if _, err := io.ReadFull(r, sizes[:]); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, errors.Wrap(err, "Truncated block header")
	}
	originalSize = int(binary.LittleEndian.Uint32(sizes[0:]))
	storedSize := int(binary.LittleEndian.Uint32(sizes[4:]))
	switch {
	case originalSize == 0 || originalSize > huf.BlockSizeMax:
		return 0, nil, errors.Errorf("Block original size %d is out of range", originalSize)
	case storedSize == 0 || storedSize > originalSize:
		return 0, nil, errors.Errorf("Block stored size %d is invalid for %d bytes", storedSize, originalSize)
	}
	stored = buf[:storedSize]
	if _, err := io.ReadFull(r, stored); err != nil {
		return 0, nil, errors.Wrap(err, "Truncated block")
	}
	return originalSize, stored, nil
}

// readFrame decompresses a frame from r onto w. The codec is created by
// newCodec once the frame header tells whether blocks are single stream.
func readFrame(r io.Reader, w io.Writer, newCodec func(singleStream bool) (*huf.Codec, error)) (int64, error) {
	br := bufio.NewReader(r)
	singleStream, err := readFrameHeader(br)
	if err != nil {
		return 0, err
	}
	codec, err := newCodec(singleStream)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, huf.BlockSizeMax)
	out := make([]byte, huf.BlockSizeMax)
	var written int64
	for index := 0; ; index++ {
		originalSize, stored, err := nextBlock(br, buf)
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, errors.Wrapf(err, "Failed to read block %d", index)
		}
		if _, err := codec.Decompress(out[:originalSize], stored); err != nil {
			return written, errors.Wrapf(err, "Failed to decompress block %d", index)
		}
		if _, err := w.Write(out[:originalSize]); err != nil {
			return written, errors.Wrap(err, "Failed to write output")
		}
		written += int64(originalSize)
	}
}

// inspectFrame walks a frame without decoding block bodies.
func inspectFrame(r io.Reader) (*FrameInfo, error) {
	br := bufio.NewReader(r)
	singleStream, err := readFrameHeader(br)
	if err != nil {
		return nil, err
	}
	info := &FrameInfo{
		SingleStream: singleStream,
		StoredSize:   int64(frameHeaderSize),
	}

	buf := make([]byte, huf.BlockSizeMax)
	for index := 0; ; index++ {
		originalSize, stored, err := nextBlock(br, buf)
		if err == io.EOF {
			return info, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read block %d", index)
		}

		block := BlockInfo{
			Index:        index,
			Offset:       info.StoredSize,
			OriginalSize: originalSize,
			StoredSize:   len(stored),
		}
		kind := huf.KindOf(originalSize, len(stored))
		block.Kind = kind.String()
		if kind == huf.BlockHuffman {
			stats, err := huf.ReadStats(stored)
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to read table of block %d", index)
			}
			block.TableLog = stats.TableLog
			block.NbSymbols = stats.NbSymbols
			block.HeaderSize = stats.Size
		}

		info.Blocks = append(info.Blocks, block)
		info.OriginalSize += int64(originalSize)
		info.StoredSize += int64(blockHeaderSize + len(stored))
	}
}
