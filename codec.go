package huf

import (
	"strings"
	"sync"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// Config holds the tunables of a Codec.
type Config struct {
	// MaxSymbolValue bounds the byte values accepted by Compress
	MaxSymbolValue int `yaml:"maxSymbolValue,omitempty"`

	// TableLog caps the code length
	TableLog int `yaml:"tableLog,omitempty"`

	// SingleStream codes every block as one stream instead of four. Both ends
	// of a link must agree on it.
	SingleStream bool `yaml:"singleStream,omitempty"`

	// Decoder is "auto", "x2" or "x4"
	Decoder string `yaml:"decoder,omitempty"`

	// Parallel decodes the four streams of a block concurrently
	Parallel bool `yaml:"parallel,omitempty"`
}

// NewConfig returns a Config with the library defaults.
func NewConfig() *Config {
	return &Config{
		MaxSymbolValue: SymbolValueMax,
		TableLog:       TableLogDefault,
		Decoder:        "auto",
	}
}

// Validate checks the configuration and fills in defaults for zero values.
func (c *Config) Validate() error {
	if c.MaxSymbolValue == 0 {
		c.MaxSymbolValue = SymbolValueMax
	}
	if c.MaxSymbolValue < 0 || c.MaxSymbolValue > SymbolValueMax {
		return errors.Wrapf(ErrAlphabetTooLarge, "Max symbol value %d is out of range", c.MaxSymbolValue)
	}
	if c.TableLog == 0 {
		c.TableLog = TableLogDefault
	}
	if c.TableLog > TableLogAbsoluteMax {
		return errors.Wrapf(ErrTableLogTooLarge, "Table log %d exceeds %d", c.TableLog, TableLogAbsoluteMax)
	}
	if c.TableLog < 0 {
		return errors.Wrapf(ErrTableLogInvalid, "Table log %d is negative", c.TableLog)
	}
	if c.Decoder == "" {
		c.Decoder = "auto"
	}
	if _, _, err := parseDecoder(c.Decoder); err != nil {
		return err
	}
	return nil
}

// parseDecoder maps a decoder name to a layout; auto is true for "auto".
func parseDecoder(name string) (kind DecoderKind, auto bool, err error) {
	switch strings.ToLower(name) {
	case "auto":
		return DecoderX2, true, nil
	case "x2":
		return DecoderX2, false, nil
	case "x4":
		return DecoderX4, false, nil
	}
	return DecoderX2, false, errors.Errorf("Unknown decoder %q, expected auto, x2 or x4", name)
}

// BlockKind tells how a compressed block is represented.
type BlockKind int

const (
	BlockRaw BlockKind = iota
	BlockRLE
	BlockHuffman
)

func (k BlockKind) String() string {
	switch k {
	case BlockRaw:
		return "raw"
	case BlockRLE:
		return "rle"
	case BlockHuffman:
		return "huffman"
	default:
		return "unknown"
	}
}

// KindOf classifies a stored block of compressedSize bytes regenerating
// originalSize bytes.
func KindOf(originalSize, compressedSize int) BlockKind {
	switch {
	case compressedSize == originalSize:
		return BlockRaw
	case compressedSize == 1:
		return BlockRLE
	default:
		return BlockHuffman
	}
}

// Codec compresses and decompresses blocks with a fixed Config. A Codec is
// safe for concurrent use; scratch space is pooled between calls.
type Codec struct {
	logger  logger.Logger
	config  Config
	decoder DecoderKind
	auto    bool

	workspaces sync.Pool
	dtables    sync.Pool
}

// NewCodec validates config and returns a Codec logging through a child of
// parentLogger.
func NewCodec(parentLogger logger.Logger, config *Config) (*Codec, error) {
	if config == nil {
		config = NewConfig()
	}
	validated := *config
	if err := validated.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid codec configuration")
	}
	decoder, auto, _ := parseDecoder(validated.Decoder)

	codec := &Codec{
		logger:  parentLogger.GetChild("huf"),
		config:  validated,
		decoder: decoder,
		auto:    auto,
	}
	codec.workspaces.New = func() any {
		wksp := make([]uint32, CompressWorkspaceSize)
		return &wksp
	}
	codec.dtables.New = func() any {
		return NewDTable(TableLogAbsoluteMax)
	}

	codec.logger.DebugWith("Created codec",
		"maxSymbolValue", validated.MaxSymbolValue,
		"tableLog", validated.TableLog,
		"singleStream", validated.SingleStream,
		"decoder", validated.Decoder,
		"parallel", validated.Parallel)
	return codec, nil
}

// Config returns the validated configuration.
func (c *Codec) Config() Config { return c.config }

func (c *Codec) streams(size int) int {
	if c.config.SingleStream {
		return 1
	}
	return streamsFor(size)
}

// Compress compresses src into dst with the same result convention as
// Compress: 0 for store raw, 1 for a run, otherwise the coded size.
func (c *Codec) Compress(dst, src []byte) (int, error) {
	wksp := c.workspaces.Get().(*[]uint32)
	defer c.workspaces.Put(wksp)

	n, err := compress(dst, src, c.config.MaxSymbolValue, c.config.TableLog, *wksp, c.streams(len(src)))
	if err != nil {
		return 0, errors.Wrapf(err, "Failed to compress %d byte block", len(src))
	}
	c.logger.DebugWith("Compressed block", "srcSize", len(src), "size", n)
	return n, nil
}

// CompressBlock compresses src into a new buffer and returns the block to
// store: src itself when it is not worth compressing.
func (c *Codec) CompressBlock(src []byte) ([]byte, BlockKind, error) {
	dst := make([]byte, CompressBound(len(src)))
	n, err := c.Compress(dst, src)
	if err != nil {
		return nil, BlockRaw, err
	}
	switch {
	case n == 0 || n == len(src):
		return src, BlockRaw, nil
	case n == 1:
		return dst[:1], BlockRLE, nil
	default:
		return dst[:n], BlockHuffman, nil
	}
}

// Decompress regenerates into dst, exactly the original size, a block
// produced by Compress or CompressBlock.
func (c *Codec) Decompress(dst, src []byte) (int, error) {
	if n, done, err := decompressTrivial(dst, src); done {
		if err != nil {
			return 0, errors.Wrapf(err, "Failed to decompress %d byte block", len(src))
		}
		return n, nil
	}

	kind := c.decoder
	if c.auto {
		kind = SelectDecoder(len(dst), len(src))
	}

	dt := c.dtables.Get().(*DTable)
	defer c.dtables.Put(dt)

	n, err := decompressWith(dt, dst, src, kind, c.streams(len(dst)), c.config.Parallel)
	if err != nil {
		return 0, errors.Wrapf(err, "Failed to decompress %d byte block", len(src))
	}
	c.logger.DebugWith("Decompressed block", "size", len(src), "dstSize", n, "decoder", kind.String())
	return n, nil
}
