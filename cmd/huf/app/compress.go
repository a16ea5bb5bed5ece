package app

import (
	"github.com/axiomhq/huf"

	"github.com/nuclio/errors"
	"github.com/spf13/cobra"
)

type compressCommandeer struct {
	cmd            *cobra.Command
	rootCommandeer *RootCommandeer
	streamArgs
	blockSize   int
	concurrency int
}

func newCompressCommandeer(rootCommandeer *RootCommandeer) *compressCommandeer {
	commandeer := &compressCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:     "compress [input [output]]",
		Aliases: []string{"c"},
		Short:   "Compress a file into a frame of Huffman coded blocks",
		Args:    cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			commandeer.parse(args)

			// initialize root
			if err := rootCommandeer.initialize(cmd); err != nil {
				return errors.Wrap(err, "Failed to initialize root")
			}

			return commandeer.compress(cmd)
		},
	}

	cmd.Flags().IntVarP(&commandeer.blockSize, "block-size", "b", huf.BlockSizeMax, "Bytes per block")
	cmd.Flags().IntVarP(&commandeer.concurrency, "concurrency", "j", defaultConcurrency(), "Blocks compressed at once")
	cmd.Flags().BoolVarP(&rootCommandeer.config.SingleStream, "single-stream", "s", false, "Code blocks as one stream instead of four")

	commandeer.cmd = cmd

	return commandeer
}

func (cc *compressCommandeer) compress(cmd *cobra.Command) error {
	codec, err := cc.rootCommandeer.createCodec(cc.rootCommandeer.config.SingleStream)
	if err != nil {
		return errors.Wrap(err, "Failed to create codec")
	}

	writer, err := newFrameWriter(cc.rootCommandeer.loggerInstance, codec, cc.blockSize, cc.concurrency)
	if err != nil {
		return errors.Wrap(err, "Failed to create frame writer")
	}

	input, err := cc.open(cmd)
	if err != nil {
		return err
	}
	defer input.Close() // nolint: errcheck

	output, err := cc.create(cmd)
	if err != nil {
		return err
	}

	written, err := writer.writeFrame(input, output)
	if err != nil {
		output.Close() // nolint: errcheck
		return errors.Wrap(err, "Failed to compress")
	}
	if err := output.Close(); err != nil {
		return errors.Wrap(err, "Failed to close output")
	}

	cc.rootCommandeer.loggerInstance.DebugWith("Compressed", "input", cc.input, "output", cc.output, "size", written)
	return nil
}
