package app

import (
	"github.com/axiomhq/huf"

	"github.com/nuclio/errors"
	"github.com/spf13/cobra"
)

type decompressCommandeer struct {
	cmd            *cobra.Command
	rootCommandeer *RootCommandeer
	streamArgs
}

func newDecompressCommandeer(rootCommandeer *RootCommandeer) *decompressCommandeer {
	commandeer := &decompressCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:     "decompress [input [output]]",
		Aliases: []string{"d"},
		Short:   "Restore the original contents of a frame",
		Args:    cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			commandeer.parse(args)

			// initialize root
			if err := rootCommandeer.initialize(cmd); err != nil {
				return errors.Wrap(err, "Failed to initialize root")
			}

			return commandeer.decompress(cmd)
		},
	}

	commandeer.cmd = cmd

	return commandeer
}

func (dc *decompressCommandeer) decompress(cmd *cobra.Command) error {
	input, err := dc.open(cmd)
	if err != nil {
		return err
	}
	defer input.Close() // nolint: errcheck

	output, err := dc.create(cmd)
	if err != nil {
		return err
	}

	// the frame header decides the stream layout, not the configuration
	written, err := readFrame(input, output, func(singleStream bool) (*huf.Codec, error) {
		codec, err := dc.rootCommandeer.createCodec(singleStream)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to create codec")
		}
		return codec, nil
	})
	if err != nil {
		output.Close() // nolint: errcheck
		return errors.Wrap(err, "Failed to decompress")
	}
	if err := output.Close(); err != nil {
		return errors.Wrap(err, "Failed to close output")
	}

	dc.rootCommandeer.loggerInstance.DebugWith("Decompressed", "input", dc.input, "output", dc.output, "size", written)
	return nil
}
