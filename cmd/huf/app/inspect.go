package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nuclio/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	OutputFormatText = "text"
	OutputFormatYAML = "yaml"
)

type inspectCommandeer struct {
	cmd            *cobra.Command
	rootCommandeer *RootCommandeer
	streamArgs
	format string
}

func newInspectCommandeer(rootCommandeer *RootCommandeer) *inspectCommandeer {
	commandeer := &inspectCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:     "inspect [input]",
		Aliases: []string{"i"},
		Short:   "Describe the blocks of a frame",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			commandeer.parse(args)

			// initialize root
			if err := rootCommandeer.initialize(cmd); err != nil {
				return errors.Wrap(err, "Failed to initialize root")
			}

			input, err := commandeer.open(cmd)
			if err != nil {
				return err
			}
			defer input.Close() // nolint: errcheck

			info, err := inspectFrame(input)
			if err != nil {
				return errors.Wrap(err, "Failed to inspect frame")
			}

			return renderFrameInfo(info, commandeer.format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&commandeer.format, "output", "o", OutputFormatText, "Output format - \"text\" or \"yaml\"")

	commandeer.cmd = cmd

	return commandeer
}

func renderFrameInfo(info *FrameInfo, format string, writer io.Writer) error {
	switch format {
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(2)
		if err := encoder.Encode(info); err != nil {
			return errors.Wrap(err, "Failed to encode frame info")
		}
		return encoder.Close()

	case OutputFormatText:
		tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "BLOCK\tOFFSET\tORIGINAL\tSTORED\tKIND\tTABLE LOG\tSYMBOLS") // nolint: errcheck
		for _, block := range info.Blocks {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%s\t%s\n", // nolint: errcheck
				block.Index,
				block.Offset,
				block.OriginalSize,
				block.StoredSize,
				block.Kind,
				optional(block.TableLog),
				optional(block.NbSymbols))
		}
		if err := tw.Flush(); err != nil {
			return errors.Wrap(err, "Failed to render blocks")
		}

		ratio := 0.0
		if info.OriginalSize > 0 {
			ratio = float64(info.StoredSize) / float64(info.OriginalSize)
		}
		_, err := fmt.Fprintf(writer, "\n%d blocks, %d -> %d bytes (%.3f), single stream: %t\n",
			len(info.Blocks), info.OriginalSize, info.StoredSize, ratio, info.SingleStream)
		return err
	}

	return errors.Errorf("Unknown output format %q", format)
}

func optional(value int) string {
	if value == 0 {
		return "-"
	}
	return fmt.Sprint(value)
}
