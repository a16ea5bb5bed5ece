package app

import (
	"io"
	"os"
	"runtime"

	"github.com/axiomhq/huf"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	nucliozap "github.com/nuclio/zap"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type RootCommandeer struct {
	loggerInstance logger.Logger
	cmd            *cobra.Command
	verbose        bool
	configPath     string
	config         huf.Config
}

func NewRootCommandeer() *RootCommandeer {
	commandeer := &RootCommandeer{}

	cmd := &cobra.Command{
		Use:           "huf [command]",
		Short:         "Huffman block compressor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&commandeer.verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().StringVarP(&commandeer.configPath, "config", "c", "", "Path of a YAML codec configuration file")
	cmd.PersistentFlags().IntVarP(&commandeer.config.TableLog, "table-log", "t", 0, "Maximum code length in bits (0 for the default)")
	cmd.PersistentFlags().StringVarP(&commandeer.config.Decoder, "decoder", "d", "", "Decoder table layout - \"auto\", \"x2\" or \"x4\"")
	cmd.PersistentFlags().BoolVarP(&commandeer.config.Parallel, "parallel", "p", false, "Decode the four streams of a block concurrently")

	cmd.AddCommand(
		newCompressCommandeer(commandeer).cmd,
		newDecompressCommandeer(commandeer).cmd,
		newInspectCommandeer(commandeer).cmd,
	)

	commandeer.cmd = cmd

	return commandeer
}

// Execute uses os.Args to execute the command
func (rc *RootCommandeer) Execute() error {
	return rc.cmd.Execute()
}

// GetCmd returns the underlying cobra command
func (rc *RootCommandeer) GetCmd() *cobra.Command {
	return rc.cmd
}

func (rc *RootCommandeer) initialize(cmd *cobra.Command) error {
	var err error

	rc.loggerInstance, err = rc.createLogger(cmd.ErrOrStderr())
	if err != nil {
		return errors.Wrap(err, "Failed to create logger")
	}

	if err := rc.loadConfig(cmd); err != nil {
		return errors.Wrap(err, "Failed to load configuration")
	}

	rc.loggerInstance.DebugWith("Initialized", "configPath", rc.configPath, "config", rc.config)

	return nil
}

// loadConfig reads the configuration file, if any, and lets flags given on
// the command line override its values.
func (rc *RootCommandeer) loadConfig(cmd *cobra.Command) error {
	if rc.configPath == "" {
		return nil
	}

	contents, err := os.ReadFile(rc.configPath)
	if err != nil {
		return errors.Wrapf(err, "Failed to read %s", rc.configPath)
	}

	var fileConfig huf.Config
	if err := yaml.Unmarshal(contents, &fileConfig); err != nil {
		return errors.Wrapf(err, "Failed to parse %s", rc.configPath)
	}

	flags := cmd.Flags()
	if flags.Changed("table-log") {
		fileConfig.TableLog = rc.config.TableLog
	}
	if flags.Changed("decoder") {
		fileConfig.Decoder = rc.config.Decoder
	}
	if flags.Changed("parallel") {
		fileConfig.Parallel = rc.config.Parallel
	}
	if flags.Changed("single-stream") {
		fileConfig.SingleStream = rc.config.SingleStream
	}
	rc.config = fileConfig

	return nil
}

// createLogger logs to writer, keeping stdout free for frames and restored data.
func (rc *RootCommandeer) createLogger(writer io.Writer) (logger.Logger, error) {
	var loggerLevel nucliozap.Level

	if rc.verbose {
		loggerLevel = nucliozap.DebugLevel
	} else {
		loggerLevel = nucliozap.InfoLevel
	}

	loggerInstance, err := nucliozap.NewNuclioZapCmd("huf", loggerLevel, writer)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create logger")
	}

	return loggerInstance, nil
}

func (rc *RootCommandeer) createCodec(singleStream bool) (*huf.Codec, error) {
	config := rc.config
	config.SingleStream = singleStream
	return huf.NewCodec(rc.loggerInstance, &config)
}

// streamArgs holds the optional input and output paths of a command. An empty
// path or "-" means stdin or stdout.
type streamArgs struct {
	input  string
	output string
}

func (sa *streamArgs) parse(args []string) {
	if len(args) > 0 {
		sa.input = args[0]
	}
	if len(args) > 1 {
		sa.output = args[1]
	}
}

func (sa *streamArgs) open(cmd *cobra.Command) (io.ReadCloser, error) {
	if sa.input == "" || sa.input == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	file, err := os.Open(sa.input)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %s", sa.input)
	}
	return file, nil
}

func (sa *streamArgs) create(cmd *cobra.Command) (io.WriteCloser, error) {
	if sa.output == "" || sa.output == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	file, err := os.Create(sa.output)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create %s", sa.output)
	}
	return file, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func defaultConcurrency() int {
	return runtime.GOMAXPROCS(0)
}
