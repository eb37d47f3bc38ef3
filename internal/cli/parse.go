package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/repotrack/pkg/parse"
	"github.com/matzehuels/repotrack/pkg/parse/parsers"
)

// parseFlags holds flags for the parse command.
type parseFlags struct {
	parser      string
	options     string
	optionsFile string
	print       bool
}

// parseCommand creates the parse command for running a parser over a local payload.
func (c *CLI) parseCommand() *cobra.Command {
	var flags parseFlags

	cmd := &cobra.Command{
		Use:   "parse PATH",
		Short: "Parse a payload file or directory into package records",
		Long: `Parse runs one parser over a payload on disk and reports how many records it
produced. Records are validated but not stored; use --print to dump them as YAML.

PATH is usually the state entry of a committed source, for example
~/.cache/repotrack/freebsd/state.`,
		Example: `  repotrack parse --parser FreeBsdParser ./INDEX-14
  repotrack parse --parser RepodataParser --options 'allow_src: false' ./primary.xml
  repotrack parse --parser TinCanParser --print ~/.cache/repotrack/tincan/state`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runParse(cmd.Context(), cmd.OutOrStdout(), flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.parser, "parser", "p", "", "parser name ("+strings.Join(parsers.Names(), ", ")+")")
	cmd.Flags().StringVar(&flags.options, "options", "", "parser options as a YAML document")
	cmd.Flags().StringVar(&flags.optionsFile, "options-file", "", "read parser options from a YAML file")
	cmd.Flags().BoolVar(&flags.print, "print", false, "print records as YAML documents")
	_ = cmd.MarkFlagRequired("parser")
	cmd.MarkFlagsMutuallyExclusive("options", "options-file")
	_ = cmd.RegisterFlagCompletionFunc("parser", fixedCompletion(parsers.Names()))

	return cmd
}

func (c *CLI) runParse(ctx context.Context, w io.Writer, flags parseFlags, path string) error {
	logger := loggerFromContext(ctx)

	opts, err := readOptions(flags.options, flags.optionsFile)
	if err != nil {
		return err
	}
	p, err := parsers.Create(flags.parser, opts)
	if err != nil {
		return err
	}

	sink, closeSink := newRecordSink(w, flags.print)
	counter := parse.NewCounter(sink)

	prog := newProgress(logger)
	err = p.Parse(path, counter)
	if cerr := closeSink(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	prog.done(fmt.Sprintf("Parsed %d records", counter.Count))
	return nil
}

// newRecordSink returns a YAML dumping sink when dump is set and a
// validating null sink otherwise. The returned func flushes the sink.
func newRecordSink(w io.Writer, dump bool) (parse.Sink, func() error) {
	if !dump {
		return parse.NullSink{}, func() error { return nil }
	}
	d := parse.NewDumper(w)
	return d, d.Close
}
