package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/repotrack/pkg/fetch"
	"github.com/matzehuels/repotrack/pkg/fetch/fetchers"
	"github.com/matzehuels/repotrack/pkg/parse/parsers"
	"github.com/matzehuels/repotrack/pkg/pipeline"
)

// fetchFlags holds flags shared by fetch and fetch-parse.
type fetchFlags struct {
	fetcher     string
	options     string
	optionsFile string
	state       string
	timeout     time.Duration
	delay       time.Duration
}

func (f *fetchFlags) register(cmd *cobra.Command, optionsFlag string) {
	cmd.Flags().StringVarP(&f.fetcher, "fetcher", "f", "", "fetcher name ("+strings.Join(fetchers.Names(), ", ")+")")
	cmd.Flags().StringVar(&f.options, optionsFlag, "", "fetcher options as a YAML document")
	cmd.Flags().StringVar(&f.optionsFile, optionsFlag+"-file", "", "read fetcher options from a YAML file")
	cmd.Flags().StringVarP(&f.state, "state", "s", "", "committed path of the source")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "abort after this long (0 = no limit)")
	cmd.Flags().DurationVar(&f.delay, "politeness-delay", defaultPolitenessDelay, "pause between requests to one host")
	_ = cmd.MarkFlagRequired("fetcher")
	_ = cmd.MarkFlagRequired("state")
	cmd.MarkFlagsMutuallyExclusive(optionsFlag, optionsFlag+"-file")
	_ = cmd.RegisterFlagCompletionFunc("fetcher", fixedCompletion(fetchers.Names()))
}

// source builds an unnamed pipeline source from the flags; the name is the
// base of the state path.
func (f *fetchFlags) source() (pipeline.Source, error) {
	opts, err := readOptions(f.options, f.optionsFile)
	if err != nil {
		return pipeline.Source{}, err
	}
	fetcher, err := fetchers.Create(f.fetcher, opts)
	if err != nil {
		return pipeline.Source{}, err
	}
	return pipeline.Source{
		Name:    filepath.Base(filepath.Clean(f.state)),
		Fetcher: fetcher,
		Dir:     f.state,
	}, nil
}

// fetchCommand creates the fetch command for refreshing one state path.
func (c *CLI) fetchCommand() *cobra.Command {
	var flags fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a payload and commit it to a state path",
		Long: `Fetch runs one fetcher against the given state path. New upstream data is
staged next to the path and committed atomically; unchanged data leaves the
committed generation in place.`,
		Example: `  repotrack fetch --fetcher FileFetcher --options 'url: https://example.org/INDEX-14.bz2' --state ./freebsd
  repotrack fetch --fetcher RepodataFetcher --options-file fedora.yaml --state ./fedora`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFetch(cmd.Context(), flags)
		},
	}
	flags.register(cmd, "options")

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, flags fetchFlags) error {
	src, err := flags.source()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, flags.timeout)
	defer cancel()

	runner := pipeline.NewRunner(newClient(flags.delay), loggerFromContext(ctx))

	spinner := newSpinner(ctx, fmt.Sprintf("Fetching %s...", src.Name))
	spinner.Start()
	out, err := runner.Fetch(ctx, src, nil)
	if err != nil {
		spinner.StopWithError("Fetch failed")
		return err
	}
	if !out.Updated() {
		spinner.Stop()
		printInfo("Upstream unchanged, keeping %s", StyleHighlight.Render(flags.state))
		return nil
	}

	size, err := dirSize(out.Staging.Path())
	if err != nil {
		spinner.Stop()
		_ = out.Staging.Discard()
		return fmt.Errorf("measure staged payload: %w", err)
	}
	if err := runner.Commit(ctx, src, out.Staging); err != nil {
		spinner.StopWithError("Commit failed")
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Fetched %s (%s)", src.Name, humanize.Bytes(size)))
	printFile(fetch.StatePath(flags.state))
	printNextStep("Parse it", fmt.Sprintf("%s parse --parser NAME %s", appName, fetch.StatePath(flags.state)))
	return nil
}

// fetchParseFlags holds flags for the fetch-parse command.
type fetchParseFlags struct {
	fetchFlags
	parser            string
	parserOptions     string
	parserOptionsFile string
	print             bool
}

// fetchParseCommand creates the fetch-parse command, which commits a new
// payload only when it parses cleanly.
func (c *CLI) fetchParseCommand() *cobra.Command {
	var flags fetchParseFlags

	cmd := &cobra.Command{
		Use:   "fetch-parse",
		Short: "Fetch a payload, parse it, and commit it only if parsing succeeds",
		Long: `Fetch-parse runs a full ingestion cycle for one state path. A newly fetched
payload is parsed while still staged and discarded if the parser rejects it,
so the committed generation is always one that parsed cleanly.`,
		Example: `  repotrack fetch-parse -f FileFetcher --fetcher-options 'url: https://example.org/INDEX-14.bz2' \
      -p FreeBsdParser --state ./freebsd`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFetchParse(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}
	flags.register(cmd, "fetcher-options")
	cmd.Flags().StringVarP(&flags.parser, "parser", "p", "", "parser name ("+strings.Join(parsers.Names(), ", ")+")")
	cmd.Flags().StringVar(&flags.parserOptions, "parser-options", "", "parser options as a YAML document")
	cmd.Flags().StringVar(&flags.parserOptionsFile, "parser-options-file", "", "read parser options from a YAML file")
	cmd.Flags().BoolVar(&flags.print, "print", false, "print records as YAML documents")
	_ = cmd.MarkFlagRequired("parser")
	cmd.MarkFlagsMutuallyExclusive("parser-options", "parser-options-file")
	_ = cmd.RegisterFlagCompletionFunc("parser", fixedCompletion(parsers.Names()))

	return cmd
}

func (c *CLI) runFetchParse(ctx context.Context, w io.Writer, flags fetchParseFlags) error {
	src, err := flags.source()
	if err != nil {
		return err
	}
	opts, err := readOptions(flags.parserOptions, flags.parserOptionsFile)
	if err != nil {
		return err
	}
	if src.Parser, err = parsers.Create(flags.parser, opts); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, flags.timeout)
	defer cancel()

	runner := pipeline.NewRunner(newClient(flags.delay), loggerFromContext(ctx))
	runner.Policy = pipeline.CommitAfterParse

	sink, closeSink := newRecordSink(w, flags.print)
	res, err := runner.Run(ctx, src, sink)
	if cerr := closeSink(); err == nil {
		err = cerr
	}
	if err != nil {
		printError("%s failed", src.Name)
		return err
	}
	printSuccess("%s", StyleHighlight.Render(src.Name))
	printStats(res.Records, res.FetchTime, res.ParseTime, res.Updated)
	return nil
}

// withTimeout bounds ctx by d unless d is zero.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// dirSize returns the total size of the regular files under root. root may
// itself be a file.
func dirSize(root string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	return total, err
}
