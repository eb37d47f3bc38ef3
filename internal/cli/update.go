package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/parse"
	"github.com/matzehuels/repotrack/pkg/pipeline"
)

// updateFlags holds flags for the update command.
type updateFlags struct {
	jobs        int
	interactive bool
	dumpDir     string
}

// updateCommand creates the update command for running configured sources.
func (c *CLI) updateCommand() *cobra.Command {
	var flags updateFlags

	cmd := &cobra.Command{
		Use:   "update [NAME...]",
		Short: "Fetch and parse configured sources",
		Long: `Update runs a full ingestion cycle for each named source, or for every
source in the sources file when no names are given. Sources run concurrently;
a failing source is reported and does not stop the others.`,
		Example: `  repotrack update
  repotrack update freebsd fedora_39 --jobs 2
  repotrack update --interactive
  repotrack update --dump ./records`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("jobs") {
				flags.jobs = -1
			}
			return c.runUpdate(cmd.Context(), flags, args)
		},
		ValidArgsFunction: c.completeSourceNames,
	}

	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 0, "sources to run at once (default from sources file, 0 = no limit)")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "choose sources interactively")
	cmd.Flags().StringVar(&flags.dumpDir, "dump", "", "write each source's records to DIR/<name>.yaml")

	return cmd
}

// runUpdate runs the selected sources. A negative flags.jobs means the
// sources file decides.
func (c *CLI) runUpdate(ctx context.Context, flags updateFlags, names []string) error {
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	if flags.interactive {
		if names, err = pickSources(cfg.Sources); err != nil {
			return err
		}
		if len(names) == 0 {
			printDetail("No sources selected")
			return nil
		}
		printNewline()
	}

	sources, buildErr := cfg.BuildSources(names...)
	for _, err := range unjoin(buildErr) {
		printWarning("%s", apperrors.UserMessage(err))
	}
	if len(sources) == 0 {
		if buildErr != nil {
			return buildErr
		}
		printDetail("No sources configured")
		return nil
	}

	jobs := cfg.Jobs
	if flags.jobs >= 0 {
		jobs = flags.jobs
	}

	ctx, cancel := withTimeout(ctx, cfg.Timeout)
	defer cancel()

	runner := pipeline.NewRunner(cfg.Client(), logger)
	runner.Policy = cfg.Policy()

	sinks, err := newDumpSinks(flags.dumpDir)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	spinner := newSpinner(ctx, fmt.Sprintf("Updating %d sources...", len(sources)))
	spinner.Start()
	var started atomic.Int32
	results := runner.RunAll(ctx, sources, jobs, func(src pipeline.Source) parse.Sink {
		spinner.SetMessage("Updating %s (%d/%d)...", src.Name, started.Add(1), len(sources))
		return sinks.open(src)
	})
	spinner.Stop()
	dumpErr := sinks.close()

	failed := printResults(results)
	prog.done(fmt.Sprintf("Updated %d of %d sources, %s", len(results)-failed, len(results), &c.requests))

	if err := ctx.Err(); err != nil {
		return err
	}
	if dumpErr != nil {
		return dumpErr
	}
	if failed > 0 || buildErr != nil {
		return fmt.Errorf("%d of %d sources failed", failed+len(unjoin(buildErr)), len(results)+len(unjoin(buildErr)))
	}
	return nil
}

// printResults prints one block per source and returns the failure count.
func printResults(results []pipeline.Result) int {
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			printError("%s", StyleHighlight.Render(res.Source))
			printDetail("%s", apperrors.UserMessage(res.Err))
			continue
		}
		printSuccess("%s", StyleHighlight.Render(res.Source))
		printStats(res.Records, res.FetchTime, res.ParseTime, res.Updated)
	}
	return failed
}

// unjoin splits an errors.Join result into its parts.
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// =============================================================================
// Record dumps
// =============================================================================

// dumpSinks hands out one YAML dumping sink per source. With an empty dir
// every source gets a validating null sink.
type dumpSinks struct {
	dir string

	mu    sync.Mutex
	files []*os.File
	dumps []*parse.Dumper
	errs  []error
}

func newDumpSinks(dir string) (*dumpSinks, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "create dump directory")
		}
	}
	return &dumpSinks{dir: dir}, nil
}

// open is safe for concurrent use.
func (d *dumpSinks) open(src pipeline.Source) parse.Sink {
	if d.dir == "" {
		return parse.NullSink{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.Create(filepath.Join(d.dir, src.Name+".yaml"))
	if err != nil {
		d.errs = append(d.errs, apperrors.Wrap(apperrors.ErrCodeStorage, err, "dump %s", src.Name))
		return parse.NullSink{}
	}
	dump := parse.NewDumper(f)
	d.files = append(d.files, f)
	d.dumps = append(d.dumps, dump)
	return dump
}

func (d *dumpSinks) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	errs := d.errs
	for i, f := range d.files {
		errs = append(errs, d.dumps[i].Close(), f.Close())
	}
	return errors.Join(errs...)
}

// completeSourceNames completes source names from the sources file.
func (c *CLI) completeSourceNames(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		names = append(names, s.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
