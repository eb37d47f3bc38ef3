package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/transact"
)

// stateCommand creates the state command for inspecting committed paths.
func (c *CLI) stateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and tidy committed source state",
		Long: `Each source keeps its last committed payload under the state directory.
A committed path is a link to one generation directory; interrupted runs can
leave other generations behind, which cleanup removes.`,
	}

	cmd.AddCommand(c.statePathCommand())
	cmd.AddCommand(c.stateCleanupCommand())

	return cmd
}

// statePathCommand prints the committed generation of a source.
func (c *CLI) statePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "path NAME",
		Short:             "Print the committed generation directory of a source",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeSourceNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatePath(cmd.OutOrStdout(), args[0])
		},
	}
}

func (c *CLI) runStatePath(w io.Writer, name string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	s, ok := cfg.Find(name)
	if !ok {
		return apperrors.New(apperrors.ErrCodeInvalidSource, "unknown source %q", name)
	}
	gen, ok := transact.New(cfg.Dir(s)).Current()
	if !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, "source %s has nothing committed", name)
	}
	_, err = fmt.Fprintln(w, gen)
	return err
}

// stateCleanupCommand removes abandoned generations.
func (c *CLI) stateCleanupCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "cleanup [NAME...]",
		Short: "Remove generations left behind by interrupted runs",
		Example: `  repotrack state cleanup
  repotrack state cleanup freebsd
  repotrack state cleanup --state ./freebsd`,
		ValidArgsFunction: c.completeSourceNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir != "" {
				return cleanupPath(dir, dir)
			}
			return c.runStateCleanup(args)
		},
	}
	cmd.Flags().StringVarP(&dir, "state", "s", "", "clean a committed path directly instead of configured sources")

	return cmd
}

func (c *CLI) runStateCleanup(names []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		for _, s := range cfg.Sources {
			names = append(names, s.Name)
		}
	}

	var failed int
	for _, name := range names {
		s, ok := cfg.Find(name)
		if !ok {
			printWarning("unknown source %q", name)
			failed++
			continue
		}
		if err := cleanupPath(name, cfg.Dir(s)); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("cleanup failed for %d of %d sources", failed, len(names))
	}
	return nil
}

func cleanupPath(label, dir string) error {
	if err := transact.New(dir).Cleanup(); err != nil {
		printError("%s: %v", label, err)
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "cleanup %s", label)
	}
	printSuccess("%s", StyleHighlight.Render(label))
	return nil
}
