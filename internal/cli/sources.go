package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/repotrack/pkg/config"
	"github.com/matzehuels/repotrack/pkg/fetch"
	"github.com/matzehuels/repotrack/pkg/transact"
)

// sourcesCommand creates the sources command listing configured sources.
func (c *CLI) sourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured sources and their committed state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			renderSources(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

// sourceRow describes one source for the sources table.
type sourceRow struct {
	name, fetcher, parser string
	committed             bool
	updated, size         string
}

func describeSource(cfg *config.Config, s config.Source) sourceRow {
	row := sourceRow{name: s.Name, fetcher: s.Fetcher, parser: s.Parser, updated: "never", size: "—"}
	gen, ok := transact.New(cfg.Dir(s)).Current()
	if !ok {
		return row
	}
	row.committed = true
	if fi, err := os.Stat(fetch.StatePath(gen)); err == nil {
		row.updated = humanize.Time(fi.ModTime())
	}
	if n, err := dirSize(gen); err == nil {
		row.size = humanize.Bytes(n)
	}
	return row
}

func renderSources(w io.Writer, cfg *config.Config) {
	if len(cfg.Sources) == 0 {
		fmt.Fprintln(w, StyleDim.Render("No sources configured"))
		return
	}

	described := make([]sourceRow, len(cfg.Sources))
	rows := make([][]string, len(cfg.Sources))
	for i, s := range cfg.Sources {
		d := describeSource(cfg, s)
		described[i] = d
		rows[i] = []string{d.name, d.fetcher, d.parser, d.updated, d.size}
	}


	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("Source", "Fetcher", "Parser", "Updated", "Size").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if !described[row].committed {
				return base.Foreground(colorDim)
			}
			if col == 0 {
				return base.Foreground(colorGreen)
			}
			return base
		})

	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, StyleDim.Render(fmt.Sprintf("  state dir: %s", cfg.StateDir)))
}
