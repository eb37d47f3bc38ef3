// Package cli implements the repotrack command-line interface.
package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/repotrack/pkg/buildinfo"
	"github.com/matzehuels/repotrack/pkg/config"
	"github.com/matzehuels/repotrack/pkg/httputil"
	"github.com/matzehuels/repotrack/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "repotrack"

	// configFileName is the sources file looked up in the config directory.
	configFileName = "sources.yaml"

	// defaultPolitenessDelay spaces requests to one host for ad hoc fetches.
	defaultPolitenessDelay = time.Second
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configFile string
	requests   requestCounter
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Repotrack fetches package repository indexes and normalizes their records",
		Long: `Repotrack downloads the package indexes of software repositories, keeps the
last good copy of each one on disk, and turns them into normalized package records.

Ad hoc runs use fetch, parse and fetch-parse. Configured sources are listed in a
sources file and updated together with update.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			hooks := &logHooks{logger: c.Logger}
			observability.SetPipelineHooks(hooks)
			observability.SetHTTPHooks(observability.TeeHTTP(hooks, &c.requests))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configFile, "config", "",
		fmt.Sprintf("sources file (default $%s or ~/.config/%s/%s)", config.EnvVar, appName, configFileName))

	root.AddCommand(c.parseCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.fetchParseCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.sourcesCommand())
	root.AddCommand(c.stateCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// configPath returns the sources file to load: the --config flag, then
// REPOTRACK_CONFIG, then the XDG config directory.
func (c *CLI) configPath() (string, error) {
	if c.configFile != "" {
		return c.configFile, nil
	}
	if path := os.Getenv(config.EnvVar); path != "" {
		return path, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// loadConfig loads the sources file and fills in the default user agent.
func (c *CLI) loadConfig() (*config.Config, error) {
	path, err := c.configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = buildinfo.UserAgent()
	}
	return cfg, nil
}

// =============================================================================
// Paths
// =============================================================================

// configDir returns the config directory using XDG standard (~/.config/repotrack/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// =============================================================================
// HTTP
// =============================================================================

// newClient returns the client used by ad hoc fetch commands.
func newClient(delay time.Duration) *http.Client {
	return &http.Client{
		Transport: &httputil.UserAgentTransport{
			Base:      httputil.NewPoliteTransport(nil, delay),
			UserAgent: buildinfo.UserAgent(),
		},
	}
}

// =============================================================================
// Options Helpers
// =============================================================================

// readOptions returns the options document given inline or in a file.
// Cobra rejects setting both.
func readOptions(inline, file string) ([]byte, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read options: %w", err)
		}
		return data, nil
	}
	if inline != "" {
		return []byte(inline), nil
	}
	return nil, nil
}

// fixedCompletion completes a flag from a fixed list of values.
func fixedCompletion(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}
