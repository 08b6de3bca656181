// Package cli implements the cookieforge command-line interface.
//
// This package provides commands for forging cutter and stamp solids from
// silhouette images, tracing intermediate 2D profiles, serving the pipeline
// over HTTP, and managing the artifact cache. The CLI is built using cobra
// and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - forge: Build printable STL artifacts from a silhouette image
//   - trace: Render the composed 2D profiles to SVG for inspection
//   - serve: Expose the pipeline over HTTP
//   - cache: Manage the artifact cache
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/doughlab/cookieforge/pkg/buildinfo"
	"github.com/doughlab/cookieforge/pkg/cache"
	"github.com/doughlab/cookieforge/pkg/config"
	"github.com/doughlab/cookieforge/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "cookieforge"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
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
		Use:          appName,
		Short:        "Cookieforge turns silhouettes into printable cutter and stamp solids",
		Long:         `Cookieforge converts a binary silhouette image into a pair of 3D-printable solids: a cutter shell that cuts the outline, and a stamp that presses the interior detail.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.forgeCommand())
	root.AddCommand(c.traceCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	store, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/cookieforge/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// loadConfig resolves the effective config: defaults, then the TOML file if
// given (or the conventional cookieforge.toml when present), then flag
// overrides applied by the caller.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		if _, err := os.Stat("cookieforge.toml"); err == nil {
			path = "cookieforge.toml"
		}
	}
	return config.Load(path)
}

// parseArtifacts parses a comma-separated artifact list. Empty means both.
func parseArtifacts(s string) []string {
	if s == "" || s == "all" {
		return nil
	}
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
