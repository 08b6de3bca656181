package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doughlab/cookieforge/pkg/pipeline"
	"github.com/doughlab/cookieforge/pkg/sink"
)

// traceCommand creates the trace command for inspecting 2D profiles.
func (c *CLI) traceCommand() *cobra.Command {
	var (
		configPath string
		output     string
		formatsStr string
		noCache    bool
		refresh    bool
	)

	cmd := &cobra.Command{
		Use:   "trace [image]",
		Short: "Render the composed 2D profiles as a layered SVG",
		Long: `Render the composed 2D profiles as a layered SVG.

The trace command runs only the 2D stages: binarize, contour tracing,
scaling, and profile composition. The SVG output shows the cutter wall,
the press lip, the stamp base and the raised detail as Inkscape layers in
true millimeter units, so clearances can be checked before printing. The
JSON output carries the same rings plus bounding-box metadata for
downstream tooling.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := parseTraceFormats(formatsStr)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			runner, err := c.newRunner(noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Cache.Close()

			step := newProgress(c.Logger)
			result, err := runner.Trace(cmd.Context(), pipeline.Options{
				ImagePath: args[0],
				Config:    cfg,
				Refresh:   refresh,
			})
			if err != nil {
				return err
			}
			step.done("Composed profiles")

			base := output
			if base == "" {
				base = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + "_profiles"
			}
			layers := pipeline.TraceLayers(result.Profiles)
			printSuccess("Traced %s", filepath.Base(args[0]))
			for _, format := range formats {
				path := base + "." + format
				write := sink.WriteSVGFile
				if format == "json" {
					write = sink.WriteJSONFile
				}
				if err := write(path, layers); err != nil {
					return err
				}
				printFile(path)
			}
			printDetail("outline %d poly(s), detail %d poly(s)",
				len(result.Profiles.Outline), len(result.Profiles.StampDetail))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default cookieforge.toml if present)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path, extension added per format (default <image>_profiles)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "svg", "output format(s): svg, json (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute all stages, ignoring the cache")

	return cmd
}

// parseTraceFormats validates the comma-separated format list.
func parseTraceFormats(s string) ([]string, error) {
	var out []string
	for _, f := range strings.Split(s, ",") {
		switch f = strings.TrimSpace(f); f {
		case "":
		case "svg", "json":
			out = append(out, f)
		default:
			return nil, fmt.Errorf("unknown trace format %q (want svg or json)", f)
		}
	}
	if len(out) == 0 {
		out = []string{"svg"}
	}
	return out, nil
}
