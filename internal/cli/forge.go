package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/doughlab/cookieforge/pkg/pipeline"
	"github.com/doughlab/cookieforge/pkg/sink"
)

// forgeFlags are the forge command's overrides on top of the config file.
type forgeFlags struct {
	configPath  string
	output      string
	basename    string
	detailImage string
	artifacts   string
	size        float64
	detailMode  string
	handle      bool
	invert      bool
	svg         bool
	refresh     bool
	noCache     bool
	interactive bool
}

// forgeCommand creates the forge command, the main entry point.
func (c *CLI) forgeCommand() *cobra.Command {
	var flags forgeFlags

	cmd := &cobra.Command{
		Use:   "forge [image]",
		Short: "Build printable cutter and stamp solids from a silhouette image",
		Long: `Build printable cutter and stamp solids from a silhouette image.

The image is binarized, its outline traced, and two solids are derived:
a cutter shell whose wall follows the outline, and a stamp that presses
the interior detail into the dough. Both are written as binary STL.

Parameters come from cookieforge.toml (or --config) with flag overrides.
Results are cached locally, so reruns with unchanged inputs are instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runForge(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "config file (default cookieforge.toml if present)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output directory (default from config)")
	cmd.Flags().StringVar(&flags.basename, "basename", "", "artifact file basename (default from config)")
	cmd.Flags().StringVarP(&flags.artifacts, "artifact", "a", "", "artifact(s) to build: cutter, stamp (comma-separated, default both)")
	cmd.Flags().StringVar(&flags.detailImage, "detail-image", "", "separate image supplying the stamp detail (same dimensions)")
	cmd.Flags().Float64Var(&flags.size, "size", 0, "target size of the larger print dimension, mm")
	cmd.Flags().StringVar(&flags.detailMode, "detail-mode", "", "raised detail source: islands, silhouette")
	cmd.Flags().BoolVar(&flags.handle, "handle", true, "attach the lathed grip to the stamp")
	cmd.Flags().BoolVar(&flags.invert, "invert", false, "treat light pixels as foreground")
	cmd.Flags().BoolVar(&flags.svg, "svg", false, "also write the layered profile SVG")
	cmd.Flags().BoolVar(&flags.refresh, "refresh", false, "recompute all stages, ignoring the cache")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "pick artifacts interactively")

	return cmd
}

// runForge executes the pipeline and writes the resulting artifacts.
func (c *CLI) runForge(cmd *cobra.Command, image string, flags forgeFlags) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("size") {
		cfg.Scale.TargetMinMm = flags.size
	}
	if cmd.Flags().Changed("detail-mode") {
		cfg.Stamp.DetailMode = flags.detailMode
	}
	if cmd.Flags().Changed("handle") {
		cfg.Stamp.Handle.Enabled = flags.handle
	}
	if cmd.Flags().Changed("invert") {
		cfg.Contour.Invert = flags.invert
	}
	if cmd.Flags().Changed("svg") {
		cfg.Output.SVG = flags.svg
	}
	if flags.output != "" {
		cfg.Output.Dir = flags.output
	}
	if flags.basename != "" {
		cfg.Output.Basename = flags.basename
	}

	artifacts := parseArtifacts(flags.artifacts)
	if flags.interactive {
		artifacts, err = pickArtifacts()
		if err != nil {
			return err
		}
		if len(artifacts) == 0 {
			printInfo("Nothing selected")
			return nil
		}
	}

	runner, err := c.newRunner(flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Cache.Close()

	spinner := newSpinner(ctx, fmt.Sprintf("Forging %s...", filepath.Base(image)))
	spinner.Start()

	result, err := runner.Execute(ctx, pipeline.Options{
		ImagePath:       image,
		DetailImagePath: flags.detailImage,
		Config:          cfg,
		Artifacts:       artifacts,
		Refresh:         flags.refresh,
	})
	if err != nil {
		spinner.StopWithError("Forge failed")
		return err
	}
	spinner.Stop()

	return c.writeForgeOutput(result, image, cfg.Output.Dir, cfg.Output.Basename, cfg.Output.SVG)
}

// writeForgeOutput persists artifacts and prints the run summary.
func (c *CLI) writeForgeOutput(result *pipeline.Result, image, dir, basename string, withSVG bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	failed := 0
	for _, a := range []*pipeline.ArtifactResult{result.Cutter, result.Stamp} {
		if a == nil {
			continue
		}
		if a.Err != nil {
			printError("%s failed: %v", a.Name, a.Err)
			failed++
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.stl", basename, a.Name))
		if err := os.WriteFile(path, a.STL, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printSuccess("Forged %s", a.Name)
		printFile(path)
		printArtifactStats(a.Facets, a.CacheHit, a.Duration.Round(time.Millisecond).String())
	}

	if withSVG {
		path := filepath.Join(dir, basename+"_profiles.svg")
		if err := sink.WriteSVGFile(path, pipeline.TraceLayers(result.Profiles)); err != nil {
			printWarning("profile SVG skipped: %v", err)
		} else {
			printFile(path)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d artifact(s) failed", failed)
	}
	printNewline()
	printNextStep("Inspect the profiles", appName+" trace "+image)
	return nil
}
