// Package config holds every geometry and output parameter of a run. The
// pipeline core receives a fully resolved, validated Config value; flags and
// files are merged before the core runs and nothing inside it re-reads the
// environment.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/doughlab/cookieforge/pkg/errors"
)

// Detail mode selects what the raised stamp region means.
const (
	// DetailIslands raises the white regions enclosed by the silhouette,
	// intersected with the inset outline.
	DetailIslands = "islands"

	// DetailSilhouette raises the inset outline minus the silhouette detail.
	DetailSilhouette = "silhouette"
)

// Corner styles for polygon offsetting.
const (
	CornerRound = "round"
	CornerMiter = "miter"
)

// Config is the complete parameter set for one run. All lengths are
// millimeters unless noted.
type Config struct {
	Output  Output  `toml:"output"`
	Scale   Scale   `toml:"scale"`
	Contour Contour `toml:"contour"`
	Cutter  Cutter  `toml:"cutter"`
	Stamp   Stamp   `toml:"stamp"`
	Mesh    Mesh    `toml:"mesh"`
}

// Output controls where artifacts are written.
type Output struct {
	Dir      string `toml:"dir"`
	Basename string `toml:"basename"`
	SVG      bool   `toml:"svg"` // also write the layered profile SVG
}

// Scale resolves image units to millimeters.
type Scale struct {
	TargetMinMm float64 `toml:"target_min_mm"` // smallest print dimension
	UnitsToMm   float64 `toml:"units_to_mm"`   // native image unit size
}

// Contour controls binarization and tracing.
type Contour struct {
	Threshold uint8   `toml:"threshold"`
	Invert    bool    `toml:"invert"`
	Tolerance float64 `toml:"tolerance"` // simplification, px
	MinArea   float64 `toml:"min_area"`  // speck filter, px^2
}

// Cutter shapes the cutting shell.
type Cutter struct {
	Wall        float64 `toml:"wall"`         // core wall thickness
	InnerShrink float64 `toml:"inner_shrink"` // inward wall reach
	Height      float64 `toml:"height"`
	BevelBand   float64 `toml:"bevel_band"`  // taper zone below the edge
	BevelSteps  int     `toml:"bevel_steps"` // rings approximating the taper
	EdgeWidth   float64 `toml:"edge_width"`  // wall thickness at the edge
	LipWidth    float64 `toml:"lip_width"`   // press lip beyond the wall
	LipHeight   float64 `toml:"lip_height"`
}

// Stamp shapes the detail stamp.
type Stamp struct {
	Clearance     float64 `toml:"clearance"` // base inset inside the cutter
	BaseThickness float64 `toml:"base_thickness"`
	DetailRaise   float64 `toml:"detail_raise"`
	DetailMode    string  `toml:"detail_mode"`
	Handle        Handle  `toml:"handle"`
}

// Handle is the lathed grip attached under the stamp base.
type Handle struct {
	Enabled     bool    `toml:"enabled"`
	FlareRadius float64 `toml:"flare_radius"` // attachment flare at the base
	FlareHeight float64 `toml:"flare_height"`
	WaistRadius float64 `toml:"waist_radius"`
	WaistHeight float64 `toml:"waist_height"`
	CapRadius   float64 `toml:"cap_radius"` // grip cap flaring out again
	CapHeight   float64 `toml:"cap_height"`
	DomeDepth   float64 `toml:"dome_depth"` // rounded grip end
}

// Mesh controls solid tessellation.
type Mesh struct {
	SegmentsPerCircle int     `toml:"segments_per_circle"`
	CornerStyle       string  `toml:"corner_style"`
	MiterLimit        float64 `toml:"miter_limit"`
}

// Default returns the standard parameter set for a hand-sized cookie cutter.
func Default() Config {
	return Config{
		Output: Output{
			Dir:      ".",
			Basename: "cookie",
		},
		Scale: Scale{
			TargetMinMm: 90,
			UnitsToMm:   0.1,
		},
		Contour: Contour{
			Threshold: 180,
			Tolerance: 0.4,
			MinArea:   4,
		},
		Cutter: Cutter{
			Wall:        1.2,
			InnerShrink: 0.4,
			Height:      14,
			BevelBand:   4,
			BevelSteps:  6,
			EdgeWidth:   0.5,
			LipWidth:    2.4,
			LipHeight:   1.6,
		},
		Stamp: Stamp{
			Clearance:     0.3,
			BaseThickness: 3,
			DetailRaise:   1.6,
			DetailMode:    DetailIslands,
			Handle: Handle{
				Enabled:     true,
				FlareRadius: 9,
				FlareHeight: 2,
				WaistRadius: 5,
				WaistHeight: 12,
				CapRadius:   8,
				CapHeight:   3,
				DomeDepth:   2,
			},
		},
		Mesh: Mesh{
			SegmentsPerCircle: 64,
			CornerStyle:       CornerRound,
			MiterLimit:        2,
		},
	}
}

// Load reads a TOML file over the defaults. A missing path returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	return cfg, nil
}

// Validate checks every parameter once, before the core runs.
func (c Config) Validate() error {
	fail := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvalidConfig, format, args...)
	}

	if c.Scale.TargetMinMm <= 0 {
		return fail("scale.target_min_mm must be positive, got %.3f", c.Scale.TargetMinMm)
	}
	if c.Scale.UnitsToMm <= 0 {
		return fail("scale.units_to_mm must be positive, got %.3f", c.Scale.UnitsToMm)
	}
	if c.Contour.Tolerance < 0 || c.Contour.Tolerance > 0.5 {
		return fail("contour.tolerance must be within 0..0.5 px, got %.3f", c.Contour.Tolerance)
	}
	if c.Contour.MinArea < 0 {
		return fail("contour.min_area must not be negative, got %.3f", c.Contour.MinArea)
	}

	if c.Cutter.Wall <= 0 {
		return fail("cutter.wall must be positive, got %.3f", c.Cutter.Wall)
	}
	if c.Cutter.InnerShrink < 0 {
		return fail("cutter.inner_shrink must not be negative, got %.3f", c.Cutter.InnerShrink)
	}
	if c.Cutter.Height <= 0 {
		return fail("cutter.height must be positive, got %.3f", c.Cutter.Height)
	}
	if c.Cutter.BevelBand < 0 || c.Cutter.BevelBand >= c.Cutter.Height {
		return fail("cutter.bevel_band must be within 0..height, got %.3f", c.Cutter.BevelBand)
	}
	if c.Cutter.BevelBand > 0 && c.Cutter.BevelSteps < 1 {
		return fail("cutter.bevel_steps must be at least 1, got %d", c.Cutter.BevelSteps)
	}
	if c.Cutter.EdgeWidth <= 0 || c.Cutter.EdgeWidth > c.Cutter.Wall {
		return fail("cutter.edge_width must be within 0..wall, got %.3f", c.Cutter.EdgeWidth)
	}
	if c.Cutter.LipWidth < 0 {
		return fail("cutter.lip_width must not be negative, got %.3f", c.Cutter.LipWidth)
	}
	if c.Cutter.LipWidth > 0 && (c.Cutter.LipHeight <= 0 || c.Cutter.LipHeight >= c.Cutter.Height) {
		return fail("cutter.lip_height must be within 0..height, got %.3f", c.Cutter.LipHeight)
	}

	if c.Stamp.Clearance < 0 {
		return fail("stamp.clearance must not be negative, got %.3f", c.Stamp.Clearance)
	}
	if c.Stamp.BaseThickness <= 0 {
		return fail("stamp.base_thickness must be positive, got %.3f", c.Stamp.BaseThickness)
	}
	if c.Stamp.DetailRaise <= 0 {
		return fail("stamp.detail_raise must be positive, got %.3f", c.Stamp.DetailRaise)
	}
	if c.Stamp.DetailMode != DetailIslands && c.Stamp.DetailMode != DetailSilhouette {
		return fail("stamp.detail_mode must be %q or %q, got %q", DetailIslands, DetailSilhouette, c.Stamp.DetailMode)
	}
	if h := c.Stamp.Handle; h.Enabled {
		if h.FlareRadius <= 0 || h.WaistRadius <= 0 || h.CapRadius <= 0 {
			return fail("handle radii must be positive")
		}
		if h.FlareHeight <= 0 || h.WaistHeight <= 0 || h.CapHeight <= 0 || h.DomeDepth <= 0 {
			return fail("handle heights must be positive")
		}
	}

	if c.Mesh.SegmentsPerCircle < 8 {
		return fail("mesh.segments_per_circle must be at least 8, got %d", c.Mesh.SegmentsPerCircle)
	}
	if c.Mesh.CornerStyle != CornerRound && c.Mesh.CornerStyle != CornerMiter {
		return fail("mesh.corner_style must be %q or %q, got %q", CornerRound, CornerMiter, c.Mesh.CornerStyle)
	}
	if c.Mesh.CornerStyle == CornerMiter && c.Mesh.MiterLimit < 1 {
		return fail("mesh.miter_limit must be at least 1, got %.3f", c.Mesh.MiterLimit)
	}
	if c.Output.Basename == "" {
		return fail("output.basename must not be empty")
	}
	return nil
}
