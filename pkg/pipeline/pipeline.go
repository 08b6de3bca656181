// Package pipeline turns a binary silhouette into two printable solids: a
// cutting shell and a detail stamp.
//
// # Architecture
//
// The pipeline is a sequence with a parallel tail:
//
//  1. Contours: binarize and trace the image into nested polygons
//  2. Profiles: resolve scale and compose the named 2D strata
//  3. Build: extrude each artifact's strata and serialize STL
//
// Stages 1 and 2 run once; the cutter and stamp builds of stage 3 run as two
// goroutines over the same immutable profiles, and a failure in one artifact
// does not abort the other.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    ImagePath: "star.png",
//	    Config:    cfg,
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("star_cutter.stl", result.Cutter.STL, 0o644)
//
// Every stage is cached by content hash plus the options that shape it; see
// pkg/cache.
package pipeline

import (
	"time"

	"github.com/doughlab/cookieforge/pkg/config"
	"github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/geom"
)

// Artifact names.
const (
	ArtifactCutter = "cutter"
	ArtifactStamp  = "stamp"
)

// Cache TTLs per stage. Contours and profiles are cheap to keep around;
// solids are larger, so they expire sooner.
const (
	TTLContours = 30 * 24 * time.Hour
	TTLProfiles = 30 * 24 * time.Hour
	TTLSolid    = 7 * 24 * time.Hour
)

// Options selects the input and scope of one run.
type Options struct {
	// ImagePath is the silhouette image on disk.
	ImagePath string

	// DetailImagePath optionally supplies the stamp detail from a second
	// image instead of the silhouette's own interior. It must match the
	// silhouette's pixel dimensions.
	DetailImagePath string

	// Config is the fully resolved parameter set; it must validate.
	Config config.Config

	// Artifacts limits the run to a subset of {cutter, stamp}. Empty means
	// both.
	Artifacts []string

	// Refresh bypasses cache reads, forcing recomputation.
	Refresh bool
}

// Validate checks the options before any work happens.
func (o *Options) Validate() error {
	if o.ImagePath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "no input image given")
	}
	for _, a := range o.Artifacts {
		if a != ArtifactCutter && a != ArtifactStamp {
			return errors.New(errors.ErrCodeInvalidInput, "unknown artifact %q", a)
		}
	}
	return o.Config.Validate()
}

// wantArtifact reports whether the run includes name.
func (o *Options) wantArtifact(name string) bool {
	if len(o.Artifacts) == 0 {
		return true
	}
	for _, a := range o.Artifacts {
		if a == name {
			return true
		}
	}
	return false
}

// Contours is the traced 2D geometry in pixel units, before scaling. Both
// detail sources are extracted so the cached value is independent of the
// configured detail mode.
type Contours struct {
	// Outline is the cutting boundary: the largest foreground region with
	// its hole nesting preserved.
	Outline geom.Set `json:"outline"`

	// Silhouette is the full traced foreground.
	Silhouette geom.Set `json:"silhouette"`

	// Islands are the white regions enclosed by the silhouette.
	Islands geom.Set `json:"islands"`

	// Width and Height are the source bitmap dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetailSource returns the detail set for the given mode.
func (c *Contours) DetailSource(mode string) geom.Set {
	if mode == config.DetailSilhouette {
		return c.Silhouette
	}
	return c.Islands
}

// ProfileSet is the complete scaled 2D cross-section geometry, in
// millimeters, shared read-only by both artifact builders.
type ProfileSet struct {
	// Outline and Detail are the scaled, Y-flipped base polygons.
	Outline geom.Set `json:"outline"`
	Detail  geom.Set `json:"detail"`

	// CutterWall is the core wall ring.
	CutterWall geom.Set `json:"cutter_wall"`

	// CutterLip is the press lip ring; empty when lip_width is zero.
	CutterLip geom.Set `json:"cutter_lip"`

	// StampBase is the stamp footprint inset inside the cutter.
	StampBase geom.Set `json:"stamp_base"`

	// StampDetail is the raised region per detail mode.
	StampDetail geom.Set `json:"stamp_detail"`
}

// ArtifactResult is the outcome for one artifact; Err is set instead of STL
// when its build failed.
type ArtifactResult struct {
	Name     string
	STL      []byte
	Facets   int
	CacheHit bool
	Duration time.Duration
	Err      error
}

// Stats aggregates per-stage timings.
type Stats struct {
	ContourTime time.Duration
	ProfileTime time.Duration
	BuildTime   time.Duration
}

// CacheInfo reports which stages were served from cache.
type CacheInfo struct {
	ContourHit bool
	ProfileHit bool
}

// Result is the full outcome of a pipeline run.
type Result struct {
	// RunID tags logs and artifacts of this invocation.
	RunID string

	Contours *Contours
	Profiles *ProfileSet

	// Cutter and Stamp are nil when excluded by Options.Artifacts.
	Cutter *ArtifactResult
	Stamp  *ArtifactResult

	Stats     Stats
	CacheInfo CacheInfo
}

// Failed returns the first artifact error, if any.
func (r *Result) Failed() error {
	for _, a := range []*ArtifactResult{r.Cutter, r.Stamp} {
		if a != nil && a.Err != nil {
			return a.Err
		}
	}
	return nil
}
