package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/doughlab/cookieforge/pkg/cache"
	"github.com/doughlab/cookieforge/pkg/mesh"
	"github.com/doughlab/cookieforge/pkg/raster"
	"github.com/doughlab/cookieforge/pkg/sink"
)

// Runner executes the pipeline with per-stage caching. It is stateless apart
// from the cache and logger; one Runner serves concurrent runs.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// selects the default keyer.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs binarize → contours → profiles, then builds the requested
// artifacts concurrently. Geometry-stage errors abort the run; artifact
// build errors land in the artifact's result and leave the other artifact
// alone.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	result, err := r.Trace(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger := r.Logger.With("run", result.RunID[:8])

	profileHash := hashJSON(result.Profiles)

	buildStart := time.Now()
	var wg sync.WaitGroup
	if opts.wantArtifact(ArtifactCutter) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.Cutter = r.buildArtifact(ctx, ArtifactCutter, result.Profiles, profileHash, opts)
		}()
	}
	if opts.wantArtifact(ArtifactStamp) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.Stamp = r.buildArtifact(ctx, ArtifactStamp, result.Profiles, profileHash, opts)
		}()
	}
	wg.Wait()
	result.Stats.BuildTime = time.Since(buildStart)

	for _, a := range []*ArtifactResult{result.Cutter, result.Stamp} {
		if a == nil {
			continue
		}
		if a.Err != nil {
			logger.Error("artifact failed", "artifact", a.Name, "err", a.Err)
			continue
		}
		logger.Info("built artifact",
			"artifact", a.Name,
			"facets", a.Facets,
			"cached", a.CacheHit,
			"duration", a.Duration)
	}
	return result, nil
}

// Trace runs only the 2D stages: binarize, contour extraction, scale
// resolution and profile composition. Execute builds on it.
func (r *Runner) Trace(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString()}
	logger := r.Logger.With("run", result.RunID[:8])

	binOpts := raster.BinarizeOptions{
		Threshold: opts.Config.Contour.Threshold,
		Invert:    opts.Config.Contour.Invert,
	}
	bm, err := raster.BinarizeFile(opts.ImagePath, binOpts)
	if err != nil {
		return nil, err
	}
	bitmapHash := cache.Hash(bm.Bytes())

	var detailBm *raster.Bitmap
	if opts.DetailImagePath != "" {
		detailBm, err = raster.BinarizeFile(opts.DetailImagePath, binOpts)
		if err != nil {
			return nil, err
		}
		bitmapHash = cache.Hash(append(bm.Bytes(), detailBm.Bytes()...))
	}

	contourStart := time.Now()
	contours, contourHit, err := r.ContoursWithCacheInfo(ctx, bm, detailBm, bitmapHash, opts)
	if err != nil {
		return nil, err
	}
	result.Contours = contours
	result.CacheInfo.ContourHit = contourHit
	result.Stats.ContourTime = time.Since(contourStart)
	logger.Info("traced contours",
		"outline_holes", len(contours.Outline[0].Holes),
		"islands", len(contours.Islands),
		"cached", contourHit,
		"duration", result.Stats.ContourTime)

	profileStart := time.Now()
	profiles, profileHit, err := r.ProfilesWithCacheInfo(ctx, contours, opts)
	if err != nil {
		return nil, err
	}
	result.Profiles = profiles
	result.CacheInfo.ProfileHit = profileHit
	result.Stats.ProfileTime = time.Since(profileStart)
	logger.Info("composed profiles",
		"wall_polys", len(profiles.CutterWall),
		"detail_polys", len(profiles.StampDetail),
		"cached", profileHit,
		"duration", result.Stats.ProfileTime)

	return result, nil
}

// ContoursWithCacheInfo extracts contours, serving identical bitmaps from
// cache, and reports whether it hit. A separate detail bitmap overrides both
// detail sources and participates in bitmapHash.
func (r *Runner) ContoursWithCacheInfo(ctx context.Context, bm, detailBm *raster.Bitmap, bitmapHash string, opts Options) (*Contours, bool, error) {
	key := r.Keyer.ContourKey(bitmapHash, cache.ContourKeyOpts{
		Threshold: opts.Config.Contour.Threshold,
		Invert:    opts.Config.Contour.Invert,
		Tolerance: opts.Config.Contour.Tolerance,
		MinArea:   opts.Config.Contour.MinArea,
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var c Contours
			if json.Unmarshal(data, &c) == nil && !c.Outline.Empty() {
				return &c, true, nil
			}
		}
	}

	c, err := ExtractContours(bm, opts.Config.Contour)
	if err != nil {
		return nil, false, err
	}
	if detailBm != nil {
		if err := OverlayDetail(c, detailBm, opts.Config.Contour); err != nil {
			return nil, false, err
		}
	}
	if data, err := json.Marshal(c); err == nil {
		_ = r.Cache.Set(ctx, key, data, TTLContours)
	}
	return c, false, nil
}

// ProfilesWithCacheInfo resolves scale and composes the strata, cached by
// contour hash plus every geometry option.
func (r *Runner) ProfilesWithCacheInfo(ctx context.Context, contours *Contours, opts Options) (*ProfileSet, bool, error) {
	cfg := opts.Config
	key := r.Keyer.ProfileKey(hashJSON(contours), cache.ProfileKeyOpts{
		TargetMinMm: cfg.Scale.TargetMinMm,
		UnitsToMm:   cfg.Scale.UnitsToMm,
		Wall:        cfg.Cutter.Wall,
		InnerShrink: cfg.Cutter.InnerShrink,
		Clearance:   cfg.Stamp.Clearance,
		LipWidth:    cfg.Cutter.LipWidth,
		EdgeWidth:   cfg.Cutter.EdgeWidth,
		DetailMode:  cfg.Stamp.DetailMode,
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var ps ProfileSet
			if json.Unmarshal(data, &ps) == nil && !ps.Outline.Empty() {
				return &ps, true, nil
			}
		}
	}

	mmPerUnit, err := ResolveScale(contours.Outline, cfg.Scale)
	if err != nil {
		return nil, false, err
	}
	outline, detail := ApplyScale(contours.Outline, contours.DetailSource(cfg.Stamp.DetailMode), mmPerUnit)
	ps, err := BuildProfiles(outline, detail, cfg)
	if err != nil {
		return nil, false, err
	}
	if data, err := json.Marshal(ps); err == nil {
		_ = r.Cache.Set(ctx, key, data, TTLProfiles)
	}
	return ps, false, nil
}

// buildArtifact builds one artifact's solid and serializes it to STL bytes,
// cached by profile hash plus meshing options.
func (r *Runner) buildArtifact(ctx context.Context, name string, ps *ProfileSet, profileHash string, opts Options) *ArtifactResult {
	start := time.Now()
	res := &ArtifactResult{Name: name}
	cfg := opts.Config

	key := r.Keyer.SolidKey(profileHash, cache.SolidKeyOpts{
		Artifact:          name,
		Height:            cfg.Cutter.Height,
		BevelBand:         cfg.Cutter.BevelBand,
		BevelSteps:        cfg.Cutter.BevelSteps,
		LipHeight:         cfg.Cutter.LipHeight,
		BaseThickness:     cfg.Stamp.BaseThickness,
		DetailRaise:       cfg.Stamp.DetailRaise,
		HandleEnabled:     cfg.Stamp.Handle.Enabled,
		SegmentsPerCircle: cfg.Mesh.SegmentsPerCircle,
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit && len(data) > 84 {
			res.STL = data
			res.Facets = stlFacetCount(data)
			res.CacheHit = true
			res.Duration = time.Since(start)
			return res
		}
	}

	var (
		solid *mesh.Solid
		err   error
	)
	switch name {
	case ArtifactCutter:
		solid, err = BuildCutterSolid(ps, cfg)
	default:
		solid, err = BuildStampSolid(ps, cfg)
	}
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	var buf bytes.Buffer
	if err := sink.WriteSTL(&buf, name, solid); err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	res.STL = buf.Bytes()
	res.Facets = len(solid.Triangles())
	res.Duration = time.Since(start)
	_ = r.Cache.Set(ctx, key, res.STL, TTLSolid)
	return res
}

// hashJSON content-addresses a stage value through its JSON encoding.
func hashJSON(v any) string {
	data, _ := json.Marshal(v)
	return cache.Hash(data)
}

// stlFacetCount reads the facet count field of a binary STL blob.
func stlFacetCount(data []byte) int {
	if len(data) < 84 {
		return 0
	}
	return int(uint32(data[80]) | uint32(data[81])<<8 | uint32(data[82])<<16 | uint32(data[83])<<24)
}
