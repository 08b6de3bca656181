// Package server exposes the forge pipeline over HTTP.
//
// The server accepts silhouette images and returns printable STL artifacts,
// sharing its cache across requests. It is intended for a small internal
// deployment where a redis backend makes runs from different machines hit
// the same cache.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/doughlab/cookieforge/pkg/buildinfo"
	"github.com/doughlab/cookieforge/pkg/config"
	forgeerrors "github.com/doughlab/cookieforge/pkg/errors"
	"github.com/doughlab/cookieforge/pkg/pipeline"
	"github.com/doughlab/cookieforge/pkg/sink"
)

// maxImageBytes bounds uploaded silhouettes. Line art at print resolution
// stays far below this.
const maxImageBytes = 32 << 20

// Server handles forge requests over HTTP.
type Server struct {
	runner *pipeline.Runner
	cfg    config.Config
	logger *log.Logger
}

// New creates a server around a shared runner. cfg supplies the defaults a
// request's query parameters override.
func New(runner *pipeline.Runner, cfg config.Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, cfg: cfg, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Post("/v1/forge/{artifact}", s.handleForge)
	r.Post("/v1/trace", s.handleTrace)

	return r
}

// Run serves on addr until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(buildinfo.String() + "\n"))
}

// handleForge builds one artifact for the uploaded image and streams the STL
// back. Geometry parameters come from query parameters on top of the server
// defaults.
func (s *Server) handleForge(w http.ResponseWriter, r *http.Request) {
	artifact := chi.URLParam(r, "artifact")
	if artifact != pipeline.ArtifactCutter && artifact != pipeline.ArtifactStamp {
		s.writeError(w, http.StatusNotFound,
			forgeerrors.New(forgeerrors.ErrCodeInvalidInput, "unknown artifact %q", artifact))
		return
	}

	opts, cleanup, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer cleanup()
	opts.Artifacts = []string{artifact}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	res := result.Cutter
	if artifact == pipeline.ArtifactStamp {
		res = result.Stamp
	}
	if res.Err != nil {
		s.writeError(w, statusFor(res.Err), res.Err)
		return
	}

	w.Header().Set("Content-Type", "model/stl")
	w.Header().Set("Content-Length", strconv.Itoa(len(res.STL)))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", artifact+".stl"))
	w.Header().Set("X-Run-Id", result.RunID)
	w.Header().Set("X-Facets", strconv.Itoa(res.Facets))
	w.Header().Set("X-Cache", cacheHeader(res.CacheHit))
	_, _ = w.Write(res.STL)
}

// handleTrace returns the composed 2D profiles as a layered SVG, for
// checking scale and clearances before committing plastic.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	opts, cleanup, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer cleanup()

	result, err := s.runner.Trace(r.Context(), opts)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("X-Run-Id", result.RunID)
	if err := sink.WriteSVG(w, pipeline.TraceLayers(result.Profiles)); err != nil {
		s.logger.Error("trace render failed", "err", err)
	}
}

// requestOptions spools the uploaded image to disk and folds query overrides
// into the server's default config.
func (s *Server) requestOptions(r *http.Request) (pipeline.Options, func(), error) {
	noop := func() {}

	f, err := os.CreateTemp("", "cookieforge-upload-*")
	if err != nil {
		return pipeline.Options{}, noop, forgeerrors.Wrap(forgeerrors.ErrCodeIO, err, "spool upload")
	}
	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}
	if _, err := io.Copy(f, http.MaxBytesReader(nil, r.Body, maxImageBytes)); err != nil {
		cleanup()
		return pipeline.Options{}, noop, forgeerrors.Wrap(forgeerrors.ErrCodeInvalidInput, err, "read upload")
	}

	cfg := s.cfg
	q := r.URL.Query()
	if err := applyQuery(&cfg, q); err != nil {
		cleanup()
		return pipeline.Options{}, noop, err
	}

	opts := pipeline.Options{
		ImagePath: f.Name(),
		Config:    cfg,
		Refresh:   q.Get("refresh") == "true",
	}
	return opts, cleanup, nil
}

// applyQuery maps the supported query parameters onto the config.
func applyQuery(cfg *config.Config, q map[string][]string) error {
	get := func(key string) string {
		if v, ok := q[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}

	for key, set := range map[string]*float64{
		"size":      &cfg.Scale.TargetMinMm,
		"wall":      &cfg.Cutter.Wall,
		"height":    &cfg.Cutter.Height,
		"clearance": &cfg.Stamp.Clearance,
	} {
		raw := get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return forgeerrors.New(forgeerrors.ErrCodeInvalidInput, "parameter %s: %q is not a number", key, raw)
		}
		*set = v
	}
	if mode := get("detail_mode"); mode != "" {
		cfg.Stamp.DetailMode = mode
	}
	if raw := get("handle"); raw != "" {
		cfg.Stamp.Handle.Enabled = raw == "true"
	}
	if raw := get("invert"); raw != "" {
		cfg.Contour.Invert = raw == "true"
	}
	return nil
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

// statusFor maps pipeline error codes to HTTP statuses.
func statusFor(err error) int {
	switch forgeerrors.GetCode(err) {
	case forgeerrors.ErrCodeInvalidInput, forgeerrors.ErrCodeInvalidConfig, forgeerrors.ErrCodeOffsetConfig:
		return http.StatusBadRequest
	case forgeerrors.ErrCodeEmptyGeometry, forgeerrors.ErrCodeDegenerateContour, forgeerrors.ErrCodeInvalidPolygon:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("request failed", "status", status, "err", err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(forgeerrors.UserMessage(err) + "\n"))
}

// CleanSpoolDir removes upload spool files left by crashed runs. Called
// best-effort on startup.
func CleanSpoolDir() {
	matches, _ := filepath.Glob(filepath.Join(os.TempDir(), "cookieforge-upload-*"))
	for _, m := range matches {
		_ = os.Remove(m)
	}
}
