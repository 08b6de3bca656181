package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/doughlab/cookieforge/pkg/cache"
	"github.com/doughlab/cookieforge/pkg/config"
	"github.com/doughlab/cookieforge/pkg/pipeline"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	runner := pipeline.NewRunner(nil, nil, log.New(io.Discard))
	srv := New(runner, config.Default(), log.New(io.Discard))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// diskPNG encodes a filled disk silhouette.
func diskPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 96, 96))
	for y := 0; y < 96; y++ {
		for x := 0; x < 96; x++ {
			dx, dy := float64(x-48), float64(y-48)
			c := color.Gray{Y: 255}
			if dx*dx+dy*dy <= 30*30 {
				c = color.Gray{Y: 0}
			}
			img.SetGray(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func post(t *testing.T, ts *httptest.Server, path string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "image/png", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestForgeCutterReturnsSTL(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts, "/v1/forge/cutter", diskPNG(t))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "model/stl" {
		t.Errorf("Content-Type = %q", ct)
	}
	facets, err := strconv.Atoi(resp.Header.Get("X-Facets"))
	if err != nil || facets == 0 {
		t.Errorf("X-Facets = %q", resp.Header.Get("X-Facets"))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(body) != 84+50*facets {
		t.Errorf("body is %d bytes for %d facets", len(body), facets)
	}
}

func TestForgeReportsCacheState(t *testing.T) {
	c, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()
	runner := pipeline.NewRunner(c, nil, log.New(io.Discard))
	srv := New(runner, config.Default(), log.New(io.Discard))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	img := diskPNG(t)
	first := post(t, ts, "/v1/forge/cutter", img)
	if first.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", first.StatusCode)
	}
	if got := first.Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("cold X-Cache = %q, want MISS", got)
	}
	second := post(t, ts, "/v1/forge/cutter", img)
	if second.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", second.StatusCode)
	}
	if got := second.Header.Get("X-Cache"); got != "HIT" {
		t.Errorf("warm X-Cache = %q, want HIT", got)
	}
}

func TestForgeUnknownArtifact(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts, "/v1/forge/mold", diskPNG(t))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestForgeBadParameter(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts, "/v1/forge/stamp?size=huge", diskPNG(t))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestForgeBlankImageUnprocessable(t *testing.T) {
	ts := newTestServer(t)

	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	resp := post(t, ts, "/v1/forge/cutter", buf.Bytes())
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestTraceReturnsSVG(t *testing.T) {
	ts := newTestServer(t)
	resp := post(t, ts, "/v1/trace", diskPNG(t))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<svg") {
		t.Error("response is not SVG")
	}
	if !strings.Contains(string(body), "cutter-wall") {
		t.Error("wall layer missing from trace")
	}
}

func TestQueryOverridesSize(t *testing.T) {
	ts := newTestServer(t)
	small := post(t, ts, "/v1/forge/cutter?size=40", diskPNG(t))
	if small.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", small.StatusCode)
	}
	large := post(t, ts, "/v1/forge/cutter?size=120", diskPNG(t))
	if large.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", large.StatusCode)
	}
	smallLen, _ := io.ReadAll(small.Body)
	largeLen, _ := io.ReadAll(large.Body)
	if len(smallLen) == 0 || len(largeLen) == 0 {
		t.Fatal("empty STL body")
	}
}
