package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doughlab/cookieforge/internal/server"
	"github.com/doughlab/cookieforge/pkg/cache"
	"github.com/doughlab/cookieforge/pkg/pipeline"
)

// serveCommand creates the serve command, exposing the pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		configPath string
		addr       string
		redisAddr  string
		redisPass  string
		redisDB    int
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the forge pipeline over HTTP",
		Long: `Serve the forge pipeline over HTTP.

POST a silhouette image to /v1/forge/{cutter|stamp} to receive the STL,
or to /v1/trace for the layered profile SVG. Query parameters (size, wall,
height, clearance, detail_mode, handle, invert, refresh) override the
server's config per request.

With --redis, cached stages are shared across server instances; otherwise
the local file cache is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			store, err := c.serveCache(cmd, noCache, redisAddr, redisPass, redisDB)
			if err != nil {
				return err
			}
			defer store.Close()

			server.CleanSpoolDir()
			runner := pipeline.NewRunner(store, nil, c.Logger)
			srv := server.New(runner, cfg, c.Logger)
			return srv.Run(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default cookieforge.toml if present)")
	cmd.Flags().StringVar(&addr, "addr", ":8520", "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for a shared cache (host:port)")
	cmd.Flags().StringVar(&redisPass, "redis-password", "", "redis password")
	cmd.Flags().IntVar(&redisDB, "redis-db", 0, "redis database number")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// serveCache selects the server's cache backend. Redis connection attempts
// are retried, since the server often races its redis container at startup.
func (c *CLI) serveCache(cmd *cobra.Command, noCache bool, redisAddr, redisPass string, redisDB int) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if redisAddr == "" {
		return newCache(false)
	}

	var store cache.Cache
	err := cache.RetryWithBackoff(cmd.Context(), func() error {
		var err error
		store, err = cache.NewRedisCache(cmd.Context(), redisAddr, redisPass, redisDB)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", redisAddr, err)
	}
	c.Logger.Info("using redis cache", "addr", redisAddr, "db", redisDB)
	return store, nil
}
