package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"scriptdex/internal/adapter/inbound/api"
	"scriptdex/internal/adapter/outbound/watcher"
	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/application/query"
	"scriptdex/internal/config"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog artifacts over HTTP",
		Long: `Load the artifacts under the index directory and serve the read-only catalog API.
With --hot-reload the server watches the index directory and swaps in a new snapshot
after every rebuild; POST /admin/reload does the same on demand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), a.cfg)
		},
	}
	cmd.Flags().String("host", "", "Listen host")
	cmd.Flags().String("port", "", "Listen port")
	cmd.Flags().Bool("hot-reload", false, "Watch the index directory and reload on change")
	a.bindFlags(cmd, map[string]string{
		"host":       "api.host",
		"port":       "api.port",
		"hot-reload": "api.hot_reload",
	})
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	dir := cfg.Paths.IndexPath()
	handle, err := query.NewHandle(dir, query.Options{
		PreferredLang:  cfg.I18n.PreferredLang,
		SecondaryLang:  cfg.I18n.SecondaryLang,
		IconBase:       cfg.Build.IconBase,
		TraceCacheSize: cfg.Query.TraceCacheSize,
		SearchLimitMax: cfg.Query.SearchLimitMax,
	})
	if err != nil {
		return err
	}
	if _, err := handle.Reload(ctx); err != nil {
		slogger.Warn(ctx, "No snapshot loaded, serving 503 until the index is built", slogger.Fields2(
			"dir", dir,
			"error", err.Error(),
		))
	}

	server, err := api.NewServer(cfg.API, handle)
	if err != nil {
		return err
	}
	handle.OnReload(func(context.Context, *query.Snapshot) { server.InvalidateCache() })
	if err := server.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.API.HotReload {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		w, err := watcher.New(watcher.Config{Dir: dir, Debounce: cfg.API.ReloadDebounce}, func(ctx context.Context) error {
			_, err := handle.Reload(ctx)
			return err
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		slogger.Info(shutdownCtx, "Shutting down HTTP server", nil)
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
