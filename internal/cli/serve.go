package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/taskgraph/internal/api"
	promhooks "github.com/matzehuels/taskgraph/pkg/observability/prometheus"
)

// serveCommand creates the serve command running the HTTP layout API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		engine  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout pipeline over HTTP",
		Long: `Serve the layout pipeline over HTTP.

POST a workflow to /v1/layout to receive its positioned diagram. Metrics are
exposed on /metrics in Prometheus format. Use the redis cache backend to share
solver results between replicas.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, engine, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVarP(&engine, "engine", "e", "", "default layout engine")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, engine string, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promhooks.New(reg, appName).Install()

	srv := api.New(runner, api.Options{
		Defaults:     c.pipelineOptions(cfg, engine, nil),
		Logger:       c.Logger,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Timeout:      cfg.Layout.Timeout,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	printInfo("Serving on %s", StyleHighlight.Render(addr))
	printKeyValue("engine", c.pipelineOptions(cfg, engine, nil).Engine)
	printKeyValue("cache", cacheLocation(cfg.Cache))
	return srv.ListenAndServe(ctx, addr)
}
