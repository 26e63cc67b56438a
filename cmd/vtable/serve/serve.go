package serve

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/cmd/vtable/common"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/host"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/health"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func NewCommand(flags *common.Flags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the record API with health and metrics endpoints",
		Long: `Start an HTTP server exposing the virtual table as a record API:

  POST   /records        create
  GET    /records        retrieve multiple
  GET    /records/{id}   retrieve
  PATCH  /records/{id}   update
  DELETE /records/{id}   delete

alongside /healthz, /livez, /readyz and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Run(flags, func(ctx context.Context, rt *common.Runtime) error {
				return run(ctx, rt, addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")

	return cmd
}

// NewServer builds the host server for rt without starting it
func NewServer(rt *common.Runtime, addr string) *health.Server {
	cfg := health.DefaultConfig()
	cfg.Address = rt.Config.Health.Address
	if addr != "" {
		cfg.Address = addr
	}
	cfg.Logger = rt.Logger
	cfg.Metrics = rt.Metrics
	cfg.Gatherer = rt.Registry
	cfg.Records = host.NewHandler(rt.Adapter, rt.Logger)

	server := health.NewServer(cfg)
	server.RegisterCheck("bigquery", health.CombinedCheck(
		health.TableCheck(rt.Executor),
		health.TokenCheck(rt.Tokens),
	))
	return server
}

func run(ctx context.Context, rt *common.Runtime, addr string) error {
	if !rt.Config.Health.Enabled && addr == "" {
		return errors.New(errors.ErrConfigInvalid, "server is disabled in configuration").
			WithDetail("set health.enabled or pass --addr")
	}

	server := NewServer(rt, addr)
	if err := server.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	rt.Logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		rt.Logger.Error("Failed to stop server", logger.Error(err))
		return err
	}
	return nil
}
