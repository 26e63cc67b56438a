package common

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/adapter"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/auth"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/bigquery"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/config"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/credentials"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/mapping"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/logger"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/metrics"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/tracing"
)

// ServiceVersion is reported in trace resources; set from the version package
var ServiceVersion = "dev"

// Runtime is the fully wired adapter stack shared by the subcommands
type Runtime struct {
	Config     *config.Config
	Connection *config.Configuration
	Logger     logger.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Tracer     *tracing.Provider
	Cache      *auth.SharedCache
	Tokens     *auth.TokenManager
	Executor   *bigquery.Executor
	Adapter    *adapter.Adapter
}

// LoadConfig reads the application config file and environment, then
// applies command-line overrides.
func LoadConfig(flags *Flags) (*config.Config, error) {
	opts := []config.LoadOption{config.WithEnv()}
	if flags.ConfigFile != "" {
		opts = append(opts, config.WithConfigFile(flags.ConfigFile))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if flags.MappingFile != "" {
		cfg.Mapping.File = flags.MappingFile
	}
	return cfg, nil
}

// ResolveConnection resolves the remote table settings. A credentials file
// given on the command line replaces any inline service account JSON.
func ResolveConnection(cfg *config.Config, flags *Flags) (*config.Configuration, error) {
	values := make(map[string]string, len(cfg.BigQuery)+1)
	for k, v := range cfg.BigQuery {
		values[k] = v
	}

	v := viper.New()
	if flags.CredentialsFile != "" {
		raw, err := credentials.LoadFile(flags.CredentialsFile)
		if err != nil {
			return nil, err
		}
		v.Set(config.KeyServiceAccountJSON, raw)
	}

	resolver, err := config.NewViperResolver(v, values)
	if err != nil {
		return nil, err
	}
	return config.ResolveDefault(resolver)
}

// LoadRegistry loads the mapping schema named by cfg, or the built-in
// schedule table when none is configured.
func LoadRegistry(cfg *config.Config) (*mapping.Registry, error) {
	if cfg.Mapping.File == "" {
		return mapping.DefaultRegistry(), nil
	}
	return mapping.LoadFile(cfg.Mapping.File)
}

// Build wires config, credentials, token manager, executor and adapter
func Build(ctx context.Context, flags *Flags, log logger.Logger) (*Runtime, error) {
	cfg, err := LoadConfig(flags)
	if err != nil {
		return nil, err
	}

	conn, err := ResolveConnection(cfg, flags)
	if err != nil {
		return nil, err
	}

	registry, err := LoadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:     cfg,
		Connection: conn,
		Logger:     log,
		Registry:   prometheus.NewRegistry(),
	}
	if cfg.Metrics.Enabled {
		rt.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rt.Metrics = metrics.NewMetrics(metrics.Config{
			Namespace: cfg.Metrics.Namespace,
			Registry:  rt.Registry,
		})
	}

	tcfg := tracing.DefaultConfig()
	tcfg.Enabled = cfg.Tracing.Enabled
	tcfg.Endpoint = cfg.Tracing.Endpoint
	tcfg.Insecure = cfg.Tracing.Insecure
	tcfg.SamplingRatio = cfg.Tracing.SamplingRatio
	tcfg.ServiceVersion = ServiceVersion
	rt.Tracer, err = tracing.NewProvider(ctx, tcfg)
	if err != nil {
		return nil, err
	}

	cred, err := credentials.Parse([]byte(conn.ServiceAccountJSON))
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	rt.Cache = auth.NewSharedCache()
	rt.Tokens, err = auth.NewTokenManager(
		auth.TokenConfig{Credential: cred, TokenURL: conn.TokenURL},
		auth.WithHTTPClient(client),
		auth.WithLogger(log),
		auth.WithMetrics(rt.Metrics),
		auth.WithCache(rt.Cache),
	)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	rt.Executor, err = bigquery.NewExecutor(conn, rt.Tokens,
		bigquery.WithHTTPClient(client),
		bigquery.WithLogger(log),
		bigquery.WithMetrics(rt.Metrics),
		bigquery.WithTracer(rt.Tracer),
	)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	rt.Adapter, err = adapter.New(rt.Executor, registry,
		adapter.WithLogger(log),
		adapter.WithMetrics(rt.Metrics),
		adapter.WithTracer(rt.Tracer),
	)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	log.Debug("Adapter ready",
		logger.String("project_id", conn.ProjectID),
		logger.String("dataset_id", conn.DatasetID),
		logger.String("table_id", conn.TableID),
		logger.Int("mappings", registry.Len()),
	)
	return rt, nil
}

// Close releases the token cache and flushes pending spans
func (rt *Runtime) Close(ctx context.Context) {
	if rt.Cache != nil {
		rt.Cache.Close()
	}
	if err := rt.Tracer.Shutdown(ctx); err != nil {
		rt.Logger.Warn("Failed to shut down tracer", logger.Error(err))
	}
}

// Run builds a Runtime for the duration of fn, cancelled on SIGINT/SIGTERM
func Run(flags *Flags, fn func(ctx context.Context, rt *Runtime) error) error {
	ctx, cancel := SetupSignalHandler()
	defer cancel()

	log, err := CreateLogger(flags)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	rt, err := Build(ctx, flags, log)
	if err != nil {
		log.Error("Failed to initialise adapter", logger.Error(err))
		return err
	}
	defer rt.Close(context.Background())

	return fn(ctx, rt)
}
