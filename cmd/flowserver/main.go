// Command flowserver loads configuration, discovers plugins, and serves
// the HTTP reference event sink. Grounded on the teacher's
// backend/cmd/worker/main.go graceful-shutdown shape (signal.Notify on
// SIGINT/SIGTERM, context-with-timeout shutdown).
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/citadel-agent/flowgraph/internal/config"
	"github.com/citadel-agent/flowgraph/internal/httpsink"
	"github.com/citadel-agent/flowgraph/internal/logging"
	"github.com/citadel-agent/flowgraph/internal/loop"
	"github.com/citadel-agent/flowgraph/internal/observability"
	"github.com/citadel-agent/flowgraph/internal/plugins"
	"github.com/citadel-agent/flowgraph/internal/registry"
	"github.com/citadel-agent/flowgraph/internal/scriptnode"
)

func main() {
	configPath := flag.String("config", "", "path to a flowgraph config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log := logging.New(cfg.Logging.Level)
	reg := registry.New(log)
	reg.Register(scriptnode.Spec(), scriptnode.Executor())
	loop.RegisterSpecs(reg)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsAddr != "" {
		metrics = observability.NewMetrics()
	}

	var mgr *plugins.Manager
	if cfg.Plugins.Root != "" {
		mgr, err = plugins.NewManager(cfg.Plugins.Root, reg, log, metrics)
		if err != nil {
			log.Fatal().Err(err).Msg("building plugin manager")
		}
		defer mgr.CloseAll()
	}

	if mgr != nil && cfg.Plugins.DiscoverOnBoot {
		results, err := mgr.DiscoverAndLoad()
		if err != nil {
			log.Error().Err(err).Msg("plugin discovery failed")
		}
		for _, r := range results {
			if r.Err != nil {
				log.Warn().Str("plugin", r.ID).Err(r.Err).Msg("plugin load failed")
				continue
			}
			log.Info().Str("plugin", r.ID).Strs("types", r.Types).Msg("plugin loaded")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tracing *observability.Tracing
	if cfg.Observability.TracingEnabled {
		tracing, err = observability.NewTracing(ctx, cfg.Observability.ServiceName, cfg.Observability.OTLPEndpoint)
		if err != nil {
			log.Error().Err(err).Msg("tracing disabled: failed to initialize exporter")
		}
	}

	srv := httpsink.New(reg, log, metrics, tracing, mgr)
	router := srv.Router([]string{"*"})

	httpServer := &http.Server{
		Addr:    httpsink.Addr(cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("flowserver listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down flowserver")
	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 15*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during http shutdown")
	}
	if tracing != nil {
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error during tracing shutdown")
		}
	}
}
