// Command vade-server runs the identity-document gateway: it assembles the
// configured plugins, registers them on the dispatch core and serves the
// HTTP API alongside a metrics/health listener.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/evannetwork/vade/pkg/api"
	"github.com/evannetwork/vade/pkg/config"
	"github.com/evannetwork/vade/pkg/middleware"
	"github.com/evannetwork/vade/pkg/observability"
	"github.com/evannetwork/vade/pkg/plugins/memorystore"
	"github.com/evannetwork/vade/pkg/plugins/redisstore"
	"github.com/evannetwork/vade/pkg/plugins/relay"
	"github.com/evannetwork/vade/pkg/plugins/sqlstore"
	"github.com/evannetwork/vade/pkg/vade"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to YAML config file (optional)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server exited with error")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.OTel.Enabled,
		Endpoint:       cfg.OTel.Endpoint,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.OTel.ServiceVersion,
		Insecure:       cfg.OTel.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	if providers != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := providers.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("Failed to shut down OpenTelemetry providers")
			}
		}()
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())

	core := vade.New(log)
	if err := registerPlugins(core, cfg, log); err != nil {
		return err
	}
	metrics.PluginsRegistered.Set(float64(core.PluginCount()))

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(log))
	router.Use(middleware.Metrics(metrics))
	api.NewHandlers(core, metrics, log).RegisterRoutes(router)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(router, "vade-server"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	healthMux.Handle("/metrics", metrics.Handler())
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	errCh := make(chan error, 2)
	go func() {
		log.WithField("addr", apiServer.Addr).Info("Starting API server")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		log.WithField("addr", healthServer.Addr).Info("Starting metrics server")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to shut down API server cleanly")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to shut down metrics server cleanly")
	}

	log.Info("Server stopped")
	return nil
}

// registerPlugins builds the enabled plugins and registers them. The order
// here decides dispatch order: the memory cache answers first, then Redis,
// then SQLite, with the relay last for messaging.
func registerPlugins(core *vade.Vade, cfg *config.Config, log *logrus.Logger) error {
	if cfg.Plugins.Memory.Enabled {
		core.RegisterPlugin(memorystore.New(&memorystore.Config{
			MaxEntries: cfg.Plugins.Memory.MaxEntries,
			TTL:        cfg.Plugins.Memory.TTL,
		}))
		log.Info("Registered memory store plugin")
	}

	if cfg.Plugins.Redis.URL != "" {
		store, err := redisstore.New(redisstore.Config{
			URL:         cfg.Plugins.Redis.URL,
			Password:    cfg.Plugins.Redis.Password,
			DB:          cfg.Plugins.Redis.DB,
			KeyPrefixes: cfg.Plugins.Redis.KeyPrefixes,
			TTL:         cfg.Plugins.Redis.TTL,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis store plugin: %w", err)
		}
		core.RegisterPlugin(store)
		log.Info("Registered redis store plugin")
	}

	if cfg.Plugins.SQL.Path != "" {
		store, err := sqlstore.New(cfg.Plugins.SQL.Path)
		if err != nil {
			return fmt.Errorf("failed to create sql store plugin: %w", err)
		}
		core.RegisterPlugin(store)
		log.Info("Registered sql store plugin")
	}

	if cfg.Plugins.Relay.Channel != "" {
		plugin, err := relay.New(relay.Config{
			URL:          cfg.Plugins.Redis.URL,
			Channel:      cfg.Plugins.Relay.Channel,
			MessageTypes: cfg.Plugins.Relay.MessageTypes,
		})
		if err != nil {
			return fmt.Errorf("failed to create relay plugin: %w", err)
		}
		core.RegisterPlugin(plugin)
		log.Info("Registered relay plugin")
	}

	if core.PluginCount() == 0 {
		log.Warn("No plugins registered; all operations will fail")
	}
	return nil
}
