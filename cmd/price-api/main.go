package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tc.com/price-api/pkg/config"
	"tc.com/price-api/pkg/logging"
	"tc.com/price-api/pkg/metrics"
	"tc.com/price-api/pkg/server/api"
	"tc.com/price-api/pkg/server/engine"
	"tc.com/price-api/pkg/server/fx"
	"tc.com/price-api/pkg/server/history"
	"tc.com/price-api/pkg/server/sources"
	"tc.com/price-api/pkg/version"

	// Import sources to register them
	_ "tc.com/price-api/pkg/server/sources/cex"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("price-api version %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting price-api", "version", version.Version)

	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	server, err := buildServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build server", "error", err)
	}

	go func() {
		errChan <- server.Start()
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil {
			logger.Error("Server failed", "error", err)
			cancel()
		}
	}

	logger.Info("Shutdown complete")
}

// buildServer wires sources, FX providers, history providers and the
// engine from the loaded configuration.
func buildServer(cfg *config.Config, logger *logging.Logger) (*api.Server, error) {
	var (
		allSources     []sources.Source
		preciseSources []sources.Source
		crossQuoter    sources.Source
	)
	weights := make(map[string]float64)

	for _, sourceCfg := range cfg.Sources {
		if !sourceCfg.Enabled {
			continue
		}

		logger.Info("Initializing source", "type", sourceCfg.Type, "name", sourceCfg.Name, "weight", sourceCfg.Weight)

		// Inject the shared logger and typed timeout so sources don't
		// create their own.
		if sourceCfg.Config == nil {
			sourceCfg.Config = make(map[string]interface{})
		}
		sourceCfg.Config["logger"] = logger
		if sourceCfg.Timeout > 0 {
			sourceCfg.Config["timeout"] = sourceCfg.Timeout.ToDuration()
		}

		source, err := sources.Create(sourceCfg.Type, sourceCfg.Name, sourceCfg.Config)
		if err != nil {
			logger.Warn("Failed to create source", "type", sourceCfg.Type, "name", sourceCfg.Name, "error", err)
			continue
		}

		allSources = append(allSources, source)
		weights[source.Name()] = sourceCfg.Weight
		if sourceCfg.Precise {
			preciseSources = append(preciseSources, source)
		}
		// Index sources quote directly in the target currency and can
		// anchor cross-rate derivation when FX providers fail.
		if crossQuoter == nil && source.Type() == sources.SourceTypeIndex {
			crossQuoter = source
		}
	}

	if len(allSources) == 0 {
		return nil, fmt.Errorf("no sources available")
	}

	var fxProviders []fx.Provider
	for _, name := range cfg.FX.Providers {
		provider, err := fx.NewProvider(name)
		if err != nil {
			logger.Warn("Skipping unknown FX provider", "provider", name, "error", err)
			continue
		}
		fxProviders = append(fxProviders, provider)
	}
	resolver := fx.NewResolver(fxProviders, cfg.FX.FallbackRates, cfg.FX.Timeout.ToDuration(), logger)

	var historyProviders []history.Provider
	for _, name := range cfg.History.Providers {
		switch name {
		case "binance":
			pairs := map[string]string{"bitcoin": "BTCUSDT"}
			historyProviders = append(historyProviders, history.NewBinanceHistory("", pairs, cfg.Server.RequestTimeout.ToDuration(), logger))
		case "coingecko":
			pairs := map[string]string{"bitcoin": "bitcoin"}
			historyProviders = append(historyProviders, history.NewCoinGeckoHistory("", pairs, cfg.Server.RequestTimeout.ToDuration(), logger))
		default:
			logger.Warn("Skipping unknown history provider", "provider", name)
		}
	}

	eng := engine.New(engine.Config{
		Sources:        allSources,
		PreciseSources: preciseSources,
		Weights:        weights,
		Ceilings:       cfg.Pricing.Ceilings,
		FX:             resolver,
		CrossQuoter:    crossQuoter,
		History:        historyProviders,
		MaxPoints:      cfg.History.MaxPoints,
		Logger:         logger,
	})

	return api.NewServer(cfg.Server.HTTP.Addr, eng, cfg.Server.RequestTimeout.ToDuration(), logger), nil
}
