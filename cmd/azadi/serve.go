package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker/v2"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/azadi/config"
	"github.com/mohammad-safakhou/azadi/internal/cache"
	"github.com/mohammad-safakhou/azadi/internal/evidence"
	"github.com/mohammad-safakhou/azadi/internal/ledger"
	"github.com/mohammad-safakhou/azadi/internal/llm"
	"github.com/mohammad-safakhou/azadi/internal/logging"
	"github.com/mohammad-safakhou/azadi/internal/recommend"
	srv "github.com/mohammad-safakhou/azadi/internal/server"
	"github.com/mohammad-safakhou/azadi/internal/store"
	"github.com/mohammad-safakhou/azadi/models"
)

func serveCMD(load loader) *cobra.Command {
	var serveAddr string
	var migDir string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, migDir)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
	serve.Flags().StringVar(&migDir, "migrations", "file://migrations", "migrations source applied on start when postgres is configured")
	return serve
}

func runServer(ctx context.Context, cfg *config.Config, migDir string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	model, err := buildModel(ctx, cfg.LLM.Gemini, reg)
	if err != nil {
		return err
	}

	caches, closeCaches, err := buildCaches(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCaches()

	orch := recommend.New(model, caches, recommend.Options{
		ArticlesLimit:      cfg.Recommend.ArticlesLimit,
		CharitiesLimit:     cfg.Recommend.CharitiesLimit,
		ProtestsLimit:      cfg.Recommend.ProtestsLimit,
		EnforceFutureDates: cfg.Recommend.EnforceFutureDates,
		SearchTemperature:  cfg.LLM.Gemini.SearchTemp,
		SearchMaxTokens:    cfg.LLM.Gemini.SearchMaxTokens,
		EnrichTemperature:  cfg.LLM.Gemini.EnrichTemp,
		EnrichMaxTokens:    cfg.LLM.Gemini.EnrichMaxTokens,
		ComputeTimeout:     cfg.Server.RequestTimeout,
		Extractor:          evidence.NewExtractor(cfg.Recommend.BlockedDomains...),
		Metrics:            recommend.NewMetrics(reg),
	})

	ledgers, closeLedgers, err := buildLedgers(ctx, cfg, migDir)
	if err != nil {
		return err
	}
	defer closeLedgers()

	var minter ledger.Minter
	if cfg.Ledger.MintURL != "" {
		minter = ledger.NewHTTPMinter(cfg.Ledger.MintURL, cfg.Ledger.MintToken, cfg.Ledger.MintTimeout)
	}
	counter := ledger.NewCounter(ledgers, minter, cfg.Ledger.RewardInterval, reg)

	return srv.Run(ctx, cfg.Server, srv.Deps{
		Recommender: orch,
		Ledgers:     counter,
		JWTSecret:   []byte(cfg.Server.JWTSecret),
		Gatherer:    reg,
	})
}

// buildModel returns nil when no API key is configured; requests then fail
// with a configuration error instead of the process refusing to start.
func buildModel(ctx context.Context, gc config.GeminiConfig, reg prometheus.Registerer) (llm.Model, error) {
	gemini, err := llm.NewGemini(ctx, gc)
	var cfgErr llm.ConfigurationError
	if errors.As(err, &cfgErr) {
		logging.Warn().Str("setting", cfgErr.Setting).Msg("GEMINI_API_KEY not set; recommendation requests will fail until it is configured")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	breaker := llm.NewBreaker(gemini, llm.BreakerSettings{
		ConsecutiveFails: gc.BreakerFailures,
		OpenFor:          gc.BreakerOpenFor,
		HalfOpenRequests: gc.BreakerHalfOpenN,
	})
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "azadi",
		Name:      "model_circuit_state",
		Help:      "Model circuit breaker state (0 closed, 1 half-open, 2 open).",
	}, func() float64 {
		switch breaker.State() {
		case gobreaker.StateHalfOpen:
			return 1
		case gobreaker.StateOpen:
			return 2
		}
		return 0
	}))
	return breaker, nil
}

func buildCaches(ctx context.Context, cfg *config.Config) (recommend.Caches, func(), error) {
	var stores [3]cache.Store
	closeFn := func() {}

	if cfg.Storage.Redis.Enabled() {
		rc := cfg.Storage.Redis
		client, err := cache.Conn(ctx, rc.Addr(), rc.Password, rc.DB, rc.Timeout)
		if err != nil {
			return recommend.Caches{}, nil, fmt.Errorf("redis cache: %w", err)
		}
		r := cache.NewRedis(client)
		stores = [3]cache.Store{r, r, r}
		closeFn = func() { _ = client.Close() }
		logging.Info().Str("addr", rc.Addr()).Msg("result cache on redis")
	} else {
		mems := [3]*cache.Memory{
			cache.NewMemory(cfg.Cache.MaxEntries),
			cache.NewMemory(cfg.Cache.MaxEntries),
			cache.NewMemory(cfg.Cache.MaxEntries),
		}
		stores = [3]cache.Store{mems[0], mems[1], mems[2]}
		janitor, err := cache.NewJanitor(cfg.Cache.PruneCron, mems[0], mems[1], mems[2])
		if err != nil {
			return recommend.Caches{}, nil, err
		}
		go janitor.Run(ctx)
	}

	return recommend.Caches{
		Articles:  cache.New(models.KindArticles, cfg.Cache.ArticlesTTL, stores[0]),
		Charities: cache.New(models.KindCharities, cfg.Cache.CharitiesTTL, stores[1]),
		Protests:  cache.New(models.KindProtests, cfg.Cache.ProtestsTTL, stores[2]),
	}, closeFn, nil
}

func buildLedgers(ctx context.Context, cfg *config.Config, migDir string) (ledger.Store, func(), error) {
	if !cfg.Storage.Postgres.Enabled() {
		logging.Info().Msg("user ledgers kept in memory")
		return ledger.NewMemory(), func() {}, nil
	}
	dsn := cfg.Storage.Postgres.DSN()
	if migDir != "" {
		if err := srv.Migrate(migDir, dsn, "up", 0); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	pctx, cancel := context.WithTimeout(ctx, cfg.Storage.Postgres.Timeout)
	defer cancel()
	st, err := store.NewWithDSN(pctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	return st, func() { _ = st.Close() }, nil
}
