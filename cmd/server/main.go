package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-service/internal/api"
	"github.com/trogers1052/portfolio-service/internal/config"
	"github.com/trogers1052/portfolio-service/internal/currency"
	"github.com/trogers1052/portfolio-service/internal/database"
	"github.com/trogers1052/portfolio-service/internal/kafka"
	"github.com/trogers1052/portfolio-service/internal/logging"
	"github.com/trogers1052/portfolio-service/internal/lookup"
	"github.com/trogers1052/portfolio-service/internal/portfolio"
	"github.com/trogers1052/portfolio-service/internal/providers"
	"github.com/trogers1052/portfolio-service/internal/valuation"
)

const ratesRefreshInterval = time.Hour

func main() {
	cfg := config.Load()
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped with error")
	}
	log.Info().Msg("service stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
		return err
	}
	log.Info().Str("path", cfg.Database.MigrationsPath).Msg("migrations applied")

	normalizer, err := newNormalizer(ctx, cfg, log)
	if err != nil {
		return err
	}

	opts := providers.Options{Timeout: cfg.Providers.Timeout, RatePerSecond: cfg.Providers.RatePerSecond}
	svcOpts := portfolio.Options{
		DefaultCurrency: cfg.Engine.ReportingCurrency,
		Debounce:        cfg.Engine.LookupDebounce,
	}

	if cfg.Providers.ReferenceURL != "" {
		refOpts := opts
		refOpts.BaseURL = cfg.Providers.ReferenceURL
		svcOpts.Reference = providers.NewReferenceClient(refOpts, cfg.Providers.ReferenceRowsPath)
	}
	searchOpts := opts
	searchOpts.BaseURL = cfg.Providers.SearchBaseURL
	svcOpts.Search = providers.NewSearchClient(searchOpts, 10)

	quoteOpts := opts
	quoteOpts.BaseURL = cfg.Providers.QuoteBaseURL
	svcOpts.Quotes = lookup.NewCachedQuotes(providers.NewQuoteClient(quoteOpts), newQuoteCache(cfg, log), log)

	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, cfg.Kafka.PerformanceTopic)
		defer producer.Close()
		svcOpts.Publisher = producer
	}

	tracker := valuation.NewTracker(normalizer, db, log)
	svc := portfolio.NewService(db, tracker, svcOpts, log)
	defer svc.Close()

	if _, err := svc.RefreshTickers(ctx); err != nil {
		log.Error().Err(err).Msg("initial ticker refresh failed")
	}

	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, cfg.Kafka.GroupID, svc, log)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("kafka consumer stopped")
			}
		}()
	}

	handler := api.NewHandler(svc, db)
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newNormalizer combines configured static rates with remote rates, which are
// refreshed in the background
func newNormalizer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*currency.Normalizer, error) {
	static, err := currency.ParseStaticRates(cfg.Engine.StaticRates)
	if err != nil {
		return nil, err
	}
	if cfg.Providers.RatesURL == "" {
		return currency.NewNormalizer(cfg.Engine.ReportingCurrency, static), nil
	}

	remote := currency.NewRemoteRates(cfg.Providers.RatesURL, cfg.Engine.ReportingCurrency, 2*ratesRefreshInterval, log)
	if err := remote.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial rate refresh failed, using static rates")
	}
	go func() {
		ticker := time.NewTicker(ratesRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := remote.Refresh(ctx); err != nil {
					log.Warn().Err(err).Msg("rate refresh failed")
				}
			}
		}
	}()

	return currency.NewNormalizer(cfg.Engine.ReportingCurrency, currency.Chain{remote, static}), nil
}

// newQuoteCache returns an in-memory cache, layered over Redis when configured
func newQuoteCache(cfg *config.Config, log zerolog.Logger) lookup.QuoteCache {
	memory := lookup.NewMemoryQuoteCache(cfg.Redis.QuoteCacheTTL)
	if cfg.Redis.Addr == "" {
		return memory
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis quote cache")
	return lookup.NewLayeredQuoteCache(memory, lookup.NewRedisQuoteCache(client, cfg.Redis.QuoteCacheTTL, log))
}
