package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/devparekh/tickertrust/internal/config"
	"github.com/devparekh/tickertrust/internal/scheduler"
	"github.com/devparekh/tickertrust/internal/store"
	"github.com/devparekh/tickertrust/pkg/feature"
	"github.com/devparekh/tickertrust/pkg/provider"
	"github.com/devparekh/tickertrust/pkg/server"
	"github.com/devparekh/tickertrust/pkg/telemetry"
	"github.com/devparekh/tickertrust/pkg/trust"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

func buildNewsFetcher(cfg *config.Config, log zerolog.Logger) trust.ArticleFetcher {
	var fetchers []provider.ArticleFetcher

	if cfg.Sources.News.APIKey != "" {
		fetchers = append(fetchers, provider.NewNewsAPI(cfg.Sources.News.APIKey, cfg.Sources.News.QuerySuffix))
	} else {
		log.Warn().Msg("NEWS_API_KEY not set, newsapi fetcher disabled")
	}
	if cfg.Sources.RSS.Enabled {
		feeds := make([]provider.RSSFeed, len(cfg.Sources.RSS.Feeds))
		for i, f := range cfg.Sources.RSS.Feeds {
			feeds[i] = provider.RSSFeed{Name: f.Name, URL: f.URL}
		}
		fetchers = append(fetchers, provider.NewRSSNews(feeds))
	}

	if len(fetchers) == 0 {
		return nil
	}
	return provider.NewMultiNews(fetchers...)
}

func sourceWeights(cfg *config.Config) map[string]float64 {
	weights := make(map[string]float64, len(feature.DefaultSourceWeights))
	for domain, w := range feature.DefaultSourceWeights {
		weights[domain] = w
	}
	for domain, w := range cfg.Trust.SourceWeights {
		weights[strings.ToLower(domain)] = w
	}
	return weights
}

func buildEngine(cfg *config.Config, db store.Store, news trust.ArticleFetcher) *trust.Engine {
	return trust.NewEngine(
		provider.NewYahoo(),
		news,
		provider.NewReddit(cfg.Sources.Reddit.Subreddit),
		trust.Options{
			Hashes:        db,
			SourceWeights: sourceWeights(cfg),
			FetchTimeout:  cfg.Trust.ParseFetchTimeout(),
		},
	)
}

func buildTelemetry(cfg *config.Config, log zerolog.Logger) *telemetry.Dispatcher {
	return telemetry.New(telemetry.Options{
		PostHogAPIKey: cfg.Telemetry.PostHogAPIKey,
		PostHogHost:   cfg.Telemetry.PostHogHost,
		SentryDSN:     cfg.Telemetry.SentryDSN,
		Logger:        log,
	})
}

func runScore(symbol string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	log := buildLogger()
	engine := buildEngine(cfg, db, buildNewsFetcher(cfg, log))

	symbol = strings.ToUpper(symbol)
	ctx := context.Background()

	var previous *float64
	if latest, err := db.LatestTrustScore(ctx, symbol); err == nil && latest != nil {
		previous = &latest.TrustScore
	}

	result := engine.Compute(ctx, symbol, previous, time.Now().UTC())
	if err := db.SaveTrustScore(ctx, result); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("persist trust score")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runSocial(symbol string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	log := buildLogger()
	engine := buildEngine(cfg, db, buildNewsFetcher(cfg, log))

	features, _ := engine.SocialFeatures(context.Background(), strings.ToUpper(symbol))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(features)
}

func runRecompute() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	log := buildLogger()
	dispatcher := buildTelemetry(cfg, log)
	defer dispatcher.Close()

	news := buildNewsFetcher(cfg, log)
	engine := buildEngine(cfg, db, news)

	sched := scheduler.New(db, engine, news, cfg.Universe, dispatcher, log,
		cfg.Schedule.ParseIngestInterval(),
		cfg.Schedule.ParseRecomputeInterval(),
	)

	ctx := context.Background()
	sched.IngestAll(ctx)
	sched.RecomputeAll(ctx)
	log.Info().Int("universe", len(cfg.Universe)).Msg("sweep complete")
	return nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	log := buildLogger()
	dispatcher := buildTelemetry(cfg, log)
	defer dispatcher.Close()

	news := buildNewsFetcher(cfg, log)
	engine := buildEngine(cfg, db, news)

	// Jobs are wired so the admin recompute route works, but no ticker runs.
	sched := scheduler.New(db, engine, news, cfg.Universe, dispatcher, log,
		cfg.Schedule.ParseIngestInterval(),
		cfg.Schedule.ParseRecomputeInterval(),
	)

	srv := server.New(db, engine, sched, dispatcher, log, port,
		cfg.Server.InternalToken, cfg.Server.AdminSyncKey)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	log := buildLogger()
	dispatcher := buildTelemetry(cfg, log)
	defer dispatcher.Close()

	news := buildNewsFetcher(cfg, log)
	engine := buildEngine(cfg, db, news)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(db, engine, news, cfg.Universe, dispatcher, log,
		cfg.Schedule.ParseIngestInterval(),
		cfg.Schedule.ParseRecomputeInterval(),
	)

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("scheduler stopped unexpectedly")
		}
	}()

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
	}()

	srv := server.New(db, engine, sched, dispatcher, log, port,
		cfg.Server.InternalToken, cfg.Server.AdminSyncKey)
	return srv.ListenAndServe()
}
