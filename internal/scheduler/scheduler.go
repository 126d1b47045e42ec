// Package scheduler runs the periodic ingestion and recompute sweeps that
// keep stored news, social posts and trust scores fresh.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/devparekh/tickertrust/internal/metrics"
	"github.com/devparekh/tickertrust/internal/store"
	"github.com/devparekh/tickertrust/pkg/advisor"
	"github.com/devparekh/tickertrust/pkg/feature"
	"github.com/devparekh/tickertrust/pkg/synth"
	"github.com/devparekh/tickertrust/pkg/telemetry"
	"github.com/devparekh/tickertrust/pkg/trust"
)

// maxConcurrentSymbols bounds the per-sweep fan-out across the universe.
const maxConcurrentSymbols = 4

// Scheduler runs periodic news ingestion and trust score recomputation.
type Scheduler struct {
	store     store.Store
	engine    *trust.Engine
	news      trust.ArticleFetcher
	universe  []string
	telemetry *telemetry.Dispatcher
	log       zerolog.Logger

	ingestInt    time.Duration
	recomputeInt time.Duration
}

// New creates a scheduler. The news fetcher may be nil, in which case ingest
// sweeps write synthetic cache rows only.
func New(
	s store.Store,
	engine *trust.Engine,
	news trust.ArticleFetcher,
	universe []string,
	dispatcher *telemetry.Dispatcher,
	log zerolog.Logger,
	ingestInt, recomputeInt time.Duration,
) *Scheduler {
	if ingestInt <= 0 {
		ingestInt = 30 * time.Minute
	}
	if recomputeInt <= 0 {
		recomputeInt = time.Hour
	}
	return &Scheduler{
		store:        s,
		engine:       engine,
		news:         news,
		universe:     universe,
		telemetry:    dispatcher,
		log:          log,
		ingestInt:    ingestInt,
		recomputeInt: recomputeInt,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ingestTicker := time.NewTicker(s.ingestInt)
	recomputeTicker := time.NewTicker(s.recomputeInt)
	defer ingestTicker.Stop()
	defer recomputeTicker.Stop()

	// Run both sweeps immediately on start.
	s.IngestAll(ctx)
	s.RecomputeAll(ctx)

	s.log.Info().
		Dur("ingest_interval", s.ingestInt).
		Dur("recompute_interval", s.recomputeInt).
		Int("universe", len(s.universe)).
		Msg("scheduler running")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ingestTicker.C:
			s.IngestAll(ctx)
		case <-recomputeTicker.C:
			s.RecomputeAll(ctx)
		}
	}
}

// IngestAll fetches, scores and persists news for every universe symbol.
// Symbols with no live articles get a single synthetic cache row so the
// table always reflects the last sweep.
func (s *Scheduler) IngestAll(ctx context.Context) {
	weights := make(map[string]float64, len(feature.DefaultSourceWeights))
	for domain, w := range feature.DefaultSourceWeights {
		weights[domain] = w
	}
	if overrides, err := s.store.SourceCredibility(ctx); err != nil {
		s.log.Warn().Err(err).Msg("load source credibility overrides")
	} else {
		for domain, w := range overrides {
			weights[domain] = w
		}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentSymbols)
	for _, symbol := range s.universe {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.ingestSymbol(ctx, symbol, weights); err != nil {
				s.log.Error().Err(err).Str("symbol", symbol).Msg("news ingest failed")
				s.telemetry.Exception(err, map[string]any{"job": "news_ingest", "symbol": symbol})
			}
		}(symbol)
	}
	wg.Wait()
	s.log.Info().Int("symbols", len(s.universe)).Msg("news ingest sweep complete")
}

func (s *Scheduler) ingestSymbol(ctx context.Context, symbol string, weights map[string]float64) error {
	now := time.Now().UTC()

	var raw []feature.RawArticle
	if s.news != nil {
		fetched, err := s.news.FetchArticles(ctx, symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("news fetch failed, writing cache row")
		} else {
			raw = fetched
		}
	}

	scored := feature.ScoreArticles(raw, feature.NewsOptions{Now: now, SourceWeights: weights})
	if len(scored) == 0 {
		return s.store.UpsertNewsItems(ctx, symbol, []feature.Article{fallbackNewsRow(symbol, now)})
	}

	seen, err := s.store.RecentNewsHashes(ctx, symbol)
	if err != nil {
		return fmt.Errorf("recent hashes: %w", err)
	}
	feature.MarkDuplicates(scored, seen)

	return s.store.UpsertNewsItems(ctx, symbol, scored)
}

// fallbackNewsRow is the synthetic row stored when a symbol has no live
// coverage, keeping ingest liveness visible per symbol.
func fallbackNewsRow(symbol string, now time.Time) feature.Article {
	fallback := feature.FallbackNews(symbol)
	return feature.Article{
		Source:      "stale-cache",
		SourceName:  "stale-cache",
		Title:       fmt.Sprintf("%s sentiment cache update for educational analytics", labelFor(symbol)),
		URL:         fmt.Sprintf("https://tickertrust.local/news/%s/%s", symbol, now.Format("200601021504")),
		PublishedAt: now,
		Sentiment:   synth.Round2((fallback.NewsScore - 50) / 10),
		Confidence:  fallback.Confidence,
		Credibility: synth.Round2(synth.Score(symbol, 0.55, 0.9, "credibility")),
		ContentHash: fmt.Sprintf("%s-%s", symbol, now.Format("2006010215")),
	}
}

func labelFor(symbol string) string {
	for _, asset := range advisor.Universe {
		if asset.Symbol == symbol {
			return asset.Label
		}
	}
	return symbol
}

// RecomputeAll recomputes and persists the trust score, social posts and
// social snapshot for every universe symbol.
func (s *Scheduler) RecomputeAll(ctx context.Context) {
	asOf := time.Now().UTC()

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentSymbols)
	for _, symbol := range s.universe {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.recomputeSymbol(ctx, symbol, asOf); err != nil {
				s.log.Error().Err(err).Str("symbol", symbol).Msg("trust recompute failed")
				s.telemetry.Exception(err, map[string]any{"job": "trust_recompute", "symbol": symbol})
			}
		}(symbol)
	}
	wg.Wait()

	metrics.RecomputeRuns.Inc()
	s.telemetry.Event("trust_recompute.completed", map[string]any{"symbols": len(s.universe)})
	s.log.Info().Int("symbols", len(s.universe)).Msg("trust recompute sweep complete")
}

func (s *Scheduler) recomputeSymbol(ctx context.Context, symbol string, asOf time.Time) error {
	var previous *float64
	if latest, err := s.store.LatestTrustScore(ctx, symbol); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("load previous trust score")
	} else if latest != nil {
		previous = &latest.TrustScore
	}

	result := s.engine.Compute(ctx, symbol, previous, asOf)
	if err := s.store.SaveTrustScore(ctx, result); err != nil {
		return fmt.Errorf("save trust score: %w", err)
	}

	social, posts := s.engine.SocialFeatures(ctx, symbol)
	if err := s.store.UpsertSocialPosts(ctx, symbol, posts); err != nil {
		return fmt.Errorf("save social posts: %w", err)
	}
	if err := s.store.SaveSocialSnapshot(ctx, symbol, result.AsOfDate, social); err != nil {
		return fmt.Errorf("save social snapshot: %w", err)
	}

	s.log.Debug().
		Str("symbol", symbol).
		Float64("trust_score", result.TrustScore).
		Str("band", result.TrustBand).
		Bool("stale", result.StaleData).
		Msg("trust score recomputed")
	return nil
}
