// Package trust blends market, financial, news and social signals into a
// bounded, explainable trust score. Every signal source degrades to a
// deterministic synthetic fallback, so Compute always returns a complete
// result for any symbol.
package trust

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/devparekh/tickertrust/internal/metrics"
	"github.com/devparekh/tickertrust/pkg/feature"
	"github.com/devparekh/tickertrust/pkg/synth"
)

// defaultFetchTimeout bounds each upstream fetch. One attempt per source per
// request; a timeout is treated the same as any other source failure.
const defaultFetchTimeout = 8 * time.Second

// MarketFetcher returns daily close history for a symbol.
type MarketFetcher interface {
	FetchMarketHistory(ctx context.Context, symbol string) (feature.MarketHistory, error)
}

// ArticleFetcher returns raw news articles for a symbol.
type ArticleFetcher interface {
	FetchArticles(ctx context.Context, symbol string) ([]feature.RawArticle, error)
}

// PostFetcher returns raw social posts for a symbol.
type PostFetcher interface {
	FetchPosts(ctx context.Context, symbol string) ([]feature.RawPost, error)
}

// HashLookup supplies content hashes seen in recent runs so news
// de-duplication extends across batches. Optional.
type HashLookup interface {
	RecentNewsHashes(ctx context.Context, symbol string) (map[string]bool, error)
}

// Options tunes an Engine. The zero value is usable.
type Options struct {
	Hashes        HashLookup
	SourceWeights map[string]float64
	FetchTimeout  time.Duration
	Now           func() time.Time
}

// Engine computes trust scores. Any fetcher may be nil, in which case that
// source always uses its deterministic fallback.
type Engine struct {
	market  MarketFetcher
	news    ArticleFetcher
	social  PostFetcher
	hashes  HashLookup
	weights map[string]float64
	timeout time.Duration
	now     func() time.Time
}

// NewEngine creates a trust score engine around the given fetchers.
func NewEngine(market MarketFetcher, news ArticleFetcher, social PostFetcher, opts Options) *Engine {
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		market:  market,
		news:    news,
		social:  social,
		hashes:  opts.Hashes,
		weights: opts.SourceWeights,
		timeout: timeout,
		now:     now,
	}
}

// Compute produces the trust assessment for a symbol. previousScore, when
// known, anchors the daily stability cap; otherwise a deterministic synthetic
// prior is used. A zero asOf means "today". Compute never fails: unavailable
// sources are replaced by their fallbacks and flagged through StaleData.
func (e *Engine) Compute(ctx context.Context, symbol string, previousScore *float64, asOf time.Time) Result {
	if asOf.IsZero() {
		asOf = e.now()
	}

	var (
		market feature.MarketFeatures
		news   feature.NewsFeatures
		social feature.SocialFeatures
		wg     sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		market = e.MarketFeatures(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		news = e.NewsFeatures(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		social, _ = e.SocialFeatures(ctx, symbol)
	}()
	wg.Wait()

	financial := synth.Score(symbol, 45, 88, "financial")

	newsScore := news.NewsScore
	if news.LowConfidence {
		// low-confidence sentiment is pre-blended toward neutral
		newsScore = synth.Round2(newsScore*0.4 + 50*0.6)
	}

	raw := 0.30*market.HistoricalScore + 0.25*financial + 0.25*newsScore + 0.20*market.MarketScore
	penalty := hypePenalty(social.HypeVelocity, social.MemeRiskFlag, social.Confidence)
	adjusted := raw - penalty

	limitedData := market.HistoryYears < 2
	confidence := (0.40*math.Min(market.HistoryYears/5, 1) +
		0.30*news.Confidence/100 +
		0.30*social.Confidence/100) * 100
	if limitedData {
		adjusted *= 0.78
		confidence *= 0.72
	}

	if market.Volatility > 30 {
		adjusted -= math.Min((market.Volatility-30)*0.6, 10)
	}
	if news.SpikeDetected {
		adjusted -= 3
	}

	prior := synth.Score(symbol, 38, 84, "previous-day")
	if previousScore != nil {
		prior = *previousScore
	}

	// daily stability cap: at most 10 points of movement per day
	delta := synth.Clamp(adjusted-prior, -10, 10)
	score := synth.Clamp(prior+delta, 0, 100)

	// the anti-hype ceiling overrides the stability cap
	if social.MemeRiskFlag && score > 80 {
		score = 80
	}

	explanations := []string{
		Sanitize(fmt.Sprintf("Data suggests historical stability score of %.1f.", market.HistoricalScore)),
		Sanitize(fmt.Sprintf("Financial strength model indicates %.1f.", financial)),
		Sanitize(fmt.Sprintf("News sentiment contributes %.1f with confidence %.1f.", newsScore, news.Confidence)),
		Sanitize(fmt.Sprintf("Observed market behavior contributes %.1f with volatility %.1f.", market.MarketScore, market.Volatility)),
	}
	if limitedData {
		explanations = append(explanations, Sanitize("Limited historical data - confidence reduced."))
	}
	if social.MemeRiskFlag {
		explanations = append(explanations, Sanitize("High hype risk detected; sentiment impact is dampened."))
	}
	explanations = append(explanations, Sanitize(fmt.Sprintf("Daily stability cap applied using prior trust score %.1f.", prior)))

	return Result{
		Symbol:      symbol,
		AsOfDate:    asOf.UTC().Format("2006-01-02"),
		TrustScore:  synth.Round2(score),
		TrustBand:   BandFor(score),
		Confidence:  synth.Round2(synth.Clamp(confidence, 15, 98)),
		LimitedData: limitedData,
		StaleData:   market.Stale || news.Stale || social.Stale,
		Components: Components{
			Historical:  synth.Round2(market.HistoricalScore),
			Financial:   synth.Round2(financial),
			News:        synth.Round2(newsScore),
			Market:      synth.Round2(market.MarketScore),
			HypePenalty: penalty,
		},
		Explanations: explanations,
		Disclaimers:  MandatoryDisclaimers(),
	}
}

// MarketFeatures fetches and derives market features, falling back to the
// synthetic set on any failure.
func (e *Engine) MarketFeatures(ctx context.Context, symbol string) feature.MarketFeatures {
	if e.market == nil {
		return e.marketFallback(symbol)
	}

	fctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	hist, err := e.market.FetchMarketHistory(fctx, symbol)
	if err != nil {
		return e.marketFallback(symbol)
	}
	features, err := feature.MarketFromHistory(hist, e.now())
	if err != nil {
		return e.marketFallback(symbol)
	}
	return features
}

// NewsFeatures fetches, scores and aggregates news articles, falling back to
// the synthetic set on any failure or empty batch.
func (e *Engine) NewsFeatures(ctx context.Context, symbol string) feature.NewsFeatures {
	if e.news == nil {
		metrics.SourceFallbacks.WithLabelValues("news").Inc()
		return feature.FallbackNews(symbol)
	}

	fctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	articles, err := e.news.FetchArticles(fctx, symbol)
	if err != nil {
		metrics.SourceFallbacks.WithLabelValues("news").Inc()
		return feature.FallbackNews(symbol)
	}

	var seen map[string]bool
	if e.hashes != nil {
		// best effort; missing hashes only weaken cross-run de-duplication
		seen, _ = e.hashes.RecentNewsHashes(fctx, symbol)
	}

	features := feature.ExtractNews(symbol, articles, feature.NewsOptions{
		Now:           e.now(),
		SourceWeights: e.weights,
		SeenHashes:    seen,
	})
	if features.Stale {
		metrics.SourceFallbacks.WithLabelValues("news").Inc()
	}
	return features
}

// SocialFeatures fetches, filters and aggregates social posts. The returned
// posts carry bot/spam flags for persistence; on failure both values are
// deterministic fallbacks.
func (e *Engine) SocialFeatures(ctx context.Context, symbol string) (feature.SocialFeatures, []feature.Post) {
	if e.social == nil {
		metrics.SourceFallbacks.WithLabelValues("social").Inc()
		return feature.FallbackSocial(symbol), feature.FallbackPosts(symbol, e.now())
	}

	fctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	posts, err := e.social.FetchPosts(fctx, symbol)
	if err != nil {
		metrics.SourceFallbacks.WithLabelValues("social").Inc()
		return feature.FallbackSocial(symbol), feature.FallbackPosts(symbol, e.now())
	}

	features, scored := feature.ExtractSocial(symbol, posts, feature.SocialOptions{Now: e.now()})
	if features.Stale {
		metrics.SourceFallbacks.WithLabelValues("social").Inc()
	}
	return features, scored
}

func (e *Engine) marketFallback(symbol string) feature.MarketFeatures {
	metrics.SourceFallbacks.WithLabelValues("market").Inc()
	return feature.FallbackMarket(symbol)
}

// hypePenalty converts social hype signals into a bounded score reduction.
func hypePenalty(velocity float64, memeRisk bool, confidence float64) float64 {
	spike := synth.Clamp((velocity-60)*0.12, 0, 8)
	meme := 0.0
	if memeRisk {
		meme = 6
	}
	lowConfidence := (100 - confidence) * 0.03
	return synth.Round2(synth.Clamp(spike+meme+lowConfidence, 0, 15))
}
