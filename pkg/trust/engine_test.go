package trust

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devparekh/tickertrust/pkg/feature"
)

var engineNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

type marketStub struct {
	hist feature.MarketHistory
	err  error
}

func (s marketStub) FetchMarketHistory(context.Context, string) (feature.MarketHistory, error) {
	return s.hist, s.err
}

type newsStub struct {
	articles []feature.RawArticle
	err      error
}

func (s newsStub) FetchArticles(context.Context, string) ([]feature.RawArticle, error) {
	return s.articles, s.err
}

type socialStub struct {
	posts []feature.RawPost
	err   error
}

func (s socialStub) FetchPosts(context.Context, string) ([]feature.RawPost, error) {
	return s.posts, s.err
}

func fixedClock() func() time.Time {
	return func() time.Time { return engineNow }
}

func failingEngine() *Engine {
	fail := errors.New("upstream down")
	return NewEngine(
		marketStub{err: fail},
		newsStub{err: fail},
		socialStub{err: fail},
		Options{Now: fixedClock()},
	)
}

func balancedPosts() []feature.RawPost {
	var raw []feature.RawPost
	for i := 0; i < 6; i++ {
		raw = append(raw, feature.RawPost{
			ID:              fmt.Sprintf("p%d", i),
			Author:          fmt.Sprintf("user%d", i),
			Title:           "discussion thread",
			Body:            fmt.Sprintf("solid upside here, staying long %d", i),
			CreatedAt:       engineNow.Add(-time.Duration(i+1) * time.Hour),
			Karma:           50,
			AuthorCreatedAt: engineNow.Add(-400 * 24 * time.Hour),
		})
	}
	for i := 0; i < 3; i++ {
		raw = append(raw, feature.RawPost{
			ID:              fmt.Sprintf("q%d", i),
			Author:          fmt.Sprintf("other%d", i),
			Title:           "discussion thread",
			Body:            fmt.Sprintf("overvalued, planning to sell soon %d", i),
			CreatedAt:       engineNow.Add(-time.Duration(i+8) * time.Hour),
			Karma:           50,
			AuthorCreatedAt: engineNow.Add(-400 * 24 * time.Hour),
		})
	}
	return raw
}

func polarizedPosts() []feature.RawPost {
	var raw []feature.RawPost
	for i := 0; i < 8; i++ {
		raw = append(raw, feature.RawPost{
			ID:              fmt.Sprintf("p%d", i),
			Author:          fmt.Sprintf("user%d", i),
			Title:           "discussion thread",
			Body:            fmt.Sprintf("obvious breakout, fully long here %d", i),
			CreatedAt:       engineNow.Add(-time.Duration(i+1) * time.Hour),
			Karma:           50,
			AuthorCreatedAt: engineNow.Add(-400 * 24 * time.Hour),
		})
	}
	return raw
}

func TestComputeDeterministicOnFullFallback(t *testing.T) {
	engine := failingEngine()
	prev := 58.0

	first := engine.Compute(context.Background(), "RELIANCE.NS", &prev, engineNow)
	second := engine.Compute(context.Background(), "RELIANCE.NS", &prev, engineNow)

	assert.Equal(t, first, second, "same symbol and prior must reproduce the result exactly")
	assert.True(t, first.StaleData)
	assert.Equal(t, "RELIANCE.NS", first.Symbol)
	assert.Equal(t, "2026-03-10", first.AsOfDate)
	assert.Len(t, first.Disclaimers, 4)
	assert.GreaterOrEqual(t, len(first.Explanations), 5)
}

func TestComputeBounds(t *testing.T) {
	engine := failingEngine()
	for _, symbol := range []string{"RELIANCE.NS", "TCS.NS", "INFY.NS", "ITC.NS", "SBIN.NS"} {
		got := engine.Compute(context.Background(), symbol, nil, engineNow)
		assert.GreaterOrEqual(t, got.TrustScore, 0.0, symbol)
		assert.LessOrEqual(t, got.TrustScore, 100.0, symbol)
		assert.GreaterOrEqual(t, got.Confidence, 15.0, symbol)
		assert.LessOrEqual(t, got.Confidence, 98.0, symbol)
		assert.Equal(t, BandFor(got.TrustScore), got.TrustBand, symbol)
	}
}

func TestComputeStabilityCap(t *testing.T) {
	fail := errors.New("upstream down")
	engine := NewEngine(
		marketStub{err: fail},
		newsStub{err: fail},
		socialStub{posts: balancedPosts()},
		Options{Now: fixedClock()},
	)

	for _, prior := range []float64{20, 58, 90} {
		prev := prior
		got := engine.Compute(context.Background(), "LT.NS", &prev, engineNow)
		assert.LessOrEqual(t, math.Abs(got.TrustScore-prior), 10.01,
			"score must stay within 10 points of prior %.0f", prior)
	}
}

func TestComputeMemeRiskCapsScore(t *testing.T) {
	fail := errors.New("upstream down")
	engine := NewEngine(
		marketStub{err: fail},
		newsStub{err: fail},
		socialStub{posts: polarizedPosts()},
		Options{Now: fixedClock()},
	)

	prev := 95.0
	got := engine.Compute(context.Background(), "SBIN.NS", &prev, engineNow)

	// The stability cap alone would leave the score at 85; the meme-risk
	// ceiling takes precedence.
	assert.Equal(t, 80.0, got.TrustScore)
	assert.Equal(t, BandStrong, got.TrustBand)
	assert.Contains(t, got.Explanations, "High hype risk detected; sentiment impact is dampened.")
	assert.GreaterOrEqual(t, got.Components.HypePenalty, 6.0)
}

func TestComputeLimitedDataPath(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	fail := errors.New("upstream down")
	engine := NewEngine(
		marketStub{hist: feature.MarketHistory{
			Closes:    closes,
			FirstSeen: engineNow.AddDate(-1, 0, 0),
		}},
		newsStub{err: fail},
		socialStub{err: fail},
		Options{Now: fixedClock()},
	)

	got := engine.Compute(context.Background(), "ZOMATO.NS", nil, engineNow)
	assert.True(t, got.LimitedData)
	assert.Contains(t, got.Explanations, "Limited historical data - confidence reduced.")
	assert.GreaterOrEqual(t, got.Confidence, 15.0)
	assert.InDelta(t, 50.0, got.Components.Historical, 1e-9)
	assert.InDelta(t, 80.0, got.Components.Market, 1e-9)
}

func TestComputeReportsSuppliedPrior(t *testing.T) {
	engine := failingEngine()
	prev := 58.0
	got := engine.Compute(context.Background(), "RELIANCE.NS", &prev, engineNow)

	last := got.Explanations[len(got.Explanations)-1]
	assert.Equal(t, "Daily stability cap applied using prior trust score 58.0.", last)
}

func TestComputeNilFetchersNeverFail(t *testing.T) {
	engine := NewEngine(nil, nil, nil, Options{Now: fixedClock()})
	got := engine.Compute(context.Background(), "HDFCBANK.NS", nil, time.Time{})
	assert.True(t, got.StaleData)
	assert.Equal(t, "2026-03-10", got.AsOfDate, "zero as-of must resolve through the engine clock")
	assert.NotEmpty(t, got.Explanations)
}

func TestHypePenalty(t *testing.T) {
	assert.InDelta(t, 0.0, hypePenalty(0, false, 100), 1e-9)
	assert.InDelta(t, 13.8, hypePenalty(100, true, 0), 1e-9)
	assert.InDelta(t, 15.0, hypePenalty(200, true, 0), 1e-9, "penalty is capped at 15")
	assert.InDelta(t, 1.2, hypePenalty(70, false, 100), 1e-9)
}

func TestBandFor(t *testing.T) {
	assert.Equal(t, BandStrong, BandFor(80))
	assert.Equal(t, BandWatch, BandFor(79.99))
	assert.Equal(t, BandWatch, BandFor(60))
	assert.Equal(t, BandRisky, BandFor(59.99))
	assert.Equal(t, BandRisky, BandFor(40))
	assert.Equal(t, BandAvoid, BandFor(39.99))
	assert.Equal(t, BandAvoid, BandFor(0))
}

func TestMandatoryDisclaimersFreshCopy(t *testing.T) {
	first := MandatoryDisclaimers()
	require.Len(t, first, 4)
	first[0] = "mutated"
	assert.Equal(t, "Educational purposes only.", MandatoryDisclaimers()[0])
}
