package feature

import (
	"fmt"
	"math"
	"time"

	"github.com/devparekh/tickertrust/pkg/synth"
)

// minMarketCloses is the shortest daily-close history considered usable.
const minMarketCloses = 50

// MarketHistory is the raw market input: ordered daily closes plus the first
// observed trading day.
type MarketHistory struct {
	Closes    []float64
	FirstSeen time.Time
}

// MarketFromHistory derives market features from daily closes. It fails when
// the history is too short; callers substitute FallbackMarket.
func MarketFromHistory(hist MarketHistory, now time.Time) (MarketFeatures, error) {
	closes := hist.Closes
	if len(closes) < minMarketCloses || hist.FirstSeen.IsZero() {
		return MarketFeatures{}, fmt.Errorf("market history too short: %d closes", len(closes))
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	years := now.Sub(hist.FirstSeen.UTC()).Hours() / 24 / 365
	if years < 0 {
		years = 0
	}

	vol := returnVolatility(closes)
	marketScore := synth.Clamp(80-vol*400, 0, 100)
	historicalReturn := (closes[len(closes)-1] - closes[0]) / closes[0]
	historicalScore := synth.Clamp(50+historicalReturn*40-vol*200, 0, 100)

	previousClose := closes[len(closes)-1]
	if len(closes) > 1 {
		previousClose = closes[len(closes)-2]
	}

	return MarketFeatures{
		HistoricalScore: synth.Round2(historicalScore),
		MarketScore:     synth.Round2(marketScore),
		Volatility:      synth.Round2(vol * 100),
		HistoryYears:    synth.Round2(years),
		LatestClose:     synth.Round2(closes[len(closes)-1]),
		PreviousClose:   synth.Round2(previousClose),
	}, nil
}

// FallbackMarket returns deterministic synthetic market features for a symbol.
func FallbackMarket(symbol string) MarketFeatures {
	latest := synth.Score(symbol, 25, 3800, "latest-close")
	previous := latest * (1 - synth.Score(symbol, -0.03, 0.03, "trend"))
	return MarketFeatures{
		HistoricalScore: synth.Score(symbol, 48, 82, "historical"),
		MarketScore:     synth.Score(symbol, 45, 80, "market"),
		Volatility:      synth.Score(symbol, 8, 42, "volatility"),
		HistoryYears:    synth.Score(symbol, 1, 6, "years"),
		LatestClose:     synth.Round2(latest),
		PreviousClose:   synth.Round2(previous),
		Stale:           true,
	}
}

// returnVolatility is the sample standard deviation of simple daily returns.
func returnVolatility(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}

	var returns []float64
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance)
}
