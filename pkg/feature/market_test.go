package feature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var marketNow = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func flatCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func TestMarketFromHistoryFlatSeries(t *testing.T) {
	hist := MarketHistory{
		Closes:    flatCloses(60, 100),
		FirstSeen: marketNow.AddDate(-3, 0, 0),
	}

	got, err := MarketFromHistory(hist, marketNow)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got.Volatility, 1e-9)
	assert.InDelta(t, 80.0, got.MarketScore, 1e-9)
	assert.InDelta(t, 50.0, got.HistoricalScore, 1e-9)
	assert.InDelta(t, 3.0, got.HistoryYears, 0.02)
	assert.Equal(t, 100.0, got.LatestClose)
	assert.Equal(t, 100.0, got.PreviousClose)
	assert.False(t, got.Stale)
}

func TestMarketFromHistoryGrowthSeries(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100 * (1 + 0.005*float64(i)) // steady drift upward
	}
	hist := MarketHistory{Closes: closes, FirstSeen: marketNow.AddDate(-4, 0, 0)}

	got, err := MarketFromHistory(hist, marketNow)
	require.NoError(t, err)
	assert.Greater(t, got.HistoricalScore, 50.0, "positive return must lift the historical score")
	assert.GreaterOrEqual(t, got.MarketScore, 0.0)
	assert.LessOrEqual(t, got.MarketScore, 100.0)
	assert.Greater(t, got.LatestClose, got.PreviousClose)
}

func TestMarketFromHistoryVolatilePenalty(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 112
		}
	}
	hist := MarketHistory{Closes: closes, FirstSeen: marketNow.AddDate(-2, 0, 0)}

	got, err := MarketFromHistory(hist, marketNow)
	require.NoError(t, err)
	assert.Greater(t, got.Volatility, 5.0)
	assert.Less(t, got.MarketScore, 80.0)
}

func TestMarketFromHistoryShortSeriesFails(t *testing.T) {
	_, err := MarketFromHistory(MarketHistory{
		Closes:    flatCloses(20, 50),
		FirstSeen: marketNow.AddDate(-1, 0, 0),
	}, marketNow)
	assert.Error(t, err)

	_, err = MarketFromHistory(MarketHistory{Closes: flatCloses(60, 50)}, marketNow)
	assert.Error(t, err, "missing first-seen date must fail")
}

func TestFallbackMarketDeterministic(t *testing.T) {
	got := FallbackMarket("RELIANCE.NS")
	assert.True(t, got.Stale)
	assert.GreaterOrEqual(t, got.HistoricalScore, 48.0)
	assert.LessOrEqual(t, got.HistoricalScore, 82.0)
	assert.GreaterOrEqual(t, got.MarketScore, 45.0)
	assert.LessOrEqual(t, got.MarketScore, 80.0)
	assert.GreaterOrEqual(t, got.Volatility, 8.0)
	assert.LessOrEqual(t, got.Volatility, 42.0)
	assert.GreaterOrEqual(t, got.HistoryYears, 1.0)
	assert.LessOrEqual(t, got.HistoryYears, 6.0)
	assert.Greater(t, got.LatestClose, 0.0)

	assert.Equal(t, got, FallbackMarket("RELIANCE.NS"))
	assert.NotEqual(t, got, FallbackMarket("TCS.NS"))
}
