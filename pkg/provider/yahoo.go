package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/devparekh/tickertrust/pkg/feature"
)

// Yahoo fetches daily close history from the Yahoo Finance chart API.
type Yahoo struct {
	upstream *upstream
	baseURL  string
}

// NewYahoo creates a Yahoo Finance market history fetcher.
func NewYahoo() *Yahoo {
	return &Yahoo{
		upstream: newUpstream("yahoo", 2, 4),
		baseURL:  "https://query1.finance.yahoo.com",
	}
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// FetchMarketHistory returns five years of daily closes for a symbol. Null
// closes, which Yahoo emits for holidays, are dropped.
func (y *Yahoo) FetchMarketHistory(ctx context.Context, symbol string) (feature.MarketHistory, error) {
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=5y&interval=1d",
		y.baseURL, url.PathEscape(symbol))

	var payload yahooChart
	if err := y.upstream.getJSON(ctx, reqURL, &payload); err != nil {
		return feature.MarketHistory{}, err
	}
	if len(payload.Chart.Result) == 0 {
		return feature.MarketHistory{}, fmt.Errorf("yahoo chart for %s: empty result", symbol)
	}

	result := payload.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return feature.MarketHistory{}, fmt.Errorf("yahoo chart for %s: no quotes", symbol)
	}

	var closes []float64
	for _, c := range result.Indicators.Quote[0].Close {
		if c != nil {
			closes = append(closes, *c)
		}
	}

	return feature.MarketHistory{
		Closes:    closes,
		FirstSeen: time.Unix(result.Timestamp[0], 0).UTC(),
	}, nil
}
