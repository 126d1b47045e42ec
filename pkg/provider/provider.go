// Package provider implements the upstream data fetchers behind the trust
// engine: Yahoo Finance for price history, NewsAPI and RSS feeds for news,
// and Reddit for social posts. Each provider shares the same guarded HTTP
// path: a client-side rate limit and a circuit breaker, so a misbehaving
// upstream degrades into the engine's deterministic fallbacks instead of
// stalling requests.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const userAgent = "tickertrust/1.0"

// upstream is the shared guarded HTTP path for one remote host.
type upstream struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func newUpstream(name string, rps float64, burst int) *upstream {
	settings := gobreaker.Settings{Name: name}
	settings.Interval = 60 * time.Second
	settings.Timeout = 60 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	return &upstream{
		name:    name,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// getJSON performs a guarded GET and decodes the JSON body into out.
func (u *upstream) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := u.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit: %w", u.name, err)
	}

	_, err := u.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := u.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request: %w", u.name, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s status %d", u.name, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", u.name, err)
		}
		return nil, nil
	})
	return err
}

// baseSymbol strips the exchange suffix from an NSE/BSE ticker.
func baseSymbol(symbol string) string {
	s := strings.TrimSuffix(symbol, ".NS")
	return strings.TrimSuffix(s, ".BO")
}
