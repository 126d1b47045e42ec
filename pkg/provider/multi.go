package provider

import (
	"context"
	"fmt"

	"github.com/devparekh/tickertrust/pkg/feature"
)

// MultiNews merges articles from several fetchers. A fetcher failure is
// tolerated as long as at least one succeeds; the merged batch may still be
// empty, which the feature layer resolves with its synthetic fallback.
type MultiNews struct {
	fetchers []ArticleFetcher
}

// ArticleFetcher mirrors the engine's news dependency so fetchers compose
// without importing the trust package.
type ArticleFetcher interface {
	FetchArticles(ctx context.Context, symbol string) ([]feature.RawArticle, error)
}

// NewMultiNews combines article fetchers, queried in order.
func NewMultiNews(fetchers ...ArticleFetcher) *MultiNews {
	return &MultiNews{fetchers: fetchers}
}

// FetchArticles returns the union of all fetchers' articles.
func (m *MultiNews) FetchArticles(ctx context.Context, symbol string) ([]feature.RawArticle, error) {
	var (
		merged  []feature.RawArticle
		lastErr error
		ok      int
	)
	for _, f := range m.fetchers {
		articles, err := f.FetchArticles(ctx, symbol)
		if err != nil {
			lastErr = err
			continue
		}
		ok++
		merged = append(merged, articles...)
	}
	if ok == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("all news fetchers failed: %w", lastErr)
		}
		return nil, fmt.Errorf("no news fetchers configured")
	}
	return merged, nil
}
