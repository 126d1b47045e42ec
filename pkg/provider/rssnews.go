package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/devparekh/tickertrust/pkg/feature"
)

// RSSFeed is a named RSS/Atom feed URL.
type RSSFeed struct {
	Name string
	URL  string
}

// RSSNews collects market news from RSS/Atom feeds and keeps the entries
// that mention the requested symbol. It needs no credentials, which makes
// it the news source of last resort before the synthetic fallback.
type RSSNews struct {
	client   *http.Client
	parser   *gofeed.Parser
	feeds    []RSSFeed
	lookback time.Duration
	now      func() time.Time
}

// NewRSSNews creates an RSS news fetcher over the given feeds.
func NewRSSNews(feeds []RSSFeed) *RSSNews {
	return &RSSNews{
		client:   &http.Client{Timeout: 10 * time.Second},
		parser:   gofeed.NewParser(),
		feeds:    feeds,
		lookback: 72 * time.Hour,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FetchArticles returns feed entries from the lookback window that mention
// the base symbol. Feeds that fail to load are skipped; the fetch only
// fails when every feed does.
func (r *RSSNews) FetchArticles(ctx context.Context, symbol string) ([]feature.RawArticle, error) {
	keyword := strings.ToLower(baseSymbol(symbol))

	var (
		articles []feature.RawArticle
		lastErr  error
		loaded   int
	)
	for _, feed := range r.feeds {
		items, err := r.collectFeed(ctx, feed, keyword)
		if err != nil {
			lastErr = err
			continue
		}
		loaded++
		articles = append(articles, items...)
	}
	if loaded == 0 && lastErr != nil {
		return nil, lastErr
	}
	return articles, nil
}

func (r *RSSNews) collectFeed(ctx context.Context, feed RSSFeed, keyword string) ([]feature.RawArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.Name, err)
	}

	now := r.now()
	cutoff := now.Add(-r.lookback)

	var articles []feature.RawArticle
	for _, entry := range parsed.Items {
		published := now
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}
		if published.Before(cutoff) {
			continue
		}

		text := strings.ToLower(entry.Title + " " + entry.Description)
		if !strings.Contains(text, keyword) {
			continue
		}

		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}

		articles = append(articles, feature.RawArticle{
			Title:       entry.Title,
			Description: entry.Description,
			URL:         link,
			SourceName:  feed.Name,
			PublishedAt: published,
		})
	}
	return articles, nil
}
