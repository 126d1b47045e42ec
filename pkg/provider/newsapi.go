package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/devparekh/tickertrust/pkg/feature"
)

// ErrNoAPIKey is returned when a provider is constructed without credentials.
// The engine treats it like any other fetch failure and falls back.
var ErrNoAPIKey = errors.New("news api key not configured")

// NewsAPI fetches recent articles from newsapi.org.
type NewsAPI struct {
	upstream    *upstream
	baseURL     string
	apiKey      string
	querySuffix string
	lookback    time.Duration
	now         func() time.Time
}

// NewNewsAPI creates a NewsAPI article fetcher. querySuffix is appended to
// the base symbol to focus the search; empty means "stock India".
func NewNewsAPI(apiKey, querySuffix string) *NewsAPI {
	if querySuffix == "" {
		querySuffix = "stock India"
	}
	return &NewsAPI{
		upstream:    newUpstream("newsapi", 1, 2),
		baseURL:     "https://newsapi.org",
		apiKey:      apiKey,
		querySuffix: querySuffix,
		lookback:    72 * time.Hour,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// FetchArticles returns recent raw articles for a symbol, newest first.
func (n *NewsAPI) FetchArticles(ctx context.Context, symbol string) ([]feature.RawArticle, error) {
	if n.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	now := n.now()
	query := url.Values{}
	query.Set("q", baseSymbol(symbol)+" "+n.querySuffix)
	query.Set("from", now.Add(-n.lookback).Format("2006-01-02"))
	query.Set("sortBy", "publishedAt")
	query.Set("pageSize", "30")
	query.Set("apiKey", n.apiKey)
	reqURL := n.baseURL + "/v2/everything?" + query.Encode()

	var payload newsAPIResponse
	if err := n.upstream.getJSON(ctx, reqURL, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q", payload.Status)
	}

	articles := make([]feature.RawArticle, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		published, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			published = now
		}
		articles = append(articles, feature.RawArticle{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			SourceName:  a.Source.Name,
			PublishedAt: published,
		})
	}
	return articles, nil
}
