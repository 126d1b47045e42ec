package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/devparekh/tickertrust/pkg/feature"
)

const defaultSubreddit = "IndianStreetBets"

// Reddit fetches recent posts mentioning a symbol from a subreddit's public
// search endpoint. No authentication; the search listing is public.
type Reddit struct {
	upstream  *upstream
	baseURL   string
	subreddit string
}

// NewReddit creates a Reddit post fetcher. An empty subreddit uses the
// default retail-investor community.
func NewReddit(subreddit string) *Reddit {
	if subreddit == "" {
		subreddit = defaultSubreddit
	}
	return &Reddit{
		upstream:  newUpstream("reddit", 1, 2),
		baseURL:   "https://www.reddit.com",
		subreddit: subreddit,
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Selftext         string  `json:"selftext"`
	Author           string  `json:"author"`
	Score            int     `json:"score"`
	NumComments      int     `json:"num_comments"`
	Permalink        string  `json:"permalink"`
	CreatedUTC       float64 `json:"created_utc"`
	AuthorCreatedUTC float64 `json:"author_created_utc"`
}

// FetchPosts returns the newest posts matching the base symbol.
func (r *Reddit) FetchPosts(ctx context.Context, symbol string) ([]feature.RawPost, error) {
	query := url.Values{}
	query.Set("q", baseSymbol(symbol))
	query.Set("restrict_sr", "1")
	query.Set("sort", "new")
	query.Set("limit", "100")
	reqURL := fmt.Sprintf("%s/r/%s/search.json?%s", r.baseURL, r.subreddit, query.Encode())

	var listing redditListing
	if err := r.upstream.getJSON(ctx, reqURL, &listing); err != nil {
		return nil, err
	}

	posts := make([]feature.RawPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data
		post := feature.RawPost{
			ID:          p.ID,
			Author:      p.Author,
			Title:       p.Title,
			Body:        p.Selftext,
			Karma:       p.Score,
			NumComments: p.NumComments,
			Permalink:   p.Permalink,
		}
		if p.CreatedUTC > 0 {
			post.CreatedAt = time.Unix(int64(p.CreatedUTC), 0).UTC()
		}
		if p.AuthorCreatedUTC > 0 {
			post.AuthorCreatedAt = time.Unix(int64(p.AuthorCreatedUTC), 0).UTC()
		}
		posts = append(posts, post)
	}
	return posts, nil
}
