// Package feature turns raw upstream rows into per-source feature sets. The
// extractors are pure functions of their input rows: same rows, same options,
// same output. When a source yields nothing usable they fall back to the
// deterministic synthetic generator and mark the result stale.
package feature

import "time"

// MarketFeatures summarizes long-horizon price behavior for one symbol.
type MarketFeatures struct {
	HistoricalScore float64 `json:"historicalScore"`
	MarketScore     float64 `json:"marketScore"`
	Volatility      float64 `json:"volatility"` // stddev of daily returns, in percent
	HistoryYears    float64 `json:"historyYears"`
	LatestClose     float64 `json:"latestClose"`
	PreviousClose   float64 `json:"previousClose"`
	Stale           bool    `json:"stale"`
}

// NewsFeatures summarizes a batch of news articles for one symbol.
type NewsFeatures struct {
	NewsScore     float64 `json:"newsScore"`  // [0, 100]
	Confidence    float64 `json:"confidence"` // [0, 100]
	SpikeDetected bool    `json:"spikeDetected"`
	LowConfidence bool    `json:"lowConfidence"`
	Stale         bool    `json:"stale"`
}

// SocialFeatures summarizes filtered social posts for one symbol.
type SocialFeatures struct {
	BullishPct    float64 `json:"bullishPct"`
	BearishPct    float64 `json:"bearishPct"`
	HypeVelocity  float64 `json:"hypeVelocity"`
	Confidence    float64 `json:"confidence"` // [20, 98]
	MemeRiskFlag  bool    `json:"memeRiskFlag"`
	SpikeDetected bool    `json:"spikeDetected"`
	Stale         bool    `json:"stale"`
}

// RawArticle is an unscored news article as returned by a fetcher.
type RawArticle struct {
	Title       string
	Description string
	URL         string
	SourceName  string
	PublishedAt time.Time
}

// Article is a scored news article. Created per fetch, consumed by
// aggregation, and optionally persisted by the ingest job.
type Article struct {
	Source      string // source domain
	SourceName  string
	Title       string
	Description string
	URL         string
	PublishedAt time.Time
	Sentiment   float64 // [-1, 1]
	Confidence  float64 // [20, 95]
	Credibility float64 // [0.1, 1.0]
	ContentHash string
	Duplicate   bool
}

// RawPost is an unscored social post as returned by a fetcher.
type RawPost struct {
	ID              string
	Author          string
	Title           string
	Body            string
	CreatedAt       time.Time
	Karma           int
	AuthorCreatedAt time.Time // zero when the platform did not report it
	NumComments     int
	Permalink       string
}

// Post is a scored social post. Flags may be upgraded once during
// burst-cluster post-processing; never mutated after aggregation.
type Post struct {
	ID             string
	Author         string
	CreatedAt      time.Time
	Karma          int
	AccountAgeDays int
	Sentiment      float64 // [-1, 1]
	IsBot          bool
	IsSpam         bool
	DuplicateText  bool
	BurstBucket    int64
	BurstCluster   bool
	MemeHit        bool
	AgeHours       float64
	ContentHash    string
	NumComments    int
	Permalink      string
}
