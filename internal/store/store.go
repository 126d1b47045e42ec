package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/devparekh/tickertrust/pkg/feature"
	"github.com/devparekh/tickertrust/pkg/trust"
)

// newsHashWindow bounds how far back RecentNewsHashes looks. Hashes older
// than this no longer count as duplicates.
const newsHashWindow = 96 * time.Hour

// SocialSnapshot is one day's aggregated social features for a symbol.
type SocialSnapshot struct {
	Symbol   string                 `json:"symbol"`
	AsOfDate string                 `json:"asOfDate"`
	Features feature.SocialFeatures `json:"features"`
}

// Store is the persistence interface.
type Store interface {
	UpsertNewsItems(ctx context.Context, symbol string, articles []feature.Article) error
	RecentNewsHashes(ctx context.Context, symbol string) (map[string]bool, error)
	SourceCredibility(ctx context.Context) (map[string]float64, error)
	SetSourceCredibility(ctx context.Context, domain string, weight float64) error

	UpsertSocialPosts(ctx context.Context, symbol string, posts []feature.Post) error
	SaveSocialSnapshot(ctx context.Context, symbol, asOfDate string, features feature.SocialFeatures) error
	LatestSocialSnapshot(ctx context.Context, symbol string) (*SocialSnapshot, error)

	SaveTrustScore(ctx context.Context, result trust.Result) error
	LatestTrustScore(ctx context.Context, symbol string) (*trust.Result, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertNewsItems(ctx context.Context, symbol string, articles []feature.Article) error {
	now := time.Now().UTC()
	for _, a := range articles {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO news_items (symbol, source, source_name, title, description, url, published_at, sentiment, confidence, credibility, content_hash, duplicate, ingested_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(symbol, content_hash) DO UPDATE SET
				sentiment = excluded.sentiment,
				confidence = excluded.confidence,
				duplicate = excluded.duplicate,
				ingested_at = excluded.ingested_at
		`, symbol, a.Source, a.SourceName, a.Title, a.Description, a.URL,
			a.PublishedAt, a.Sentiment, a.Confidence, a.Credibility,
			a.ContentHash, a.Duplicate, now)
		if err != nil {
			return fmt.Errorf("upsert news item %s: %w", a.ContentHash, err)
		}
	}
	return nil
}

func (s *SQLiteStore) RecentNewsHashes(ctx context.Context, symbol string) (map[string]bool, error) {
	cutoff := time.Now().UTC().Add(-newsHashWindow)
	var hashes []string
	err := s.db.SelectContext(ctx, &hashes,
		"SELECT content_hash FROM news_items WHERE symbol = ? AND ingested_at >= ?",
		symbol, cutoff)
	if err != nil {
		return nil, fmt.Errorf("recent news hashes %s: %w", symbol, err)
	}

	seen := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		seen[h] = true
	}
	return seen, nil
}

func (s *SQLiteStore) SourceCredibility(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT domain, weight FROM source_credibility")
	if err != nil {
		return nil, fmt.Errorf("source credibility: %w", err)
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var domain string
		var weight float64
		if err := rows.Scan(&domain, &weight); err != nil {
			return nil, err
		}
		weights[domain] = weight
	}
	return weights, rows.Err()
}

// SetSourceCredibility stores an operator override for a source domain.
func (s *SQLiteStore) SetSourceCredibility(ctx context.Context, domain string, weight float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_credibility (domain, weight) VALUES (?, ?)
		ON CONFLICT(domain) DO UPDATE SET weight = excluded.weight
	`, domain, weight)
	if err != nil {
		return fmt.Errorf("set source credibility %s: %w", domain, err)
	}
	return nil
}

func (s *SQLiteStore) UpsertSocialPosts(ctx context.Context, symbol string, posts []feature.Post) error {
	now := time.Now().UTC()
	for _, p := range posts {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO social_posts (symbol, source_post_id, author, created_at, karma, account_age_days, sentiment, is_bot, is_spam, duplicate_text, burst_cluster, content_hash, num_comments, permalink, ingested_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(symbol, source_post_id) DO UPDATE SET
				karma = excluded.karma,
				sentiment = excluded.sentiment,
				is_bot = excluded.is_bot,
				is_spam = excluded.is_spam,
				duplicate_text = excluded.duplicate_text,
				burst_cluster = excluded.burst_cluster,
				num_comments = excluded.num_comments,
				ingested_at = excluded.ingested_at
		`, symbol, p.ID, p.Author, p.CreatedAt, p.Karma, p.AccountAgeDays,
			p.Sentiment, p.IsBot, p.IsSpam, p.DuplicateText, p.BurstCluster,
			p.ContentHash, p.NumComments, p.Permalink, now)
		if err != nil {
			return fmt.Errorf("upsert social post %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveSocialSnapshot(ctx context.Context, symbol, asOfDate string, features feature.SocialFeatures) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO social_daily (symbol, as_of_date, bullish_pct, bearish_pct, hype_velocity, confidence, meme_risk, spike, stale, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, as_of_date) DO UPDATE SET
			bullish_pct = excluded.bullish_pct,
			bearish_pct = excluded.bearish_pct,
			hype_velocity = excluded.hype_velocity,
			confidence = excluded.confidence,
			meme_risk = excluded.meme_risk,
			spike = excluded.spike,
			stale = excluded.stale,
			created_at = excluded.created_at
	`, symbol, asOfDate, features.BullishPct, features.BearishPct,
		features.HypeVelocity, features.Confidence, features.MemeRiskFlag,
		features.SpikeDetected, features.Stale, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save social snapshot %s@%s: %w", symbol, asOfDate, err)
	}
	return nil
}

type socialDailyRow struct {
	Symbol       string  `db:"symbol"`
	AsOfDate     string  `db:"as_of_date"`
	BullishPct   float64 `db:"bullish_pct"`
	BearishPct   float64 `db:"bearish_pct"`
	HypeVelocity float64 `db:"hype_velocity"`
	Confidence   float64 `db:"confidence"`
	MemeRisk     bool    `db:"meme_risk"`
	Spike        bool    `db:"spike"`
	Stale        bool    `db:"stale"`
	CreatedAt    string  `db:"created_at"`
}

func (s *SQLiteStore) LatestSocialSnapshot(ctx context.Context, symbol string) (*SocialSnapshot, error) {
	var row socialDailyRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM social_daily WHERE symbol = ? ORDER BY as_of_date DESC LIMIT 1", symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest social snapshot %s: %w", symbol, err)
	}

	return &SocialSnapshot{
		Symbol:   row.Symbol,
		AsOfDate: row.AsOfDate,
		Features: feature.SocialFeatures{
			BullishPct:    row.BullishPct,
			BearishPct:    row.BearishPct,
			HypeVelocity:  row.HypeVelocity,
			Confidence:    row.Confidence,
			MemeRiskFlag:  row.MemeRisk,
			SpikeDetected: row.Spike,
			Stale:         row.Stale,
		},
	}, nil
}

func (s *SQLiteStore) SaveTrustScore(ctx context.Context, result trust.Result) error {
	componentsJSON, _ := json.Marshal(result.Components)
	explanationsJSON, _ := json.Marshal(result.Explanations)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trust_scores (symbol, as_of_date, trust_score, trust_band, confidence, limited_data, stale_data, components, explanations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, as_of_date) DO UPDATE SET
			trust_score = excluded.trust_score,
			trust_band = excluded.trust_band,
			confidence = excluded.confidence,
			limited_data = excluded.limited_data,
			stale_data = excluded.stale_data,
			components = excluded.components,
			explanations = excluded.explanations,
			created_at = excluded.created_at
	`, result.Symbol, result.AsOfDate, result.TrustScore, result.TrustBand,
		result.Confidence, result.LimitedData, result.StaleData,
		string(componentsJSON), string(explanationsJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save trust score %s@%s: %w", result.Symbol, result.AsOfDate, err)
	}
	return nil
}

type trustScoreRow struct {
	Symbol       string  `db:"symbol"`
	AsOfDate     string  `db:"as_of_date"`
	TrustScore   float64 `db:"trust_score"`
	TrustBand    string  `db:"trust_band"`
	Confidence   float64 `db:"confidence"`
	LimitedData  bool    `db:"limited_data"`
	StaleData    bool    `db:"stale_data"`
	Components   string  `db:"components"`
	Explanations string  `db:"explanations"`
	CreatedAt    string  `db:"created_at"`
}

func (s *SQLiteStore) LatestTrustScore(ctx context.Context, symbol string) (*trust.Result, error) {
	var row trustScoreRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM trust_scores WHERE symbol = ? ORDER BY as_of_date DESC LIMIT 1", symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest trust score %s: %w", symbol, err)
	}

	result := trust.Result{
		Symbol:      row.Symbol,
		AsOfDate:    row.AsOfDate,
		TrustScore:  row.TrustScore,
		TrustBand:   row.TrustBand,
		Confidence:  row.Confidence,
		LimitedData: row.LimitedData,
		StaleData:   row.StaleData,
		Disclaimers: trust.MandatoryDisclaimers(),
	}
	json.Unmarshal([]byte(row.Components), &result.Components)
	json.Unmarshal([]byte(row.Explanations), &result.Explanations)
	return &result, nil
}
