package feature

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/devparekh/tickertrust/pkg/synth"
)

var positiveTerms = []string{"growth", "beat", "record", "strong", "profit", "upgrade", "expands"}

var negativeTerms = []string{"fraud", "loss", "downgrade", "fall", "decline", "investigation", "debt"}

// DefaultSourceWeights maps well-known source domains to credibility weights.
// Callers may layer overrides on top via NewsOptions.SourceWeights.
var DefaultSourceWeights = map[string]float64{
	"moneycontrol.com":             0.85,
	"livemint.com":                 0.82,
	"economictimes.indiatimes.com": 0.80,
	"business-standard.com":        0.78,
}

const unknownSourceWeight = 0.5

// NewsOptions tunes news extraction. The zero value is usable.
type NewsOptions struct {
	// Now anchors recency math; zero means time.Now in UTC.
	Now time.Time
	// SourceWeights overrides DefaultSourceWeights per domain or source name.
	SourceWeights map[string]float64
	// SeenHashes holds content hashes already observed in recent runs.
	// Absence degrades de-duplication to within-batch only.
	SeenHashes map[string]bool
}

func (o NewsOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now.UTC()
}

func (o NewsOptions) sourceWeight(domain, sourceName string) float64 {
	lookup := func(key string) (float64, bool) {
		if w, ok := o.SourceWeights[key]; ok {
			return w, true
		}
		w, ok := DefaultSourceWeights[key]
		return w, ok
	}

	if w, ok := lookup(domain); ok {
		return w
	}
	if w, ok := lookup(strings.ToLower(strings.TrimSpace(sourceName))); ok {
		return w
	}
	if w, ok := lookup("unknown"); ok {
		return w
	}
	return unknownSourceWeight
}

// ExtractNews scores and aggregates a batch of raw articles into news
// features. An empty or unusable batch falls back to synthetic features with
// Stale set; the function never fails.
func ExtractNews(symbol string, raw []RawArticle, opts NewsOptions) NewsFeatures {
	articles := ScoreArticles(raw, opts)
	if len(articles) == 0 {
		return FallbackNews(symbol)
	}
	MarkDuplicates(articles, opts.SeenHashes)
	return aggregateNews(articles, opts.now())
}

// FallbackNews returns deterministic synthetic news features for a symbol.
func FallbackNews(symbol string) NewsFeatures {
	return NewsFeatures{
		NewsScore:     synth.Score(symbol, 40, 85, "news"),
		Confidence:    synth.Score(symbol, 45, 90, "news-confidence"),
		SpikeDetected: synth.Score(symbol, 0, 1, "news-spike") > 0.8,
		Stale:         true,
	}
}

// ScoreArticles derives sentiment, credibility, confidence and a content hash
// for each usable raw article. Articles without a title or URL are dropped.
func ScoreArticles(raw []RawArticle, opts NewsOptions) []Article {
	now := opts.now()

	var articles []Article
	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		urlValue := strings.TrimSpace(r.URL)
		if title == "" || urlValue == "" {
			continue
		}

		description := strings.TrimSpace(r.Description)
		domain := sourceDomain(urlValue)
		publishedAt := r.PublishedAt.UTC()
		if publishedAt.IsZero() {
			publishedAt = now
		}

		credibility := synth.Clamp(opts.sourceWeight(domain, r.SourceName), 0.1, 1.0)

		articles = append(articles, Article{
			Source:      domain,
			SourceName:  r.SourceName,
			Title:       title,
			Description: description,
			URL:         urlValue,
			PublishedAt: publishedAt,
			Sentiment:   synth.Round2(scoreText(title, description)),
			Confidence:  articleConfidence(credibility, publishedAt, now),
			Credibility: synth.Round2(credibility),
			ContentHash: ArticleHash(title, description, domain),
		})
	}
	return articles
}

// MarkDuplicates flags every article whose content hash was already seen,
// either in the supplied set or earlier in the batch, and returns the number
// of duplicates. First occurrences stay unflagged.
func MarkDuplicates(articles []Article, seen map[string]bool) int {
	observed := make(map[string]bool, len(articles)+len(seen))
	for h := range seen {
		observed[h] = true
	}

	duplicates := 0
	for i := range articles {
		h := articles[i].ContentHash
		if observed[h] {
			articles[i].Duplicate = true
			duplicates++
			continue
		}
		articles[i].Duplicate = false
		observed[h] = true
	}
	return duplicates
}

// ArticleHash hashes whitespace-normalized lowercase title+description joined
// with the source domain. Shared with the ingest job so stored hashes line up
// with batch hashes.
func ArticleHash(title, description, sourceDomain string) string {
	text := strings.Join(strings.Fields(strings.ToLower(title+" "+description)), " ")
	sum := sha256.Sum256([]byte(text + "::" + sourceDomain))
	return hex.EncodeToString(sum[:])
}

func aggregateNews(articles []Article, now time.Time) NewsFeatures {
	var (
		weightedSignal float64
		totalWeight    float64
		confidenceSum  float64
		duplicates     int
		lastHourCount  int
	)
	sources := make(map[string]bool)

	for _, a := range articles {
		sources[a.Source] = true
		confidenceSum += a.Confidence
		if a.Duplicate {
			duplicates++
		}

		ageHours := ageHours(a.PublishedAt, now)
		recency := recencyWeight(ageHours)
		combined := a.Credibility * recency
		weightedSignal += a.Sentiment * combined
		totalWeight += combined

		if ageHours <= 1 {
			lastHourCount++
		}
	}

	signal := 0.0
	if totalWeight > 0 {
		signal = weightedSignal / totalWeight
	}

	total := len(articles)
	duplicationFactor := 1.0 - float64(duplicates)/float64(total)
	if duplicationFactor < 0.5 {
		duplicationFactor = 0.5
	}

	newsScore := synth.Clamp((60+signal*20)*duplicationFactor, 0, 100)

	coverage := minFloat(1, float64(total)/25)
	diversity := minFloat(1, float64(len(sources))/8)
	avgConfidence := confidenceSum / float64(total) / 100
	confidence := synth.Clamp((0.35*coverage+0.25*diversity+0.40*avgConfidence)*100, 0, 100)

	return NewsFeatures{
		NewsScore:     synth.Round2(newsScore),
		Confidence:    synth.Round2(confidence),
		SpikeDetected: lastHourCount >= 8,
		LowConfidence: confidence < 45,
	}
}

func scoreText(title, description string) float64 {
	text := strings.ToLower(title + " " + description)
	positive := 0
	for _, term := range positiveTerms {
		if strings.Contains(text, term) {
			positive++
		}
	}
	negative := 0
	for _, term := range negativeTerms {
		if strings.Contains(text, term) {
			negative++
		}
	}
	return synth.Clamp(float64(positive-negative)/3, -1, 1)
}

func articleConfidence(credibility float64, publishedAt, now time.Time) float64 {
	recency := recencyWeight(ageHours(publishedAt, now))
	return synth.Round2(synth.Clamp(credibility*70+recency*30, 20, 95))
}

func ageHours(publishedAt, now time.Time) float64 {
	hours := now.Sub(publishedAt).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

func recencyWeight(ageHours float64) float64 {
	recency := 1.0 - minFloat(ageHours/72, 0.9)
	if recency < 0.1 {
		return 0.1
	}
	return recency
}

func sourceDomain(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "unknown"
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "unknown"
	}
	return host
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
