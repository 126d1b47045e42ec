package feature

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/devparekh/tickertrust/pkg/synth"
)

var bullishTerms = []string{"buy", "bull", "accumulate", "upside", "breakout", "long"}

var bearishTerms = []string{"sell", "bear", "downside", "crash", "avoid", "short"}

var memeTerms = []string{"diamond hands", "to the moon", "yolo", "ape", "meme"}

// burstBucketSeconds groups posts into fixed windows to spot coordinated
// posting campaigns.
const burstBucketSeconds = 300

// burstClusterSize is the bucket population at which every post in the
// bucket is treated as spam.
const burstClusterSize = 8

const minPostTextLen = 12

// SocialOptions tunes social extraction. The zero value is usable.
type SocialOptions struct {
	// Now anchors age math; zero means time.Now in UTC.
	Now time.Time
}

func (o SocialOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now.UTC()
}

// ExtractSocial scores raw posts, filters bots, spam and burst clusters, and
// aggregates the remainder into social features. The returned posts carry
// their filter flags so callers can persist what was excluded and why. When
// nothing usable survives, both return values are deterministic synthetic
// fallbacks with Stale set; the function never fails.
func ExtractSocial(symbol string, raw []RawPost, opts SocialOptions) (SocialFeatures, []Post) {
	now := opts.now()

	posts := ScorePosts(symbol, raw, opts)
	if len(posts) == 0 {
		return FallbackSocial(symbol), FallbackPosts(symbol, now)
	}

	var (
		filtered   []Post
		duplicates int
		memeHits   int
	)
	burstBuckets := make(map[int64]bool)
	for _, p := range posts {
		if p.DuplicateText {
			duplicates++
		}
		if p.MemeHit {
			memeHits++
		}
		if p.BurstCluster {
			burstBuckets[p.BurstBucket] = true
		}
		if !p.IsBot && !p.IsSpam {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return FallbackSocial(symbol), FallbackPosts(symbol, now)
	}

	var bullish, bearish, recent int
	for _, p := range filtered {
		switch {
		case p.Sentiment > 0.1:
			bullish++
		case p.Sentiment < -0.1:
			bearish++
		}
		if p.AgeHours <= 6 {
			recent++
		}
	}

	total := len(filtered)
	bullishPct := float64(bullish) / float64(total) * 100
	bearishPct := float64(bearish) / float64(total) * 100

	duplicateRatio := float64(duplicates) / float64(len(posts))
	spike := recent >= 15 || len(burstBuckets) > 0
	polarized := bullishPct-bearishPct > 55 || bearishPct-bullishPct > 55
	memeThreshold := 3
	if scaled := int(float64(total) * 0.25); scaled > memeThreshold {
		memeThreshold = scaled
	}
	memeRisk := memeHits >= memeThreshold || spike || duplicateRatio > 0.30

	hypeVelocity := float64(recent)*8 + float64(len(burstBuckets))*12 + duplicateRatio*30

	confidence := minFloat(100, float64(total)/80*100)
	damp := 1 - duplicateRatio*0.6
	if damp < 0.35 {
		damp = 0.35
	}
	confidence = confidence*damp - float64(len(burstBuckets))*4
	confidence = synth.Clamp(confidence, 20, 98)

	return SocialFeatures{
		BullishPct:    synth.Round2(bullishPct),
		BearishPct:    synth.Round2(bearishPct),
		HypeVelocity:  synth.Round2(hypeVelocity),
		Confidence:    synth.Round2(confidence),
		MemeRiskFlag:  memeRisk || polarized,
		SpikeDetected: spike,
	}, posts
}

// ScorePosts derives flags, sentiment and burst buckets for each usable raw
// post, then applies the burst-cluster override: every post in a bucket with
// burstClusterSize or more posts is marked spam even if it passed the
// per-post checks.
func ScorePosts(symbol string, raw []RawPost, opts SocialOptions) []Post {
	now := opts.now()
	nowUnix := now.Unix()

	seenHashes := make(map[string]bool, len(raw))
	bucketCounts := make(map[int64]int)

	var posts []Post
	for i, r := range raw {
		title := strings.TrimSpace(r.Title)
		body := strings.TrimSpace(r.Body)
		merged := strings.TrimSpace(strings.ToLower(title + " " + body))
		if len(merged) < minPostTextLen {
			continue
		}

		id := r.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d-%d", symbol, i, nowUnix)
		}

		createdAt := r.CreatedAt.UTC()
		if createdAt.IsZero() {
			createdAt = now
		}

		hash := PostHash(title, body)
		duplicate := seenHashes[hash]
		seenHashes[hash] = true

		bucket := createdAt.Unix() / burstBucketSeconds
		bucketCounts[bucket]++

		ageDays := accountAgeDays(r.AuthorCreatedAt, now, id)
		memeHit := false
		for _, term := range memeTerms {
			if strings.Contains(merged, term) {
				memeHit = true
				break
			}
		}

		posts = append(posts, Post{
			ID:             id,
			Author:         r.Author,
			CreatedAt:      createdAt,
			Karma:          r.Karma,
			AccountAgeDays: ageDays,
			Sentiment:      synth.Round2(postSentiment(merged)),
			IsBot:          isProbableBot(r.Author, merged),
			IsSpam:         r.Karma < 5 || ageDays < 21 || duplicate,
			DuplicateText:  duplicate,
			BurstBucket:    bucket,
			MemeHit:        memeHit,
			AgeHours:       synth.Round2(ageHours(createdAt, now)),
			ContentHash:    hash,
			NumComments:    r.NumComments,
			Permalink:      r.Permalink,
		})
	}

	for i := range posts {
		if bucketCounts[posts[i].BurstBucket] >= burstClusterSize {
			posts[i].IsSpam = true
			posts[i].BurstCluster = true
		}
	}
	return posts
}

// FallbackSocial returns deterministic synthetic social features for a symbol.
func FallbackSocial(symbol string) SocialFeatures {
	bullish := synth.Score(symbol, 30, 70, "bullish")
	velocity := synth.Score(symbol, 5, 95, "velocity")
	return SocialFeatures{
		BullishPct:    bullish,
		BearishPct:    synth.Round2(100 - bullish),
		HypeVelocity:  velocity,
		Confidence:    synth.Score(symbol, 35, 85, "social-confidence"),
		MemeRiskFlag:  synth.Score(symbol, 0, 1, "meme-risk") > 0.78,
		SpikeDetected: velocity > 70,
		Stale:         true,
	}
}

// FallbackPosts returns a small deterministic batch of synthetic posts so
// downstream storage keeps a complete row shape during outages.
func FallbackPosts(symbol string, now time.Time) []Post {
	now = now.UTC()
	posts := make([]Post, 0, 5)
	for i := 0; i < 5; i++ {
		posts = append(posts, Post{
			ID:             fmt.Sprintf("fallback-%s-%s-%d", symbol, now.Format("2006010215"), i),
			CreatedAt:      now,
			Karma:          int(synth.Score(symbol, 5, 130, fmt.Sprintf("social-fallback-karma-%d", i))),
			AccountAgeDays: int(synth.Score(symbol, 45, 1400, fmt.Sprintf("social-fallback-age-%d", i))),
			Sentiment:      synth.Score(symbol, -1, 1, fmt.Sprintf("social-fallback-sentiment-%d", i)),
			ContentHash:    fmt.Sprintf("%s-fallback-%d", symbol, i),
		})
	}
	return posts
}

// PostHash hashes the whitespace-normalized lowercase title+body.
func PostHash(title, body string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(title+" "+body)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func postSentiment(text string) float64 {
	bullish := 0
	for _, term := range bullishTerms {
		if strings.Contains(text, term) {
			bullish++
		}
	}
	bearish := 0
	for _, term := range bearishTerms {
		if strings.Contains(text, term) {
			bearish++
		}
	}
	return synth.Clamp(float64(bullish-bearish)/2, -1, 1)
}

func isProbableBot(author, text string) bool {
	a := strings.ToLower(strings.TrimSpace(author))
	if a == "" {
		return true
	}
	return strings.HasSuffix(a, "bot") || strings.Contains(text, "[bot]") || strings.Contains(a, "automod")
}

func accountAgeDays(authorCreatedAt, now time.Time, fallbackKey string) int {
	if !authorCreatedAt.IsZero() && !authorCreatedAt.After(now) {
		days := int(now.Sub(authorCreatedAt).Hours() / 24)
		if days < 0 {
			return 0
		}
		return days
	}
	return int(synth.Score(fallbackKey, 30, 1500, "author-age"))
}
