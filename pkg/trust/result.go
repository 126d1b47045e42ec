package trust

// Trust bands, best to worst.
const (
	BandStrong = "STRONG"
	BandWatch  = "WATCH"
	BandRisky  = "RISKY"
	BandAvoid  = "AVOID"
)

// Components is the per-source breakdown behind a trust score.
type Components struct {
	Historical  float64 `json:"historical"`
	Financial   float64 `json:"financial"`
	News        float64 `json:"news"`
	Market      float64 `json:"market"`
	HypePenalty float64 `json:"hypePenalty"`
}

// Result is the complete trust assessment for one (symbol, as-of date)
// request. Immutable once constructed.
type Result struct {
	Symbol       string     `json:"symbol"`
	AsOfDate     string     `json:"asOfDate"`
	TrustScore   float64    `json:"trustScore"` // [0, 100]
	TrustBand    string     `json:"trustBand"`
	Confidence   float64    `json:"confidence"` // [15, 98]
	LimitedData  bool       `json:"limitedData"`
	StaleData    bool       `json:"staleData"`
	Components   Components `json:"components"`
	Explanations []string   `json:"explanations"`
	Disclaimers  []string   `json:"disclaimers"`
}

// BandFor maps a score to its trust band.
func BandFor(score float64) string {
	switch {
	case score >= 80:
		return BandStrong
	case score >= 60:
		return BandWatch
	case score >= 40:
		return BandRisky
	default:
		return BandAvoid
	}
}

// MandatoryDisclaimers returns the fixed educational disclaimers attached to
// every advisory response. Callers get a fresh copy.
func MandatoryDisclaimers() []string {
	return []string{
		"Educational purposes only.",
		"This is not financial advice.",
		"Market risks are involved in all investments.",
		"No guaranteed returns.",
	}
}
