// Package advisor builds educational portfolio, SIP and risk-persona
// outputs. Per-asset trust and volatility inputs come from the deterministic
// synthetic generator, so the same request always produces the same plan.
package advisor

// Risk personas, most to least conservative.
const (
	PersonaTurtle = "TURTLE"
	PersonaOwl    = "OWL"
	PersonaTiger  = "TIGER"
	PersonaFalcon = "FALCON"
)

// Asset is one investable instrument in the curated universe.
type Asset struct {
	Symbol string `json:"symbol"`
	Label  string `json:"label"`
	Sector string `json:"sector"`
}

// Universe is the curated NSE asset list the advisor allocates over.
var Universe = []Asset{
	{"NIFTYBEES.NS", "Nippon India ETF Nifty 50", "ETF"},
	{"RELIANCE.NS", "Reliance Industries", "Energy"},
	{"TCS.NS", "Tata Consultancy Services", "Information Technology"},
	{"INFY.NS", "Infosys", "Information Technology"},
	{"HDFCBANK.NS", "HDFC Bank", "Financial Services"},
	{"ICICIBANK.NS", "ICICI Bank", "Financial Services"},
	{"ITC.NS", "ITC", "FMCG"},
	{"HINDUNILVR.NS", "Hindustan Unilever", "FMCG"},
	{"LT.NS", "Larsen & Toubro", "Industrials"},
}

// Symbols returns the universe ticker list, used as the default tracked set
// for ingestion and recompute jobs.
func Symbols() []string {
	symbols := make([]string, len(Universe))
	for i, a := range Universe {
		symbols[i] = a.Symbol
	}
	return symbols
}

var personaCap = map[string]float64{
	PersonaTurtle: 25,
	PersonaOwl:    30,
	PersonaTiger:  35,
	PersonaFalcon: 40,
}

var personaTargetRisk = map[string]float64{
	PersonaTurtle: 30,
	PersonaOwl:    50,
	PersonaTiger:  70,
	PersonaFalcon: 85,
}

var personaRiskLevel = map[string]string{
	PersonaTurtle: "Conservative",
	PersonaOwl:    "Moderate",
	PersonaTiger:  "Aggressive",
	PersonaFalcon: "Very Aggressive",
}

func personaAssets(persona string) []Asset {
	switch persona {
	case PersonaTurtle:
		return []Asset{Universe[0], Universe[4], Universe[6], Universe[7]}
	case PersonaOwl:
		return []Asset{Universe[0], Universe[1], Universe[4], Universe[6], Universe[8]}
	case PersonaTiger:
		return []Asset{Universe[0], Universe[1], Universe[2], Universe[4], Universe[8]}
	default:
		return []Asset{Universe[0], Universe[1], Universe[2], Universe[3], Universe[8]}
	}
}

// ValidPersona reports whether persona is one of the four risk personas.
func ValidPersona(persona string) bool {
	_, ok := personaCap[persona]
	return ok
}
