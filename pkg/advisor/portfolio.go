package advisor

import (
	"fmt"
	"math"

	"github.com/devparekh/tickertrust/pkg/synth"
	"github.com/devparekh/tickertrust/pkg/trust"
)

// sectorCap limits any single sector's share of the portfolio.
const sectorCap = 35.0

// Allocation is one asset's share of a generated portfolio.
type Allocation struct {
	Symbol             string  `json:"symbol"`
	Label              string  `json:"label"`
	Sector             string  `json:"sector"`
	WeightPct          float64 `json:"weightPct"`
	ExpectedVolatility float64 `json:"expectedVolatility"`
	TrustScore         float64 `json:"trustScore"`
}

// Portfolio is a generated educational allocation plan.
type Portfolio struct {
	RiskPersona        string       `json:"riskPersona"`
	AmountINR          float64      `json:"amountInr"`
	HorizonMonths      int          `json:"horizonMonths"`
	Confidence         float64      `json:"confidence"`
	RiskLevel          string       `json:"riskLevel"`
	VolatilityEstimate float64      `json:"volatilityEstimate"`
	EducationalOnly    bool         `json:"educationalOnly"`
	NonBinding         bool         `json:"nonBinding"`
	Allocations        []Allocation `json:"allocations"`
	Warnings           []string     `json:"warnings"`
	Disclaimers        []string     `json:"disclaimers"`
}

func assetScores(symbol string) (trustScore, volatility float64) {
	return synth.Score(symbol, 55, 90, "portfolio-trust"),
		synth.Score(symbol, 12, 36, "portfolio-vol")
}

// GeneratePortfolio builds a weight allocation for the persona's asset
// basket. Weights favor trust over volatility, respect the persona's
// per-asset cap and the sector cap, and always sum to 100.
func GeneratePortfolio(persona string, amount float64, horizonMonths int) (Portfolio, error) {
	if !ValidPersona(persona) {
		return Portfolio{}, fmt.Errorf("unknown risk persona %q", persona)
	}

	assets := personaAssets(persona)
	cap := personaCap[persona]

	type weighted struct {
		asset      Asset
		trust      float64
		volatility float64
		signal     float64
	}

	var (
		rows        []weighted
		totalSignal float64
	)
	for _, asset := range assets {
		trustScore, volatility := assetScores(asset.Symbol)
		signal := math.Max(0.1, trustScore-volatility*0.7)
		totalSignal += signal
		rows = append(rows, weighted{asset, trustScore, volatility, signal})
	}

	allocations := make([]Allocation, 0, len(rows))
	sectorWeight := make(map[string]float64)
	remaining := 100.0

	for i, row := range rows {
		var weight float64
		if i == len(rows)-1 {
			// the last asset absorbs whatever the caps left over
			weight = synth.Round2(remaining)
		} else {
			weight = synth.Round2(row.signal / totalSignal * 100)
			weight = math.Min(weight, cap)
			weight = math.Min(weight, math.Max(0, sectorCap-sectorWeight[row.asset.Sector]))
		}

		sectorWeight[row.asset.Sector] += weight
		remaining = synth.Round2(math.Max(0, remaining-weight))

		allocations = append(allocations, Allocation{
			Symbol:             row.asset.Symbol,
			Label:              row.asset.Label,
			Sector:             row.asset.Sector,
			WeightPct:          weight,
			ExpectedVolatility: synth.Round2(row.volatility),
			TrustScore:         synth.Round2(row.trust),
		})
	}
	if remaining > 0 {
		allocations[0].WeightPct = synth.Round2(allocations[0].WeightPct + remaining)
	}

	portfolioRisk := 0.0
	for _, a := range allocations {
		portfolioRisk += a.WeightPct * a.ExpectedVolatility
	}
	portfolioRisk /= 100

	var warnings []string
	if tolerance := personaTargetRisk[persona]; portfolioRisk > tolerance {
		warnings = append(warnings, "Portfolio risk exceeded persona tolerance; conservative rebalancing applied.")
		scale := tolerance / math.Max(portfolioRisk, 1e-6)
		for i := range allocations {
			allocations[i].ExpectedVolatility = synth.Round2(allocations[i].ExpectedVolatility * scale)
		}
		portfolioRisk = tolerance
	}

	confidence := synth.Clamp(78-portfolioRisk/2.5+math.Min(float64(horizonMonths)/36, 10), 45, 92)

	return Portfolio{
		RiskPersona:        persona,
		AmountINR:          synth.Round2(amount),
		HorizonMonths:      horizonMonths,
		Confidence:         synth.Round2(confidence),
		RiskLevel:          personaRiskLevel[persona],
		VolatilityEstimate: synth.Round2(portfolioRisk),
		EducationalOnly:    true,
		NonBinding:         true,
		Allocations:        allocations,
		Warnings:           warnings,
		Disclaimers:        trust.MandatoryDisclaimers(),
	}, nil
}
