package advisor

import (
	"github.com/devparekh/tickertrust/pkg/synth"
	"github.com/devparekh/tickertrust/pkg/trust"
)

// lowBudgetINR is the monthly budget under which concentration risk is
// called out.
const lowBudgetINR = 1500.0

// SIPPlan is a generated systematic-investment-plan layout.
type SIPPlan struct {
	MonthlyBudgetINR  float64      `json:"monthlyBudgetInr"`
	RiskPersona       string       `json:"riskPersona"`
	HorizonMonths     int          `json:"horizonMonths"`
	ExpectedDrawdown  float64      `json:"expectedDrawdown"`
	RebalanceTriggers []string     `json:"rebalanceTriggers"`
	Allocations       []Allocation `json:"allocations"`
	Warnings          []string     `json:"warnings"`
	Disclaimers       []string     `json:"disclaimers"`
}

// GenerateSIPPlan derives a monthly plan from the persona's portfolio and
// reconciles rounding drift so the weights sum to exactly 100.
func GenerateSIPPlan(monthlyBudget float64, persona string, horizonMonths int) (SIPPlan, error) {
	base, err := GeneratePortfolio(persona, monthlyBudget, horizonMonths)
	if err != nil {
		return SIPPlan{}, err
	}

	allocations := make([]Allocation, len(base.Allocations))
	copy(allocations, base.Allocations)

	totalWeight := 0.0
	for _, a := range allocations {
		totalWeight += a.WeightPct
	}
	if totalWeight != 100 {
		allocations[0].WeightPct = synth.Round2(allocations[0].WeightPct + (100 - totalWeight))
	}

	warnings := append([]string{}, base.Warnings...)
	if monthlyBudget < lowBudgetINR {
		warnings = append(warnings, "Lower monthly budgets can increase concentration risk over time.")
	}

	return SIPPlan{
		MonthlyBudgetINR: synth.Round2(monthlyBudget),
		RiskPersona:      persona,
		HorizonMonths:    horizonMonths,
		ExpectedDrawdown: synth.Round2(synth.Clamp(base.VolatilityEstimate*0.8, 4, 32)),
		RebalanceTriggers: []string{
			"Allocation drift > 8%",
			"Risk persona change",
			"Major trust score shift (>12 points)",
		},
		Allocations: allocations,
		Warnings:    warnings,
		Disclaimers: trust.MandatoryDisclaimers(),
	}, nil
}
