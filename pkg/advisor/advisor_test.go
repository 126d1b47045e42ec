package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weightSum(allocations []Allocation) float64 {
	sum := 0.0
	for _, a := range allocations {
		sum += a.WeightPct
	}
	return sum
}

func TestGeneratePortfolioInvariants(t *testing.T) {
	for _, persona := range []string{PersonaTurtle, PersonaOwl, PersonaTiger, PersonaFalcon} {
		t.Run(persona, func(t *testing.T) {
			got, err := GeneratePortfolio(persona, 50000, 24)
			require.NoError(t, err)

			assert.Equal(t, persona, got.RiskPersona)
			assert.Equal(t, personaRiskLevel[persona], got.RiskLevel)
			assert.InDelta(t, 100.0, weightSum(got.Allocations), 0.05)
			assert.GreaterOrEqual(t, got.Confidence, 45.0)
			assert.LessOrEqual(t, got.Confidence, 92.0)
			assert.True(t, got.EducationalOnly)
			assert.True(t, got.NonBinding)
			assert.Len(t, got.Disclaimers, 4)
			for _, a := range got.Allocations {
				assert.GreaterOrEqual(t, a.WeightPct, 0.0, a.Symbol)
				assert.GreaterOrEqual(t, a.TrustScore, 55.0, a.Symbol)
				assert.LessOrEqual(t, a.TrustScore, 90.0, a.Symbol)
			}
			assert.LessOrEqual(t, got.VolatilityEstimate, personaTargetRisk[persona],
				"rebalancing must keep risk within the persona tolerance")

			again, err := GeneratePortfolio(persona, 50000, 24)
			require.NoError(t, err)
			assert.Equal(t, got, again, "same request must reproduce the plan")
		})
	}
}

func TestGeneratePortfolioUnknownPersona(t *testing.T) {
	_, err := GeneratePortfolio("SHARK", 10000, 12)
	assert.Error(t, err)
}

func TestGeneratePortfolioBasketSizes(t *testing.T) {
	turtle, err := GeneratePortfolio(PersonaTurtle, 10000, 12)
	require.NoError(t, err)
	assert.Len(t, turtle.Allocations, 4)

	falcon, err := GeneratePortfolio(PersonaFalcon, 10000, 12)
	require.NoError(t, err)
	assert.Len(t, falcon.Allocations, 5)
}

func TestGenerateSIPPlan(t *testing.T) {
	got, err := GenerateSIPPlan(5000, PersonaOwl, 36)
	require.NoError(t, err)

	assert.Equal(t, 5000.0, got.MonthlyBudgetINR)
	assert.InDelta(t, 100.0, weightSum(got.Allocations), 0.01, "SIP weights must reconcile to 100")
	assert.GreaterOrEqual(t, got.ExpectedDrawdown, 4.0)
	assert.LessOrEqual(t, got.ExpectedDrawdown, 32.0)
	assert.Len(t, got.RebalanceTriggers, 3)
	assert.Len(t, got.Disclaimers, 4)
	assert.NotContains(t, got.Warnings, "Lower monthly budgets can increase concentration risk over time.")
}

func TestGenerateSIPPlanLowBudgetWarning(t *testing.T) {
	got, err := GenerateSIPPlan(900, PersonaTurtle, 12)
	require.NoError(t, err)
	assert.Contains(t, got.Warnings, "Lower monthly budgets can increase concentration risk over time.")
}

func TestGenerateSIPPlanUnknownPersona(t *testing.T) {
	_, err := GenerateSIPPlan(2000, "WHALE", 12)
	assert.Error(t, err)
}

func TestScoreQuizBlendsSections(t *testing.T) {
	got := ScoreQuiz([]QuizAnswer{
		{Section: "emotional", Value: 80},
		{Section: "emotional", Value: 80},
		{Section: "financial", Value: 60},
		{Section: "behavioral", Value: 40},
	})
	assert.InDelta(t, 63.0, got.RiskScore, 0.01)
	assert.Equal(t, PersonaTiger, got.Persona)
	assert.Equal(t, "AGGRESSIVE", got.RiskLevel)
	assert.Empty(t, got.Warnings)
}

func TestScoreQuizIncompleteSectionsScaleDown(t *testing.T) {
	got := ScoreQuiz([]QuizAnswer{{Section: "emotional", Value: 90}})
	assert.InDelta(t, 12.0, got.RiskScore, 0.01, "one of three sections scales the score by a third")
	assert.Equal(t, PersonaTurtle, got.Persona)
	assert.Contains(t, got.Warnings, "Some response categories were incomplete. Confidence in your persona is reduced.")
}

func TestScoreQuizHighRiskWarning(t *testing.T) {
	got := ScoreQuiz([]QuizAnswer{
		{Section: "emotional", Value: 90},
		{Section: "financial", Value: 90},
		{Section: "behavioral", Value: 90},
	})
	assert.InDelta(t, 90.0, got.RiskScore, 0.01)
	assert.Equal(t, PersonaFalcon, got.Persona)
	assert.Contains(t, got.Warnings, "Your responses indicate higher risk tolerance. Ensure this matches your financial situation.")
}

func TestScoreQuizIgnoresUnknownSections(t *testing.T) {
	got := ScoreQuiz([]QuizAnswer{
		{Section: "astrological", Value: 100},
		{Section: "Emotional", Value: 30},
		{Section: "financial", Value: 30},
		{Section: "behavioral", Value: 30},
	})
	assert.InDelta(t, 30.0, got.RiskScore, 0.01, "section names are case-insensitive, unknown ones ignored")
}

func TestScoreQuizEmpty(t *testing.T) {
	got := ScoreQuiz(nil)
	assert.Equal(t, 0.0, got.RiskScore)
	assert.Equal(t, PersonaTurtle, got.Persona)
	assert.Contains(t, got.Warnings, "Some response categories were incomplete. Confidence in your persona is reduced.")
}

func TestPersonaForBoundaries(t *testing.T) {
	tests := []struct {
		score   float64
		persona string
	}{
		{0, PersonaTurtle},
		{34.99, PersonaTurtle},
		{35, PersonaOwl},
		{59.99, PersonaOwl},
		{60, PersonaTiger},
		{79.99, PersonaTiger},
		{80, PersonaFalcon},
		{100, PersonaFalcon},
	}
	for _, tt := range tests {
		persona, _ := PersonaFor(tt.score)
		assert.Equal(t, tt.persona, persona, "score %.2f", tt.score)
	}
}

func TestSymbolsMatchesUniverse(t *testing.T) {
	symbols := Symbols()
	require.Len(t, symbols, len(Universe))
	assert.Equal(t, "NIFTYBEES.NS", symbols[0])
	assert.Contains(t, symbols, "RELIANCE.NS")
}
