package advisor

import (
	"strings"

	"github.com/devparekh/tickertrust/pkg/synth"
	"github.com/devparekh/tickertrust/pkg/trust"
)

// Quiz sections and their blend weights.
var sectionWeights = map[string]float64{
	"emotional":  0.40,
	"financial":  0.35,
	"behavioral": 0.25,
}

// QuizAnswer is one response to the risk questionnaire.
type QuizAnswer struct {
	Section string  `json:"section"`
	Value   float64 `json:"value"`
}

// RiskProfile is the scored outcome of the risk questionnaire.
type RiskProfile struct {
	RiskScore   float64  `json:"riskScore"`
	Persona     string   `json:"persona"`
	RiskLevel   string   `json:"riskLevel"`
	Warnings    []string `json:"warnings"`
	Disclaimers []string `json:"disclaimers"`
}

// PersonaFor maps a risk score to its persona and risk level.
func PersonaFor(score float64) (persona, riskLevel string) {
	switch {
	case score < 35:
		return PersonaTurtle, "CONSERVATIVE"
	case score < 60:
		return PersonaOwl, "MODERATE"
	case score < 80:
		return PersonaTiger, "AGGRESSIVE"
	default:
		return PersonaFalcon, "VERY_AGGRESSIVE"
	}
}

// ScoreQuiz blends the per-section answer averages into a risk score.
// Answers outside the known sections are ignored, and missing sections scale
// the score down so an incomplete quiz cannot land in an aggressive persona.
func ScoreQuiz(answers []QuizAnswer) RiskProfile {
	buckets := make(map[string][]float64)
	for _, a := range answers {
		section := strings.ToLower(strings.TrimSpace(a.Section))
		if _, ok := sectionWeights[section]; ok {
			buckets[section] = append(buckets[section], a.Value)
		}
	}

	var (
		weighted float64
		answered int
		missing  bool
	)
	for section, weight := range sectionWeights {
		values := buckets[section]
		if len(values) == 0 {
			missing = true
			continue
		}
		answered++
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		weighted += sum / float64(len(values)) * weight
	}

	completion := float64(answered) / float64(len(sectionWeights))
	riskScore := synth.Clamp(synth.Round2(weighted*completion), 0, 100)
	persona, riskLevel := PersonaFor(riskScore)

	var warnings []string
	if riskScore >= 75 {
		warnings = append(warnings, "Your responses indicate higher risk tolerance. Ensure this matches your financial situation.")
	}
	if missing {
		warnings = append(warnings, "Some response categories were incomplete. Confidence in your persona is reduced.")
	}

	return RiskProfile{
		RiskScore:   riskScore,
		Persona:     persona,
		RiskLevel:   riskLevel,
		Warnings:    warnings,
		Disclaimers: trust.MandatoryDisclaimers(),
	}
}
