package games

import (
	"math"
	"math/big"
)

// probabilityTolerance bounds float drift when summing probability mass.
const probabilityTolerance = 1e-9

// Analysis summarizes the economics of one game configuration.
type Analysis struct {
	Game           Kind           `json:"game"`
	Config         map[string]any `json:"config"`
	Outcomes       int            `json:"outcomes"`
	ExpectedValue  float64        `json:"expected_value"`
	HouseEdge      float64        `json:"house_edge"`
	ProbabilitySum float64        `json:"probability_sum"`
	MinMultiplier  float64        `json:"min_multiplier"`
	MaxMultiplier  float64        `json:"max_multiplier"`
	WinChance      float64        `json:"win_chance"`
	Variance       float64        `json:"variance"`
	StdDev         float64        `json:"std_dev"`
	Entries        []OutcomeEntry `json:"entries,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// OutcomeEntry is one row of an outcome table.
type OutcomeEntry struct {
	Outcome     int     `json:"outcome"`
	Multiplier  float64 `json:"multiplier"`
	Probability float64 `json:"probability"`
}

// BinomialCoefficient returns C(n, k) exactly.
func BinomialCoefficient(n, k int) *big.Int {
	if k < 0 || k > n {
		return new(big.Int)
	}
	return new(big.Int).Binomial(int64(n), int64(k))
}

// BinomialProbabilities returns P(k) = C(n, k) / 2^n for k in [0, n].
func BinomialProbabilities(n int) []float64 {
	denom := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), uint(n)))
	probs := make([]float64, n+1)
	for k := 0; k <= n; k++ {
		num := new(big.Float).SetInt(BinomialCoefficient(n, k))
		p, _ := new(big.Float).Quo(num, denom).Float64()
		probs[k] = p
	}
	return probs
}

// UniformProbabilities returns n outcomes of probability 1/n each.
func UniformProbabilities(n int) []float64 {
	probs := make([]float64, n)
	for i := range probs {
		probs[i] = 1 / float64(n)
	}
	return probs
}

// ExpectedValue returns sum(multiplier[i] * probability[i]).
func ExpectedValue(multipliers, probabilities []float64) float64 {
	ev := 0.0
	for i := range multipliers {
		if i < len(probabilities) {
			ev += multipliers[i] * probabilities[i]
		}
	}
	return ev
}

// analyzeTable fills the distribution statistics shared by fixed-table games.
func analyzeTable(kind Kind, config map[string]any, multipliers, probabilities []float64) Analysis {
	a := Analysis{
		Game:     kind,
		Config:   config,
		Outcomes: len(multipliers),
		Entries:  make([]OutcomeEntry, len(multipliers)),
	}
	if len(multipliers) == 0 {
		return a
	}

	a.MinMultiplier = math.Inf(1)
	a.MaxMultiplier = math.Inf(-1)
	for i, m := range multipliers {
		p := probabilities[i]
		a.ProbabilitySum += p
		a.ExpectedValue += m * p
		if m > 0 {
			a.WinChance += p
		}
		a.MinMultiplier = math.Min(a.MinMultiplier, m)
		a.MaxMultiplier = math.Max(a.MaxMultiplier, m)
		a.Entries[i] = OutcomeEntry{Outcome: i, Multiplier: m, Probability: p}
	}

	for i, m := range multipliers {
		d := m - a.ExpectedValue
		a.Variance += d * d * probabilities[i]
	}
	a.StdDev = math.Sqrt(a.Variance)
	a.HouseEdge = 1 - a.ExpectedValue

	return a
}
