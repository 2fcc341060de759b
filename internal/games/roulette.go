package games

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MJE43/entropy-casino-engine/internal/entropy"
)

const (
	rouletteNumbers   = 37 // European wheel, single zero
	rouletteAlgorithm = "mod-37"
)

// rouletteRed is the fixed set of red pockets. 0 is green, the rest black.
var rouletteRed = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true,
	12: true, 14: true, 16: true, 18: true, 19: true,
	21: true, 23: true, 25: true, 27: true, 30: true,
	32: true, 34: true, 36: true,
}

// RouletteGame implements European roulette (0-36).
type RouletteGame struct {
	// Now stamps result metadata. Nil leaves GeneratedAt unset.
	Now func() time.Time
}

// RouletteResult is the outcome of one spin.
type RouletteResult struct {
	Common
	Number      int             `json:"number"`
	Color       string          `json:"color"`
	IsZero      bool            `json:"isZero"`
	IsEven      bool            `json:"isEven"`
	IsOdd       bool            `json:"isOdd"`
	IsLow       bool            `json:"isLow"`
	IsHigh      bool            `json:"isHigh"`
	Dozen       int             `json:"dozen,omitempty"`
	Column      int             `json:"column,omitempty"`
	Probability float64         `json:"probability"`
	Payouts     map[BetType]int `json:"payouts"`
}

// Spec returns metadata about the Roulette game.
func (g *RouletteGame) Spec() GameSpec {
	return GameSpec{
		ID:          KindRoulette,
		Name:        "Roulette",
		MetricLabel: "pocket",
		Algorithm:   rouletteAlgorithm,
	}
}

// RouletteNumber maps e onto a pocket: e mod 37.
func RouletteNumber(e entropy.Value) int {
	return int(e.Mod(rouletteNumbers))
}

// RouletteColor returns green, red or black. Numbers outside [0, 36] are an
// error, never coerced.
func RouletteColor(n int) (string, error) {
	if n < 0 || n >= rouletteNumbers {
		return "", fmt.Errorf("%w: %d", ErrInvalidNumber, n)
	}
	switch {
	case n == 0:
		return "green", nil
	case rouletteRed[n]:
		return "red", nil
	default:
		return "black", nil
	}
}

// Process spins the wheel.
func (g *RouletteGame) Process(e entropy.Value) (*RouletteResult, error) {
	return g.describe(e, RouletteNumber(e))
}

func (g *RouletteGame) describe(e entropy.Value, n int) (*RouletteResult, error) {
	color, err := RouletteColor(n)
	if err != nil {
		return nil, err
	}

	result := &RouletteResult{
		Common: Common{
			GameType:     KindRoulette,
			EntropyValue: e,
			Metadata: newMetadata(g.Now, rouletteAlgorithm, map[string]int{
				"pockets": rouletteNumbers,
				"red":     len(rouletteRed),
			}),
		},
		Number:      n,
		Color:       color,
		IsZero:      n == 0,
		Probability: 1.0 / rouletteNumbers,
		Payouts:     PayoutTable(),
	}

	if n != 0 {
		result.IsEven = n%2 == 0
		result.IsOdd = !result.IsEven
		result.IsLow = n <= 18
		result.IsHigh = n >= 19
		result.Dozen = (n-1)/12 + 1
		result.Column = (n-1)%3 + 1
	}

	return result, nil
}

// RouletteProbabilities returns 37 outcomes of 1/37 each.
func RouletteProbabilities() []float64 {
	return UniformProbabilities(rouletteNumbers)
}

// Validate regenerates the number and compares.
func (g *RouletteGame) Validate(e entropy.Value, number int) bool {
	return RouletteNumber(e) == number
}

// Evaluate implements Game. Roulette takes no params.
func (g *RouletteGame) Evaluate(e entropy.Value, _ map[string]any) (GameResult, error) {
	result, err := g.Process(e)
	if err != nil {
		return GameResult{}, err
	}

	return GameResult{
		GameType:     KindRoulette,
		EntropyValue: e,
		Metric:       float64(result.Number),
		MetricLabel:  "pocket",
		Outcome:      result,
	}, nil
}

// Verify implements Game. claimed must decode to a RouletteResult.
func (g *RouletteGame) Verify(e entropy.Value, _ map[string]any, claimed json.RawMessage) (bool, error) {
	var outcome struct {
		Number *int   `json:"number"`
		Color  string `json:"color"`
	}
	if err := json.Unmarshal(claimed, &outcome); err != nil {
		return false, fmt.Errorf("decode roulette outcome: %w", err)
	}
	if outcome.Number == nil {
		return false, nil
	}
	if !g.Validate(e, *outcome.Number) {
		return false, nil
	}
	if outcome.Color != "" {
		color, _ := RouletteColor(*outcome.Number)
		return color == outcome.Color, nil
	}
	return true, nil
}

// Analyze implements Game. The entries model a single straight-up bet on
// params["number"] (default 0): that pocket pays 36x including stake and the
// other 36 lose. Per-bet edges for the rest of the matrix are in Extra.
func (g *RouletteGame) Analyze(params map[string]any) (Analysis, error) {
	number, err := intParam(params, 0, "number")
	if err != nil {
		return Analysis{}, err
	}
	if number < 0 || number >= rouletteNumbers {
		return Analysis{}, fmt.Errorf("%w: %d", ErrInvalidNumber, number)
	}

	probs := RouletteProbabilities()
	multipliers := make([]float64, rouletteNumbers)
	multipliers[number] = float64(rouletteOdds[BetStraight] + 1)

	a := analyzeTable(KindRoulette, map[string]any{"number": number}, multipliers, probs)

	edges := make(map[BetType]float64, len(rouletteOdds))
	for _, bt := range BetTypes() {
		edges[bt] = BetHouseEdge(bt)
	}

	a.Extra = map[string]any{
		"payouts":     PayoutTable(),
		"house_edges": edges,
		"red":         len(rouletteRed),
		"black":       rouletteNumbers - 1 - len(rouletteRed),
		"green":       1,
	}
	return a, nil
}
