package games

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/entropy-casino-engine/internal/entropy"
)

// MinesGame implements the Mines outcome processor.
// The board is a fixed 5x5 grid (25 tiles) with 1-24 mines placed by a
// Fisher-Yates selection driven by a single entropy value.
type MinesGame struct {
	// Now stamps result metadata. Nil leaves GeneratedAt unset.
	Now func() time.Time
}

const (
	minesTotalTiles   = 25
	minesGridSize     = 5
	minesDefaultCount = 3
	minesMinCount     = 1
	minesMaxCount     = 24
	minesAlgorithm    = "fisher-yates-mod-draw"
)

// minesHouseEdgeFactor scales the fair reveal multiplier.
var minesHouseEdgeFactor = decimal.RequireFromString("0.98")

// MinesConfig configures a Mines round.
type MinesConfig struct {
	MineCount int `json:"mineCount"`
}

// Validate checks the mine count bounds.
func (c MinesConfig) Validate() error {
	if c.MineCount < minesMinCount || c.MineCount > minesMaxCount {
		return fmt.Errorf("%w: mines count must be between %d and %d, got %d",
			ErrInvalidConfiguration, minesMinCount, minesMaxCount, c.MineCount)
	}
	return nil
}

// MinesResult is the outcome of a Mines round.
type MinesResult struct {
	Common
	MineCount     int        `json:"mineCount"`
	MinePositions []int      `json:"minePositions"`
	SafePositions []int      `json:"safePositions"`
	Multipliers   []float64  `json:"multipliers"`
	Grid          [][]string `json:"grid"`
}

// MultiplierFor returns the payout multiplier after reveals safe tiles, or 0
// when reveals is out of range.
func (r *MinesResult) MultiplierFor(reveals int) float64 {
	if reveals < 1 || reveals > len(r.Multipliers) {
		return 0
	}
	return r.Multipliers[reveals-1]
}

// Spec returns metadata about the Mines game.
func (g *MinesGame) Spec() GameSpec {
	return GameSpec{
		ID:          KindMines,
		Name:        "Mines",
		MetricLabel: "first_mine",
		Algorithm:   minesAlgorithm,
	}
}

// Process places the mines for one round.
func (g *MinesGame) Process(e entropy.Value, cfg MinesConfig) (*MinesResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mines, err := GenerateMinePositions(e, cfg.MineCount)
	if err != nil {
		return nil, err
	}

	multipliers, err := MinesMultipliers(cfg.MineCount)
	if err != nil {
		return nil, err
	}

	mineSet := make(map[int]bool, len(mines))
	for _, pos := range mines {
		mineSet[pos] = true
	}

	safe := make([]int, 0, minesTotalTiles-len(mines))
	for pos := 0; pos < minesTotalTiles; pos++ {
		if !mineSet[pos] {
			safe = append(safe, pos)
		}
	}
	if len(safe)+len(mines) != minesTotalTiles {
		return nil, fmt.Errorf("%w: %d mines and %d safe tiles do not partition the board",
			ErrInvariantViolation, len(mines), len(safe))
	}

	grid := make([][]string, minesGridSize)
	for r := 0; r < minesGridSize; r++ {
		grid[r] = make([]string, minesGridSize)
		for c := 0; c < minesGridSize; c++ {
			if mineSet[r*minesGridSize+c] {
				grid[r][c] = "mine"
			} else {
				grid[r][c] = "gem"
			}
		}
	}

	return &MinesResult{
		Common: Common{
			GameType:     KindMines,
			EntropyValue: e,
			Metadata: newMetadata(g.Now, minesAlgorithm, map[string]int{
				"mines": len(mines),
				"safe":  len(safe),
				"tiles": minesTotalTiles,
			}),
		},
		MineCount:     cfg.MineCount,
		MinePositions: mines,
		SafePositions: safe,
		Multipliers:   multipliers,
		Grid:          grid,
	}, nil
}

// GenerateMinePositions selects mineCount distinct tiles without replacement.
// Each pick is candidates[seed mod remaining]; the seed is then divided by the
// pool size it was drawn against. Positions are returned sorted ascending.
func GenerateMinePositions(e entropy.Value, mineCount int) ([]int, error) {
	if err := (MinesConfig{MineCount: mineCount}).Validate(); err != nil {
		return nil, err
	}

	candidates := make([]int, minesTotalTiles)
	for i := range candidates {
		candidates[i] = i
	}

	stream := entropy.NewStream(e)
	mines := make([]int, 0, mineCount)
	for i := 0; i < mineCount; i++ {
		if len(candidates) == 0 {
			return nil, fmt.Errorf("%w: pool exhausted after %d of %d mines",
				ErrInsufficientPositions, i, mineCount)
		}

		index := int(stream.Draw(uint64(len(candidates))))
		mines = append(mines, candidates[index])
		candidates = append(candidates[:index], candidates[index+1:]...)
	}

	slices.Sort(mines)
	for i, pos := range mines {
		if pos < 0 || pos >= minesTotalTiles || (i > 0 && mines[i-1] == pos) {
			return nil, fmt.Errorf("%w: bad mine layout %v", ErrInvariantViolation, mines)
		}
	}

	return mines, nil
}

// MinesMultipliers returns the payout after each safe reveal: for the k-th
// reveal (1-indexed) 25 / (safe - k + 1) * 0.98, rounded to 2 decimals.
func MinesMultipliers(mineCount int) ([]float64, error) {
	if err := (MinesConfig{MineCount: mineCount}).Validate(); err != nil {
		return nil, err
	}

	safeCount := minesTotalTiles - mineCount
	tiles := decimal.NewFromInt(minesTotalTiles)
	out := make([]float64, safeCount)
	for k := 1; k <= safeCount; k++ {
		remaining := decimal.NewFromInt(int64(safeCount - k + 1))
		m := tiles.Div(remaining).Mul(minesHouseEdgeFactor).Round(2)
		out[k-1] = m.InexactFloat64()

		if k > 1 && out[k-1] <= out[k-2] {
			return nil, fmt.Errorf("%w: multiplier table not increasing at reveal %d", ErrInvariantViolation, k)
		}
	}
	return out, nil
}

// Validate replays the generation and compares it to positions, ignoring
// order. A mismatch is reported as false, not as an error.
func (g *MinesGame) Validate(e entropy.Value, positions []int, mineCount int) (bool, error) {
	expected, err := GenerateMinePositions(e, mineCount)
	if err != nil {
		return false, err
	}

	claimed := slices.Clone(positions)
	slices.Sort(claimed)
	return slices.Equal(expected, claimed), nil
}

// Evaluate implements Game.
func (g *MinesGame) Evaluate(e entropy.Value, params map[string]any) (GameResult, error) {
	cfg, err := minesConfigFromParams(params)
	if err != nil {
		return GameResult{}, err
	}

	result, err := g.Process(e, cfg)
	if err != nil {
		return GameResult{}, err
	}

	return GameResult{
		GameType:     KindMines,
		EntropyValue: e,
		Metric:       float64(result.MinePositions[0] + 1),
		MetricLabel:  "first_mine",
		Outcome:      result,
	}, nil
}

// Verify implements Game. claimed must decode to a MinesResult.
func (g *MinesGame) Verify(e entropy.Value, params map[string]any, claimed json.RawMessage) (bool, error) {
	cfg, err := minesConfigFromParams(params)
	if err != nil {
		return false, err
	}

	var outcome MinesResult
	if err := json.Unmarshal(claimed, &outcome); err != nil {
		return false, fmt.Errorf("decode mines outcome: %w", err)
	}
	if outcome.MineCount != 0 && outcome.MineCount != cfg.MineCount {
		return false, nil
	}

	ok, err := g.Validate(e, outcome.MinePositions, cfg.MineCount)
	if err != nil || !ok {
		return ok, err
	}

	// Optional fields must match the replay exactly.
	expected, err := g.Process(e, cfg)
	if err != nil {
		return false, err
	}
	if outcome.SafePositions != nil {
		safe := slices.Clone(outcome.SafePositions)
		slices.Sort(safe)
		if !slices.Equal(safe, expected.SafePositions) {
			return false, nil
		}
	}
	if outcome.Multipliers != nil && !slices.Equal(outcome.Multipliers, expected.Multipliers) {
		return false, nil
	}
	if outcome.Grid != nil && !slices.EqualFunc(outcome.Grid, expected.Grid, slices.Equal[[]string]) {
		return false, nil
	}
	return true, nil
}

// Analyze implements Game. For every reveal count it reports the chance of
// surviving that many picks and the expected return of cashing out there.
func (g *MinesGame) Analyze(params map[string]any) (Analysis, error) {
	cfg, err := minesConfigFromParams(params)
	if err != nil {
		return Analysis{}, err
	}

	multipliers, err := MinesMultipliers(cfg.MineCount)
	if err != nil {
		return Analysis{}, err
	}

	safeCount := minesTotalTiles - cfg.MineCount
	survival := make([]float64, len(multipliers))
	returns := make([]float64, len(multipliers))
	best := 0.0
	for k := 1; k <= len(multipliers); k++ {
		// C(safe, k) / C(25, k)
		p := 1.0
		for j := 0; j < k; j++ {
			p *= float64(safeCount-j) / float64(minesTotalTiles-j)
		}
		survival[k-1] = p
		returns[k-1] = multipliers[k-1] * p
		if returns[k-1] > best {
			best = returns[k-1]
		}
	}

	a := analyzeTable(KindMines, map[string]any{"mineCount": cfg.MineCount}, multipliers, survival)
	// The entries are cash-out points, not mutually exclusive outcomes.
	a.ProbabilitySum = 0
	a.WinChance = survival[0]
	a.ExpectedValue = best
	a.HouseEdge = 1 - best
	a.Variance, a.StdDev = 0, 0
	a.Extra = map[string]any{
		"survival": survival,
		"returns":  returns,
	}
	return a, nil
}

func minesConfigFromParams(params map[string]any) (MinesConfig, error) {
	count, err := intParam(params, minesDefaultCount, "mineCount", "mines")
	if err != nil {
		return MinesConfig{}, err
	}
	cfg := MinesConfig{MineCount: count}
	return cfg, cfg.Validate()
}
