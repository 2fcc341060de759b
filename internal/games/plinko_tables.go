package games

import (
	"fmt"
	"math"
)

// Plinko payout tables keyed by risk and row count. Each table has rows+1
// slots, is symmetric and pays least in the center slot. The values fix the
// house edge and must not be re-derived.
var plinkoPayoutTables = mustPlinkoTables(map[string]map[int][]float64{
	"low": {
		8:  {5.6, 2.1, 1.1, 1, 0.5, 1, 1.1, 2.1, 5.6},
		10: {8.9, 3, 1.4, 1.1, 1, 0.5, 1, 1.1, 1.4, 3, 8.9},
		12: {10, 3, 1.6, 1.4, 1.1, 1, 0.5, 1, 1.1, 1.4, 1.6, 3, 10},
		14: {7.1, 4, 1.9, 1.4, 1.3, 1.1, 1, 0.5, 1, 1.1, 1.3, 1.4, 1.9, 4, 7.1},
		16: {16, 9, 2, 1.4, 1.4, 1.2, 1.1, 1, 0.5, 1, 1.1, 1.2, 1.4, 1.4, 2, 9, 16},
	},
	"medium": {
		8:  {13, 3, 1.3, 0.7, 0.4, 0.7, 1.3, 3, 13},
		10: {22, 5, 2, 1.4, 0.6, 0.4, 0.6, 1.4, 2, 5, 22},
		12: {33, 11, 4, 2, 1.1, 0.6, 0.3, 0.6, 1.1, 2, 4, 11, 33},
		14: {58, 15, 7, 4, 1.9, 1, 0.5, 0.2, 0.5, 1, 1.9, 4, 7, 15, 58},
		16: {110, 41, 10, 5, 3, 1.5, 1, 0.5, 0.3, 0.5, 1, 1.5, 3, 5, 10, 41, 110},
	},
	"high": {
		8:  {29, 4, 1.5, 0.3, 0.2, 0.3, 1.5, 4, 29},
		10: {76, 10, 3, 0.9, 0.3, 0.2, 0.3, 0.9, 3, 10, 76},
		12: {170, 24, 8.1, 2, 0.7, 0.2, 0.2, 0.2, 0.7, 2, 8.1, 24, 170},
		14: {420, 56, 18, 5, 1.9, 0.3, 0.2, 0.2, 0.2, 0.3, 1.9, 5, 18, 56, 420},
		16: {1000, 130, 26, 9, 4, 2, 0.2, 0.2, 0.2, 0.2, 0.2, 2, 4, 9, 26, 130, 1000},
	},
})

// mustPlinkoTables checks shape, symmetry and house edge once at startup.
func mustPlinkoTables(tables map[string]map[int][]float64) map[string]map[int][]float64 {
	for risk, byRows := range tables {
		for rows, table := range byRows {
			if !plinkoValidRows[rows] {
				panic(fmt.Sprintf("plinko table for unsupported rows %d (risk %s)", rows, risk))
			}
			if len(table) != rows+1 {
				panic(fmt.Sprintf("plinko table mismatch for risk %q rows %d: expected %d entries, got %d",
					risk, rows, rows+1, len(table)))
			}
			for i := range table {
				if math.Abs(table[i]-table[rows-i]) > 0.01 {
					panic(fmt.Sprintf("plinko table for risk %q rows %d is not symmetric at %d", risk, rows, i))
				}
			}
			if ev := ExpectedValue(table, BinomialProbabilities(rows)); ev >= 1 {
				panic(fmt.Sprintf("plinko table for risk %q rows %d has no house edge (ev %.4f)", risk, rows, ev))
			}
		}
	}
	return tables
}

// PlinkoTable returns a copy of the payout table for risk and rows.
func PlinkoTable(risk string, rows int) ([]float64, error) {
	byRows, ok := plinkoPayoutTables[risk]
	if !ok {
		return nil, fmt.Errorf("%w: unknown plinko risk %q", ErrInvalidConfiguration, risk)
	}

	table, ok := byRows[rows]
	if !ok {
		return nil, fmt.Errorf("%w: no payout table for risk %s rows %d", ErrInvalidConfiguration, risk, rows)
	}

	out := make([]float64, len(table))
	copy(out, table)
	return out, nil
}
