package games

import "fmt"

// Wheel multiplier tables keyed by segment count. Jackpots sit at index 0,
// and at the half-way index for wheels of 30 segments or more; the values
// fix the house edge and must not be re-derived.
var wheelPayouts = mustWheelTables(map[int][]float64{
	10: {
		5, 0, 1.2, 0, 0, 2, 0, 1.2, 0, 0,
	},
	20: {
		10, 0, 1.2, 0, 0, 2, 0, 1.5, 0, 0,
		0, 0, 1.2, 0, 0, 2, 0, 1.2, 0, 0,
	},
	30: {
		10, 0, 0, 1.2, 0, 0, 2, 0, 0, 1.5,
		0, 0, 0, 0, 0, 10, 0, 0, 1.2, 0,
		0, 2, 0, 0, 1.2, 0, 0, 0, 0, 0,
	},
	40: {
		12, 0, 0, 0, 1.2, 0, 0, 0, 1.5, 0,
		3, 0, 0, 0, 0, 0, 1.2, 0, 0, 0,
		12, 0, 0, 0, 1.2, 0, 0, 0, 1.5, 0,
		3, 0, 0, 0, 0, 0, 1.2, 0, 0, 0,
	},
	50: {
		20, 0, 0, 0, 0, 1.2, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 1.2, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 20, 0, 0, 0, 0,
		1.2, 0, 0, 0, 0, 2, 0, 0, 0, 0,
		1.2, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	},
	54: {
		20, 0, 0, 0, 0, 0, 0, 0, 0, 5,
		0, 0, 0, 0, 0, 0, 0, 0, 1.2, 0,
		0, 0, 0, 0, 0, 0, 0, 20, 0, 0,
		0, 0, 0, 0, 0, 0, 5, 0, 0, 0,
		0, 0, 0, 0, 0, 1.2, 0, 0, 0, 0,
		0, 0, 0, 0,
	},
})

func mustWheelTables(tables map[int][]float64) map[int][]float64 {
	for segments, table := range tables {
		if len(table) != segments {
			panic(fmt.Sprintf("wheel table for %d segments has %d entries", segments, len(table)))
		}
		if ev := ExpectedValue(table, UniformProbabilities(segments)); ev >= 1 {
			panic(fmt.Sprintf("wheel table for %d segments has no house edge (ev %.4f)", segments, ev))
		}
	}
	return tables
}

// WheelTable returns a copy of the multiplier table for segments.
func WheelTable(segments int) ([]float64, error) {
	table, ok := wheelPayouts[segments]
	if !ok {
		return nil, fmt.Errorf("%w: wheel segments must be one of 10, 20, 30, 40, 50, 54; got %d",
			ErrInvalidConfiguration, segments)
	}
	out := make([]float64, len(table))
	copy(out, table)
	return out, nil
}
