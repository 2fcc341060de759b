package games

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/MJE43/entropy-casino-engine/internal/entropy"
)

func TestRouletteGame(t *testing.T) {
	game := &RouletteGame{}

	spec := game.Spec()
	if spec.ID != KindRoulette {
		t.Errorf("expected ID 'roulette', got '%s'", spec.ID)
	}
	if spec.Name != "Roulette" {
		t.Errorf("expected name 'Roulette', got '%s'", spec.Name)
	}
}

func TestRouletteScenarios(t *testing.T) {
	game := &RouletteGame{}

	red, err := game.Process(entropy.FromUint64(36))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if red.Number != 36 || red.Color != "red" {
		t.Errorf("entropy 36: got %d %s, want 36 red", red.Number, red.Color)
	}
	if !red.IsEven || !red.IsHigh || red.Dozen != 3 || red.Column != 3 {
		t.Errorf("entropy 36: unexpected properties %+v", red)
	}

	zero, err := game.Process(entropy.Zero)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if zero.Number != 0 || zero.Color != "green" || !zero.IsZero {
		t.Errorf("entropy 0: got %d %s, want 0 green", zero.Number, zero.Color)
	}
	if zero.IsEven || zero.IsOdd || zero.IsLow || zero.IsHigh || zero.Dozen != 0 {
		t.Errorf("zero must not satisfy outside bets: %+v", zero)
	}
}

func TestRouletteIdentity(t *testing.T) {
	game := &RouletteGame{}
	for n := uint64(0); n < 37; n++ {
		result, err := game.Process(entropy.FromUint64(n))
		if err != nil {
			t.Fatalf("Process(%d) failed: %v", n, err)
		}
		if result.Number != int(n) {
			t.Errorf("entropy %d mapped to %d", n, result.Number)
		}
	}

	if got := RouletteNumber(entropy.FromUint64(37)); got != 0 {
		t.Errorf("entropy 37 mapped to %d, want 0", got)
	}
	if got := RouletteNumber(maxUint256(t)); got != 15 {
		t.Errorf("2^256-1 mapped to %d, want 15", got)
	}
}

func TestRouletteColorCounts(t *testing.T) {
	counts := map[string]int{}
	for n := 0; n < 37; n++ {
		color, err := RouletteColor(n)
		if err != nil {
			t.Fatalf("RouletteColor(%d) failed: %v", n, err)
		}
		counts[color]++
	}

	if counts["red"] != 18 || counts["black"] != 18 || counts["green"] != 1 {
		t.Errorf("expected 18/18/1, got %v", counts)
	}

	for _, n := range []int{-1, 37, 100} {
		if _, err := RouletteColor(n); !errors.Is(err, ErrInvalidNumber) {
			t.Errorf("RouletteColor(%d): expected ErrInvalidNumber, got %v", n, err)
		}
	}
}

func TestRoulettePayouts(t *testing.T) {
	ten := decimal.NewFromInt(10)

	tests := []struct {
		name   string
		bet    BetType
		value  []int
		result int
		won    bool
		payout string
	}{
		{"straight win", BetStraight, []int{17}, 17, true, "360"},
		{"straight loss", BetStraight, []int{17}, 18, false, "0"},
		{"split vertical", BetSplit, []int{14, 17}, 14, true, "180"},
		{"split zero", BetSplit, []int{0, 2}, 0, true, "180"},
		{"street", BetStreet, []int{4, 5, 6}, 6, true, "120"},
		{"trio", BetStreet, []int{0, 1, 2}, 1, true, "120"},
		{"corner", BetCorner, []int{1, 2, 4, 5}, 5, true, "90"},
		{"six line", BetSixLine, []int{31, 32, 33, 34, 35, 36}, 36, true, "60"},
		{"dozen", BetDozen, []int{2}, 24, true, "30"},
		{"column", BetColumn, []int{1}, 34, true, "30"},
		{"red", BetRed, nil, 36, true, "20"},
		{"black on zero", BetBlack, nil, 0, false, "0"},
		{"even", BetEven, nil, 36, true, "20"},
		{"odd on zero", BetOdd, nil, 0, false, "0"},
		{"low", BetLow, nil, 18, true, "20"},
		{"high", BetHigh, nil, 18, false, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CalculatePayout(tt.bet, tt.value, tt.result, ten)
			if err != nil {
				t.Fatalf("CalculatePayout failed: %v", err)
			}
			if p.Won != tt.won {
				t.Errorf("won = %v, want %v", p.Won, tt.won)
			}
			if !p.Payout.Equal(decimal.RequireFromString(tt.payout)) {
				t.Errorf("payout = %s, want %s", p.Payout, tt.payout)
			}
			if !tt.won && !p.Profit.Equal(ten.Neg()) {
				t.Errorf("losing profit = %s, want -10", p.Profit)
			}
		})
	}
}

func TestRouletteInvalidBets(t *testing.T) {
	one := decimal.NewFromInt(1)

	if _, err := CalculatePayout("basket", nil, 1, one); !errors.Is(err, ErrUnsupportedBetType) {
		t.Errorf("expected ErrUnsupportedBetType, got %v", err)
	}
	if _, err := ParseBetType("neighbours"); !errors.Is(err, ErrUnsupportedBetType) {
		t.Errorf("expected ErrUnsupportedBetType, got %v", err)
	}
	if _, err := CalculatePayout(BetRed, nil, 37, one); !errors.Is(err, ErrInvalidNumber) {
		t.Errorf("expected ErrInvalidNumber, got %v", err)
	}
	if _, err := CalculatePayout(BetRed, nil, 1, decimal.Zero); !errors.Is(err, ErrInvalidBet) {
		t.Errorf("expected ErrInvalidBet for zero amount, got %v", err)
	}

	invalid := []struct {
		bet   BetType
		value []int
	}{
		{BetSplit, []int{3, 4}},
		{BetSplit, []int{1, 5}},
		{BetStreet, []int{2, 3, 4}},
		{BetCorner, []int{3, 4, 6, 7}},
		{BetSixLine, []int{2, 3, 4, 5, 6, 7}},
		{BetStraight, []int{37}},
		{BetStraight, []int{1, 2}},
		{BetDozen, []int{4}},
		{BetColumn, nil},
	}
	for _, tt := range invalid {
		if _, err := CalculatePayout(tt.bet, tt.value, 1, one); !errors.Is(err, ErrInvalidBet) {
			t.Errorf("%s %v: expected ErrInvalidBet, got %v", tt.bet, tt.value, err)
		}
	}
}

func TestParseBetTypeAliases(t *testing.T) {
	tests := map[string]BetType{
		"Straight": BetStraight,
		"six-line": BetSixLine,
		"sixline":  BetSixLine,
		"trio":     BetStreet,
		" red ":    BetRed,
	}
	for in, want := range tests {
		got, err := ParseBetType(in)
		if err != nil || got != want {
			t.Errorf("ParseBetType(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
}

func TestRouletteHouseEdge(t *testing.T) {
	want := 1.0 / 37.0
	for _, bt := range BetTypes() {
		if edge := BetHouseEdge(bt); math.Abs(edge-want) > probabilityTolerance {
			t.Errorf("%s: house edge %v, want %v", bt, edge, want)
		}
	}
}

func TestRouletteVerify(t *testing.T) {
	game := &RouletteGame{}
	e := entropy.MustParse(largeLiteral)

	result, _ := game.Process(e)
	claimed, _ := json.Marshal(result)
	if ok, err := game.Verify(e, nil, claimed); err != nil || !ok {
		t.Fatalf("expected verification to pass, got %v (%v)", ok, err)
	}

	if ok, _ := game.Verify(e, nil, json.RawMessage(`{"number":2}`)); ok {
		t.Error("expected wrong number to fail verification")
	}
	if ok, _ := game.Verify(e, nil, json.RawMessage(`{"number":1,"color":"black"}`)); ok {
		t.Error("expected wrong color to fail verification")
	}
	if _, err := game.Verify(e, nil, json.RawMessage(`not json`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestRouletteAnalyze(t *testing.T) {
	a, err := (&RouletteGame{}).Analyze(nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.Outcomes != 37 {
		t.Errorf("expected 37 outcomes, got %d", a.Outcomes)
	}
	if math.Abs(a.ExpectedValue-36.0/37.0) > probabilityTolerance {
		t.Errorf("expected EV 36/37, got %v", a.ExpectedValue)
	}
	if math.Abs(a.HouseEdge-1.0/37.0) > probabilityTolerance {
		t.Errorf("expected house edge 1/37, got %v", a.HouseEdge)
	}
	if math.Abs(a.HouseEdge-BetHouseEdge(BetStraight)) > probabilityTolerance {
		t.Errorf("analysis edge %v disagrees with straight bet edge %v", a.HouseEdge, BetHouseEdge(BetStraight))
	}
	if math.Abs(a.WinChance-1.0/37.0) > probabilityTolerance {
		t.Errorf("expected win chance 1/37, got %v", a.WinChance)
	}
	if a.MaxMultiplier != 36 || a.MinMultiplier != 0 {
		t.Errorf("expected multipliers in [0, 36], got [%v, %v]", a.MinMultiplier, a.MaxMultiplier)
	}
	if a.Entries[0].Multiplier != 36 {
		t.Errorf("expected pocket 0 to pay 36, got %v", a.Entries[0].Multiplier)
	}
}

func TestRouletteAnalyzeNumber(t *testing.T) {
	a, err := (&RouletteGame{}).Analyze(map[string]any{"number": "17"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	for i, e := range a.Entries {
		want := 0.0
		if i == 17 {
			want = 36
		}
		if e.Multiplier != want {
			t.Errorf("pocket %d: expected multiplier %v, got %v", i, want, e.Multiplier)
		}
	}

	for _, n := range []int{-1, 37} {
		if _, err := (&RouletteGame{}).Analyze(map[string]any{"number": n}); !errors.Is(err, ErrInvalidNumber) {
			t.Errorf("number %d: expected ErrInvalidNumber, got %v", n, err)
		}
	}
}
