package games

import (
	"errors"
	"math"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/MJE43/entropy-casino-engine/internal/entropy"
)

func maxUint256(t *testing.T) entropy.Value {
	t.Helper()
	n := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	v, err := entropy.FromBig(n)
	if err != nil {
		t.Fatalf("FromBig failed: %v", err)
	}
	return v
}

func slicesMax(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}

func TestRegistry(t *testing.T) {
	specs := ListGames()
	if len(specs) != 4 {
		t.Fatalf("expected 4 games, got %d", len(specs))
	}
	for i, kind := range Kinds() {
		if specs[i].ID != kind {
			t.Errorf("spec %d: got %s, want %s", i, specs[i].ID, kind)
		}
	}

	if _, ok := GetGame("MINES"); !ok {
		t.Error("expected GetGame to normalize case")
	}
	if _, ok := GetGame("dice"); ok {
		t.Error("expected dice to be unknown")
	}
	if _, err := ParseKind("keno"); !errors.Is(err, ErrUnknownGame) {
		t.Errorf("expected ErrUnknownGame, got %v", err)
	}
	if _, err := Lookup("crash", nil); !errors.Is(err, ErrUnknownGame) {
		t.Errorf("expected ErrUnknownGame, got %v", err)
	}
}

func TestDeterminism(t *testing.T) {
	values := []entropy.Value{entropy.Zero, entropy.FromUint64(1), maxUint256(t), entropy.MustParse(largeLiteral)}

	for _, kind := range Kinds() {
		game, err := Lookup(kind, nil)
		if err != nil {
			t.Fatalf("Lookup(%s) failed: %v", kind, err)
		}
		for _, e := range values {
			first, err := game.Evaluate(e, nil)
			if err != nil {
				t.Fatalf("%s: Evaluate failed: %v", kind, err)
			}
			second, err := game.Evaluate(e, nil)
			if err != nil {
				t.Fatalf("%s: Evaluate failed: %v", kind, err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("%s: entropy %s produced different results", kind, e)
			}
			if !first.EntropyValue.Equal(e) {
				t.Errorf("%s: result echoes entropy %s, want %s", kind, first.EntropyValue, e)
			}
		}
	}
}

func TestMetadataClock(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	game := &RouletteGame{Now: func() time.Time { return fixed }}

	result, err := game.Process(entropy.FromUint64(5))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Metadata.GeneratedAt == nil || !result.Metadata.GeneratedAt.Equal(fixed) {
		t.Errorf("expected GeneratedAt %v, got %v", fixed, result.Metadata.GeneratedAt)
	}

	bare, _ := (&RouletteGame{}).Process(entropy.FromUint64(5))
	if bare.Metadata.GeneratedAt != nil {
		t.Error("expected no timestamp without a clock")
	}
	if bare.Metadata.Algorithm != "mod-37" {
		t.Errorf("expected algorithm mod-37, got %s", bare.Metadata.Algorithm)
	}
}

func TestBinomial(t *testing.T) {
	tests := []struct {
		n, k int
		want int64
	}{
		{8, 0, 1},
		{8, 4, 70},
		{16, 8, 12870},
		{16, 17, 0},
		{5, -1, 0},
	}
	for _, tt := range tests {
		if got := BinomialCoefficient(tt.n, tt.k); got.Int64() != tt.want {
			t.Errorf("C(%d, %d) = %s, want %d", tt.n, tt.k, got, tt.want)
		}
	}

	probs := BinomialProbabilities(8)
	if probs[4] != 70.0/256.0 {
		t.Errorf("P(4 of 8) = %v, want %v", probs[4], 70.0/256.0)
	}
}

func TestProbabilitySums(t *testing.T) {
	for _, n := range []int{8, 10, 12, 14, 16, 37, 54} {
		for name, probs := range map[string][]float64{
			"binomial": BinomialProbabilities(n),
			"uniform":  UniformProbabilities(n),
		} {
			sum := 0.0
			for _, p := range probs {
				sum += p
			}
			if math.Abs(sum-1) > probabilityTolerance {
				t.Errorf("%s(%d) sums to %v", name, n, sum)
			}
		}
	}
}

func TestIntParam(t *testing.T) {
	tests := []struct {
		raw     any
		want    int
		wantErr bool
	}{
		{nil, 3, false},
		{5, 5, false},
		{int64(6), 6, false},
		{float64(7), 7, false},
		{"8", 8, false},
		{7.5, 0, true},
		{"eight", 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := intParam(map[string]any{"n": tt.raw}, 3, "n")
		if (err != nil) != tt.wantErr {
			t.Errorf("intParam(%v) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("intParam(%v) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
