package scan

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/MJE43/entropy-casino-engine/internal/entropy"
	"github.com/MJE43/entropy-casino-engine/internal/games"
)

func TestScanRoulette(t *testing.T) {
	scanner := NewScanner(WithWorkers(4))

	req := ScanRequest{
		Game:         "roulette",
		EntropyStart: entropy.Zero,
		Count:        370,
		TargetOp:     OpEqual,
		TargetVal:    0,
	}

	result, err := scanner.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.Summary.TotalEvaluated != 370 {
		t.Errorf("expected 370 evaluations, got %d", result.Summary.TotalEvaluated)
	}
	if result.Summary.HitsFound != 10 {
		t.Errorf("expected 10 zero pockets, got %d", result.Summary.HitsFound)
	}
	for i, hit := range result.Hits {
		if hit.Offset != uint64(i*37) {
			t.Errorf("hit %d at offset %d, want %d", i, hit.Offset, i*37)
		}
		if hit.Metric != 0 {
			t.Errorf("hit %d has metric %v", i, hit.Metric)
		}
		if !hit.Entropy.Equal(entropy.FromUint64(hit.Offset)) {
			t.Errorf("hit %d entropy %s does not match offset", i, hit.Entropy)
		}
	}

	if result.Summary.MinMetric != 0 || result.Summary.MaxMetric != 36 {
		t.Errorf("expected metric range [0, 36], got [%v, %v]", result.Summary.MinMetric, result.Summary.MaxMetric)
	}
	if result.Summary.MeanMetric != 18 {
		t.Errorf("expected mean 18, got %v", result.Summary.MeanMetric)
	}
	if result.ID == "" {
		t.Error("expected a scan id")
	}
	if result.Echo.Game != "roulette" {
		t.Errorf("expected echo of request, got %+v", result.Echo)
	}
}

func TestScanLimit(t *testing.T) {
	scanner := NewScanner(WithWorkers(3))

	result, err := scanner.Scan(context.Background(), ScanRequest{
		Game:      "roulette",
		Count:     370,
		TargetOp:  OpEqual,
		TargetVal: 0,
		Limit:     3,
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(result.Hits) != 3 || !result.Truncated {
		t.Fatalf("expected 3 truncated hits, got %d (truncated=%v)", len(result.Hits), result.Truncated)
	}
	if result.Summary.HitsFound != 10 {
		t.Errorf("expected HitsFound to count all matches, got %d", result.Summary.HitsFound)
	}
	offsets := []uint64{result.Hits[0].Offset, result.Hits[1].Offset, result.Hits[2].Offset}
	if !slices.Equal(offsets, []uint64{0, 37, 74}) {
		t.Errorf("expected lowest offsets, got %v", offsets)
	}
}

func TestScanWheelJackpots(t *testing.T) {
	scanner := NewScanner()

	result, err := scanner.Scan(context.Background(), ScanRequest{
		Game:         "wheel",
		EntropyStart: entropy.FromUint64(1000),
		Count:        100,
		Params:       map[string]any{"segments": 10},
		TargetOp:     OpGreaterEqual,
		TargetVal:    5,
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.Summary.HitsFound != 10 {
		t.Fatalf("expected 10 jackpots, got %d", result.Summary.HitsFound)
	}
	for _, hit := range result.Hits {
		if hit.Offset%10 != 0 {
			t.Errorf("jackpot at offset %d", hit.Offset)
		}
	}
}

func TestScanDeterministicAcrossWorkers(t *testing.T) {
	req := ScanRequest{
		Game:       "plinko",
		Count:      5000,
		Params:     map[string]any{"rows": 8},
		TargetOp:   OpOutside,
		TargetVal:  0.5,
		TargetVal2: 2.1,
	}

	one, err := NewScanner(WithWorkers(1)).Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	many, err := NewScanner(WithWorkers(8)).Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if one.Summary.HitsFound != many.Summary.HitsFound {
		t.Fatalf("hit counts differ: %d vs %d", one.Summary.HitsFound, many.Summary.HitsFound)
	}
	for i := range one.Hits {
		if one.Hits[i].Offset != many.Hits[i].Offset || one.Hits[i].Metric != many.Hits[i].Metric {
			t.Fatalf("hit %d differs: %+v vs %+v", i, one.Hits[i], many.Hits[i])
		}
	}
}

func TestScanErrors(t *testing.T) {
	scanner := NewScanner(WithMaxCount(1000))
	ctx := context.Background()

	tests := []struct {
		name string
		req  ScanRequest
		want error
	}{
		{"unknown game", ScanRequest{Game: "dice", Count: 10, TargetOp: OpEqual}, ErrGameNotFound},
		{"zero count", ScanRequest{Game: "roulette", TargetOp: OpEqual}, ErrInvalidRange},
		{"over max count", ScanRequest{Game: "roulette", Count: 1001, TargetOp: OpEqual}, ErrInvalidRange},
		{"unknown op", ScanRequest{Game: "roulette", Count: 10, TargetOp: "near"}, ErrInvalidParams},
		{"inverted range", ScanRequest{Game: "roulette", Count: 10, TargetOp: OpBetween, TargetVal: 5, TargetVal2: 1}, ErrInvalidParams},
		{"bad game params", ScanRequest{Game: "mines", Count: 10, TargetOp: OpEqual, Params: map[string]any{"mineCount": 30}}, ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scanner.Scan(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	_, err := scanner.Scan(ctx, ScanRequest{Game: "mines", Count: 10, TargetOp: OpEqual, Params: map[string]any{"mineCount": 30}})
	if !errors.Is(err, games.ErrInvalidConfiguration) {
		t.Errorf("expected wrapped ErrInvalidConfiguration, got %v", err)
	}
}

func TestScanCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner().Scan(ctx, ScanRequest{Game: "roulette", Count: 100, TargetOp: OpEqual})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTargetEvaluator(t *testing.T) {
	tests := []struct {
		op     TargetOp
		v1, v2 float64
		metric float64
		want   bool
	}{
		{OpEqual, 2, 0, 2, true},
		{OpEqual, 2, 0, 2.1, false},
		{OpGreater, 2, 0, 2, false},
		{OpGreaterEqual, 2, 0, 2, true},
		{OpLess, 2, 0, 1.9, true},
		{OpLessEqual, 2, 0, 2, true},
		{OpBetween, 1, 3, 3, true},
		{OpBetween, 1, 3, 3.5, false},
		{OpOutside, 1, 3, 0.5, true},
		{OpOutside, 1, 3, 2, false},
	}

	for _, tt := range tests {
		ev, err := NewTargetEvaluator(tt.op, tt.v1, tt.v2, 0)
		if err != nil {
			t.Fatalf("NewTargetEvaluator(%s) failed: %v", tt.op, err)
		}
		if got := ev.Matches(tt.metric); got != tt.want {
			t.Errorf("%s(%v, %v).Matches(%v) = %v, want %v", tt.op, tt.v1, tt.v2, tt.metric, got, tt.want)
		}
	}

	if _, err := ParseTargetOp(" GE "); err != nil {
		t.Errorf("ParseTargetOp should normalize case: %v", err)
	}
}
