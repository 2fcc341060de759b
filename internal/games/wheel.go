package games

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/MJE43/entropy-casino-engine/internal/entropy"
)

const (
	wheelDefaultSegments = 54
	wheelAlgorithm       = "mod-segments"
)

// RiskTier buckets a segment by its multiplier.
type RiskTier string

const (
	TierSafe    RiskTier = "safe"
	TierLow     RiskTier = "low"
	TierMedium  RiskTier = "medium"
	TierHigh    RiskTier = "high"
	TierExtreme RiskTier = "extreme"
)

// clockLabels are the 8-way positions, clockwise from 12 o'clock.
var clockLabels = [8]string{
	"top", "top-right", "right", "bottom-right",
	"bottom", "bottom-left", "left", "top-left",
}

// WheelGame implements the Wheel outcome processor.
type WheelGame struct {
	// Now stamps result metadata. Nil leaves GeneratedAt unset.
	Now func() time.Time
}

// WheelConfig configures a spin. WheelDefaultConfig is the 54-segment wheel.
type WheelConfig struct {
	Segments int `json:"segments"`
}

// WheelDefaultConfig returns the configuration used when no segment count is
// given.
func WheelDefaultConfig() WheelConfig {
	return WheelConfig{Segments: wheelDefaultSegments}
}

// Validate checks the segment count. Zero is not a valid count.
func (c WheelConfig) Validate() error {
	_, err := WheelTable(c.Segments)
	return err
}

// Segment describes one slice of the wheel.
type Segment struct {
	Index       int      `json:"index"`
	Multiplier  float64  `json:"multiplier"`
	StartAngle  float64  `json:"startAngle"`
	EndAngle    float64  `json:"endAngle"`
	CenterAngle float64  `json:"centerAngle"`
	Position    string   `json:"position"`
	Tier        RiskTier `json:"tier"`
}

// WheelResult is the outcome of one spin.
type WheelResult struct {
	Common
	Segments     int       `json:"segments"`
	Segment      int       `json:"segment"`
	Multiplier   float64   `json:"multiplier"`
	SegmentAngle float64   `json:"segmentAngle"`
	Geometry     Segment   `json:"geometry"`
	Multipliers  []float64 `json:"multipliers"`
}

// Spec returns metadata about the Wheel game.
func (g *WheelGame) Spec() GameSpec {
	return GameSpec{
		ID:          KindWheel,
		Name:        "Wheel",
		MetricLabel: "multiplier",
		Algorithm:   wheelAlgorithm,
	}
}

// WheelSegment maps e onto a segment index: e mod segments.
func WheelSegment(e entropy.Value, segments int) (int, error) {
	if _, err := WheelTable(segments); err != nil {
		return 0, err
	}
	return int(e.Mod(uint64(segments))), nil
}

// TierFor classifies a multiplier.
func TierFor(multiplier float64) RiskTier {
	switch {
	case multiplier >= 50:
		return TierExtreme
	case multiplier >= 10:
		return TierHigh
	case multiplier >= 5:
		return TierMedium
	case multiplier >= 2:
		return TierLow
	default:
		return TierSafe
	}
}

// ClockPosition labels an angle (degrees clockwise from top) with one of
// eight compass positions.
func ClockPosition(angle float64) string {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	idx := int(math.Floor((a+22.5)/45)) % len(clockLabels)
	return clockLabels[idx]
}

// WheelSegments returns the geometry of every segment on the wheel.
func WheelSegments(segments int) ([]Segment, error) {
	table, err := WheelTable(segments)
	if err != nil {
		return nil, err
	}
	out := make([]Segment, segments)
	for i := range out {
		out[i] = segmentGeometry(i, segments, table[i])
	}
	return out, nil
}

func segmentGeometry(index, segments int, multiplier float64) Segment {
	width := 360 / float64(segments)
	start := float64(index) * width
	center := math.Mod(start+width/2, 360)
	return Segment{
		Index:       index,
		Multiplier:  multiplier,
		StartAngle:  start,
		EndAngle:    start + width,
		CenterAngle: center,
		Position:    ClockPosition(center),
		Tier:        TierFor(multiplier),
	}
}

// Process spins the wheel.
func (g *WheelGame) Process(e entropy.Value, cfg WheelConfig) (*WheelResult, error) {
	segments := cfg.Segments
	table, err := WheelTable(segments)
	if err != nil {
		return nil, err
	}

	index, err := WheelSegment(e, segments)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(table) {
		return nil, fmt.Errorf("%w: wheel segment %d out of range for %d segments", ErrInvariantViolation, index, segments)
	}

	geometry := segmentGeometry(index, segments, table[index])

	return &WheelResult{
		Common: Common{
			GameType:     KindWheel,
			EntropyValue: e,
			Metadata: newMetadata(g.Now, wheelAlgorithm, map[string]int{
				"segments": segments,
			}),
		},
		Segments:     segments,
		Segment:      index,
		Multiplier:   table[index],
		SegmentAngle: 360 / float64(segments),
		Geometry:     geometry,
		Multipliers:  table,
	}, nil
}

// Validate regenerates the segment and compares.
func (g *WheelGame) Validate(e entropy.Value, segment int, segments int) (bool, error) {
	expected, err := WheelSegment(e, segments)
	if err != nil {
		return false, err
	}
	return expected == segment, nil
}

// Evaluate implements Game.
func (g *WheelGame) Evaluate(e entropy.Value, params map[string]any) (GameResult, error) {
	cfg, err := wheelConfigFromParams(params)
	if err != nil {
		return GameResult{}, err
	}

	result, err := g.Process(e, cfg)
	if err != nil {
		return GameResult{}, err
	}

	return GameResult{
		GameType:     KindWheel,
		EntropyValue: e,
		Metric:       result.Multiplier,
		MetricLabel:  "multiplier",
		Outcome:      result,
	}, nil
}

// Verify implements Game. claimed must decode to a WheelResult.
func (g *WheelGame) Verify(e entropy.Value, params map[string]any, claimed json.RawMessage) (bool, error) {
	cfg, err := wheelConfigFromParams(params)
	if err != nil {
		return false, err
	}

	var outcome struct {
		Segment    *int    `json:"segment"`
		Segments   int     `json:"segments"`
		Multiplier float64 `json:"multiplier"`
	}
	if err := json.Unmarshal(claimed, &outcome); err != nil {
		return false, fmt.Errorf("decode wheel outcome: %w", err)
	}
	if outcome.Segment == nil {
		return false, nil
	}
	if outcome.Segments != 0 && outcome.Segments != cfg.Segments {
		return false, nil
	}

	ok, err := g.Validate(e, *outcome.Segment, cfg.Segments)
	if err != nil || !ok {
		return ok, err
	}
	if outcome.Multiplier != 0 {
		table, _ := WheelTable(cfg.Segments)
		return table[*outcome.Segment] == outcome.Multiplier, nil
	}
	return true, nil
}

// Analyze implements Game. Besides expected value it reports the spread of
// multipliers under uniform segment probability.
func (g *WheelGame) Analyze(params map[string]any) (Analysis, error) {
	cfg, err := wheelConfigFromParams(params)
	if err != nil {
		return Analysis{}, err
	}

	segments := cfg.Segments
	table, err := WheelTable(segments)
	if err != nil {
		return Analysis{}, err
	}

	a := analyzeTable(KindWheel, map[string]any{"segments": segments}, table, UniformProbabilities(segments))

	tiers := map[RiskTier]int{}
	for _, m := range table {
		tiers[TierFor(m)]++
	}
	a.Extra = map[string]any{
		"tiers":         tiers,
		"segment_angle": 360 / float64(segments),
	}
	return a, nil
}

func wheelConfigFromParams(params map[string]any) (WheelConfig, error) {
	segments, err := intParam(params, wheelDefaultSegments, "segments")
	if err != nil {
		return WheelConfig{}, err
	}
	cfg := WheelConfig{Segments: segments}
	return cfg, cfg.Validate()
}
