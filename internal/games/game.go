package games

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MJE43/entropy-casino-engine/internal/entropy"
)

// Kind identifies one of the supported games.
type Kind string

const (
	KindMines    Kind = "mines"
	KindPlinko   Kind = "plinko"
	KindRoulette Kind = "roulette"
	KindWheel    Kind = "wheel"
)

// Kinds lists every supported game in a stable order.
func Kinds() []Kind {
	return []Kind{KindMines, KindPlinko, KindRoulette, KindWheel}
}

// ParseKind normalizes and validates a game identifier.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindMines, KindPlinko, KindRoulette, KindWheel:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGame, s)
	}
}

// GameSpec describes a game for listings.
type GameSpec struct {
	ID          Kind   `json:"id"`
	Name        string `json:"name"`
	MetricLabel string `json:"metric_label"`
	Algorithm   string `json:"algorithm"`
}

// Metadata travels with every outcome.
type Metadata struct {
	Algorithm   string         `json:"algorithm"`
	GeneratedAt *time.Time     `json:"generatedAt,omitempty"`
	Counts      map[string]int `json:"counts,omitempty"`
}

// Common carries the fields shared by every typed outcome.
type Common struct {
	GameType     Kind          `json:"gameType"`
	EntropyValue entropy.Value `json:"entropyValue"`
	Metadata     Metadata      `json:"metadata"`
}

// GameResult is the uniform envelope returned by Game.Evaluate. Outcome holds
// the typed result (*MinesResult, *PlinkoResult, *RouletteResult or
// *WheelResult).
type GameResult struct {
	GameType     Kind          `json:"gameType"`
	EntropyValue entropy.Value `json:"entropyValue"`
	Metric       float64       `json:"metric"`
	MetricLabel  string        `json:"metric_label"`
	Outcome      any           `json:"outcome"`
}

// Game is implemented by the four outcome processors. Implementations are
// stateless apart from an optional clock, so one instance may serve
// concurrent callers.
type Game interface {
	Spec() GameSpec

	// Evaluate maps an entropy value and loosely typed params (as decoded
	// from JSON) to a result.
	Evaluate(e entropy.Value, params map[string]any) (GameResult, error)

	// Verify replays the mapping and reports whether claimed, the JSON
	// encoding of a typed outcome, matches it. A mismatch is not an error.
	Verify(e entropy.Value, params map[string]any, claimed json.RawMessage) (bool, error)

	// Analyze returns the static economics of a configuration.
	Analyze(params map[string]any) (Analysis, error)
}

// Lookup returns the processor for kind. The returned processors use now for
// metadata timestamps; pass nil for fully deterministic output.
func Lookup(kind Kind, now func() time.Time) (Game, error) {
	switch kind {
	case KindMines:
		return &MinesGame{Now: now}, nil
	case KindPlinko:
		return &PlinkoGame{Now: now}, nil
	case KindRoulette:
		return &RouletteGame{Now: now}, nil
	case KindWheel:
		return &WheelGame{Now: now}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, kind)
	}
}

// GetGame looks a game up by its string identifier without a clock.
func GetGame(id string) (Game, bool) {
	kind, err := ParseKind(id)
	if err != nil {
		return nil, false
	}
	game, err := Lookup(kind, nil)
	if err != nil {
		return nil, false
	}
	return game, true
}

// ListGames returns the specs of every supported game.
func ListGames() []GameSpec {
	specs := make([]GameSpec, 0, len(Kinds()))
	for _, kind := range Kinds() {
		game, _ := Lookup(kind, nil)
		specs = append(specs, game.Spec())
	}
	return specs
}

func newMetadata(now func() time.Time, algorithm string, counts map[string]int) Metadata {
	md := Metadata{Algorithm: algorithm, Counts: counts}
	if now != nil {
		ts := now().UTC()
		md.GeneratedAt = &ts
	}
	return md
}
