package games

import "errors"

var (
	// ErrInvalidConfiguration means the game configuration failed static
	// validation. It is always raised before any entropy is consumed.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInsufficientPositions means the mines candidate pool ran dry.
	ErrInsufficientPositions = errors.New("insufficient positions")

	// ErrInvalidNumber means a roulette number fell outside [0, 36].
	ErrInvalidNumber = errors.New("invalid roulette number")

	// ErrInvariantViolation means bounds math produced an impossible result.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrUnsupportedBetType is returned for unknown roulette bet types.
	ErrUnsupportedBetType = errors.New("unsupported bet type")

	// ErrInvalidBet means a known bet type was given an impossible selection.
	ErrInvalidBet = errors.New("invalid bet")

	// ErrUnknownGame is returned by Lookup and ParseKind.
	ErrUnknownGame = errors.New("unknown game")
)
