package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/MJE43/entropy-casino-engine/internal/entropy"
	"github.com/MJE43/entropy-casino-engine/internal/games"
	"github.com/MJE43/entropy-casino-engine/internal/scan"
	"github.com/MJE43/entropy-casino-engine/internal/verify"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeValidation     = "validation_error"
	ErrTypeInvalidParams  = "invalid_params"
	ErrTypeUnsupportedBet = "unsupported_bet_type"

	// Game-related errors
	ErrTypeGameNotFound = "game_not_found"
	ErrTypeInvariant    = "invariant_violation"

	// Lookup errors
	ErrTypeNotFound = "not_found"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryGame       ErrorCategory = "game"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation, ErrTypeInvalidParams, ErrTypeUnsupportedBet, ErrTypeNotFound:
		return CategoryValidation
	case ErrTypeGameNotFound, ErrTypeInvariant:
		return CategoryGame
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string            `json:"engine_version"`
	GitCommit     string            `json:"git_commit,omitempty"`
	BuildTime     string            `json:"build_time,omitempty"`
	Algorithms    map[string]string `json:"algorithms"`
}

// GamesResponse represents the games metadata response
type GamesResponse struct {
	Games         []games.GameSpec `json:"games"`
	EngineVersion string           `json:"engine_version"`
}

// ProcessRequest maps one entropy value to an outcome.
type ProcessRequest struct {
	Game    string         `json:"game"`
	Entropy *entropy.Value `json:"entropy"`
	Params  map[string]any `json:"params,omitempty"`
}

// ProcessResponse wraps the result envelope.
type ProcessResponse struct {
	Result        games.GameResult `json:"result"`
	EngineVersion string           `json:"engine_version"`
}

// VerifyRequest represents a single verification request
type VerifyRequest struct {
	Game    string          `json:"game"`
	Entropy *entropy.Value  `json:"entropy"`
	Params  map[string]any  `json:"params,omitempty"`
	Claimed json.RawMessage `json:"claimed"`
}

func (r VerifyRequest) toVerify() verify.Request {
	return verify.Request{
		Game:    r.Game,
		Entropy: *r.Entropy,
		Params:  r.Params,
		Claimed: r.Claimed,
	}
}

// VerifyResponse is a verification report plus the engine version.
type VerifyResponse struct {
	verify.Report
	EngineVersion string `json:"engine_version"`
}

// BatchVerifyRequest verifies several claims in order.
type BatchVerifyRequest struct {
	Requests []VerifyRequest `json:"requests"`
}

// BatchVerifyResponse holds one report per request, in request order.
type BatchVerifyResponse struct {
	Reports       []verify.Report `json:"reports"`
	Verified      int             `json:"verified"`
	Failed        int             `json:"failed"`
	EngineVersion string          `json:"engine_version"`
}

// ScanRequest extends scan.ScanRequest with persistence.
type ScanRequest struct {
	scan.ScanRequest
	Persist bool `json:"persist,omitempty"`
}

// ScanResponse represents the complete scan response
type ScanResponse struct {
	*scan.ScanResult
	Persisted bool `json:"persisted"`
}

// PayoutRequest settles a roulette bet. Exactly one of ResultNumber and
// Entropy must be set.
type PayoutRequest struct {
	BetType      string          `json:"betType"`
	BetValue     []int           `json:"betValue,omitempty"`
	ResultNumber *int            `json:"resultNumber,omitempty"`
	Entropy      *entropy.Value  `json:"entropy,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
}

// PayoutResponse is the settlement plus the engine version.
type PayoutResponse struct {
	games.Payout
	EngineVersion string `json:"engine_version"`
}

// AnalysisResponse is a game's static economics.
type AnalysisResponse struct {
	games.Analysis
	EngineVersion string `json:"engine_version"`
}
