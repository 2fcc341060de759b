// Package verify replays outcome processors against claimed results.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MJE43/entropy-casino-engine/internal/entropy"
	"github.com/MJE43/entropy-casino-engine/internal/games"
)

var (
	// ErrMissingClaim means the request carried no claimed outcome.
	ErrMissingClaim = errors.New("missing claimed outcome")

	// ErrMalformedClaim means the claimed outcome could not be decoded.
	ErrMalformedClaim = errors.New("malformed claimed outcome")

	// ErrAudit wraps failures of the Recorder. The report is still valid.
	ErrAudit = errors.New("audit record failed")
)

// Mismatch reasons reported when Verified is false.
const (
	ReasonMismatch   = "outcome does not match replay"
	ReasonGameMixup  = "claimed result belongs to a different game"
	ReasonEntropyMix = "claimed result echoes a different entropy value"
)

// Request asks for one replay. Claimed is the JSON encoding of a typed
// outcome, or of a GameResult envelope whose "outcome" holds one.
type Request struct {
	Game    string          `json:"game"`
	Entropy entropy.Value   `json:"entropy"`
	Params  map[string]any  `json:"params,omitempty"`
	Claimed json.RawMessage `json:"claimed"`
}

// Report is the verdict for one Request.
type Report struct {
	AuditID      string            `json:"auditId,omitempty"`
	Verified     bool              `json:"verified"`
	Game         games.Kind        `json:"game"`
	EntropyValue entropy.Value     `json:"entropyValue"`
	Expected     *games.GameResult `json:"expected,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	Error        string            `json:"error,omitempty"`
	CheckedAt    time.Time         `json:"checkedAt"`
}

// Recorder persists verification reports. It returns the audit id.
type Recorder interface {
	RecordVerification(ctx context.Context, req Request, rep Report) (string, error)
}

// Verifier replays requests. The zero value is usable and records nothing.
type Verifier struct {
	recorder Recorder
	now      func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithRecorder audits every Verify call.
func WithRecorder(r Recorder) Option {
	return func(v *Verifier) {
		v.recorder = r
	}
}

// WithClock sets the clock used for Report.CheckedAt.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// New returns a Verifier.
func New(opts ...Option) *Verifier {
	v := &Verifier{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify replays req and compares the claimed outcome. A mismatch yields a
// report with Verified false and a nil error; errors are reserved for
// requests that cannot be replayed at all, or for audit failures (ErrAudit),
// in which case the returned report is still meaningful.
func (v *Verifier) Verify(ctx context.Context, req Request) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	rep, err := v.replay(req)
	if err != nil {
		return rep, err
	}

	if v.recorder != nil {
		id, err := v.recorder.RecordVerification(ctx, req, rep)
		if err != nil {
			return rep, fmt.Errorf("%w: %w", ErrAudit, err)
		}
		rep.AuditID = id
	}
	return rep, nil
}

func (v *Verifier) replay(req Request) (Report, error) {
	kind, err := games.ParseKind(req.Game)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Game:         kind,
		EntropyValue: req.Entropy,
		CheckedAt:    v.clock(),
	}

	game, err := games.Lookup(kind, nil)
	if err != nil {
		return rep, err
	}

	expected, err := game.Evaluate(req.Entropy, req.Params)
	if err != nil {
		return rep, err
	}
	rep.Expected = &expected

	claimed := bytes.TrimSpace(req.Claimed)
	if len(claimed) == 0 || bytes.Equal(claimed, []byte("null")) {
		return rep, ErrMissingClaim
	}

	env, err := decodeEnvelope(claimed)
	if err != nil {
		return rep, err
	}
	if env.GameType != "" && games.Kind(env.GameType) != kind {
		rep.Reason = ReasonGameMixup
		return rep, nil
	}
	if env.EntropyValue != nil && !env.EntropyValue.Equal(req.Entropy) {
		rep.Reason = ReasonEntropyMix
		return rep, nil
	}
	if len(env.Outcome) > 0 {
		claimed = env.Outcome
	}

	ok, err := game.Verify(req.Entropy, req.Params, claimed)
	if err != nil {
		return rep, fmt.Errorf("%w: %w", ErrMalformedClaim, err)
	}
	rep.Verified = ok
	if !ok {
		rep.Reason = ReasonMismatch
	}
	return rep, nil
}

func (v *Verifier) clock() time.Time {
	if v.now == nil {
		return time.Now().UTC()
	}
	return v.now().UTC()
}

// envelope is the subset of a stored result needed to route a replay. Typed
// outcomes and GameResult envelopes both decode into it.
type envelope struct {
	GameType     string          `json:"gameType"`
	EntropyValue *entropy.Value  `json:"entropyValue"`
	Params       map[string]any  `json:"params"`
	Outcome      json.RawMessage `json:"outcome"`
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %w", ErrMalformedClaim, err)
	}
	return env, nil
}

// configKeys are the typed-outcome fields that double as game params.
var configKeys = []string{"mineCount", "rows", "risk", "segments"}

// VerifyStored replays a persisted result. raw is a GameResult envelope or a
// typed outcome; both carry gameType and entropyValue. Params are taken from
// a top-level "params" object when present, otherwise recovered from the
// configuration fields the typed outcome echoes.
func (v *Verifier) VerifyStored(ctx context.Context, raw []byte) (Report, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return Report{}, err
	}
	if env.GameType == "" || env.EntropyValue == nil {
		return Report{}, fmt.Errorf("%w: stored result needs gameType and entropyValue", ErrMalformedClaim)
	}

	outcome := env.Outcome
	if len(outcome) == 0 {
		outcome = raw
	}

	params := env.Params
	if params == nil {
		params, err = paramsFromOutcome(outcome)
		if err != nil {
			return Report{}, err
		}
	}

	return v.Verify(ctx, Request{
		Game:    env.GameType,
		Entropy: *env.EntropyValue,
		Params:  params,
		Claimed: outcome,
	})
}

func paramsFromOutcome(outcome []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(outcome, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedClaim, err)
	}

	params := map[string]any{}
	for _, key := range configKeys {
		if val, ok := fields[key]; ok && val != nil {
			params[key] = val
		}
	}
	return params, nil
}

// VerifyBatch verifies reqs in order. Per-request failures land in the
// report's Error field; only audit failures and cancellation are returned,
// together with the reports completed so far.
func (v *Verifier) VerifyBatch(ctx context.Context, reqs []Request) ([]Report, error) {
	reports := make([]Report, 0, len(reqs))
	var auditErr error

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		rep, err := v.Verify(ctx, req)
		switch {
		case err == nil:
		case errors.Is(err, ErrAudit):
			auditErr = errors.Join(auditErr, err)
		default:
			rep.Game = games.Kind(req.Game)
			rep.EntropyValue = req.Entropy
			rep.Error = err.Error()
		}
		reports = append(reports, rep)
	}

	return reports, auditErr
}
