package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MJE43/entropy-casino-engine/internal/scan"
	"github.com/MJE43/entropy-casino-engine/internal/verify"
)

// AuditRecorder writes every verification to a DB.
type AuditRecorder struct {
	DB      DB
	Version string
}

// RecordVerification implements verify.Recorder.
func (a *AuditRecorder) RecordVerification(ctx context.Context, req verify.Request, rep verify.Report) (string, error) {
	params := "{}"
	if len(req.Params) > 0 {
		raw, err := json.Marshal(req.Params)
		if err != nil {
			return "", fmt.Errorf("encode params: %w", err)
		}
		params = string(raw)
	}

	v := &Verification{
		Game:          string(rep.Game),
		Entropy:       req.Entropy.String(),
		ParamsJSON:    params,
		ClaimedJSON:   string(req.Claimed),
		Verified:      rep.Verified,
		Reason:        rep.Reason,
		EngineVersion: a.Version,
		CreatedAt:     rep.CheckedAt,
	}
	if err := a.DB.SaveVerification(ctx, v); err != nil {
		return "", err
	}
	return v.ID, nil
}

// SaveScan persists a scan result and its hits as a run. The run id is the
// scan id.
func SaveScan(ctx context.Context, db DB, result *scan.ScanResult) (*Run, error) {
	params := "{}"
	if len(result.Echo.Params) > 0 {
		raw, err := json.Marshal(result.Echo.Params)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		params = string(raw)
	}

	run := &Run{
		ID:             result.ID,
		Game:           result.Echo.Game,
		EntropyStart:   result.Echo.EntropyStart.String(),
		Count:          result.Echo.Count,
		ParamsJSON:     params,
		TargetOp:       string(result.Echo.TargetOp),
		TargetVal:      result.Echo.TargetVal,
		TargetVal2:     result.Echo.TargetVal2,
		Tolerance:      result.Echo.Tolerance,
		HitLimit:       result.Echo.Limit,
		TimedOut:       result.Summary.TimedOut,
		HitCount:       result.Summary.HitsFound,
		TotalEvaluated: result.Summary.TotalEvaluated,
		EngineVersion:  result.EngineVersion,
	}
	if result.Summary.TotalEvaluated > 0 {
		lo, hi, mean := result.Summary.MinMetric, result.Summary.MaxMetric, result.Summary.MeanMetric
		run.SummaryMin, run.SummaryMax, run.SummaryMean = &lo, &hi, &mean
	}

	hits := make([]Hit, len(result.Hits))
	for i, h := range result.Hits {
		hits[i] = Hit{RunID: run.ID, Offset: h.Offset, Entropy: h.Entropy.String(), Metric: h.Metric}
	}
	if err := db.SaveRunWithHits(ctx, run, hits); err != nil {
		return nil, err
	}
	return run, nil
}
