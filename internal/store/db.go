package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DB represents the database interface
type DB interface {
	Close() error
	Migrate(ctx context.Context) error

	SaveVerification(ctx context.Context, v *Verification) error
	GetVerification(ctx context.Context, id string) (*Verification, error)
	ListVerifications(ctx context.Context, query VerificationsQuery) (*VerificationsList, error)

	SaveRun(ctx context.Context, run *Run) error
	SaveHits(ctx context.Context, runID string, hits []Hit) error
	SaveRunWithHits(ctx context.Context, run *Run, hits []Hit) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, query RunsQuery) (*RunsList, error)
	GetRunHits(ctx context.Context, runID string, page, perPage int) (*HitsPage, error)
}

// Verification is one audited replay.
type Verification struct {
	ID            string    `json:"id"`
	Game          string    `json:"game"`
	Entropy       string    `json:"entropy"`
	EntropyHash   string    `json:"entropy_hash"`
	ParamsJSON    string    `json:"params_json"`
	ClaimedJSON   string    `json:"claimed_json"`
	Verified      bool      `json:"verified"`
	Reason        string    `json:"reason,omitempty"`
	EngineVersion string    `json:"engine_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// VerificationsQuery represents query parameters for listing verifications
type VerificationsQuery struct {
	Game     string `json:"game,omitempty"`
	Verified *bool  `json:"verified,omitempty"`
	Page     int    `json:"page"`
	PerPage  int    `json:"perPage"`
}

// VerificationsList represents a paginated verifications response
type VerificationsList struct {
	Verifications []Verification `json:"verifications"`
	TotalCount    int            `json:"totalCount"`
	Page          int            `json:"page"`
	PerPage       int            `json:"perPage"`
	TotalPages    int            `json:"totalPages"`
}

// Run represents a persisted entropy range scan
type Run struct {
	ID             string    `json:"id"`
	Game           string    `json:"game"`
	EntropyStart   string    `json:"entropy_start"`
	Count          uint64    `json:"count"`
	ParamsJSON     string    `json:"params_json"`
	TargetOp       string    `json:"target_op"`
	TargetVal      float64   `json:"target_val"`
	TargetVal2     float64   `json:"target_val2"`
	Tolerance      float64   `json:"tolerance"`
	HitLimit       int       `json:"hit_limit"`
	TimedOut       bool      `json:"timed_out"`
	HitCount       int       `json:"hit_count"`
	TotalEvaluated uint64    `json:"total_evaluated"`
	SummaryMin     *float64  `json:"summary_min"`
	SummaryMax     *float64  `json:"summary_max"`
	SummaryMean    *float64  `json:"summary_mean"`
	EngineVersion  string    `json:"engine_version"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunsQuery represents query parameters for listing runs
type RunsQuery struct {
	Game    string `json:"game,omitempty"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}

// RunsList represents paginated runs response
type RunsList struct {
	Runs       []Run `json:"runs"`
	TotalCount int   `json:"totalCount"`
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	TotalPages int   `json:"totalPages"`
}

// Hit represents a single matching entropy value of a run
type Hit struct {
	ID      int64   `json:"id"`
	RunID   string  `json:"run_id"`
	Offset  uint64  `json:"offset"`
	Entropy string  `json:"entropy"`
	Metric  float64 `json:"metric"`
}

// HitWithDelta carries the distance to the previous hit of the same run.
type HitWithDelta struct {
	Hit
	DeltaOffset *uint64 `json:"delta_offset,omitempty"`
}

// HitsPage represents paginated hits response
type HitsPage struct {
	Hits       []HitWithDelta `json:"hits"`
	TotalCount int            `json:"totalCount"`
	Page       int            `json:"page"`
	PerPage    int            `json:"perPage"`
	TotalPages int            `json:"totalPages"`
}

const defaultPerPage = 50

func paginate(page, perPage, total int) (int, int, int, int) {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > 500 {
		perPage = 500
	}
	if page <= 0 {
		page = 1
	}
	totalPages := (total + perPage - 1) / perPage
	return page, perPage, totalPages, (page - 1) * perPage
}
