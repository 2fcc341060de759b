package scan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MJE43/entropy-casino-engine/internal/entropy"
	"github.com/MJE43/entropy-casino-engine/internal/games"
)

const (
	defaultMaxCount = 1_000_000
	defaultHitLimit = 1000
	batchSize       = 4096
)

// ScanRequest represents a scan operation request. The scanned values are
// EntropyStart, EntropyStart+1, ..., EntropyStart+Count-1.
type ScanRequest struct {
	Game         string         `json:"game"`
	EntropyStart entropy.Value  `json:"entropy_start"`
	Count        uint64         `json:"count"`
	Params       map[string]any `json:"params"`
	TargetOp     TargetOp       `json:"target_op"`
	TargetVal    float64        `json:"target_val"`
	TargetVal2   float64        `json:"target_val2,omitempty"` // for "between" and "outside"
	Tolerance    float64        `json:"tolerance"`             // default 1e-9, 0 for integer metrics
	Limit        int            `json:"limit,omitempty"`
	TimeoutMs    int            `json:"timeout_ms,omitempty"`
}

// Hit represents a single matching result
type Hit struct {
	Offset  uint64        `json:"offset"`
	Entropy entropy.Value `json:"entropy"`
	Metric  float64       `json:"metric"`
}

// Summary contains aggregate statistics over every evaluated value, not just
// the hits.
type Summary struct {
	TotalEvaluated uint64  `json:"total_evaluated"`
	HitsFound      int     `json:"hits_found"`
	MinMetric      float64 `json:"min_metric"`
	MaxMetric      float64 `json:"max_metric"`
	MeanMetric     float64 `json:"mean_metric"`
	Errors         uint64  `json:"errors,omitempty"`
	TimedOut       bool    `json:"timed_out,omitempty"`
}

// ScanResult contains the complete scan results
type ScanResult struct {
	ID            string      `json:"id"`
	Hits          []Hit       `json:"hits"`
	Summary       Summary     `json:"summary"`
	Truncated     bool        `json:"truncated,omitempty"`
	EngineVersion string      `json:"engine_version"`
	Echo          ScanRequest `json:"echo"`
}

// job is a contiguous block of offsets [start, end).
type job struct {
	start uint64
	end   uint64
}

// stats accumulates metrics for one worker.
type stats struct {
	evaluated uint64
	errors    uint64
	hits      []Hit
	min, max  float64
	sum       float64
}

func newStats() *stats {
	return &stats{min: math.Inf(1), max: math.Inf(-1)}
}

func (s *stats) observe(metric float64) {
	s.evaluated++
	s.sum += metric
	s.min = math.Min(s.min, metric)
	s.max = math.Max(s.max, metric)
}

// Scanner replays a game over contiguous entropy ranges with a fixed-size
// worker pool.
type Scanner struct {
	workers  int
	maxCount uint64
	hitLimit int
	timeout  time.Duration
	version  string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers sets the worker count. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMaxCount caps the number of values a single request may scan.
func WithMaxCount(n uint64) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.maxCount = n
		}
	}
}

// WithHitLimit caps the number of hits returned.
func WithHitLimit(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.hitLimit = n
		}
	}
}

// WithTimeout sets the default timeout used when a request has none.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.timeout = d
	}
}

// WithVersion sets the engine version echoed in results.
func WithVersion(v string) Option {
	return func(s *Scanner) {
		s.version = v
	}
}

// NewScanner creates a scanner with one worker per CPU by default.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		workers:  runtime.GOMAXPROCS(0),
		maxCount: defaultMaxCount,
		hitLimit: defaultHitLimit,
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan evaluates every value in the request's range and returns the hits
// in offset order. When the deadline passes mid-scan the partial result is
// returned with Summary.TimedOut set; ErrTimeout is returned only if nothing
// was evaluated.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	kind, err := games.ParseKind(req.Game)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrGameNotFound, req.Game)
	}
	game, err := games.Lookup(kind, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrGameNotFound, req.Game)
	}

	if req.Count == 0 || req.Count > s.maxCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d, got %d", ErrInvalidRange, s.maxCount, req.Count)
	}

	tolerance := req.Tolerance
	if tolerance == 0 && !integralMetric(kind) {
		tolerance = 1e-9
	}
	evaluator, err := NewTargetEvaluator(req.TargetOp, req.TargetVal, req.TargetVal2, tolerance)
	if err != nil {
		return nil, err
	}

	// Bad game params fail every evaluation, so reject them once up front.
	if _, err := game.Evaluate(req.EntropyStart, req.Params); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	limit := s.hitLimit
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}

	timeout := s.timeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	jobs := make(chan job, s.workers*2)
	go generateJobs(ctx, jobs, req.Count)

	var (
		mu       sync.Mutex
		merged   []*stats
		wg       sync.WaitGroup
		canceled atomic.Bool
	)
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := newStats()
			if !runWorker(ctx, jobs, game, req, evaluator, st) {
				canceled.Store(true)
			}
			mu.Lock()
			merged = append(merged, st)
			mu.Unlock()
		}()
	}
	wg.Wait()

	timedOut := canceled.Load() || ctx.Err() != nil
	result := collect(merged, limit)
	result.ID = uuid.NewString()
	result.Summary.TimedOut = timedOut
	result.EngineVersion = s.version
	result.Echo = req

	if timedOut && result.Summary.TotalEvaluated == 0 {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
	return result, nil
}

// runWorker drains jobs until the channel closes (true) or ctx ends (false).
func runWorker(ctx context.Context, jobs <-chan job, game games.Game, req ScanRequest, ev *TargetEvaluator, st *stats) bool {
	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				return true
			}
			for off := j.start; off < j.end; off++ {
				if off%256 == 0 && ctx.Err() != nil {
					return false
				}
				e := req.EntropyStart.Add(off)
				res, err := game.Evaluate(e, req.Params)
				if err != nil {
					st.errors++
					continue
				}
				st.observe(res.Metric)
				if ev.Matches(res.Metric) {
					st.hits = append(st.hits, Hit{Offset: off, Entropy: e, Metric: res.Metric})
				}
			}
		case <-ctx.Done():
			return false
		}
	}
}

func generateJobs(ctx context.Context, jobs chan<- job, count uint64) {
	defer close(jobs)

	for start := uint64(0); start < count; start += batchSize {
		end := min(start+batchSize, count)
		select {
		case jobs <- job{start: start, end: end}:
		case <-ctx.Done():
			return
		}
	}
}

func collect(all []*stats, limit int) *ScanResult {
	result := &ScanResult{Hits: []Hit{}}
	sum := 0.0
	lo, hi := math.Inf(1), math.Inf(-1)

	for _, st := range all {
		result.Summary.TotalEvaluated += st.evaluated
		result.Summary.Errors += st.errors
		result.Hits = append(result.Hits, st.hits...)
		if st.evaluated > 0 {
			sum += st.sum
			lo = math.Min(lo, st.min)
			hi = math.Max(hi, st.max)
		}
	}

	slices.SortFunc(result.Hits, func(a, b Hit) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		default:
			return 0
		}
	})

	result.Summary.HitsFound = len(result.Hits)
	if limit > 0 && len(result.Hits) > limit {
		result.Hits = result.Hits[:limit]
		result.Truncated = true
	}

	if n := result.Summary.TotalEvaluated; n > 0 {
		result.Summary.MinMetric = lo
		result.Summary.MaxMetric = hi
		result.Summary.MeanMetric = sum / float64(n)
	}
	return result
}

func integralMetric(kind games.Kind) bool {
	return kind == games.KindRoulette || kind == games.KindMines
}
