package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &SQLiteDB{db: db, now: time.Now}, nil
}

// HashEntropy returns the hex SHA-256 of an entropy value's decimal form.
func HashEntropy(entropy string) string {
	if entropy == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(entropy))
	return hex.EncodeToString(hash[:])
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteDB) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS verifications (
			id TEXT PRIMARY KEY,
			game TEXT NOT NULL,
			entropy TEXT NOT NULL,
			entropy_hash TEXT NOT NULL,
			params_json TEXT NOT NULL DEFAULT '{}',
			claimed_json TEXT NOT NULL DEFAULT '',
			verified INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			engine_version TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			game TEXT NOT NULL,
			entropy_start TEXT NOT NULL,
			entropy_count INTEGER NOT NULL,
			params_json TEXT NOT NULL DEFAULT '{}',
			target_op TEXT NOT NULL,
			target_val REAL NOT NULL,
			target_val2 REAL NOT NULL DEFAULT 0,
			tolerance REAL NOT NULL DEFAULT 0,
			hit_limit INTEGER NOT NULL DEFAULT 0,
			timed_out INTEGER NOT NULL DEFAULT 0,
			hit_count INTEGER NOT NULL DEFAULT 0,
			total_evaluated INTEGER NOT NULL DEFAULT 0,
			summary_min REAL,
			summary_max REAL,
			summary_mean REAL,
			engine_version TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS hits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			entropy_offset INTEGER NOT NULL,
			entropy TEXT NOT NULL,
			metric REAL NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verifications_created ON verifications(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_verifications_game ON verifications(game, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_verifications_entropy ON verifications(entropy_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_game_created ON runs(game, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_hits_run_offset ON hits(run_id, entropy_offset)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteDB) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.now().UTC()
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveVerification inserts an audit record, assigning an id and timestamp
// when unset.
func (s *SQLiteDB) SaveVerification(ctx context.Context, v *Verification) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	s.stamp(&v.CreatedAt)
	if v.EntropyHash == "" {
		v.EntropyHash = HashEntropy(v.Entropy)
	}
	if v.ParamsJSON == "" {
		v.ParamsJSON = "{}"
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO verifications (
		id, game, entropy, entropy_hash, params_json, claimed_json,
		verified, reason, engine_version, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Game, v.Entropy, v.EntropyHash, v.ParamsJSON, v.ClaimedJSON,
		boolInt(v.Verified), v.Reason, v.EngineVersion, v.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save verification: %w", err)
	}
	return nil
}

const verificationColumns = `id, game, entropy, entropy_hash, params_json, claimed_json,
	verified, reason, engine_version, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanVerification(row scanner) (*Verification, error) {
	var v Verification
	var verified int
	var created int64
	if err := row.Scan(&v.ID, &v.Game, &v.Entropy, &v.EntropyHash, &v.ParamsJSON, &v.ClaimedJSON,
		&verified, &v.Reason, &v.EngineVersion, &created); err != nil {
		return nil, err
	}
	v.Verified = verified == 1
	v.CreatedAt = time.Unix(0, created).UTC()
	return &v, nil
}

// GetVerification retrieves an audit record by id
func (s *SQLiteDB) GetVerification(ctx context.Context, id string) (*Verification, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE id = ?`, id)
	v, err := scanVerification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	return v, nil
}

// ListVerifications returns audit records, newest first.
func (s *SQLiteDB) ListVerifications(ctx context.Context, query VerificationsQuery) (*VerificationsList, error) {
	var where []string
	var args []any
	if query.Game != "" {
		where = append(where, "game = ?")
		args = append(args, query.Game)
	}
	if query.Verified != nil {
		where = append(where, "verified = ?")
		args = append(args, boolInt(*query.Verified))
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM verifications "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	page, perPage, totalPages, offset := paginate(query.Page, query.PerPage, totalCount)

	rows, err := s.db.QueryContext(ctx, `SELECT `+verificationColumns+` FROM verifications `+whereClause+`
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`, append(args, perPage, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verifications: %w", err)
	}
	defer rows.Close()

	list := &VerificationsList{
		Verifications: []Verification{},
		TotalCount:    totalCount,
		Page:          page,
		PerPage:       perPage,
		TotalPages:    totalPages,
	}
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verification: %w", err)
		}
		list.Verifications = append(list.Verifications, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verifications: %w", err)
	}
	return list, nil
}

// SaveRun saves a scan run to the database
func (s *SQLiteDB) SaveRun(ctx context.Context, run *Run) error {
	return s.insertRun(ctx, s.db, run)
}

// SaveHits saves multiple hits to the database
func (s *SQLiteDB) SaveHits(ctx context.Context, runID string, hits []Hit) error {
	if len(hits) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertHits(ctx, tx, runID, hits); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveRunWithHits saves a run and its hits atomically. On error neither the
// run nor any of its hits are stored.
func (s *SQLiteDB) SaveRunWithHits(ctx context.Context, run *Run, hits []Hit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.insertRun(ctx, tx, run); err != nil {
		return err
	}
	for i := range hits {
		hits[i].RunID = run.ID
	}
	if err := insertHits(ctx, tx, run.ID, hits); err != nil {
		return err
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteDB) insertRun(ctx context.Context, db execer, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	s.stamp(&run.CreatedAt)
	if run.ParamsJSON == "" {
		run.ParamsJSON = "{}"
	}

	_, err := db.ExecContext(ctx, `INSERT INTO runs (
		id, game, entropy_start, entropy_count, params_json, target_op, target_val, target_val2,
		tolerance, hit_limit, timed_out, hit_count, total_evaluated,
		summary_min, summary_max, summary_mean, engine_version, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Game, run.EntropyStart, int64(run.Count), run.ParamsJSON, run.TargetOp,
		run.TargetVal, run.TargetVal2, run.Tolerance, run.HitLimit, boolInt(run.TimedOut),
		run.HitCount, int64(run.TotalEvaluated), run.SummaryMin, run.SummaryMax, run.SummaryMean,
		run.EngineVersion, run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func insertHits(ctx context.Context, tx *sql.Tx, runID string, hits []Hit) error {
	if len(hits) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO hits (run_id, entropy_offset, entropy, metric) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, hit := range hits {
		if _, err := stmt.ExecContext(ctx, runID, int64(hit.Offset), hit.Entropy, hit.Metric); err != nil {
			return fmt.Errorf("failed to save hit at offset %d: %w", hit.Offset, err)
		}
	}
	return nil
}

const runColumns = `id, game, entropy_start, entropy_count, params_json, target_op, target_val, target_val2,
	tolerance, hit_limit, timed_out, hit_count, total_evaluated,
	summary_min, summary_max, summary_mean, engine_version, created_at`

func scanRun(row scanner) (*Run, error) {
	var run Run
	var count, evaluated, created int64
	var timedOut int
	var summaryMin, summaryMax, summaryMean sql.NullFloat64

	err := row.Scan(&run.ID, &run.Game, &run.EntropyStart, &count, &run.ParamsJSON, &run.TargetOp,
		&run.TargetVal, &run.TargetVal2, &run.Tolerance, &run.HitLimit, &timedOut,
		&run.HitCount, &evaluated, &summaryMin, &summaryMax, &summaryMean,
		&run.EngineVersion, &created)
	if err != nil {
		return nil, err
	}

	run.Count = uint64(count)
	run.TotalEvaluated = uint64(evaluated)
	run.TimedOut = timedOut == 1
	run.CreatedAt = time.Unix(0, created).UTC()
	if summaryMin.Valid {
		run.SummaryMin = &summaryMin.Float64
	}
	if summaryMax.Valid {
		run.SummaryMax = &summaryMax.Float64
	}
	if summaryMean.Valid {
		run.SummaryMean = &summaryMean.Float64
	}
	return &run, nil
}

// GetRun retrieves a run by ID
func (s *SQLiteDB) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs with pagination and filtering
func (s *SQLiteDB) ListRuns(ctx context.Context, query RunsQuery) (*RunsList, error) {
	whereClause := ""
	var args []any
	if query.Game != "" {
		whereClause = "WHERE game = ?"
		args = append(args, query.Game)
	}

	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	page, perPage, totalPages, offset := paginate(query.Page, query.PerPage, totalCount)

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs `+whereClause+`
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`, append(args, perPage, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	list := &RunsList{
		Runs:       []Run{},
		TotalCount: totalCount,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		list.Runs = append(list.Runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return list, nil
}

// GetRunHits returns a page of hits in offset order. DeltaOffset is the gap
// to the previous hit of the run, including across page boundaries.
func (s *SQLiteDB) GetRunHits(ctx context.Context, runID string, page, perPage int) (*HitsPage, error) {
	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hits WHERE run_id = ?", runID).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count hits: %w", err)
	}

	page, perPage, totalPages, offset := paginate(page, perPage, totalCount)

	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, entropy_offset, entropy, metric,
		LAG(entropy_offset) OVER (ORDER BY entropy_offset) AS prev_offset
		FROM hits WHERE run_id = ?
		ORDER BY entropy_offset
		LIMIT ? OFFSET ?`, runID, perPage, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query hits: %w", err)
	}
	defer rows.Close()

	result := &HitsPage{
		Hits:       []HitWithDelta{},
		TotalCount: totalCount,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
	for rows.Next() {
		var h HitWithDelta
		var off int64
		var prev sql.NullInt64
		if err := rows.Scan(&h.ID, &h.RunID, &off, &h.Entropy, &h.Metric, &prev); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		h.Offset = uint64(off)
		if prev.Valid {
			delta := uint64(off - prev.Int64)
			h.DeltaOffset = &delta
		}
		result.Hits = append(result.Hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hits: %w", err)
	}
	return result, nil
}
