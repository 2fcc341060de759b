package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/entropy-casino-engine/internal/entropy"
	"github.com/MJE43/entropy-casino-engine/internal/scan"
	"github.com/MJE43/entropy-casino-engine/internal/verify"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
}

func TestVerificationRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 4, 5, 6, 7, 8, time.UTC)

	v := &Verification{
		Game:          "roulette",
		Entropy:       "36",
		ClaimedJSON:   `{"number":36}`,
		Verified:      true,
		EngineVersion: "test",
		CreatedAt:     at,
	}
	require.NoError(t, db.SaveVerification(ctx, v))
	require.NotEmpty(t, v.ID)
	assert.Equal(t, HashEntropy("36"), v.EntropyHash)

	got, err := db.GetVerification(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "roulette", got.Game)
	assert.Equal(t, "36", got.Entropy)
	assert.Equal(t, "{}", got.ParamsJSON)
	assert.True(t, got.Verified)
	assert.True(t, got.CreatedAt.Equal(at))

	_, err = db.GetVerification(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListVerifications(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	games := []string{"mines", "plinko", "mines", "wheel", "mines"}
	for i, g := range games {
		require.NoError(t, db.SaveVerification(ctx, &Verification{
			Game:          g,
			Entropy:       "1",
			Verified:      i%2 == 0,
			EngineVersion: "test",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := db.ListVerifications(ctx, VerificationsQuery{PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, all.TotalCount)
	assert.Equal(t, 3, all.TotalPages)
	require.Len(t, all.Verifications, 2)
	assert.Equal(t, "mines", all.Verifications[0].Game)
	assert.Equal(t, "wheel", all.Verifications[1].Game)

	mines, err := db.ListVerifications(ctx, VerificationsQuery{Game: "mines"})
	require.NoError(t, err)
	assert.Equal(t, 3, mines.TotalCount)
	assert.Equal(t, defaultPerPage, mines.PerPage)

	failed := false
	rejected, err := db.ListVerifications(ctx, VerificationsQuery{Verified: &failed})
	require.NoError(t, err)
	assert.Equal(t, 2, rejected.TotalCount)

	empty, err := db.ListVerifications(ctx, VerificationsQuery{Game: "roulette"})
	require.NoError(t, err)
	assert.Empty(t, empty.Verifications)
	assert.NotNil(t, empty.Verifications)
}

func TestAuditRecorder(t *testing.T) {
	db := newTestDB(t)
	rec := &AuditRecorder{DB: db, Version: "v1.2.3"}
	v := verify.New(verify.WithRecorder(rec))

	rep, err := v.Verify(context.Background(), verify.Request{
		Game:    "wheel",
		Entropy: entropy.Zero,
		Params:  map[string]any{"segments": 10},
		Claimed: json.RawMessage(`{"segment":0}`),
	})
	require.NoError(t, err)
	require.True(t, rep.Verified)
	require.NotEmpty(t, rep.AuditID)

	stored, err := db.GetVerification(context.Background(), rep.AuditID)
	require.NoError(t, err)
	assert.Equal(t, "wheel", stored.Game)
	assert.Equal(t, "0", stored.Entropy)
	assert.JSONEq(t, `{"segments":10}`, stored.ParamsJSON)
	assert.Equal(t, "v1.2.3", stored.EngineVersion)
}

func TestSaveScan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	result, err := scan.NewScanner(scan.WithWorkers(2), scan.WithVersion("test")).Scan(ctx, scan.ScanRequest{
		Game:      "roulette",
		Count:     370,
		TargetOp:  scan.OpEqual,
		TargetVal: 0,
	})
	require.NoError(t, err)

	run, err := SaveScan(ctx, db, result)
	require.NoError(t, err)
	assert.Equal(t, result.ID, run.ID)

	got, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "roulette", got.Game)
	assert.Equal(t, uint64(370), got.Count)
	assert.Equal(t, 10, got.HitCount)
	require.NotNil(t, got.SummaryMax)
	assert.Equal(t, 36.0, *got.SummaryMax)

	page, err := db.GetRunHits(ctx, run.ID, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Hits, 4)
	assert.Equal(t, uint64(148), page.Hits[0].Offset)
	require.NotNil(t, page.Hits[0].DeltaOffset)
	assert.Equal(t, uint64(37), *page.Hits[0].DeltaOffset)

	first, err := db.GetRunHits(ctx, run.ID, 1, 4)
	require.NoError(t, err)
	assert.Nil(t, first.Hits[0].DeltaOffset)

	runs, err := db.ListRuns(ctx, RunsQuery{Game: "roulette"})
	require.NoError(t, err)
	assert.Equal(t, 1, runs.TotalCount)

	_, err = db.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveScanRollsBackOnHitFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.db.ExecContext(ctx, `CREATE TRIGGER reject_hits BEFORE INSERT ON hits
		BEGIN SELECT RAISE(ABORT, 'hits unavailable'); END`)
	require.NoError(t, err)

	result, err := scan.NewScanner(scan.WithWorkers(1)).Scan(ctx, scan.ScanRequest{
		Game:      "roulette",
		Count:     74,
		TargetOp:  scan.OpEqual,
		TargetVal: 0,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)

	_, err = SaveScan(ctx, db, result)
	require.Error(t, err)

	_, err = db.GetRun(ctx, result.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := db.ListRuns(ctx, RunsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, runs.TotalCount)
}

func TestSaveRunWithHitsWithoutHits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	run := &Run{Game: "wheel", EntropyStart: "0", Count: 10, TargetOp: "ge", TargetVal: 100}
	require.NoError(t, db.SaveRunWithHits(ctx, run, nil))

	got, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.HitCount)
	assert.False(t, got.CreatedAt.IsZero())
}
