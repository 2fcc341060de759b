package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/entropy-casino-engine/internal/store"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	return dir
}

func TestProcessCommand(t *testing.T) {
	inTempDir(t)

	out, err := run(t, "", "process", "-g", "roulette", "-e", "36")
	require.NoError(t, err)

	var result struct {
		GameType string  `json:"gameType"`
		Metric   float64 `json:"metric"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "roulette", result.GameType)
	assert.Equal(t, 36.0, result.Metric)

	_, err = run(t, "", "process", "-g", "mines", "-e", "1", "-p", "mineCount=40")
	assert.Error(t, err)

	_, err = run(t, "", "process", "-g", "mines")
	assert.Error(t, err)
}

func TestVerifyCommand(t *testing.T) {
	inTempDir(t)

	_, err := run(t, "", "verify", "-g", "roulette", "-e", "36", "--claimed", `{"number":36}`)
	require.NoError(t, err)

	_, err = run(t, "", "verify", "-g", "roulette", "-e", "36", "--claimed", `{"number":1}`)
	assert.ErrorIs(t, err, errNotVerified)

	stored, err := run(t, "", "process", "-g", "plinko", "-e", "999", "-p", "rows=10", "-p", "risk=high")
	require.NoError(t, err)

	out, err := run(t, stored, "verify", "--stored", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"verified": true`)
}

func TestAnalyzeCommand(t *testing.T) {
	inTempDir(t)

	out, err := run(t, "", "analyze", "-g", "wheel", "-p", "segments=10")
	require.NoError(t, err)

	var analysis struct {
		ExpectedValue float64 `json:"expected_value"`
		Outcomes      int     `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &analysis))
	assert.InDelta(t, 0.94, analysis.ExpectedValue, 1e-9)
	assert.Equal(t, 10, analysis.Outcomes)
}

func TestScanCommandPersists(t *testing.T) {
	dir := inTempDir(t)
	dbPath := filepath.Join(dir, "runs.db")
	t.Setenv("CASINO_DB_PATH", dbPath)

	out, err := run(t, "", "scan", "-g", "roulette", "-e", "0", "--count", "370", "--op", "eq", "--val", "0", "--persist")
	require.NoError(t, err)

	var result struct {
		ID      string `json:"id"`
		Summary struct {
			HitsFound int `json:"hits_found"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 10, result.Summary.HitsFound)

	db, err := store.NewSQLiteDB(dbPath)
	require.NoError(t, err)
	defer db.Close()
	saved, err := db.GetRun(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, saved.HitCount)
}

func TestScanCommandRejectsOperator(t *testing.T) {
	inTempDir(t)

	_, err := run(t, "", "scan", "-g", "roulette", "--op", "near")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	inTempDir(t)

	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, `"engine_version"`)
}
