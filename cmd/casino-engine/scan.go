package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/MJE43/entropy-casino-engine/internal/api"
	"github.com/MJE43/entropy-casino-engine/internal/entropy"
	"github.com/MJE43/entropy-casino-engine/internal/logger"
	"github.com/MJE43/entropy-casino-engine/internal/scan"
	"github.com/MJE43/entropy-casino-engine/internal/store"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		f       gameFlags
		req     scan.ScanRequest
		op      string
		persist bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Replay a game over a contiguous entropy range and report matching values",
		Example: `  casino-engine scan -g roulette -e 0 --count 3700 --op eq --val 0
  casino-engine scan -g wheel -e 1000 --count 100000 --op ge --val 5 -p segments=10 --persist`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := entropy.Zero
			if f.entropy != "" {
				var err error
				if start, err = entropy.Parse(f.entropy); err != nil {
					return err
				}
			}
			targetOp, err := scan.ParseTargetOp(op)
			if err != nil {
				return err
			}

			req.Game = f.game
			req.EntropyStart = start
			req.Params = f.paramMap()
			req.TargetOp = targetOp

			cfg := opts.cfg.Scan
			scanner := scan.NewScanner(
				scan.WithWorkers(cfg.Workers),
				scan.WithMaxCount(cfg.MaxCount),
				scan.WithHitLimit(cfg.HitLimit),
				scan.WithTimeout(cfg.Timeout),
				scan.WithVersion(api.EngineVersion),
			)

			began := time.Now()
			result, err := scanner.Scan(cmd.Context(), req)
			if err != nil {
				return err
			}
			logger.Info("scan completed",
				"scan_id", result.ID,
				"hits_found", result.Summary.HitsFound,
				"total_evaluated", result.Summary.TotalEvaluated,
				"timed_out", result.Summary.TimedOut,
				"elapsed", time.Since(began),
			)

			if persist {
				if err := persistScan(cmd.Context(), opts.cfg.Store.Path, result); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	f.register(cmd, false)
	cmd.Flags().StringVarP(&f.entropy, "entropy", "e", "0", "first entropy value of the range")
	cmd.Flags().Uint64Var(&req.Count, "count", 1000, "number of consecutive values to scan")
	cmd.Flags().StringVar(&op, "op", "ge", "target operator: eq, gt, ge, lt, le, between, outside")
	cmd.Flags().Float64Var(&req.TargetVal, "val", 0, "target value")
	cmd.Flags().Float64Var(&req.TargetVal2, "val2", 0, "upper bound for between and outside")
	cmd.Flags().Float64Var(&req.Tolerance, "tolerance", 0, "comparison tolerance (default 1e-9 for fractional metrics)")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "maximum hits to return")
	cmd.Flags().IntVar(&req.TimeoutMs, "timeout-ms", 0, "scan timeout in milliseconds (default from config)")
	cmd.Flags().BoolVar(&persist, "persist", false, "save the run and its hits to the store")
	return cmd
}

func persistScan(ctx context.Context, path string, result *scan.ScanResult) error {
	if path == "" {
		return errors.New("--persist needs store.path to be configured")
	}
	db, err := openStore(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := store.SaveScan(ctx, db, result)
	if err != nil {
		return err
	}
	logger.Info("scan persisted", "run_id", run.ID, "path", path)
	return nil
}

func openStore(ctx context.Context, path string) (*store.SQLiteDB, error) {
	db, err := store.NewSQLiteDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
