// Package sweeper evicts expired digest snapshots on a cron schedule.
package sweeper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adhocore/gronx"

	"chatforum/pkg/config"
	"chatforum/pkg/logger"
	"chatforum/pkg/snapshot"
	"chatforum/pkg/state"
)

var storedCfg *config.SweeperConfig

// SetConfig stores the sweeper config so admin triggers can invoke runs
// on-demand.
func SetConfig(cfg config.SweeperConfig) {
	storedCfg = &cfg
}

// RunImmediate triggers a single sweep using the stored config.
func RunImmediate() (int, error) {
	if storedCfg == nil {
		return 0, fmt.Errorf("no sweeper config registered")
	}
	if state.PathsVar.Sweeper == "" {
		return 0, fmt.Errorf("state paths not initialized")
	}
	return runOnce(state.PathsVar.Sweeper)
}

// Start starts the sweep scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.SweeperConfig) (context.CancelFunc, error) {
	SetConfig(cfg)

	if !cfg.Enabled {
		logger.Info("sweeper_disabled")
		return func() {}, nil
	}

	sweepPath := state.PathsVar.Sweeper
	if err := os.MkdirAll(sweepPath, 0o700); err != nil {
		logger.Error("sweeper_path_create_failed", "path", sweepPath, "error", err)
		return nil, err
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweeper_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid sweeper cron expression: %s", cfg.Cron)
	}

	logger.Info("sweeper_enabled", "cron", cronExpr, "path", sweepPath)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, sweepPath, cronExpr)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until
// then, so the loop supports full cron syntax without polling.
func runScheduler(ctx context.Context, sweepPath, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweeper_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait < 0 {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			if n, err := runOnce(sweepPath); err != nil {
				logger.Error("sweeper_run_error", "error", err)
			} else if n > 0 {
				logger.Info("sweeper_run_complete", "evicted", n)
			}
		case <-ctx.Done():
			logger.Info("sweeper_scheduler_stopping")
			return
		}
	}
}

type runRecord struct {
	RanAt   string `json:"ran_at"`
	Evicted int    `json:"evicted"`
}

// runOnce sweeps expired snapshots and records the run under sweepPath.
func runOnce(sweepPath string) (int, error) {
	if !snapshot.Ready() {
		return 0, fmt.Errorf("snapshot store not ready")
	}
	n, err := snapshot.SweepExpired(time.Now())
	if err != nil {
		return 0, err
	}
	rec := runRecord{RanAt: time.Now().UTC().Format(time.RFC3339), Evicted: n}
	if b, merr := json.Marshal(rec); merr == nil {
		_ = os.WriteFile(filepath.Join(sweepPath, "last_run.json"), b, 0o600)
	}
	return n, nil
}
