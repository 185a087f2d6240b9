package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/packbridge/packbridge/core/infra/logging"
)

// Runner processes a batch of packages one at a time, sequentially, sharing
// one authenticated session. A unit's failure never aborts its siblings.
type Runner struct {
	Orch     *Orchestrator
	WorkRoot string
}

// Run deploys every package and returns the per-unit outcome summary. The
// summary always lists one entry per package.
func (r *Runner) Run(ctx context.Context, pkgs []Package, opts Options) (*Summary, error) {
	if r.Orch == nil {
		return nil, fmt.Errorf("runner has no orchestrator")
	}
	workRoot := r.WorkRoot
	if workRoot == "" {
		dir, err := os.MkdirTemp("", "packbridge-")
		if err != nil {
			return nil, fmt.Errorf("create work root: %w", err)
		}
		workRoot = dir
	}

	summary := &Summary{}
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		workDir := filepath.Join(workRoot, SanitizeFileName(pkg.ID))
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			unit := newUnit(pkg, workDir)
			summary.add(unit.finish(StatusFailed, fmt.Errorf("create work dir: %w", err)))
			continue
		}
		unit := r.Orch.Deploy(ctx, pkg, workDir, opts)
		summary.add(unit)
		logging.Info("batch", "unit finished", "package", pkg.ID, "status", string(unit.Status))
	}
	logging.Info("batch", "run complete",
		"success", summary.Success, "failed", summary.Failed, "skipped", summary.Skipped)
	return summary, nil
}
