// Package experiment orchestrates sandboxed smoothing-kernel runs:
// load a measured correction grid, resolve the requested kernel,
// invoke it (unless dry-run), validate the result, and persist
// fingerprint and summary artifacts under a sandboxed output
// directory.
package experiment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/dyno.tune/internal/fsutil"
	"github.com/banshee-data/dyno.tune/internal/monitoring"
	"github.com/banshee-data/dyno.tune/internal/security"
	"github.com/banshee-data/dyno.tune/internal/smooth"
	"github.com/banshee-data/dyno.tune/internal/vegrid"
)

// Status is the terminal state of a runner invocation.
type Status string

const (
	StatusOK     Status = "OK"
	StatusDryRun Status = "DRY_RUN"
	StatusFailed Status = "FAILED"
)

// Request describes one experiment run. HitsPath and BaselinePath are
// optional; Overrides are merged over the kernel's registry defaults
// with the override winning.
type Request struct {
	KernelID     string
	GridPath     string
	HitsPath     string
	BaselinePath string
	OutputDir    string
	Overrides    map[string]float64
	DryRun       bool

	// WriteSmoothed also persists the smoothed grid itself.
	WriteSmoothed bool
	// WritePlot also renders a delta heatmap PNG when a baseline is
	// available.
	WritePlot bool
}

// Fingerprint identifies exactly which implementation and effective
// parameters produced a run's output. Its rendered form is byte-stable
// so reruns can be diffed.
type Fingerprint struct {
	Kernel   string
	Module   string
	Function string
	Params   map[string]float64
}

// Result is created once per invocation and never mutated after its
// artifacts are written.
type Result struct {
	Status      Status
	RunID       string
	Fingerprint Fingerprint
	Metrics     map[string]float64
	Elapsed     time.Duration
	OutputDir   string
	Smoothed    *vegrid.Grid
	Diagnostics []vegrid.ParseDiagnostic
}

// Runner executes experiments against an explicitly supplied registry
// and project root. Registry and filesystem are injected rather than
// global so tests stay hermetic and parallel-safe.
type Runner struct {
	reg  *smooth.Registry
	root string
	fs   fsutil.FileSystem
}

// NewRunner creates a runner writing through the OS filesystem.
func NewRunner(reg *smooth.Registry, root string) *Runner {
	return &Runner{reg: reg, root: root, fs: fsutil.OSFileSystem{}}
}

// SetFileSystem replaces the artifact filesystem, for tests.
func (r *Runner) SetFileSystem(fs fsutil.FileSystem) {
	r.fs = fs
}

// Run executes one experiment. Validation order is fixed: kernel id,
// then input grids, then output path, and only then directory
// creation, so an invalid request never leaves a sandboxed-but-unused
// directory behind. Unknown ids and path escapes abort before any
// filesystem mutation; any other failure propagates with its cause
// intact after a FAILED summary is persisted.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	binding, err := r.reg.Resolve(req.KernelID)
	if err != nil {
		return nil, err
	}

	grid, diags, err := vegrid.ReadGrid(req.GridPath)
	if err != nil {
		return nil, fmt.Errorf("load grid %s: %w", req.GridPath, err)
	}

	var hits *vegrid.HitsGrid
	if req.HitsPath != "" {
		var hitsDiags []vegrid.ParseDiagnostic
		hits, hitsDiags, err = vegrid.ReadHitsGrid(req.HitsPath)
		if err != nil {
			return nil, fmt.Errorf("load hits grid %s: %w", req.HitsPath, err)
		}
		diags = append(diags, hitsDiags...)
	}

	var baseline *vegrid.Grid
	if req.BaselinePath != "" {
		baseline, _, err = vegrid.ReadGrid(req.BaselinePath)
		if err != nil {
			return nil, fmt.Errorf("load baseline grid %s: %w", req.BaselinePath, err)
		}
	}

	outDir, err := security.ResolveUnderRoot(req.OutputDir, r.root)
	if err != nil {
		return nil, err
	}
	if err := r.fs.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", outDir, err)
	}

	params := binding.Defaults
	for k, v := range req.Overrides {
		params[k] = v
	}

	result := &Result{
		RunID: uuid.NewString(),
		Fingerprint: Fingerprint{
			Kernel:   binding.ID,
			Module:   binding.Module,
			Function: binding.Function,
			Params:   params,
		},
		Metrics:     make(map[string]float64),
		OutputDir:   outDir,
		Diagnostics: diags,
	}
	if len(diags) > 0 {
		monitoring.Logf("grid parse dropped %d cell(s) as absent", len(diags))
	}

	if req.DryRun {
		result.Status = StatusDryRun
		if err := r.persist(result); err != nil {
			return nil, err
		}
		result.Elapsed = time.Since(start)
		monitoring.Logf("dry run %s: kernel=%s out=%s", result.RunID, binding.ID, outDir)
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	smoothed, err := binding.Smooth(grid, hits, params)
	if err != nil {
		result.Status = StatusFailed
		if perr := r.persist(result); perr != nil {
			monitoring.Logf("persist failed-run artifacts: %v", perr)
		}
		return result, fmt.Errorf("kernel %s: %w", binding.ID, err)
	}
	result.Status = StatusOK
	result.Smoothed = smoothed
	result.Elapsed = time.Since(start)

	if baseline != nil {
		cmp, err := vegrid.Compare(baseline, smoothed)
		if err != nil {
			return nil, fmt.Errorf("compare against baseline: %w", err)
		}
		if cmp.AvgAbsDelta != nil {
			result.Metrics["avg_abs_ve_delta_vs_baseline"] = Round3(*cmp.AvgAbsDelta)
		}
		result.Metrics["overlap_cells"] = float64(cmp.Overlap)
		result.Metrics["total_cells"] = float64(cmp.TotalCells)
	}
	result.Metrics["populated_cells"] = float64(smoothed.PopulatedCount())

	if req.WriteSmoothed {
		if err := r.writeSmoothed(result, smoothed); err != nil {
			return nil, err
		}
	}
	if req.WritePlot && baseline != nil {
		if err := r.writeDeltaHeatmap(result, baseline, smoothed); err != nil {
			// Plot output is a convenience artifact, not part of the
			// run contract.
			monitoring.Logf("delta heatmap skipped: %v", err)
		}
	}

	if err := r.persist(result); err != nil {
		return nil, err
	}
	monitoring.Logf("run %s: kernel=%s status=%s elapsed=%s", result.RunID, binding.ID, result.Status, result.Elapsed)
	return result, nil
}

// Round3 rounds to three decimal places, the precision used in summary
// metrics.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
