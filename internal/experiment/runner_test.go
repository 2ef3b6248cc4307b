package experiment

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/dyno.tune/internal/fsutil"
	"github.com/banshee-data/dyno.tune/internal/monitoring"
	"github.com/banshee-data/dyno.tune/internal/smooth"
	"github.com/banshee-data/dyno.tune/internal/testutil"
	"github.com/banshee-data/dyno.tune/internal/vegrid"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func newTestRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	root := t.TempDir()
	return NewRunner(smooth.DefaultRegistry(), root), root
}

func TestRunner_OKRun(t *testing.T) {
	runner, root := newTestRunner(t)

	grid := testutil.WriteGridFixture(t)
	hits := testutil.WriteHitsFixture(t)

	res, err := runner.Run(context.Background(), Request{
		KernelID:     "k2",
		GridPath:     grid,
		HitsPath:     hits,
		BaselinePath: grid, // score against the unsmoothed input
		OutputDir:    "runs/ok",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	assert.NotEmpty(t, res.RunID)
	assert.NotNil(t, res.Smoothed)
	assert.Contains(t, res.Metrics, "avg_abs_ve_delta_vs_baseline")
	assert.GreaterOrEqual(t, res.Metrics["avg_abs_ve_delta_vs_baseline"], 0.0)

	fp, err := os.ReadFile(filepath.Join(root, "runs", "ok", FingerprintFile))
	require.NoError(t, err)
	text := string(fp)
	assert.Contains(t, text, "kernel=k2")
	assert.Contains(t, text, "module="+smooth.KernelModule)
	assert.Contains(t, text, "function=CoverageClamp")
	assert.Contains(t, text, "clamp_hi=15")

	var rec struct {
		Status  string             `json:"status"`
		Metrics map[string]float64 `json:"metrics"`
	}
	sum, err := os.ReadFile(filepath.Join(root, "runs", "ok", SummaryFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(sum, &rec))
	assert.Equal(t, "OK", rec.Status)
}

func TestRunner_OverridesMergeIntoFingerprint(t *testing.T) {
	runner, root := newTestRunner(t)
	grid := testutil.WriteGridFixture(t)

	_, err := runner.Run(context.Background(), Request{
		KernelID:  "k2",
		GridPath:  grid,
		OutputDir: "runs/override",
		Overrides: map[string]float64{"passes": 5, "extra": 1.25},
	})
	require.NoError(t, err)

	fp, err := os.ReadFile(filepath.Join(root, "runs", "override", FingerprintFile))
	require.NoError(t, err)
	text := string(fp)
	assert.Contains(t, text, "passes=5", "override must win over the registry default")
	assert.Contains(t, text, "extra=1.25")
	assert.Contains(t, text, "clamp_lo=7", "untouched defaults remain")
}

func TestRunner_DryRunIdempotent(t *testing.T) {
	runner, root := newTestRunner(t)
	grid := testutil.WriteGridFixture(t)

	req := Request{
		KernelID:  "k3",
		GridPath:  grid,
		OutputDir: "runs/dry",
		DryRun:    true,
	}
	res, err := runner.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusDryRun, res.Status)
	assert.Nil(t, res.Smoothed, "dry run must not invoke the kernel")

	fp1, err := os.ReadFile(filepath.Join(root, "runs", "dry", FingerprintFile))
	require.NoError(t, err)
	sum1, err := os.ReadFile(filepath.Join(root, "runs", "dry", SummaryFile))
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), req)
	require.NoError(t, err)

	fp2, err := os.ReadFile(filepath.Join(root, "runs", "dry", FingerprintFile))
	require.NoError(t, err)
	sum2, err := os.ReadFile(filepath.Join(root, "runs", "dry", SummaryFile))
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2, "fingerprint must be byte-identical across reruns")
	assert.Equal(t, sum1, sum2, "summary must be byte-identical across reruns")
	assert.Contains(t, string(sum1), `"DRY_RUN"`)
}

func TestRunner_DryRunSkipsComparison(t *testing.T) {
	// A baseline with shifted load bins would fail comparison, but a
	// dry run never reaches it.
	runner, _ := newTestRunner(t)
	grid := testutil.WriteGridFixture(t)
	shifted := testutil.WriteTempFile(t, "shifted.csv", "rpm,22,40,60\n1000,1.5,2.0,3.0\n2000,,4.0,5.0\n3000,6.0,7.0,8.0\n")

	res, err := runner.Run(context.Background(), Request{
		KernelID:     "k1",
		GridPath:     grid,
		BaselinePath: shifted,
		OutputDir:    "runs/dry-misaligned",
		DryRun:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusDryRun, res.Status)
}

func TestRunner_UnknownKernelAbortsBeforeMkdir(t *testing.T) {
	runner, root := newTestRunner(t)
	memfs := fsutil.NewMemoryFileSystem()
	runner.SetFileSystem(memfs)
	grid := testutil.WriteGridFixture(t)

	_, err := runner.Run(context.Background(), Request{
		KernelID:  "nonexistent_kernel",
		GridPath:  grid,
		OutputDir: "runs/never",
	})
	var unknown *smooth.UnknownKernelError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, err.Error(), "k1")

	assert.False(t, memfs.Exists(filepath.Join(root, "runs", "never")),
		"no directory may be created for an invalid id")
}

func TestRunner_PathEscapeAbortsBeforeMkdir(t *testing.T) {
	runner, _ := newTestRunner(t)
	memfs := fsutil.NewMemoryFileSystem()
	runner.SetFileSystem(memfs)
	grid := testutil.WriteGridFixture(t)

	_, err := runner.Run(context.Background(), Request{
		KernelID:  "k1",
		GridPath:  grid,
		OutputDir: "a/../../../etc/ve-runs",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes repo root")
}

func TestRunner_KernelFailurePersistsFailedStatus(t *testing.T) {
	runner, root := newTestRunner(t)
	grid := testutil.WriteGridFixture(t)
	// Hits grid with different axes: the kernel rejects the shape.
	badHits := testutil.WriteTempFile(t, "hits.csv", "rpm,20,40\n1000,1,2\n2000,3,4\n")

	res, err := runner.Run(context.Background(), Request{
		KernelID:  "k2",
		GridPath:  grid,
		HitsPath:  badHits,
		OutputDir: "runs/failed",
	})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, StatusFailed, res.Status)

	sum, readErr := os.ReadFile(filepath.Join(root, "runs", "failed", SummaryFile))
	require.NoError(t, readErr, "a failed run must still leave a summary")
	assert.Contains(t, string(sum), `"FAILED"`)
}

func TestRunner_MissingGridFile(t *testing.T) {
	runner, _ := newTestRunner(t)
	_, err := runner.Run(context.Background(), Request{
		KernelID:  "k1",
		GridPath:  filepath.Join(t.TempDir(), "missing.csv"),
		OutputDir: "runs/x",
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "load grid"))
}

func TestRunner_WriteSmoothedArtifact(t *testing.T) {
	runner, root := newTestRunner(t)
	grid := testutil.WriteGridFixture(t)

	_, err := runner.Run(context.Background(), Request{
		KernelID:      "baseline",
		GridPath:      grid,
		OutputDir:     "runs/artifacts",
		WriteSmoothed: true,
	})
	require.NoError(t, err)

	smoothedPath := filepath.Join(root, "runs", "artifacts", "smoothed_baseline.csv")
	g, _, err := vegrid.ReadGrid(smoothedPath)
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 2000, 3000}, g.RPMBins)
	_, ok := g.At(1, 0)
	assert.False(t, ok, "absent input cell must stay absent in the artifact")
}
