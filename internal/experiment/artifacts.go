package experiment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/banshee-data/dyno.tune/internal/security"
	"github.com/banshee-data/dyno.tune/internal/vegrid"
)

// Artifact filenames under the run's output directory.
const (
	FingerprintFile = "fingerprint.txt"
	SummaryFile     = "summary.json"
)

// summaryRecord is the persisted form of a run summary. It carries
// only deterministic fields: re-running the same id, grid and
// parameters must regenerate byte-identical artifacts, so run ids and
// wall-clock times stay out of it.
type summaryRecord struct {
	Status       Status             `json:"status"`
	Kernel       string             `json:"kernel"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	DroppedCells int                `json:"dropped_cells"`
}

// persist writes the fingerprint and summary artifacts. It runs for
// every terminal state, dry-run included.
func (r *Runner) persist(res *Result) error {
	fpPath := filepath.Join(res.OutputDir, FingerprintFile)
	if err := r.fs.WriteFile(fpPath, RenderFingerprint(res.Fingerprint), 0o644); err != nil {
		return fmt.Errorf("write fingerprint: %w", err)
	}

	rec := summaryRecord{
		Status:       res.Status,
		Kernel:       res.Fingerprint.Kernel,
		Metrics:      res.Metrics,
		DroppedCells: len(res.Diagnostics),
	}
	if len(rec.Metrics) == 0 {
		rec.Metrics = nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	sumPath := filepath.Join(res.OutputDir, SummaryFile)
	if err := r.fs.WriteFile(sumPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// RenderFingerprint produces the stable textual fingerprint form.
// Parameter keys are sorted and floats use the shortest exact
// representation, so identical inputs always render identical bytes.
func RenderFingerprint(fp Fingerprint) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "kernel=%s\n", fp.Kernel)
	fmt.Fprintf(&buf, "module=%s\n", fp.Module)
	fmt.Fprintf(&buf, "function=%s\n", fp.Function)

	keys := make([]string, 0, len(fp.Params))
	for k := range fp.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf.WriteString("params=")
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(strconv.FormatFloat(fp.Params[k], 'g', -1, 64))
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// writeSmoothed persists the smoothed grid next to the other
// artifacts, named after the sanitised kernel id.
func (r *Runner) writeSmoothed(res *Result, g *vegrid.Grid) error {
	var buf bytes.Buffer
	if err := vegrid.WriteGridTo(&buf, g); err != nil {
		return fmt.Errorf("render smoothed grid: %w", err)
	}
	name := "smoothed_" + security.SanitizeFilename(res.Fingerprint.Kernel) + ".csv"
	path := filepath.Join(res.OutputDir, name)
	if err := r.fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write smoothed grid: %w", err)
	}
	return nil
}
