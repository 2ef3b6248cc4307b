package vegrid

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseDiagnostic records one cell that the lenient parser dropped.
// Row and Col are zero-based data coordinates (header row excluded).
// Lenient parsing is a deliberate policy: dyno exports are frequently
// malformed and a single bad cell must not abort a whole run, but the
// drop must stay observable to callers and tests.
type ParseDiagnostic struct {
	Row    int
	Col    int
	Raw    string
	Reason string
}

func (d ParseDiagnostic) String() string {
	return fmt.Sprintf("cell (%d,%d) %q dropped: %s", d.Row, d.Col, d.Raw, d.Reason)
}

// ReadGrid parses a delimited VE grid file. The first header cell is
// ignored; remaining header cells are load-bin labels. Each data row's
// first cell is an RPM-bin label. Empty or non-numeric value cells are
// treated as absent and reported as diagnostics rather than errors.
func ReadGrid(path string) (*Grid, []ParseDiagnostic, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, nil, err
	}

	loadBins, err := parseAxis("load", rows[0][1:])
	if err != nil {
		return nil, nil, err
	}

	rpmBins := make([]int, 0, len(rows)-1)
	g := &Grid{LoadBins: loadBins}
	var diags []ParseDiagnostic

	for ri, row := range rows[1:] {
		bin, err := parseBin(row[0])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: bad rpm bin %q: %w", ri, row[0], err)
		}
		rpmBins = append(rpmBins, bin)

		cells := make([]Cell, len(loadBins))
		for ci := 0; ci < len(loadBins); ci++ {
			raw := ""
			if ci+1 < len(row) {
				raw = row[ci+1]
			}
			v, populated, reason := parseCell(raw)
			if populated {
				cells[ci] = Cell{Value: v, Populated: true}
			} else if reason != "" {
				diags = append(diags, ParseDiagnostic{Row: ri, Col: ci, Raw: raw, Reason: reason})
			}
		}
		g.Cells = append(g.Cells, cells)
	}

	g.RPMBins = rpmBins
	if err := g.Validate(); err != nil {
		return nil, nil, fmt.Errorf("parsed grid invalid: %w", err)
	}
	return g, diags, nil
}

// ReadHitsGrid parses a hit-count grid in the same tabular format.
// Cells are integers; empty or malformed cells count as zero hits.
func ReadHitsGrid(path string) (*HitsGrid, []ParseDiagnostic, error) {
	g, diags, err := ReadGrid(path)
	if err != nil {
		return nil, nil, err
	}
	h := NewHitsGrid(g.RPMBins, g.LoadBins)
	for i := range g.Cells {
		for j := range g.Cells[i] {
			if c := g.Cells[i][j]; c.Populated {
				h.Counts[i][j] = int(c.Value)
			}
		}
	}
	return h, diags, nil
}

// WriteGrid writes the grid back out in the same tabular format.
// Populated cells round-trip value-exact; absent cells are emitted as
// empty strings.
func WriteGrid(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create grid file: %w", err)
	}
	defer f.Close()
	return WriteGridTo(f, g)
}

// WriteGridTo writes the grid to an arbitrary writer.
func WriteGridTo(out io.Writer, g *Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}

	w := csv.NewWriter(out)
	header := make([]string, 0, len(g.LoadBins)+1)
	header = append(header, "rpm")
	for _, b := range g.LoadBins {
		header = append(header, strconv.Itoa(b))
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write grid header: %w", err)
	}

	for i, bin := range g.RPMBins {
		row := make([]string, 0, len(g.LoadBins)+1)
		row = append(row, strconv.Itoa(bin))
		for _, c := range g.Cells[i] {
			if c.Populated {
				row = append(row, strconv.FormatFloat(c.Value, 'g', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write grid row %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows tolerated; short rows parse as absent
	r.LazyQuotes = true    // double-wrapped quoting reaches stripQuotes with one layer left
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read grid file %s: %w", path, err)
	}
	if len(rows) < 2 || len(rows[0]) < 2 {
		return nil, fmt.Errorf("grid file %s: need a header row plus at least one data row and one load bin", path)
	}
	return rows, nil
}

func parseAxis(axis string, raw []string) ([]int, error) {
	bins := make([]int, len(raw))
	for i, s := range raw {
		b, err := parseBin(s)
		if err != nil {
			return nil, fmt.Errorf("%s bin %d %q: %w", axis, i, s, err)
		}
		bins[i] = b
	}
	return bins, nil
}

func parseBin(s string) (int, error) {
	return strconv.Atoi(stripQuotes(s))
}

// parseCell applies the lenient cell policy: empty means absent, a
// non-numeric non-empty cell means absent with a diagnostic reason.
func parseCell(raw string) (v float64, populated bool, reason string) {
	s := stripQuotes(raw)
	if s == "" {
		return 0, false, ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, "not numeric"
	}
	return v, true, ""
}

// stripQuotes trims whitespace and up to two layers of wrapping quote
// characters. Some tuning-software exports double-wrap quoted values.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	for i := 0; i < 2; i++ {
		if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
