// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// WriteTempFile writes content to name under a temp dir and returns
// the full path.
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file %s: %v", name, err)
	}
	return path
}

// GridCSV is a small well-formed VE grid fixture: three RPM bins, three
// load bins, one absent cell.
const GridCSV = `rpm,20,40,60
1000,1.5,2.0,3.0
2000,,4.0,5.0
3000,6.0,7.0,8.0
`

// HitsCSV is a hits fixture aligned with GridCSV.
const HitsCSV = `rpm,20,40,60
1000,5,1,9
2000,0,4,2
3000,7,3,1
`

// WriteGridFixture writes GridCSV to a temp file and returns its path.
func WriteGridFixture(t *testing.T) string {
	t.Helper()
	return WriteTempFile(t, "grid.csv", GridCSV)
}

// WriteHitsFixture writes HitsCSV to a temp file and returns its path.
func WriteHitsFixture(t *testing.T) string {
	t.Helper()
	return WriteTempFile(t, "hits.csv", HitsCSV)
}
