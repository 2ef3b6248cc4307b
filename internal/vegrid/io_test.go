package vegrid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadGrid_Basic(t *testing.T) {
	path := writeFile(t, "rpm,20,40,60\n1000,1.5,2.0,3.0\n2000,,4.0,5.0\n")

	g, diags, err := ReadGrid(path)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, []int{1000, 2000}, g.RPMBins)
	assert.Equal(t, []int{20, 40, 60}, g.LoadBins)

	v, ok := g.At(0, 0)
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	_, ok = g.At(1, 0)
	assert.False(t, ok, "empty cell must be absent, not zero")
}

func TestReadGrid_QuoteStripping(t *testing.T) {
	// Header and values wrapped once and twice; both must parse.
	path := writeFile(t, "rpm,\"20\",'40'\n\"1000\",\"\"1.5\"\",''-2.25''\n")

	g, diags, err := ReadGrid(path)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, []int{20, 40}, g.LoadBins)
	assert.Equal(t, []int{1000}, g.RPMBins)

	v, ok := g.At(0, 0)
	require.True(t, ok)
	assert.Equal(t, 1.5, v)

	v, ok = g.At(0, 1)
	require.True(t, ok)
	assert.Equal(t, -2.25, v)
}

func TestReadGrid_LenientCells(t *testing.T) {
	path := writeFile(t, "rpm,20,40\n1000,bogus,3.0\n2000,  ,4.0\n")

	g, diags, err := ReadGrid(path)
	require.NoError(t, err, "malformed cells must not be a hard failure")

	_, ok := g.At(0, 0)
	assert.False(t, ok)
	_, ok = g.At(1, 0)
	assert.False(t, ok)

	// Only the non-numeric cell produces a diagnostic; whitespace-only
	// is plain absent.
	require.Len(t, diags, 1)
	assert.Equal(t, 0, diags[0].Row)
	assert.Equal(t, 0, diags[0].Col)
	assert.Equal(t, "not numeric", diags[0].Reason)
}

func TestReadGrid_ShortRowsParseAsAbsent(t *testing.T) {
	path := writeFile(t, "rpm,20,40,60\n1000,1.0\n")

	g, _, err := ReadGrid(path)
	require.NoError(t, err)
	_, ok := g.At(0, 1)
	assert.False(t, ok)
	_, ok = g.At(0, 2)
	assert.False(t, ok)
}

func TestReadGrid_BadHeaderBin(t *testing.T) {
	path := writeFile(t, "rpm,20,notabin\n1000,1.0,2.0\n")
	_, _, err := ReadGrid(path)
	assert.Error(t, err, "axis bins are strict even though cells are lenient")
}

func TestWriteGrid_RoundTrip(t *testing.T) {
	g := NewGrid([]int{800, 1600, 2400}, []int{10, 30})
	g.Set(0, 0, 1.233300000001)
	g.Set(1, 1, -7.5)
	g.Set(2, 0, 0) // explicit zero is a real measurement

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteGrid(path, g))

	got, diags, err := ReadGrid(path)
	require.NoError(t, err)
	assert.Empty(t, diags)
	if diff := cmp.Diff(g, got); diff != "" {
		t.Errorf("round trip mismatch (-wrote +read):\n%s", diff)
	}
}

func TestReadHitsGrid(t *testing.T) {
	path := writeFile(t, "rpm,20,40\n1000,5,\n2000,0,3\n")

	h, _, err := ReadHitsGrid(path)
	require.NoError(t, err)
	assert.Equal(t, 5, h.Hits(0, 0))
	assert.Equal(t, 0, h.Hits(0, 1), "absent hit cell counts as zero")
	assert.Equal(t, 3, h.Hits(1, 1))
}

func TestReadGrid_TooSmall(t *testing.T) {
	path := writeFile(t, "rpm,20\n")
	_, _, err := ReadGrid(path)
	assert.Error(t, err)
}
