package extsort

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamharah/jamharah/internal/occurrence"
)

func writeUnsorted(t *testing.T, path string, triples []occurrence.Triple) {
	t.Helper()
	w, err := occurrence.NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteBatch(triples))
	require.NoError(t, w.Close())
}

func readAll(t *testing.T, path string) []occurrence.Triple {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := occurrence.NewReader(f)
	var out []occurrence.Triple
	for {
		tr, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, tr)
	}
}

func TestSortProducesTotalOrderAcrossMultipleRuns(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "raw.bin")
	dstPath := filepath.Join(dir, "sorted.bin")

	unsorted := []occurrence.Triple{
		{WordHash: 5, PageID: 2, Position: 1},
		{WordHash: 1, PageID: 9, Position: 0},
		{WordHash: 5, PageID: 1, Position: 3},
		{WordHash: 1, PageID: 1, Position: 5},
		{WordHash: 5, PageID: 1, Position: 0},
		{WordHash: 3, PageID: 4, Position: 2},
	}
	writeUnsorted(t, srcPath, unsorted)

	srcFile, err := os.Open(srcPath)
	require.NoError(t, err)
	defer srcFile.Close()
	dstFile, err := os.Create(dstPath)
	require.NoError(t, err)

	// Force a tiny run size so the merge path (multiple spilled runs) is
	// actually exercised, not just the single-run case.
	require.NoError(t, Sort(occurrence.NewReader(srcFile), dstFile, dir, 2*tripleSize))
	require.NoError(t, dstFile.Close())

	got := readAll(t, dstPath)
	require.Len(t, got, len(unsorted))
	for i := 1; i < len(got); i++ {
		require.False(t, less(got[i], got[i-1]), "output not sorted at index %d", i)
	}

	remaining, err := filepath.Glob(filepath.Join(dir, "occ-run-*.tmp"))
	require.NoError(t, err)
	require.Empty(t, remaining, "temp run files must be cleaned up")
}
