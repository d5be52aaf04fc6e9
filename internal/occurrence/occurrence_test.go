package occurrence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamharah/jamharah/internal/jherr"
)

func TestTripleEncodeDecodeRoundTrip(t *testing.T) {
	want := Triple{WordHash: 0xdeadbeefcafef00d, PageID: 42, Position: 7}
	var buf [tripleSize]byte
	EncodeTriple(buf[:], want)
	got := DecodeTriple(buf[:])
	require.Equal(t, want, got)
}

func TestEmitAndReadBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "occurrences.bin")
	w, err := NewWriter(path)
	require.NoError(t, err)

	pages := []Page{
		{PageID: 1, Text: []byte("kitab al fiqh")},
		{PageID: 2, Text: []byte("kitab al tafsir")},
	}
	require.NoError(t, Emit(pages, w, 2, HashSeed))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := NewReader(f)

	var triples []Triple
	for {
		tr, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		triples = append(triples, tr)
	}
	// "kitab" and "al" each appear on both pages: 6 tokens total.
	require.Len(t, triples, 6)
}

func TestWorkerCountCapsAt32(t *testing.T) {
	require.LessOrEqual(t, WorkerCount(10000, 0), MaxWorkers)
	require.Equal(t, 1, WorkerCount(1, 0))
	require.Equal(t, 5, WorkerCount(100, 5))
	require.Equal(t, MaxWorkers, WorkerCount(100, 999))
}

func TestProbeTableDetectsCollision(t *testing.T) {
	p := newProbeTable(4)
	require.NoError(t, p.observe(1, []byte("alpha")))
	require.NoError(t, p.observe(1, []byte("alpha")))
	err := p.observe(1, []byte("beta"))
	require.ErrorIs(t, err, jherr.HashCollision)
}
