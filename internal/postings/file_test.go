package postings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "postings.bin")

	w, err := NewWriter(path, Zstd)
	require.NoError(t, err)

	wordA := EncodeList([]Posting{{PageID: 1, Positions: []uint32{0, 2}}})
	locA, _, err := w.WriteBlock(wordA, 2)
	require.NoError(t, err)

	wordB := EncodeList([]Posting{{PageID: 5, Positions: []uint32{3}}, {PageID: 9, Positions: []uint32{1, 4}}})
	locB, _, err := w.WriteBlock(wordB, 3)
	require.NoError(t, err)

	require.NoError(t, w.Close())

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	require.True(t, f.Header.Compressed)
	require.Equal(t, uint64(5), f.Header.TotalPostings)

	gotA, err := f.ReadBlock(locA)
	require.NoError(t, err)
	require.Equal(t, wordA, gotA)

	gotB, err := f.ReadBlock(locB)
	require.NoError(t, err)
	require.Equal(t, wordB, gotB)
}
