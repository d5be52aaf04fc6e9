package postings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSinglePass(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "postings.bin")

	type triple struct {
		hash     uint64
		pageID   uint32
		position uint32
	}
	stream := []triple{
		{1, 10, 0},
		{1, 10, 5},
		{1, 20, 0},
		{2, 5, 0},
	}
	i := 0
	next := func() (uint64, uint32, uint32, bool, error) {
		if i >= len(stream) {
			return 0, 0, 0, false, nil
		}
		t := stream[i]
		i++
		return t.hash, t.pageID, t.position, true, nil
	}

	w, err := NewWriter(path, Plain)
	require.NoError(t, err)
	blocks, err := Build(next, w)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Len(t, blocks, 2)
	require.Equal(t, uint64(1), blocks[0].WordHash)
	require.Equal(t, uint64(3), blocks[0].PostingsCount)
	require.Equal(t, uint64(2), blocks[1].WordHash)
	require.Equal(t, uint64(1), blocks[1].PostingsCount)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	plain, err := f.ReadBlock(blocks[0].Location)
	require.NoError(t, err)
	decoded, err := Decode(plain)
	require.NoError(t, err)
	require.Len(t, decoded.Entries, 2)
	require.Equal(t, uint32(10), decoded.Entries[0].PageID)
	require.Equal(t, []uint32{0, 5}, decoded.Entries[0].Positions)
	require.Equal(t, uint32(20), decoded.Entries[1].PageID)
}
