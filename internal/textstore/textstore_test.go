package textstore

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndReadBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.bin")

	w, err := NewWriter(path, 16)
	require.NoError(t, err)

	locA, err := w.Append([]byte("hello world"))
	require.NoError(t, err)
	// "second" would overflow the 16-byte block alongside "hello world" (11
	// bytes), so it must start a fresh block.
	locB, err := w.Append([]byte("second page"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	gotA, err := r.ReadLocator(locA)
	require.NoError(t, err)
	require.True(t, bytes.Equal([]byte("hello world"), gotA))

	gotB, err := r.ReadLocator(locB)
	require.NoError(t, err)
	require.True(t, bytes.Equal([]byte("second page"), gotB))
	require.NotEqual(t, locA.BlockID, locB.BlockID)
}

func TestOversizedPageGetsDedicatedBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.bin")

	w, err := NewWriter(path, 8)
	require.NoError(t, err)
	big := bytes.Repeat([]byte("x"), 100)
	loc, err := w.Append(big)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.ReadLocator(loc)
	require.NoError(t, err)
	require.True(t, bytes.Equal(big, got))
}
