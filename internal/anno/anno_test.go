package anno

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamharah/jamharah/internal/wire"
)

func writeTestFile(t *testing.T, path string, comments, formatting, highlights []Entry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var pool []byte
	encodeArray := func(entries []Entry) []byte {
		buf := make([]byte, len(entries)*entrySize)
		for i, e := range entries {
			off := i * entrySize
			wire.PutUint32(buf[off:off+4], e.PageID)
			wire.PutUint32(buf[off+4:off+8], uint32(len(pool)))
			wire.PutUint32(buf[off+8:off+12], uint32(len(e.Text)))
			pool = append(pool, e.Text...)
		}
		return buf
	}
	commentsBuf := encodeArray(comments)
	formattingBuf := encodeArray(formatting)
	highlightsBuf := encodeArray(highlights)

	hdr := make([]byte, headerSize)
	copy(hdr[0:4], Magic[:])
	wire.PutUint32(hdr[4:8], wire.Version)
	wire.PutUint32(hdr[8:12], uint32(len(comments)))
	wire.PutUint32(hdr[12:16], uint32(len(formatting)))
	wire.PutUint32(hdr[16:20], uint32(len(highlights)))

	_, err = f.Write(hdr)
	require.NoError(t, err)
	_, err = f.Write(commentsBuf)
	require.NoError(t, err)
	_, err = f.Write(formattingBuf)
	require.NoError(t, err)
	_, err = f.Write(highlightsBuf)
	require.NoError(t, err)
	_, err = f.Write(pool)
	require.NoError(t, err)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	set, err := Load(filepath.Join(dir, "missing.jhanno"))
	require.NoError(t, err)
	require.Empty(t, set.Comments)
	require.Empty(t, set.Formatting)
	require.Empty(t, set.Highlights)
}

func TestLoadAndLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.jhanno")
	writeTestFile(t, path,
		[]Entry{{PageID: 3, Text: "nice page"}, {PageID: 3, Text: "again"}, {PageID: 5, Text: "later"}},
		nil,
		[]Entry{{PageID: 3, Text: "highlighted"}},
	)

	set, err := Load(path)
	require.NoError(t, err)

	got := set.CommentsFor(3)
	require.Len(t, got, 2)
	require.Equal(t, "nice page", got[0].Text)
	require.Equal(t, "again", got[1].Text)

	require.Len(t, set.CommentsFor(4), 0)
	require.Len(t, set.HighlightsFor(3), 1)
}
