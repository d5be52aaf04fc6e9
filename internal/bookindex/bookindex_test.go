package bookindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBooksRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.idx")
	entries := []BookIndexEntry{
		{BookID: 0, FirstPageID: 0, PageCount: 10, FirstChapter: 0, ChapterCount: 2, TitleIndex: 0, TextOffset: 0, TextLength: 4096},
		{BookID: 1, FirstPageID: 10, PageCount: 5, FirstChapter: 2, ChapterCount: 1, TitleIndex: 1, TextOffset: 4096, TextLength: 2048},
	}
	require.NoError(t, BuildBooks(path, entries))

	r, err := OpenBooks(path)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, uint64(2), r.Count())

	got, err := r.Get(1)
	require.NoError(t, err)
	require.Equal(t, entries[1], got)
}

func TestChaptersRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapters.idx")
	entries := []ChapterIndexEntry{
		{ChapterID: 0, BookID: 0, Ordinal: 0, StartingPageNumber: 1, FirstPageID: 0, PageCount: 6, TitleIndex: 2},
		{ChapterID: 1, BookID: 0, Ordinal: 1, StartingPageNumber: 7, FirstPageID: 6, PageCount: 4, TitleIndex: 3},
	}
	require.NoError(t, BuildChapters(path, entries))

	r, err := OpenChapters(path)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.Get(0)
	require.NoError(t, err)
	require.Equal(t, entries[0], got)
}

func TestPagesRoundTripAndLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pages.idx")
	entries := []PageIndexEntry{
		{PageID: 0, BookID: 0, ChapterID: 0, PageNumber: 1, BlockID: 0, OffsetInBlock: 0, Length: 100},
		{PageID: 1, BookID: 0, ChapterID: 0, PageNumber: 2, BlockID: 0, OffsetInBlock: 100, Length: 120},
	}
	require.NoError(t, BuildPages(path, entries))

	r, err := OpenPages(path)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, uint64(2), r.Count())

	got, err := r.Lookup(1)
	require.NoError(t, err)
	require.Equal(t, entries[1], got)

	all, err := r.All()
	require.NoError(t, err)
	require.Equal(t, entries, all)
}

func TestTitlesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "titles.bin")
	titles := []string{"كتاب الفقه", "باب الصلاة", ""}
	require.NoError(t, BuildTitles(path, titles))

	r, err := OpenTitles(path)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, uint64(3), r.Count())

	for i, want := range titles {
		got, err := r.Get(uint32(i))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}
