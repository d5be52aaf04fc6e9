package query

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamharah/jamharah/internal/dictionary"
	"github.com/jamharah/jamharah/internal/postings"
	"github.com/jamharah/jamharah/internal/texthash"
)

// buildFixture writes a tiny words.idx/postings.bin pair for a handful of
// words, each appearing on a hand-picked set of pages and positions.
func buildFixture(t *testing.T, dir string, words map[string][]postings.Posting) (*dictionary.Reader, *postings.File, string) {
	t.Helper()
	postingsPath := filepath.Join(dir, "postings.bin")
	dictPath := filepath.Join(dir, "words.idx")

	w, err := postings.NewWriter(postingsPath, postings.Plain)
	require.NoError(t, err)

	var blocks []postings.WordBlock
	for word, list := range words {
		plain := postings.EncodeList(list)
		var total uint64
		for _, p := range list {
			total += uint64(len(p.Positions))
		}
		loc, _, err := w.WriteBlock(plain, total)
		require.NoError(t, err)
		blocks = append(blocks, postings.WordBlock{
			WordHash:      texthash.Hash64([]byte(word), HashSeed),
			Location:      loc,
			PostingsCount: total,
		})
	}
	require.NoError(t, w.Close())
	require.NoError(t, dictionary.Build(dictPath, blocks))

	dict, err := dictionary.Open(dictPath)
	require.NoError(t, err)
	pf, err := postings.Open(postingsPath)
	require.NoError(t, err)
	return dict, pf, dictPath
}

func TestTokenizeDetectsLiteralOR(t *testing.T) {
	terms, isOr, err := Tokenize("kitab OR fiqh")
	require.NoError(t, err)
	require.True(t, isOr)
	require.Len(t, terms, 2)
}

func TestSearchBooleanAndRanksByFrequencyAndProximity(t *testing.T) {
	dir := t.TempDir()
	dict, pf, dictPath := buildFixture(t, dir, map[string][]postings.Posting{
		"kitab": {
			{PageID: 1, Positions: []uint32{0, 10}},
			{PageID: 2, Positions: []uint32{5}},
			{PageID: 3, Positions: []uint32{0}},
		},
		"fiqh": {
			{PageID: 1, Positions: []uint32{1}},
			{PageID: 3, Positions: []uint32{0}},
		},
	})
	defer dict.Close()
	defer pf.Close()

	hits, err := Search(nil, dictPath, dict, pf, "kitab fiqh")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, uint32(1), hits[0].PageID)
	require.Equal(t, uint32(3), hits[1].PageID)
	require.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchBooleanOrIncludesEitherTerm(t *testing.T) {
	dir := t.TempDir()
	dict, pf, dictPath := buildFixture(t, dir, map[string][]postings.Posting{
		"kitab": {{PageID: 1, Positions: []uint32{0}}},
		"fiqh":  {{PageID: 2, Positions: []uint32{0}}},
	})
	defer dict.Close()
	defer pf.Close()

	hits, err := Search(nil, dictPath, dict, pf, "kitab OR fiqh")
	require.NoError(t, err)
	require.Len(t, hits, 2)
}

func TestPhraseMatchGrantsBonus(t *testing.T) {
	dir := t.TempDir()
	dict, pf, dictPath := buildFixture(t, dir, map[string][]postings.Posting{
		"kitab": {
			{PageID: 1, Positions: []uint32{0}},
			{PageID: 2, Positions: []uint32{0}},
		},
		"fiqh": {
			{PageID: 1, Positions: []uint32{1}},
			{PageID: 2, Positions: []uint32{9}},
		},
	})
	defer dict.Close()
	defer pf.Close()

	hits, err := Search(nil, dictPath, dict, pf, "kitab fiqh")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, uint32(1), hits[0].PageID)
}

func TestSearchBooleanAndWithUnresolvedTermYieldsNoHits(t *testing.T) {
	dir := t.TempDir()
	dict, pf, dictPath := buildFixture(t, dir, map[string][]postings.Posting{
		"kitab": {{PageID: 1, Positions: []uint32{0}}},
	})
	defer dict.Close()
	defer pf.Close()

	hits, err := Search(nil, dictPath, dict, pf, "kitab zzznotaword")
	require.NoError(t, err)
	require.Len(t, hits, 0)
}

func TestResolveKeepsAbsentTermsMarked(t *testing.T) {
	dir := t.TempDir()
	dict, pf, dictPath := buildFixture(t, dir, map[string][]postings.Posting{
		"kitab": {{PageID: 1, Positions: []uint32{0}}},
	})
	defer dict.Close()
	defer pf.Close()

	terms, _, err := Tokenize("kitab zzznotaword")
	require.NoError(t, err)
	resolved, err := Resolve(nil, dictPath, dict, pf, terms)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	require.False(t, resolved[0].absent)
	require.True(t, resolved[1].absent)
	require.Len(t, resolved[1].list.Entries, 0)
}

func TestSearchBooleanOrWithUnresolvedTermStillMatchesTheOther(t *testing.T) {
	dir := t.TempDir()
	dict, pf, dictPath := buildFixture(t, dir, map[string][]postings.Posting{
		"kitab": {{PageID: 1, Positions: []uint32{0}}},
	})
	defer dict.Close()
	defer pf.Close()

	hits, err := Search(nil, dictPath, dict, pf, "kitab OR zzznotaword")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, uint32(1), hits[0].PageID)
}

func TestLookupCacheReturnsSameEntry(t *testing.T) {
	dir := t.TempDir()
	dict, pf, dictPath := buildFixture(t, dir, map[string][]postings.Posting{
		"kitab": {{PageID: 1, Positions: []uint32{0}}},
	})
	defer dict.Close()
	defer pf.Close()

	cache, err := NewLookupCache(8)
	require.NoError(t, err)

	hash := texthash.Hash64([]byte("kitab"), HashSeed)
	e1, err := cache.Lookup(dictPath, dict, hash)
	require.NoError(t, err)
	e2, err := cache.Lookup(dictPath, dict, hash)
	require.NoError(t, err)
	require.Equal(t, e1, e2)
}

func TestMultiCategoryEmitsInCategoryOrder(t *testing.T) {
	dir := t.TempDir()
	dictBody, pfBody, pathBody := buildFixture(t, filepath.Join(mkdir(t, dir, "body")), map[string][]postings.Posting{
		"kitab": {{PageID: 5, Positions: []uint32{0}}},
	})
	dictTitles, pfTitles, pathTitles := buildFixture(t, filepath.Join(mkdir(t, dir, "titles")), map[string][]postings.Posting{
		"kitab": {{PageID: 7, Positions: []uint32{0}}},
	})
	defer dictBody.Close()
	defer pfBody.Close()
	defer dictTitles.Close()
	defer pfTitles.Close()

	categories := []Category{
		{Dictionary: dictBody, Postings: pfBody},
		{Dictionary: dictTitles, Postings: pfTitles},
	}
	results, err := MultiCategory(nil, []string{pathBody, pathTitles}, categories, "kitab")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 0, results[0].CategoryIndex)
	require.Equal(t, uint32(5), results[0].Hit.PageID)
	require.Equal(t, 1, results[1].CategoryIndex)
	require.Equal(t, uint32(7), results[1].Hit.PageID)
}

func mkdir(t *testing.T, base, name string) string {
	t.Helper()
	dir := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}
