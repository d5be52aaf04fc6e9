// Package query implements the search-time half of the system: turning a
// query string into normalized, hashed terms, resolving each term through
// a dictionary and postings file (cached across requests by an LRU keyed
// on dictionary path and word hash), running N-term phrase search, and
// ranking candidate pages by term frequency, positional proximity, and a
// phrase-match bonus.
package query

import (
	"errors"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jamharah/jamharah/internal/dictionary"
	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/postings"
	"github.com/jamharah/jamharah/internal/texthash"
	"github.com/jamharah/jamharah/internal/tokenize"
)

// Hit is one ranked result.
type Hit struct {
	PageID uint32
	Score  float64
}

// Category pairs a dictionary and a postings file for one of several
// parallel search domains (e.g. body text vs. titles); MultiCategory
// queries each in turn.
type Category struct {
	Dictionary *dictionary.Reader
	Postings   *postings.File
}

type cacheKey struct {
	dictPath string
	wordHash uint64
}

// LookupCache memoizes dictionary lookups keyed on (dictionary path,
// word_hash), since real query workloads repeat common terms far more
// often than they introduce new ones.
type LookupCache struct {
	cache *lru.Cache[cacheKey, dictionary.Entry]
}

// NewLookupCache builds a cache holding up to size entries.
func NewLookupCache(size int) (*LookupCache, error) {
	c, err := lru.New[cacheKey, dictionary.Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}
	return &LookupCache{cache: c}, nil
}

// Lookup resolves wordHash against dict, consulting and populating the
// cache under dictPath (a stable identifier for dict, typically its file
// path).
func (lc *LookupCache) Lookup(dictPath string, dict *dictionary.Reader, wordHash uint64) (dictionary.Entry, error) {
	key := cacheKey{dictPath: dictPath, wordHash: wordHash}
	if lc == nil {
		return dict.Lookup(wordHash)
	}
	if e, ok := lc.cache.Get(key); ok {
		return e, nil
	}
	e, err := dict.Lookup(wordHash)
	if err != nil {
		return dictionary.Entry{}, err
	}
	lc.cache.Add(key, e)
	return e, nil
}

// Term is one hashed, normalized query token.
type Term struct {
	Word     []byte
	WordHash uint64
}

// HashSeed must match the seed the occurrence emitter hashed tokens with;
// see occurrence.HashSeed.
const HashSeed uint64 = 0x4a414d4841524148

// Tokenize normalizes and tokenizes a raw query string into hashed Terms,
// along with whether the literal two-byte token "OR" appeared (case- and
// position-insensitive is not required: the spec's test is a literal byte
// match), which switches the query into boolean-OR mode.
func Tokenize(q string) (terms []Term, isOr bool, err error) {
	src := []byte(q)
	tokens := make([]tokenize.Token, len(src)+1)
	workspace := make([]byte, len(src)+1)
	found, err := tokenize.NormalizeAndTokenize(src, tokens, workspace)
	if err != nil {
		return nil, false, err
	}
	terms = make([]Term, 0, len(found))
	for _, tok := range found {
		if string(tok.Word) == "OR" {
			isOr = true
			continue
		}
		terms = append(terms, Term{Word: tok.Word, WordHash: texthash.Hash64(tok.Word, HashSeed)})
	}
	return terms, isOr, nil
}

// emptyList stands in for a term with zero matches, so every term a query
// mentions keeps a slot in Resolve's output — dropping absent terms instead
// would shrink len(lists) and silently turn a missing required term into a
// no-op rather than an empty boolean-AND result.
var emptyList = &postings.MaterializedList{}

// resolved is one term's fully materialized postings list. Absent is true
// when the term was not found in the dictionary, in which case list is
// emptyList (zero entries) rather than nil, so callers never need a nil
// check to walk list.Entries.
type resolved struct {
	term   Term
	list   *postings.MaterializedList
	absent bool
}

// Resolve looks up and materializes every term against dict/postingsFile,
// via cache if provided. A term absent from the dictionary is not an error
// (jherr.NotFound just means zero matches for that term) but it is kept in
// the returned slice, marked absent, so a boolean-AND query over it can
// still recognize that one of its required terms matched nothing.
func Resolve(cache *LookupCache, dictPath string, dict *dictionary.Reader, pf *postings.File, terms []Term) ([]resolved, error) {
	out := make([]resolved, 0, len(terms))
	for _, t := range terms {
		entry, err := cache.Lookup(dictPath, dict, t.WordHash)
		if err != nil {
			if errors.Is(err, jherr.NotFound) {
				out = append(out, resolved{term: t, list: emptyList, absent: true})
				continue
			}
			return nil, err
		}
		plain, err := pf.ReadBlock(entry.Location())
		if err != nil {
			return nil, err
		}
		list, err := postings.Decode(plain)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved{term: t, list: list})
	}
	return out, nil
}

func findPageEntry(list *postings.MaterializedList, pageID uint32) (postings.Posting, bool) {
	entries := list.Entries
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := lo + (hi-lo)/2
		switch {
		case entries[mid].PageID == pageID:
			return entries[mid], true
		case entries[mid].PageID < pageID:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return postings.Posting{}, false
}

func hasPosition(sorted []uint32, p uint32) bool {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= p })
	return i < len(sorted) && sorted[i] == p
}

// PhraseMatches returns the set of page ids where every term list, in
// order, has an exactly-adjacent run of positions: some position p in the
// first list's page entry such that for every k>0 the (k)-th term's
// positions on that page contain p+k. Requires at least two terms;
// iterates documents by whichever list is shortest for efficiency.
func PhraseMatches(lists []resolved) map[uint32]bool {
	if len(lists) < 2 {
		return map[uint32]bool{}
	}
	shortest := 0
	for i, r := range lists {
		if len(r.list.Entries) < len(lists[shortest].list.Entries) {
			shortest = i
		}
	}

	matches := map[uint32]bool{}
	for _, anchor := range lists[shortest].list.Entries {
		pageID := anchor.PageID
		entries := make([]postings.Posting, len(lists))
		ok := true
		for i, r := range lists {
			if i == shortest {
				entries[i] = anchor
				continue
			}
			e, found := findPageEntry(r.list, pageID)
			if !found {
				ok = false
				break
			}
			entries[i] = e
		}
		if !ok {
			continue
		}
		for _, p := range entries[0].Positions {
			allAdjacent := true
			for k := 1; k < len(entries); k++ {
				if !hasPosition(entries[k].Positions, p+uint32(k)) {
					allAdjacent = false
					break
				}
			}
			if allAdjacent {
				matches[pageID] = true
				break
			}
		}
	}
	return matches
}

// phraseBonus is added to a page's score when it appears in the
// phrase-match set.
const phraseBonus = 5.0

// Rank scores every candidate page across lists and returns hits sorted by
// score descending, then page_id ascending. requireAll restricts
// candidates to pages present in every list (boolean-AND); otherwise every
// page present in any list is a candidate (boolean-OR).
func Rank(lists []resolved, requireAll bool, phraseSet map[uint32]bool) []Hit {
	if len(lists) == 0 {
		return nil
	}
	pageEntries := map[uint32][]postings.Posting{}
	presentCount := map[uint32]int{}
	for _, r := range lists {
		for _, e := range r.list.Entries {
			pageEntries[e.PageID] = append(pageEntries[e.PageID], e)
			presentCount[e.PageID]++
		}
	}

	var hits []Hit
	for pageID, entries := range pageEntries {
		if requireAll && presentCount[pageID] != len(lists) {
			continue
		}
		freqScore := 0.0
		for _, e := range entries {
			freqScore += float64(e.TermFreq)
		}
		proxScore := 0.0
		for i := 0; i+1 < len(entries); i++ {
			gap := minGap(entries[i].Positions, entries[i+1].Positions)
			if gap >= 0 {
				proxScore += 1.0 / (1.0 + float64(gap))
			}
		}
		bonus := 0.0
		if phraseSet[pageID] {
			bonus = phraseBonus
		}
		score := 1.0*freqScore + 2.0*proxScore + bonus
		if score > 0 {
			hits = append(hits, Hit{PageID: pageID, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].PageID < hits[j].PageID
	})
	return hits
}

// minGap returns the smallest absolute difference between any position in
// a and any in b, found by a linear zipper scan over both sorted slices, or
// -1 if either slice is empty.
func minGap(a, b []uint32) int {
	if len(a) == 0 || len(b) == 0 {
		return -1
	}
	i, j := 0, 0
	best := -1
	for i < len(a) && j < len(b) {
		var gap int
		if a[i] > b[j] {
			gap = int(a[i] - b[j])
		} else {
			gap = int(b[j] - a[i])
		}
		if best < 0 || gap < best {
			best = gap
		}
		if a[i] < b[j] {
			i++
		} else {
			j++
		}
	}
	return best
}

// Search runs the full query-engine pipeline for one category: tokenize,
// resolve, phrase-match (when applicable), rank.
func Search(cache *LookupCache, dictPath string, dict *dictionary.Reader, pf *postings.File, queryText string) ([]Hit, error) {
	terms, isOr, err := Tokenize(queryText)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, nil
	}
	lists, err := Resolve(cache, dictPath, dict, pf, terms)
	if err != nil {
		return nil, err
	}
	requireAll := !isOr
	if requireAll {
		for _, r := range lists {
			if r.absent {
				return nil, nil
			}
		}
	}
	var phraseSet map[uint32]bool
	if requireAll && len(lists) >= 2 {
		phraseSet = PhraseMatches(lists)
	} else {
		phraseSet = map[uint32]bool{}
	}
	return Rank(lists, requireAll, phraseSet), nil
}

// MultiCategoryHit tags a Hit with which category it came from.
type MultiCategoryHit struct {
	CategoryIndex int
	Hit           Hit
}

// MultiCategory runs Search against each category in order and emits
// (category_index, page_id) tuples in category order.
func MultiCategory(cache *LookupCache, categoryPaths []string, categories []Category, queryText string) ([]MultiCategoryHit, error) {
	var out []MultiCategoryHit
	for i, cat := range categories {
		hits, err := Search(cache, categoryPaths[i], cat.Dictionary, cat.Postings, queryText)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			out = append(out, MultiCategoryHit{CategoryIndex: i, Hit: h})
		}
	}
	return out, nil
}
