package postings

import (
	"errors"

	"github.com/jamharah/jamharah/internal/jherr"
)

// The cursor algebra combines two posting Sources into a third Source
// without ever materializing either input. Each combinator pulls one
// posting at a time from each side and merges in page-id order, matching
// the zipper-style merge a positional index needs to stay external-memory
// friendly. Because combinators themselves implement Source, AND/OR/phrase
// trees of arbitrary depth compose.

// sideInitialBufLen is the starting position-buffer size each side of a
// combinator offers the underlying Source. It grows on demand (never
// shrinks) when a Source reports jherr.CapacityExceeded for a high
// term_freq posting, so most pages never pay for a resize.
const sideInitialBufLen = 64

type side struct {
	src   Source
	buf   []uint32
	cur   Posting
	valid bool
	done  bool
}

func newSide(src Source) *side {
	return &side{src: src, buf: make([]uint32, sideInitialBufLen)}
}

func (s *side) fill() error {
	if s.valid || s.done {
		return nil
	}
	for {
		p, ok, err := s.src.Next(s.buf)
		if err != nil {
			if errors.Is(err, jherr.CapacityExceeded) {
				s.buf = EnsureCap(s.buf, len(s.buf)*2)
				continue
			}
			return err
		}
		if !ok {
			s.done = true
			return nil
		}
		s.cur = p
		s.valid = true
		return nil
	}
}

func (s *side) advance() { s.valid = false }

// AndCursor yields a posting for every page present in both inputs, with
// TermFreq set to the sum of the two inputs' term frequencies on that page.
// It carries no position information forward.
type AndCursor struct {
	a, b *side
}

// NewAnd builds an intersection combinator over a and b.
func NewAnd(a, b Source) *AndCursor {
	return &AndCursor{a: newSide(a), b: newSide(b)}
}

func (x *AndCursor) Next(_ []uint32) (Posting, bool, error) {
	for {
		if err := x.a.fill(); err != nil {
			return Posting{}, false, err
		}
		if err := x.b.fill(); err != nil {
			return Posting{}, false, err
		}
		if x.a.done || x.b.done {
			return Posting{}, false, nil
		}
		switch {
		case x.a.cur.PageID < x.b.cur.PageID:
			x.a.advance()
		case x.a.cur.PageID > x.b.cur.PageID:
			x.b.advance()
		default:
			out := Posting{PageID: x.a.cur.PageID, TermFreq: x.a.cur.TermFreq + x.b.cur.TermFreq}
			x.a.advance()
			x.b.advance()
			return out, true, nil
		}
	}
}

// OrCursor yields a posting for every page present in either input. When a
// page is present in both, TermFreq is their sum; otherwise it passes
// through the present side's TermFreq unchanged.
type OrCursor struct {
	a, b *side
}

// NewOr builds a union combinator over a and b.
func NewOr(a, b Source) *OrCursor {
	return &OrCursor{a: newSide(a), b: newSide(b)}
}

func (x *OrCursor) Next(_ []uint32) (Posting, bool, error) {
	if err := x.a.fill(); err != nil {
		return Posting{}, false, err
	}
	if err := x.b.fill(); err != nil {
		return Posting{}, false, err
	}
	switch {
	case x.a.done && x.b.done:
		return Posting{}, false, nil
	case x.a.done:
		out := Posting{PageID: x.b.cur.PageID, TermFreq: x.b.cur.TermFreq}
		x.b.advance()
		return out, true, nil
	case x.b.done:
		out := Posting{PageID: x.a.cur.PageID, TermFreq: x.a.cur.TermFreq}
		x.a.advance()
		return out, true, nil
	case x.a.cur.PageID < x.b.cur.PageID:
		out := Posting{PageID: x.a.cur.PageID, TermFreq: x.a.cur.TermFreq}
		x.a.advance()
		return out, true, nil
	case x.a.cur.PageID > x.b.cur.PageID:
		out := Posting{PageID: x.b.cur.PageID, TermFreq: x.b.cur.TermFreq}
		x.b.advance()
		return out, true, nil
	default:
		out := Posting{PageID: x.a.cur.PageID, TermFreq: x.a.cur.TermFreq + x.b.cur.TermFreq}
		x.a.advance()
		x.b.advance()
		return out, true, nil
	}
}

// PhraseAndCursor yields a posting only for pages where some position in a
// is immediately followed, at the configured Offset, by a position in b
// (the adjacency predicate that makes two-word phrase search a special
// case of the general algebra). TermFreq on the output posting is the
// number of such adjacent pairs found on that page.
type PhraseAndCursor struct {
	a, b   *side
	offset uint32
}

// NewPhraseAnd builds a two-term adjacency combinator: a page matches only
// if a position p in a's postings and p+offset in b's postings coexist.
// offset is 1 for immediately-adjacent words.
func NewPhraseAnd(a, b Source, offset uint32) *PhraseAndCursor {
	return &PhraseAndCursor{a: newSide(a), b: newSide(b), offset: offset}
}

func (x *PhraseAndCursor) Next(_ []uint32) (Posting, bool, error) {
	for {
		if err := x.a.fill(); err != nil {
			return Posting{}, false, err
		}
		if err := x.b.fill(); err != nil {
			return Posting{}, false, err
		}
		if x.a.done || x.b.done {
			return Posting{}, false, nil
		}
		switch {
		case x.a.cur.PageID < x.b.cur.PageID:
			x.a.advance()
			continue
		case x.a.cur.PageID > x.b.cur.PageID:
			x.b.advance()
			continue
		}

		pageID := x.a.cur.PageID
		matches := countAdjacent(x.a.cur.Positions, x.b.cur.Positions, x.offset)
		x.a.advance()
		x.b.advance()
		if matches > 0 {
			return Posting{PageID: pageID, TermFreq: matches}, true, nil
		}
	}
}

// countAdjacent counts how many positions p in aPos have p+offset present
// in bPos. Both slices are sorted ascending, so the scan is linear: it
// never rewinds either pointer.
func countAdjacent(aPos, bPos []uint32, offset uint32) uint32 {
	var count uint32
	j := 0
	for _, p := range aPos {
		target := p + offset
		for j < len(bPos) && bPos[j] < target {
			j++
		}
		if j < len(bPos) && bPos[j] == target {
			count++
		}
	}
	return count
}
