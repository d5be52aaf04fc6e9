// Package postings implements the positional postings codec and the
// cursor algebra (AND, OR, phrase-AND) that operate over encoded postings
// blocks without materializing them. A posting block encodes one word's
// occurrences across documents as a self-describing stream of little-endian
// uint32s:
//
//	doc_count
//	repeated doc_count times:
//	    doc_delta                   (first: delta from 0, i.e. the doc id itself)
//	    term_freq
//	    position_delta * term_freq  (first: delta from 0)
package postings

import (
	"encoding/binary"
	"fmt"

	"github.com/jamharah/jamharah/internal/jherr"
)

// Posting describes one term's occurrences within one document. Positions
// is strictly increasing and borrows storage the caller controls; see
// Cursor.Next and MaterializedList for ownership details.
type Posting struct {
	PageID    uint32
	TermFreq  uint32
	Positions []uint32
}

// Source is anything that streams postings in ascending PageID order. Raw
// Cursor and every cursor-algebra combinator implement Source, which is how
// AND/OR/phrase-AND trees compose: a combinator's output shape is itself a
// posting stream.
type Source interface {
	// Next decodes the next posting. Implementations that borrow from a
	// backing buffer (Cursor) write positions into posBuf and return a
	// slice of it; combinators that do not carry positions forward ignore
	// posBuf and return a nil Positions field. ok is false at end of
	// stream, with err nil.
	Next(posBuf []uint32) (Posting, bool, error)
}

// Encoder builds one postings block incrementally as sorted occurrences
// arrive, mirroring the postings-builder state machine: begin a word, feed
// it monotonic (page_id, position) pairs, then Finish to get the block
// bytes. It is also used directly to encode a materialized list for tests.
type Encoder struct {
	buf            []byte
	docCountOffset int
	docCount       uint32
	haveDoc        bool
	lastPageID     uint32
	currentPageID  uint32
	termFreqOffset int
	termFreq       uint32
	lastPosition   uint32
	totalPostings  uint64
}

// NewEncoder starts encoding a fresh block.
func NewEncoder() *Encoder {
	e := &Encoder{buf: make([]byte, 4)}
	e.docCountOffset = 0
	return e
}

// AddOccurrence appends one (page_id, position) pair. Callers must present
// occurrences in (page_id asc, position asc) order within a word, matching
// the external sorter's total order.
func (e *Encoder) AddOccurrence(pageID, position uint32) {
	if !e.haveDoc || pageID != e.currentPageID {
		if e.haveDoc {
			binary.LittleEndian.PutUint32(e.buf[e.termFreqOffset:], e.termFreq)
		}
		e.docCount++
		delta := pageID - e.lastPageID
		e.buf = appendUint32(e.buf, delta)
		e.termFreqOffset = len(e.buf)
		e.buf = appendUint32(e.buf, 0)
		e.termFreq = 0
		e.lastPosition = 0
		e.haveDoc = true
		e.lastPageID = pageID
		e.currentPageID = pageID
	}
	e.buf = appendUint32(e.buf, position-e.lastPosition)
	e.lastPosition = position
	e.termFreq++
	e.totalPostings++
}

// Finish patches the buffered doc_count and final term_freq slots and
// returns the encoded plain (uncompressed) block bytes. The Encoder must not
// be reused afterward.
func (e *Encoder) Finish() []byte {
	if e.haveDoc {
		binary.LittleEndian.PutUint32(e.buf[e.termFreqOffset:], e.termFreq)
	}
	binary.LittleEndian.PutUint32(e.buf[e.docCountOffset:], e.docCount)
	return e.buf
}

// TotalPostings returns the number of (page_id, position) pairs fed in so
// far; the postings builder sums this across every word to populate the
// postings file header's total_postings field.
func (e *Encoder) TotalPostings() uint64 { return e.totalPostings }

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// EncodeList is a direct encoder for an already-materialized, sorted
// postings list; used by round-trip tests and by callers that build a list
// in memory rather than streaming it from sorted occurrences.
func EncodeList(list []Posting) []byte {
	e := NewEncoder()
	for _, p := range list {
		for _, pos := range p.Positions {
			e.AddOccurrence(p.PageID, pos)
		}
	}
	return e.Finish()
}

// MaterializedList is a fully decoded postings list. Entries and
// PositionStorage are exclusively owned by the list: Entries[i].Positions is
// always a sub-slice of PositionStorage, so freeing the list frees both.
type MaterializedList struct {
	Entries         []Posting
	PositionStorage []uint32
}

// Decode parses an encoded plain postings block into a MaterializedList.
// Decoding validates every length against the buffer bounds before reading,
// since on-disk counts are never trusted.
func Decode(data []byte) (*MaterializedList, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: postings block shorter than doc_count", jherr.InvalidFormat)
	}
	docCount := binary.LittleEndian.Uint32(data)
	off := 4

	list := &MaterializedList{
		Entries: make([]Posting, 0, docCount),
	}
	// First pass: compute total position count so PositionStorage can be
	// allocated once and sub-sliced, matching the single-owner contract.
	scanOff := off
	var totalPositions uint64
	for d := uint32(0); d < docCount; d++ {
		if scanOff+8 > len(data) {
			return nil, fmt.Errorf("%w: truncated posting header for doc %d", jherr.InvalidFormat, d)
		}
		scanOff += 4 // doc_delta
		termFreq := binary.LittleEndian.Uint32(data[scanOff:])
		scanOff += 4
		need := int(termFreq) * 4
		if need < 0 || scanOff+need > len(data) {
			return nil, fmt.Errorf("%w: truncated positions for doc %d", jherr.InvalidFormat, d)
		}
		scanOff += need
		totalPositions += uint64(termFreq)
	}

	list.PositionStorage = make([]uint32, 0, totalPositions)
	runningPageID := uint32(0)
	for d := uint32(0); d < docCount; d++ {
		delta := binary.LittleEndian.Uint32(data[off:])
		off += 4
		runningPageID += delta
		termFreq := binary.LittleEndian.Uint32(data[off:])
		off += 4

		start := len(list.PositionStorage)
		runningPos := uint32(0)
		for p := uint32(0); p < termFreq; p++ {
			posDelta := binary.LittleEndian.Uint32(data[off:])
			off += 4
			runningPos += posDelta
			list.PositionStorage = append(list.PositionStorage, runningPos)
		}
		list.Entries = append(list.Entries, Posting{
			PageID:    runningPageID,
			TermFreq:  termFreq,
			Positions: list.PositionStorage[start:len(list.PositionStorage):len(list.PositionStorage)],
		})
	}
	return list, nil
}
