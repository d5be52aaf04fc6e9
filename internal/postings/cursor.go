package postings

import (
	"encoding/binary"
	"fmt"

	"github.com/jamharah/jamharah/internal/jherr"
)

// Cursor streams a plain (already decompressed) postings block one posting
// at a time without materializing the list. It holds only the backing
// buffer and the byte offset of the next record, so scanning a block the
// cursor way costs no allocation beyond the caller-supplied position
// buffer.
type Cursor struct {
	data         []byte
	offset       int
	docCount     uint32
	index        uint32
	runningDocID uint32
}

// NewCursor validates data's doc_count against its length and returns a
// cursor positioned before the first posting.
func NewCursor(data []byte) (*Cursor, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: postings block shorter than doc_count", jherr.InvalidFormat)
	}
	return &Cursor{
		data:     data,
		offset:   4,
		docCount: binary.LittleEndian.Uint32(data),
	}, nil
}

// Next decodes the next posting into posBuf, returning ok=false once every
// posting in the block has been consumed. posBuf must be at least as long
// as the posting's term_freq — EnsureCap is a convenience for growing it —
// or Next returns jherr.CapacityExceeded and leaves the cursor positioned
// at the same posting, so a caller can grow its buffer and call Next again
// to retry the same decode. Next never allocates on the caller's behalf.
func (c *Cursor) Next(posBuf []uint32) (Posting, bool, error) {
	if c.index >= c.docCount {
		return Posting{}, false, nil
	}
	if c.offset+8 > len(c.data) {
		return Posting{}, false, fmt.Errorf("%w: truncated posting header at doc %d", jherr.InvalidFormat, c.index)
	}
	delta := binary.LittleEndian.Uint32(c.data[c.offset:])
	termFreq := binary.LittleEndian.Uint32(c.data[c.offset+4:])

	need := int(termFreq) * 4
	if need < 0 || c.offset+8+need > len(c.data) {
		return Posting{}, false, fmt.Errorf("%w: truncated positions at doc %d", jherr.InvalidFormat, c.index)
	}
	if int(termFreq) > len(posBuf) {
		return Posting{}, false, fmt.Errorf("%w: term_freq %d exceeds position buffer capacity %d", jherr.CapacityExceeded, termFreq, len(posBuf))
	}

	c.offset += 8
	c.runningDocID += delta
	positions := posBuf[:termFreq]
	runningPos := uint32(0)
	for p := uint32(0); p < termFreq; p++ {
		posDelta := binary.LittleEndian.Uint32(c.data[c.offset:])
		c.offset += 4
		runningPos += posDelta
		positions[p] = runningPos
	}
	c.index++
	return Posting{PageID: c.runningDocID, TermFreq: termFreq, Positions: positions}, true, nil
}

// EnsureCap returns buf if it already has at least n capacity, or a freshly
// allocated buffer of length n otherwise. Callers reuse the returned buffer
// across Next calls to avoid per-posting allocation when term frequencies
// are bounded in practice.
func EnsureCap(buf []uint32, n int) []uint32 {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]uint32, n)
}

// Remaining reports how many postings have not yet been returned by Next.
func (c *Cursor) Remaining() uint32 { return c.docCount - c.index }
