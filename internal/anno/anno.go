// Package anno decodes the optional annotations side-file (jhanno):
// reader-supplied comments, formatting hints, and highlights keyed by
// page_id. It is entirely read-only and entirely optional — a missing file
// is not an error, it simply means a book has no annotations.
package anno

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/wire"
)

// Magic identifies a jhanno file.
var Magic = [4]byte{'A', 'N', 'N', 'O'}

const headerSize = 4 + 4 + 4*3 // magic + version + three counts
const entrySize = 4 + 4 + 4    // page_id + byte_offset + byte_length, into the trailing text pool

// Entry is one annotation record: a page_id and its text, resolved out of
// the file's trailing UTF-8 text pool at load time.
type Entry struct {
	PageID uint32
	Text   string
}

type rawEntry struct {
	pageID     uint32
	poolOffset uint32
	poolLength uint32
}

// Set holds the three page_id-sorted annotation arrays a book may carry.
// Lookups are by binary search, since annotation counts are typically far
// smaller than page counts.
type Set struct {
	Comments   []Entry
	Formatting []Entry
	Highlights []Entry
}

func lookup(entries []Entry, pageID uint32) []Entry {
	lo := sort.Search(len(entries), func(i int) bool { return entries[i].PageID >= pageID })
	hi := lo
	for hi < len(entries) && entries[hi].PageID == pageID {
		hi++
	}
	return entries[lo:hi]
}

// CommentsFor returns every comment entry for pageID, possibly empty.
func (s *Set) CommentsFor(pageID uint32) []Entry { return lookup(s.Comments, pageID) }

// FormattingFor returns every formatting entry for pageID, possibly empty.
func (s *Set) FormattingFor(pageID uint32) []Entry { return lookup(s.Formatting, pageID) }

// HighlightsFor returns every highlight entry for pageID, possibly empty.
func (s *Set) HighlightsFor(pageID uint32) []Entry { return lookup(s.Highlights, pageID) }

// Load reads a jhanno file at path. A missing file yields an empty, valid
// Set rather than an error, since annotations are always optional.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", jherr.IOError, path, err)
	}
	defer f.Close()

	hdr := make([]byte, headerSize)
	if err := wire.ReadFull(f, hdr); err != nil {
		return nil, err
	}
	var magic [4]byte
	copy(magic[:], hdr[0:4])
	if err := wire.CheckMagic(Magic, magic); err != nil {
		return nil, err
	}
	if err := wire.CheckVersion(wire.Uint32(hdr[4:8])); err != nil {
		return nil, err
	}
	counts := [3]uint32{wire.Uint32(hdr[8:12]), wire.Uint32(hdr[12:16]), wire.Uint32(hdr[16:20])}

	var rawArrays [3][]rawEntry
	for i, count := range counts {
		raw := make([]byte, int(count)*entrySize)
		if err := wire.ReadFull(f, raw); err != nil {
			return nil, err
		}
		arr := make([]rawEntry, count)
		for j := range arr {
			off := j * entrySize
			arr[j] = rawEntry{
				pageID:     wire.Uint32(raw[off : off+4]),
				poolOffset: wire.Uint32(raw[off+4 : off+8]),
				poolLength: wire.Uint32(raw[off+8 : off+12]),
			}
		}
		rawArrays[i] = arr
	}

	pool, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read annotation text pool: %v", jherr.IOError, err)
	}

	resolve := func(arr []rawEntry) ([]Entry, error) {
		out := make([]Entry, len(arr))
		for i, e := range arr {
			end := uint64(e.poolOffset) + uint64(e.poolLength)
			if end > uint64(len(pool)) {
				return nil, fmt.Errorf("%w: annotation text range exceeds pool", jherr.InvalidFormat)
			}
			out[i] = Entry{PageID: e.pageID, Text: string(pool[e.poolOffset:end])}
		}
		return out, nil
	}

	comments, err := resolve(rawArrays[0])
	if err != nil {
		return nil, err
	}
	formatting, err := resolve(rawArrays[1])
	if err != nil {
		return nil, err
	}
	highlights, err := resolve(rawArrays[2])
	if err != nil {
		return nil, err
	}
	return &Set{Comments: comments, Formatting: formatting, Highlights: highlights}, nil
}
