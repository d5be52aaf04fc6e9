// Package dictionary implements words.idx: a sorted-by-hash array mapping
// each distinct word's 64-bit hash to its postings block location. Lookups
// are a binary search over a fixed-width record array memory-mapped
// conceptually as a flat file (read via ReadAt, no full load required).
package dictionary

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/postings"
	"github.com/jamharah/jamharah/internal/wire"
)

// Magic identifies words.idx.
var Magic = [4]byte{'W', 'D', 'I', 'X'}

const headerSize = 4 + 4 + 8 // magic + version + entry_count
const entrySize = 8 + 8 + 8  // word_hash + postings_offset + postings_count

// Entry is one dictionary record. PostingsOffset points at the 4-byte
// length prefix of the word's block in postings.bin; PostingsCount is the
// total number of (page_id, position) pairs in the block, carried as
// metadata (the block's byte length is read from its own length prefix,
// not stored here).
type Entry struct {
	WordHash       uint64
	PostingsOffset uint64
	PostingsCount  uint64
}

// Build sorts blocks by WordHash (they already arrive sorted from
// postings.Build, since the occurrence stream feeding it is itself
// word_hash-sorted, but Build re-sorts defensively so the dictionary
// contract never depends on an upstream ordering guarantee) and writes
// words.idx to path.
func Build(path string, blocks []postings.WordBlock) error {
	sorted := make([]postings.WordBlock, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].WordHash < sorted[j].WordHash })

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", jherr.IOError, path, err)
	}
	defer f.Close()

	hdr := make([]byte, headerSize)
	copy(hdr[0:4], Magic[:])
	wire.PutUint32(hdr[4:8], wire.Version)
	wire.PutUint64(hdr[8:16], uint64(len(sorted)))
	if _, err := f.Write(hdr); err != nil {
		return fmt.Errorf("%w: write dictionary header: %v", jherr.IOError, err)
	}

	body := make([]byte, len(sorted)*entrySize)
	for i, b := range sorted {
		off := i * entrySize
		binary.LittleEndian.PutUint64(body[off:], b.WordHash)
		binary.LittleEndian.PutUint64(body[off+8:], b.Location.Offset)
		binary.LittleEndian.PutUint64(body[off+16:], b.PostingsCount)
	}
	if _, err := f.Write(body); err != nil {
		return fmt.Errorf("%w: write dictionary body: %v", jherr.IOError, err)
	}
	return nil
}

// Reader provides binary-search lookup over an on-disk words.idx file.
type Reader struct {
	f          *os.File
	entryCount uint64
}

// Open validates the header and returns a Reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", jherr.IOError, path, err)
	}
	hdr := make([]byte, headerSize)
	if err := wire.ReadFull(f, hdr); err != nil {
		f.Close()
		return nil, err
	}
	var magic [4]byte
	copy(magic[:], hdr[0:4])
	if err := wire.CheckMagic(Magic, magic); err != nil {
		f.Close()
		return nil, err
	}
	if err := wire.CheckVersion(wire.Uint32(hdr[4:8])); err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{f: f, entryCount: wire.Uint64(hdr[8:16])}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("%w: close words.idx: %v", jherr.IOError, err)
	}
	return nil
}

// Count returns the number of distinct words in the dictionary.
func (r *Reader) Count() uint64 { return r.entryCount }

func (r *Reader) entryAt(i uint64) (Entry, error) {
	var buf [entrySize]byte
	off := int64(headerSize) + int64(i)*entrySize
	if _, err := r.f.ReadAt(buf[:], off); err != nil {
		return Entry{}, fmt.Errorf("%w: read dictionary entry %d: %v", jherr.IOError, i, err)
	}
	return Entry{
		WordHash:       binary.LittleEndian.Uint64(buf[0:8]),
		PostingsOffset: binary.LittleEndian.Uint64(buf[8:16]),
		PostingsCount:  binary.LittleEndian.Uint64(buf[16:24]),
	}, nil
}

// Lookup binary-searches for wordHash, returning jherr.NotFound if absent.
func (r *Reader) Lookup(wordHash uint64) (Entry, error) {
	lo, hi := uint64(0), r.entryCount
	for lo < hi {
		mid := lo + (hi-lo)/2
		e, err := r.entryAt(mid)
		if err != nil {
			return Entry{}, err
		}
		switch {
		case e.WordHash == wordHash:
			return e, nil
		case e.WordHash < wordHash:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return Entry{}, fmt.Errorf("%w: word hash %d", jherr.NotFound, wordHash)
}

// Location converts a dictionary entry into the BlockLocation the postings
// file reader expects.
func (e Entry) Location() postings.BlockLocation {
	return postings.BlockLocation{Offset: e.PostingsOffset}
}
