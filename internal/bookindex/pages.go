package bookindex

import (
	"fmt"
	"os"

	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/wire"
)

// PagesMagic identifies pages.idx.
var PagesMagic = [4]byte{'P', 'G', 'I', 'X'}

// BuildPages writes pages.idx from entries, which must be dense and sorted
// by PageID (Get indexes the array by page id directly, and Lookup
// binary-searches it by page id).
func BuildPages(path string, entries []PageIndexEntry) error {
	body := make([]byte, len(entries)*pageEntrySize)
	for i, e := range entries {
		off := i * pageEntrySize
		wire.PutUint32(body[off:], e.PageID)
		wire.PutUint32(body[off+4:], e.BookID)
		wire.PutUint32(body[off+8:], e.ChapterID)
		wire.PutUint32(body[off+12:], e.PageNumber)
		wire.PutUint32(body[off+16:], e.BlockID)
		wire.PutUint32(body[off+20:], e.Reserved)
		wire.PutUint32(body[off+24:], e.OffsetInBlock)
		wire.PutUint32(body[off+28:], e.Length)
	}
	return writeFile(path, PagesMagic, len(entries), body)
}

// PagesReader provides dense, direct-indexed and binary-search access to
// pages.idx.
type PagesReader struct {
	f     *os.File
	count uint64
}

// OpenPages validates the header and returns a PagesReader.
func OpenPages(path string) (*PagesReader, error) {
	f, count, err := openFile(path, PagesMagic)
	if err != nil {
		return nil, err
	}
	return &PagesReader{f: f, count: count}, nil
}

// Count returns the number of pages.
func (r *PagesReader) Count() uint64 { return r.count }

func (r *PagesReader) entryAt(i uint64) (PageIndexEntry, error) {
	buf, err := readEntryAt(r.f, r.count, i, pageEntrySize)
	if err != nil {
		return PageIndexEntry{}, err
	}
	return PageIndexEntry{
		PageID:        wire.Uint32(buf[0:4]),
		BookID:        wire.Uint32(buf[4:8]),
		ChapterID:     wire.Uint32(buf[8:12]),
		PageNumber:    wire.Uint32(buf[12:16]),
		BlockID:       wire.Uint32(buf[16:20]),
		Reserved:      wire.Uint32(buf[20:24]),
		OffsetInBlock: wire.Uint32(buf[24:28]),
		Length:        wire.Uint32(buf[28:32]),
	}, nil
}

// Get returns the PageIndexEntry at array index i (equal to PageID for a
// well-formed dense store).
func (r *PagesReader) Get(i uint64) (PageIndexEntry, error) { return r.entryAt(i) }

// Lookup binary-searches for pageID by its PageID field, tolerating a store
// that is sorted but not perfectly index-aligned.
func (r *PagesReader) Lookup(pageID uint32) (PageIndexEntry, error) {
	lo, hi := uint64(0), r.count
	for lo < hi {
		mid := lo + (hi-lo)/2
		e, err := r.entryAt(mid)
		if err != nil {
			return PageIndexEntry{}, err
		}
		switch {
		case e.PageID == pageID:
			return e, nil
		case e.PageID < pageID:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return PageIndexEntry{}, fmt.Errorf("%w: page id %d", jherr.NotFound, pageID)
}

// All reads every entry into memory, used by the occurrence builder to
// partition the page range across workers.
func (r *PagesReader) All() ([]PageIndexEntry, error) {
	out := make([]PageIndexEntry, r.count)
	for i := uint64(0); i < r.count; i++ {
		e, err := r.entryAt(i)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// Close closes the underlying file.
func (r *PagesReader) Close() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("%w: close pages.idx: %v", jherr.IOError, err)
	}
	return nil
}
