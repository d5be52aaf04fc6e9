package bookindex

import (
	"fmt"
	"os"

	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/wire"
)

// BooksMagic identifies books.idx.
var BooksMagic = [4]byte{'B', 'K', 'I', 'X'}

// BuildBooks writes books.idx from entries, which must already be ordered
// by BookID (the builder assigns book ids in source-scan order, so this is
// simply append order during a single build pass).
func BuildBooks(path string, entries []BookIndexEntry) error {
	body := make([]byte, len(entries)*bookEntrySize)
	for i, e := range entries {
		off := i * bookEntrySize
		wire.PutUint32(body[off:], e.BookID)
		wire.PutUint32(body[off+4:], e.FirstPageID)
		wire.PutUint32(body[off+8:], e.PageCount)
		wire.PutUint32(body[off+12:], e.FirstChapter)
		wire.PutUint32(body[off+16:], e.ChapterCount)
		wire.PutUint32(body[off+20:], e.TitleIndex)
		wire.PutUint64(body[off+24:], e.TextOffset)
		wire.PutUint64(body[off+32:], e.TextLength)
	}
	return writeFile(path, BooksMagic, len(entries), body)
}

// BooksReader provides dense, direct-indexed access to books.idx.
type BooksReader struct {
	f     *os.File
	count uint64
}

// OpenBooks validates the header and returns a BooksReader.
func OpenBooks(path string) (*BooksReader, error) {
	f, count, err := openFile(path, BooksMagic)
	if err != nil {
		return nil, err
	}
	return &BooksReader{f: f, count: count}, nil
}

// Count returns the number of books.
func (r *BooksReader) Count() uint64 { return r.count }

// Get returns the BookIndexEntry for bookID, which is also the dense array
// index since book ids are assigned in build order starting at 0.
func (r *BooksReader) Get(bookID uint32) (BookIndexEntry, error) {
	buf, err := readEntryAt(r.f, r.count, uint64(bookID), bookEntrySize)
	if err != nil {
		return BookIndexEntry{}, err
	}
	return BookIndexEntry{
		BookID:       wire.Uint32(buf[0:4]),
		FirstPageID:  wire.Uint32(buf[4:8]),
		PageCount:    wire.Uint32(buf[8:12]),
		FirstChapter: wire.Uint32(buf[12:16]),
		ChapterCount: wire.Uint32(buf[16:20]),
		TitleIndex:   wire.Uint32(buf[20:24]),
		TextOffset:   wire.Uint64(buf[24:32]),
		TextLength:   wire.Uint64(buf[32:40]),
	}, nil
}

// Close closes the underlying file.
func (r *BooksReader) Close() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("%w: close books.idx: %v", jherr.IOError, err)
	}
	return nil
}
