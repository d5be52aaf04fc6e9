// Package bookindex implements the four small structural index files that
// sit alongside the text store and the inverted index proper: books.idx
// (per-book metadata), chapters.idx (per-chapter metadata), pages.idx (the
// dense page locator array the occurrence builder and snippet renderer both
// scan), and titles.bin (the shared title string pool both books and
// chapters point into).
package bookindex

import (
	"fmt"
	"os"

	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/textstore"
	"github.com/jamharah/jamharah/internal/wire"
)

const arrayHeaderSize = 4 + 4 + 8 // magic + version + entry_count

// BookIndexEntry is one row of books.idx. TitleIndex references titles.bin;
// TextOffset/TextLength describe the book's overall byte range within the
// text store, mirrored here for whole-book operations even though each
// page's own locator is authoritative for retrieval.
type BookIndexEntry struct {
	BookID       uint32
	FirstPageID  uint32
	PageCount    uint32
	FirstChapter uint32
	ChapterCount uint32
	TitleIndex   uint32
	TextOffset   uint64
	TextLength   uint64
}

const bookEntrySize = 4*6 + 8*2

// ChapterIndexEntry is one row of chapters.idx.
type ChapterIndexEntry struct {
	ChapterID          uint32
	BookID             uint32
	Ordinal            uint32
	StartingPageNumber uint32
	FirstPageID        uint32
	PageCount          uint32
	TitleIndex         uint32
	Reserved           uint32
}

const chapterEntrySize = 4 * 8

// PageIndexEntry is one row of pages.idx — the array the occurrence
// builder partitions across workers and the snippet renderer consults for
// a page's text locator. Reserved keeps the struct the same width as the
// on-disk layout it is grounded on, with a slot free for a future field.
type PageIndexEntry struct {
	PageID        uint32
	BookID        uint32
	ChapterID     uint32
	PageNumber    uint32
	BlockID       uint32
	Reserved      uint32
	OffsetInBlock uint32
	Length        uint32
}

const pageEntrySize = 4 * 8

// Locator extracts the text-store locator embedded in a page entry.
func (p PageIndexEntry) Locator() textstore.Locator {
	return textstore.Locator{BlockID: p.BlockID, OffsetInBlock: p.OffsetInBlock, Length: p.Length}
}

func writeFile(path string, magic [4]byte, count int, body []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", jherr.IOError, path, err)
	}
	defer f.Close()
	hdr := make([]byte, arrayHeaderSize)
	copy(hdr[0:4], magic[:])
	wire.PutUint32(hdr[4:8], wire.Version)
	wire.PutUint64(hdr[8:16], uint64(count))
	if _, err := f.Write(hdr); err != nil {
		return fmt.Errorf("%w: write header for %s: %v", jherr.IOError, path, err)
	}
	if _, err := f.Write(body); err != nil {
		return fmt.Errorf("%w: write body for %s: %v", jherr.IOError, path, err)
	}
	return nil
}

func openFile(path string, magic [4]byte) (*os.File, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: open %s: %v", jherr.IOError, path, err)
	}
	hdr := make([]byte, arrayHeaderSize)
	if err := wire.ReadFull(f, hdr); err != nil {
		f.Close()
		return nil, 0, err
	}
	var got [4]byte
	copy(got[:], hdr[0:4])
	if err := wire.CheckMagic(magic, got); err != nil {
		f.Close()
		return nil, 0, err
	}
	if err := wire.CheckVersion(wire.Uint32(hdr[4:8])); err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, wire.Uint64(hdr[8:16]), nil
}

func readEntryAt(f *os.File, count uint64, index uint64, entrySize int) ([]byte, error) {
	if index >= count {
		return nil, fmt.Errorf("%w: index %d out of range (count %d)", jherr.InvalidFormat, index, count)
	}
	buf := make([]byte, entrySize)
	off := int64(arrayHeaderSize) + int64(index)*int64(entrySize)
	if _, err := f.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("%w: read entry %d: %v", jherr.IOError, index, err)
	}
	return buf, nil
}
