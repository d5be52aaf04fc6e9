package bookindex

import (
	"fmt"
	"os"

	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/wire"
)

// ChaptersMagic identifies chapters.idx.
var ChaptersMagic = [4]byte{'C', 'H', 'I', 'X'}

// BuildChapters writes chapters.idx from entries in ChapterID order.
func BuildChapters(path string, entries []ChapterIndexEntry) error {
	body := make([]byte, len(entries)*chapterEntrySize)
	for i, e := range entries {
		off := i * chapterEntrySize
		wire.PutUint32(body[off:], e.ChapterID)
		wire.PutUint32(body[off+4:], e.BookID)
		wire.PutUint32(body[off+8:], e.Ordinal)
		wire.PutUint32(body[off+12:], e.StartingPageNumber)
		wire.PutUint32(body[off+16:], e.FirstPageID)
		wire.PutUint32(body[off+20:], e.PageCount)
		wire.PutUint32(body[off+24:], e.TitleIndex)
		wire.PutUint32(body[off+28:], e.Reserved)
	}
	return writeFile(path, ChaptersMagic, len(entries), body)
}

// ChaptersReader provides dense, direct-indexed access to chapters.idx.
type ChaptersReader struct {
	f     *os.File
	count uint64
}

// OpenChapters validates the header and returns a ChaptersReader.
func OpenChapters(path string) (*ChaptersReader, error) {
	f, count, err := openFile(path, ChaptersMagic)
	if err != nil {
		return nil, err
	}
	return &ChaptersReader{f: f, count: count}, nil
}

// Count returns the number of chapters.
func (r *ChaptersReader) Count() uint64 { return r.count }

// Get returns the ChapterIndexEntry for chapterID (the dense array index).
func (r *ChaptersReader) Get(chapterID uint32) (ChapterIndexEntry, error) {
	buf, err := readEntryAt(r.f, r.count, uint64(chapterID), chapterEntrySize)
	if err != nil {
		return ChapterIndexEntry{}, err
	}
	return ChapterIndexEntry{
		ChapterID:          wire.Uint32(buf[0:4]),
		BookID:             wire.Uint32(buf[4:8]),
		Ordinal:            wire.Uint32(buf[8:12]),
		StartingPageNumber: wire.Uint32(buf[12:16]),
		FirstPageID:        wire.Uint32(buf[16:20]),
		PageCount:          wire.Uint32(buf[20:24]),
		TitleIndex:         wire.Uint32(buf[24:28]),
		Reserved:           wire.Uint32(buf[28:32]),
	}, nil
}

// Close closes the underlying file.
func (r *ChaptersReader) Close() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("%w: close chapters.idx: %v", jherr.IOError, err)
	}
	return nil
}
