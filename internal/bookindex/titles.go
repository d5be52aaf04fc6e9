package bookindex

import (
	"fmt"
	"os"

	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/wire"
)

// TitlesMagic identifies titles.bin.
var TitlesMagic = [4]byte{'T', 'T', 'L', 'B'}

const titlesHeaderSize = 4 + 4 + 8 + 8 // magic+version+entry_count+strings_offset
const titleEntrySize = 8 + 4 + 4       // string_offset + length + flags

// TitleFlag bits describe how to interpret a title string; version 1
// defines none and reserves the word.
type TitleFlag uint32

// TitleEntry is one row of titles.bin's entry array: a byte range into the
// trailing concatenated UTF-8 string pool.
type TitleEntry struct {
	StringOffset uint64
	Length       uint32
	Flags        TitleFlag
}

// BuildTitles writes titles.bin from a list of title strings, in
// TitleIndex order (array index == title_index, as every BookIndexEntry
// and ChapterIndexEntry title handle assumes).
func BuildTitles(path string, titles []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", jherr.IOError, path, err)
	}
	defer f.Close()

	entryBody := make([]byte, len(titles)*titleEntrySize)
	var strings []byte
	for i, title := range titles {
		off := i * titleEntrySize
		wire.PutUint64(entryBody[off:], uint64(len(strings)))
		wire.PutUint32(entryBody[off+8:], uint32(len(title)))
		wire.PutUint32(entryBody[off+12:], 0)
		strings = append(strings, title...)
	}
	stringsOffset := uint64(titlesHeaderSize + len(entryBody))

	hdr := make([]byte, titlesHeaderSize)
	copy(hdr[0:4], TitlesMagic[:])
	wire.PutUint32(hdr[4:8], wire.Version)
	wire.PutUint64(hdr[8:16], uint64(len(titles)))
	wire.PutUint64(hdr[16:24], stringsOffset)
	if _, err := f.Write(hdr); err != nil {
		return fmt.Errorf("%w: write titles header: %v", jherr.IOError, err)
	}
	if _, err := f.Write(entryBody); err != nil {
		return fmt.Errorf("%w: write title entries: %v", jherr.IOError, err)
	}
	if _, err := f.Write(strings); err != nil {
		return fmt.Errorf("%w: write title strings: %v", jherr.IOError, err)
	}
	return nil
}

// TitlesReader provides direct-indexed title string lookup.
type TitlesReader struct {
	f             *os.File
	count         uint64
	stringsOffset uint64
}

// OpenTitles validates the header and returns a TitlesReader.
func OpenTitles(path string) (*TitlesReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", jherr.IOError, path, err)
	}
	hdr := make([]byte, titlesHeaderSize)
	if err := wire.ReadFull(f, hdr); err != nil {
		f.Close()
		return nil, err
	}
	var magic [4]byte
	copy(magic[:], hdr[0:4])
	if err := wire.CheckMagic(TitlesMagic, magic); err != nil {
		f.Close()
		return nil, err
	}
	if err := wire.CheckVersion(wire.Uint32(hdr[4:8])); err != nil {
		f.Close()
		return nil, err
	}
	return &TitlesReader{
		f:             f,
		count:         wire.Uint64(hdr[8:16]),
		stringsOffset: wire.Uint64(hdr[16:24]),
	}, nil
}

// Count returns the number of titles.
func (r *TitlesReader) Count() uint64 { return r.count }

// Get returns the title string at titleIndex.
func (r *TitlesReader) Get(titleIndex uint32) (string, error) {
	if uint64(titleIndex) >= r.count {
		return "", fmt.Errorf("%w: title index %d out of range (count %d)", jherr.InvalidFormat, titleIndex, r.count)
	}
	entryBuf := make([]byte, titleEntrySize)
	entryOff := int64(titlesHeaderSize) + int64(titleIndex)*titleEntrySize
	if _, err := r.f.ReadAt(entryBuf, entryOff); err != nil {
		return "", fmt.Errorf("%w: read title entry %d: %v", jherr.IOError, titleIndex, err)
	}
	strOffset := wire.Uint64(entryBuf[0:8])
	length := wire.Uint32(entryBuf[8:12])

	strBuf := make([]byte, length)
	strOff := int64(r.stringsOffset) + int64(strOffset)
	if length > 0 {
		if _, err := r.f.ReadAt(strBuf, strOff); err != nil {
			return "", fmt.Errorf("%w: read title string %d: %v", jherr.IOError, titleIndex, err)
		}
	}
	return string(strBuf), nil
}

// Close closes the underlying file.
func (r *TitlesReader) Close() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("%w: close titles.bin: %v", jherr.IOError, err)
	}
	return nil
}
