package postings

import (
	"fmt"
	"io"
	"os"

	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/wire"
)

// Magic identifies postings.bin.
var Magic = [4]byte{'P', 'S', 'T', 'B'}

const headerSize = 4 + 4 + 4 + 8 // magic + version + flags + total_postings

// compressedFlag is bit 0 of the header's flags word: when set, every block
// in the file is a single zstd frame; when clear, every block is stored
// plain. Compression is a whole-file decision, not a per-block one.
const compressedFlag uint32 = 1

// FileHeader is the fixed postings.bin preamble. total_postings is filled
// in only after every word's block has been written, hence the two-pass
// write discipline: a placeholder header on create, rewritten on Close.
type FileHeader struct {
	Compressed    bool
	TotalPostings uint64
}

// BlockLocation is what the dictionary records per word: the byte offset of
// that word's 4-byte length prefix in postings.bin. The payload length is
// read from the prefix itself at lookup time, so the dictionary does not
// need to store it.
type BlockLocation struct {
	Offset uint64
}

// Writer appends one word's postings block at a time to postings.bin,
// tracking the running total_postings count so Close can rewrite the
// header. Each block is stored as a u32 little-endian length prefix
// followed by that many payload bytes (compressed under the file's global
// mode, or plain); blocks are packed back to back with no padding.
type Writer struct {
	f             *os.File
	offset        uint64
	totalPostings uint64
	mode          Compression
}

// NewWriter creates postings.bin at path and reserves space for its header.
func NewWriter(path string, mode Compression) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", jherr.IOError, path, err)
	}
	placeholder := make([]byte, headerSize)
	if _, err := f.Write(placeholder); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: write placeholder header: %v", jherr.IOError, err)
	}
	return &Writer{f: f, offset: headerSize, mode: mode}, nil
}

// WriteBlock packs plain codec bytes for one word and appends them,
// returning the BlockLocation the dictionary builder should record (the
// offset of the length prefix) together with the stored payload's byte
// length.
func (w *Writer) WriteBlock(plain []byte, postingsInBlock uint64) (loc BlockLocation, storedLen uint32, err error) {
	_, stored := Pack(plain, w.mode)

	loc = BlockLocation{Offset: w.offset}
	var lenPrefix [4]byte
	wire.PutUint32(lenPrefix[:], uint32(len(stored)))
	if _, err := w.f.Write(lenPrefix[:]); err != nil {
		return BlockLocation{}, 0, fmt.Errorf("%w: write postings length prefix: %v", jherr.IOError, err)
	}
	if _, err := w.f.Write(stored); err != nil {
		return BlockLocation{}, 0, fmt.Errorf("%w: write postings block: %v", jherr.IOError, err)
	}
	w.offset += uint64(4 + len(stored))
	w.totalPostings += postingsInBlock
	return loc, uint32(len(stored)), nil
}

// Close rewrites the header with the final total_postings count and
// compression flag, then closes the file.
func (w *Writer) Close() error {
	var hdr [headerSize]byte
	copy(hdr[0:4], Magic[:])
	wire.PutUint32(hdr[4:8], wire.Version)
	var flags uint32
	if w.mode == Zstd {
		flags |= compressedFlag
	}
	wire.PutUint32(hdr[8:12], flags)
	wire.PutUint64(hdr[12:20], w.totalPostings)
	if _, err := w.f.WriteAt(hdr[:], 0); err != nil {
		w.f.Close()
		return fmt.Errorf("%w: rewrite postings header: %v", jherr.IOError, err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("%w: close postings.bin: %v", jherr.IOError, err)
	}
	return nil
}

// File is a read-only handle onto postings.bin, used at query time to fetch
// a word's block by the BlockLocation the dictionary supplied.
type File struct {
	f      *os.File
	Header FileHeader
}

// Open validates the header and returns a handle ready for ReadBlock.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", jherr.IOError, path, err)
	}
	var hdr [headerSize]byte
	if err := wire.ReadFull(f, hdr[:]); err != nil {
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
	flags := wire.Uint32(hdr[8:12])
	return &File{f: f, Header: FileHeader{
		Compressed:    flags&compressedFlag != 0,
		TotalPostings: wire.Uint64(hdr[12:20]),
	}}, nil
}

// ReadBlock reads the length-prefixed payload at loc.Offset and
// decompresses it per the file's global compression mode.
func (pf *File) ReadBlock(loc BlockLocation) ([]byte, error) {
	var lenPrefix [4]byte
	if _, err := pf.f.ReadAt(lenPrefix[:], int64(loc.Offset)); err != nil {
		return nil, fmt.Errorf("%w: read postings length prefix at %d: %v", jherr.IOError, loc.Offset, err)
	}
	length := wire.Uint32(lenPrefix[:])
	if length == 0 {
		return nil, fmt.Errorf("%w: zero-length postings block", jherr.InvalidFormat)
	}
	payload := make([]byte, length)
	if _, err := pf.f.ReadAt(payload, int64(loc.Offset)+4); err != nil {
		return nil, fmt.Errorf("%w: read postings payload at %d: %v", jherr.IOError, loc.Offset, err)
	}
	mode := Plain
	if pf.Header.Compressed {
		mode = Zstd
	}
	return Unpack(mode, payload)
}

// Close closes the underlying file.
func (pf *File) Close() error {
	if err := pf.f.Close(); err != nil {
		return fmt.Errorf("%w: close postings.bin: %v", jherr.IOError, err)
	}
	return nil
}

// BlockWalker reads length-prefixed blocks sequentially in write order,
// without knowing their offsets in advance. The dictionary builder CLI uses
// this to pair each block with the word hash boundaries it observes in the
// sorted occurrence stream, since the two streams advance in lockstep.
type BlockWalker struct {
	f      *os.File
	offset uint64
}

// NewBlockWalker starts a walk from the first block in pf.
func (pf *File) NewBlockWalker() *BlockWalker {
	return &BlockWalker{f: pf.f, offset: headerSize}
}

// Next returns the location of the next block, or ok=false once every block
// has been walked.
func (bw *BlockWalker) Next() (loc BlockLocation, ok bool, err error) {
	var lenPrefix [4]byte
	if _, err := bw.f.ReadAt(lenPrefix[:], int64(bw.offset)); err != nil {
		if err == io.EOF {
			return BlockLocation{}, false, nil
		}
		return BlockLocation{}, false, fmt.Errorf("%w: read postings length prefix at %d: %v", jherr.IOError, bw.offset, err)
	}
	loc = BlockLocation{Offset: bw.offset}
	length := wire.Uint32(lenPrefix[:])
	bw.offset += 4 + uint64(length)
	return loc, true, nil
}
