// Package textstore implements books.bin: the raw page-text backing store.
// Text is packed into fixed-size blocks (default 64 KiB); version 1 stores
// blocks uncompressed, carrying a compression field reserved for a future
// version. A page's text is located by (block_id, offset_in_block, length)
// and never spans more than one block — the builder starts a fresh block
// whenever a page would not otherwise fit.
package textstore

import (
	"fmt"
	"os"

	"github.com/jamharah/jamharah/internal/jherr"
	"github.com/jamharah/jamharah/internal/wire"
)

// Magic identifies books.bin.
var Magic = [4]byte{'B', 'K', 'S', 'B'}

const headerSize = 4 + 4 + 4 + 4 + 8 + 8 // magic+version+block_size+reserved+block_count+index_offset
const blockEntrySize = 8 + 4 + 8 + 4     // uncompressed_offset+uncompressed_size+compressed_offset+compressed_size

// DefaultBlockSize is the nominal block size new text stores are built
// with. A page whose text exceeds this gets a dedicated, larger block of
// its own so the one-page-one-block invariant always holds.
const DefaultBlockSize = 64 * 1024

// BlockIndexEntry describes one stored block. Version 1 always has
// CompressedOffset == UncompressedOffset and CompressedSize ==
// UncompressedSize; the fields are kept separate for forward compatibility
// with a future compressed layout.
type BlockIndexEntry struct {
	UncompressedOffset uint64
	UncompressedSize   uint32
	CompressedOffset   uint64
	CompressedSize     uint32
}

// Locator pinpoints a page's text within the store.
type Locator struct {
	BlockID       uint32
	OffsetInBlock uint32
	Length        uint32
}

// Writer packs appended byte runs into fixed-size blocks and, on Close,
// writes the trailing block-index array and rewrites the header with the
// final block count and index offset.
type Writer struct {
	f         *os.File
	blockSize uint32
	offset    uint64
	entries   []BlockIndexEntry
	buf       []byte
	bufStart  uint64
}

// NewWriter creates books.bin at path with the given nominal block size.
func NewWriter(path string, blockSize uint32) (*Writer, error) {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", jherr.IOError, path, err)
	}
	placeholder := make([]byte, headerSize)
	if _, err := f.Write(placeholder); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: write placeholder header: %v", jherr.IOError, err)
	}
	return &Writer{
		f:         f,
		blockSize: blockSize,
		offset:    headerSize,
		buf:       make([]byte, 0, blockSize),
		bufStart:  headerSize,
	}, nil
}

// flushBlock writes the current buffer as a completed block, if non-empty.
func (w *Writer) flushBlock() error {
	if len(w.buf) == 0 {
		return nil
	}
	if _, err := w.f.Write(w.buf); err != nil {
		return fmt.Errorf("%w: write text block: %v", jherr.IOError, err)
	}
	w.entries = append(w.entries, BlockIndexEntry{
		UncompressedOffset: w.bufStart,
		UncompressedSize:   uint32(len(w.buf)),
		CompressedOffset:   w.bufStart,
		CompressedSize:     uint32(len(w.buf)),
	})
	w.offset += uint64(len(w.buf))
	w.buf = w.buf[:0]
	w.bufStart = w.offset
	return nil
}

// Append stores data as one page's text, starting a new block when data
// would not fit in the current one, and returns its Locator. A page larger
// than the nominal block size gets an oversized dedicated block.
func (w *Writer) Append(data []byte) (Locator, error) {
	if len(w.buf)+len(data) > int(w.blockSize) && len(w.buf) > 0 {
		if err := w.flushBlock(); err != nil {
			return Locator{}, err
		}
	}
	offsetInBlock := uint32(len(w.buf))
	w.buf = append(w.buf, data...)
	blockID := uint32(len(w.entries))
	if uint32(len(w.buf)) > w.blockSize {
		// Oversized page: it owns this whole block by itself.
		if err := w.flushBlock(); err != nil {
			return Locator{}, err
		}
	}
	return Locator{BlockID: blockID, OffsetInBlock: offsetInBlock, Length: uint32(len(data))}, nil
}

// Close flushes any partial block, writes the block-index array, and
// rewrites the header.
func (w *Writer) Close() error {
	if err := w.flushBlock(); err != nil {
		w.f.Close()
		return err
	}
	indexOffset := w.offset
	body := make([]byte, len(w.entries)*blockEntrySize)
	for i, e := range w.entries {
		off := i * blockEntrySize
		wire.PutUint64(body[off:], e.UncompressedOffset)
		wire.PutUint32(body[off+8:], e.UncompressedSize)
		wire.PutUint64(body[off+12:], e.CompressedOffset)
		wire.PutUint32(body[off+20:], e.CompressedSize)
	}
	if _, err := w.f.Write(body); err != nil {
		w.f.Close()
		return fmt.Errorf("%w: write block index: %v", jherr.IOError, err)
	}

	var hdr [headerSize]byte
	copy(hdr[0:4], Magic[:])
	wire.PutUint32(hdr[4:8], wire.Version)
	wire.PutUint32(hdr[8:12], w.blockSize)
	wire.PutUint32(hdr[12:16], 0)
	wire.PutUint64(hdr[16:24], uint64(len(w.entries)))
	wire.PutUint64(hdr[24:32], indexOffset)
	if _, err := w.f.WriteAt(hdr[:], 0); err != nil {
		w.f.Close()
		return fmt.Errorf("%w: rewrite books.bin header: %v", jherr.IOError, err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("%w: close books.bin: %v", jherr.IOError, err)
	}
	return nil
}

// Reader provides read-only access to books.bin for page-text resolution.
type Reader struct {
	f          *os.File
	BlockSize  uint32
	blockCount uint64
	indexBase  uint64
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
	return &Reader{
		f:          f,
		BlockSize:  wire.Uint32(hdr[8:12]),
		blockCount: wire.Uint64(hdr[16:24]),
		indexBase:  wire.Uint64(hdr[24:32]),
	}, nil
}

// BlockEntry reads the BlockIndexEntry for blockID.
func (r *Reader) BlockEntry(blockID uint32) (BlockIndexEntry, error) {
	if uint64(blockID) >= r.blockCount {
		return BlockIndexEntry{}, fmt.Errorf("%w: block id %d out of range (count %d)", jherr.InvalidFormat, blockID, r.blockCount)
	}
	buf := make([]byte, blockEntrySize)
	off := int64(r.indexBase) + int64(blockID)*blockEntrySize
	if _, err := r.f.ReadAt(buf, off); err != nil {
		return BlockIndexEntry{}, fmt.Errorf("%w: read block entry %d: %v", jherr.IOError, blockID, err)
	}
	return BlockIndexEntry{
		UncompressedOffset: wire.Uint64(buf[0:8]),
		UncompressedSize:   wire.Uint32(buf[8:12]),
		CompressedOffset:   wire.Uint64(buf[12:20]),
		CompressedSize:     wire.Uint32(buf[20:24]),
	}, nil
}

// ReadLocator resolves loc to the page text bytes it names. Version 1
// blocks are uncompressed, so the read is a direct seek-and-read against
// the block's compressed_offset.
func (r *Reader) ReadLocator(loc Locator) ([]byte, error) {
	entry, err := r.BlockEntry(loc.BlockID)
	if err != nil {
		return nil, err
	}
	if loc.OffsetInBlock+loc.Length > entry.UncompressedSize || loc.Length == 0 {
		return nil, fmt.Errorf("%w: locator %+v exceeds block %d size %d", jherr.InvalidFormat, loc, loc.BlockID, entry.UncompressedSize)
	}
	buf := make([]byte, loc.Length)
	off := int64(entry.CompressedOffset) + int64(loc.OffsetInBlock)
	if _, err := r.f.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("%w: read page text at block %d: %v", jherr.IOError, loc.BlockID, err)
	}
	return buf, nil
}

// BlockCount returns the number of stored blocks.
func (r *Reader) BlockCount() uint64 { return r.blockCount }

// Close closes the underlying file.
func (r *Reader) Close() error {
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("%w: close books.bin: %v", jherr.IOError, err)
	}
	return nil
}
