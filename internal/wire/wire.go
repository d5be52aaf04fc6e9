// Package wire holds the on-disk header conventions shared by every
// jamharah index file: a 4-byte ASCII magic and a little-endian uint32
// version. Writers that learn their counts only while streaming the body
// (postings.bin, books.bin) write a zeroed placeholder header first and
// rewrite it once final counts are known; writers that hold the whole body
// in memory write the final header up front. All integers in every file
// format are little-endian; all structures are tightly packed.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jamharah/jamharah/internal/jherr"
)

// Version is the only on-disk format version this package understands.
const Version uint32 = 1

// CheckMagic validates that got matches want exactly, returning
// jherr.InvalidFormat with a descriptive message otherwise.
func CheckMagic(want [4]byte, got [4]byte) error {
	if want != got {
		return fmt.Errorf("%w: expected magic %q, got %q", jherr.InvalidFormat, want[:], got[:])
	}
	return nil
}

// CheckVersion validates that got equals the one supported version.
func CheckVersion(got uint32) error {
	if got != Version {
		return fmt.Errorf("%w: unsupported version %d", jherr.InvalidFormat, got)
	}
	return nil
}

// PutUint32 writes v little-endian into dst[0:4].
func PutUint32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }

// PutUint64 writes v little-endian into dst[0:8].
func PutUint64(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }

// Uint32 reads a little-endian uint32 from src[0:4].
func Uint32(src []byte) uint32 { return binary.LittleEndian.Uint32(src) }

// Uint64 reads a little-endian uint64 from src[0:8].
func Uint64(src []byte) uint64 { return binary.LittleEndian.Uint64(src) }

// ReadFull reads exactly len(buf) bytes at r's current offset, translating a
// short read or EOF into jherr.InvalidFormat (a truncated file is a format
// error, not a transient I/O condition).
func ReadFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("%w: truncated read: %v", jherr.InvalidFormat, err)
	}
	return nil
}
