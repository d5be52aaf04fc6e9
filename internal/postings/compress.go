package postings

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/jamharah/jamharah/internal/jherr"
)

// Compression identifies how a postings.bin file's blocks relate to their
// plain codec form. It is a whole-file decision recorded once in the file
// header's flags word, not a per-block choice.
type Compression uint8

const (
	// Plain stores the codec bytes directly.
	Plain Compression = 0
	// Zstd wraps the codec bytes in a single zstd frame.
	Zstd Compression = 1
)

var (
	encoderOnce sync.Once
	sharedEnc   *zstd.Encoder
	decoderOnce sync.Once
	sharedDec   *zstd.Decoder
)

func encoder() *zstd.Encoder {
	encoderOnce.Do(func() {
		sharedEnc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return sharedEnc
}

func decoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		sharedDec, _ = zstd.NewReader(nil)
	})
	return sharedDec
}

// Pack wraps plain codec bytes for on-disk storage under the file's chosen
// compression mode.
func Pack(plain []byte, mode Compression) (Compression, []byte) {
	if mode == Plain {
		return Plain, plain
	}
	return Zstd, encoder().EncodeAll(plain, nil)
}

// Unpack restores plain codec bytes from a stored block given its
// compression mode.
func Unpack(mode Compression, stored []byte) ([]byte, error) {
	switch mode {
	case Plain:
		return stored, nil
	case Zstd:
		plain, err := decoder().DecodeAll(stored, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd postings block: %v", jherr.InvalidFormat, err)
		}
		return plain, nil
	default:
		return nil, fmt.Errorf("%w: unknown postings compression mode %d", jherr.InvalidFormat, mode)
	}
}
