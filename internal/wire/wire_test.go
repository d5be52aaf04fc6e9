package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamharah/jamharah/internal/jherr"
)

func TestCheckMagicAcceptsMatch(t *testing.T) {
	require.NoError(t, CheckMagic([4]byte{'J', 'H', 'W', 'I'}, [4]byte{'J', 'H', 'W', 'I'}))
}

func TestCheckMagicRejectsMismatch(t *testing.T) {
	err := CheckMagic([4]byte{'J', 'H', 'W', 'I'}, [4]byte{'X', 'X', 'X', 'X'})
	require.True(t, errors.Is(err, jherr.InvalidFormat))
}

func TestCheckVersionRejectsUnsupported(t *testing.T) {
	err := CheckVersion(99)
	require.True(t, errors.Is(err, jherr.InvalidFormat))
}

func TestUint32RoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	PutUint32(buf, 0xdeadbeef)
	require.Equal(t, uint32(0xdeadbeef), Uint32(buf))
}

func TestUint64RoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	PutUint64(buf, 0x0102030405060708)
	require.Equal(t, uint64(0x0102030405060708), Uint64(buf))
}

func TestReadFullReportsTruncation(t *testing.T) {
	r := bytes.NewReader([]byte{1, 2})
	err := ReadFull(r, make([]byte, 4))
	require.True(t, errors.Is(err, jherr.InvalidFormat))
}
