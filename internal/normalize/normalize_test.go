package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamharah/jamharah/internal/jherr"
)

func TestStringDropsDiacritics(t *testing.T) {
	// kitab with a fatha (U+064E) over the kaf
	got, err := String("كَتاب")
	require.NoError(t, err)
	require.Equal(t, "كتاب", got)
}

func TestStringCollapsesAlefVariants(t *testing.T) {
	withHamza, err := String("أحمد")
	require.NoError(t, err)
	plain, err := String("احمد")
	require.NoError(t, err)
	require.Equal(t, plain, withHamza)
}

func TestStringCollapsesAlefMaksuraToYeh(t *testing.T) {
	got, err := String("ى")
	require.NoError(t, err)
	require.Equal(t, "ي", got)
}

func TestStringCollapsesTehMarbutaToHeh(t *testing.T) {
	got, err := String("ة")
	require.NoError(t, err)
	require.Equal(t, "ه", got)
}

func TestBytesReportsInvalidUTF8(t *testing.T) {
	dst := make([]byte, 8)
	_, err := Bytes(dst, []byte{0xff, 0xfe})
	require.True(t, errors.Is(err, jherr.InvalidFormat))
}

func TestBytesReportsCapacityExceeded(t *testing.T) {
	dst := make([]byte, 1)
	_, err := Bytes(dst, []byte("كتاب"))
	require.True(t, errors.Is(err, jherr.CapacityExceeded))
}
