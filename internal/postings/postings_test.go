package postings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamharah/jamharah/internal/jherr"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	list := []Posting{
		{PageID: 3, TermFreq: 2, Positions: []uint32{1, 5}},
		{PageID: 7, TermFreq: 1, Positions: []uint32{0}},
		{PageID: 100, TermFreq: 3, Positions: []uint32{2, 4, 9}},
	}
	encoded := EncodeList(list)
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded.Entries, 3)
	for i, want := range list {
		got := decoded.Entries[i]
		require.Equal(t, want.PageID, got.PageID)
		require.Equal(t, want.TermFreq, got.TermFreq)
		require.Equal(t, want.Positions, got.Positions)
	}
}

func TestCursorMatchesDecode(t *testing.T) {
	list := []Posting{
		{PageID: 1, TermFreq: 1, Positions: []uint32{0}},
		{PageID: 2, TermFreq: 2, Positions: []uint32{1, 3}},
	}
	encoded := EncodeList(list)
	cur, err := NewCursor(encoded)
	require.NoError(t, err)

	buf := make([]uint32, 8)
	p1, ok, err := cur.Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), p1.PageID)
	require.Equal(t, []uint32{0}, p1.Positions)

	p2, ok, err := cur.Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(2), p2.PageID)
	require.Equal(t, []uint32{1, 3}, p2.Positions)

	_, ok, err = cur.Next(buf)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDecodeTruncatedIsInvalidFormat(t *testing.T) {
	_, err := Decode([]byte{1, 0})
	require.True(t, errors.Is(err, jherr.InvalidFormat))
}

func TestCursorNextErrorsWhenTermFreqExceedsBufferCapacity(t *testing.T) {
	positions := make([]uint32, 10)
	for i := range positions {
		positions[i] = uint32(i)
	}
	encoded := EncodeList([]Posting{{PageID: 1, Positions: positions}})
	cur, err := NewCursor(encoded)
	require.NoError(t, err)

	small := make([]uint32, 4)
	_, ok, err := cur.Next(small)
	require.False(t, ok)
	require.True(t, errors.Is(err, jherr.CapacityExceeded))
}

func TestCursorNextRetriesSamePostingAfterCapacityExceeded(t *testing.T) {
	positions := []uint32{0, 1, 2, 3, 4}
	encoded := EncodeList([]Posting{
		{PageID: 1, Positions: positions},
		{PageID: 2, Positions: []uint32{9}},
	})
	cur, err := NewCursor(encoded)
	require.NoError(t, err)

	small := make([]uint32, 2)
	_, ok, err := cur.Next(small)
	require.False(t, ok)
	require.True(t, errors.Is(err, jherr.CapacityExceeded))

	big := make([]uint32, len(positions))
	p1, ok, err := cur.Next(big)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), p1.PageID)
	require.Equal(t, positions, p1.Positions)

	p2, ok, err := cur.Next(big)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(2), p2.PageID)
}

func collect(t *testing.T, src Source) []Posting {
	t.Helper()
	var out []Posting
	buf := make([]uint32, 16)
	for {
		p, ok, err := src.Next(buf)
		require.NoError(t, err)
		if !ok {
			return out
		}
		positions := append([]uint32(nil), p.Positions...)
		out = append(out, Posting{PageID: p.PageID, TermFreq: p.TermFreq, Positions: positions})
	}
}

func TestAndIntersection(t *testing.T) {
	a := EncodeList([]Posting{
		{PageID: 1, Positions: []uint32{0}},
		{PageID: 3, Positions: []uint32{1}},
		{PageID: 5, Positions: []uint32{2}},
	})
	b := EncodeList([]Posting{
		{PageID: 3, Positions: []uint32{4}},
		{PageID: 4, Positions: []uint32{0}},
		{PageID: 5, Positions: []uint32{9}},
	})
	curA, err := NewCursor(a)
	require.NoError(t, err)
	curB, err := NewCursor(b)
	require.NoError(t, err)

	and := NewAnd(curA, curB)
	result := collect(t, and)
	require.Len(t, result, 2)
	require.Equal(t, uint32(3), result[0].PageID)
	require.Equal(t, uint32(2), result[0].TermFreq)
	require.Equal(t, uint32(5), result[1].PageID)
	require.Equal(t, uint32(2), result[1].TermFreq)
}

func TestOrUnion(t *testing.T) {
	a := EncodeList([]Posting{
		{PageID: 1, Positions: []uint32{0}},
		{PageID: 2, Positions: []uint32{1}},
	})
	b := EncodeList([]Posting{
		{PageID: 2, Positions: []uint32{4}},
		{PageID: 3, Positions: []uint32{0}},
	})
	curA, err := NewCursor(a)
	require.NoError(t, err)
	curB, err := NewCursor(b)
	require.NoError(t, err)

	or := NewOr(curA, curB)
	result := collect(t, or)
	require.Len(t, result, 3)
	require.Equal(t, []uint32{1, 2, 3}, []uint32{result[0].PageID, result[1].PageID, result[2].PageID})
	require.Equal(t, uint32(2), result[1].TermFreq)
}

func TestPhraseAndOffsetOne(t *testing.T) {
	// Page 1: "a" at positions 0,4; "b" at positions 1,9 -> only 0->1 adjacent.
	a := EncodeList([]Posting{
		{PageID: 1, Positions: []uint32{0, 4}},
		{PageID: 2, Positions: []uint32{2}},
	})
	b := EncodeList([]Posting{
		{PageID: 1, Positions: []uint32{1, 9}},
		{PageID: 2, Positions: []uint32{10}},
	})
	curA, err := NewCursor(a)
	require.NoError(t, err)
	curB, err := NewCursor(b)
	require.NoError(t, err)

	phrase := NewPhraseAnd(curA, curB, 1)
	result := collect(t, phrase)
	require.Len(t, result, 1)
	require.Equal(t, uint32(1), result[0].PageID)
	require.Equal(t, uint32(1), result[0].TermFreq)
}

func TestAndIntersectionGrowsPastInitialSideBuffer(t *testing.T) {
	// term_freq well above sideInitialBufLen forces side.fill to retry
	// with a grown buffer instead of failing the combinator outright.
	positions := make([]uint32, sideInitialBufLen+10)
	for i := range positions {
		positions[i] = uint32(i)
	}
	a := EncodeList([]Posting{{PageID: 1, Positions: positions}})
	b := EncodeList([]Posting{{PageID: 1, Positions: []uint32{0}}})
	curA, err := NewCursor(a)
	require.NoError(t, err)
	curB, err := NewCursor(b)
	require.NoError(t, err)

	and := NewAnd(curA, curB)
	result := collect(t, and)
	require.Len(t, result, 1)
	require.Equal(t, uint32(1), result[0].PageID)
}

func TestCompressRoundTripZstd(t *testing.T) {
	positions := make([]uint32, 40)
	for i := range positions {
		positions[i] = uint32(i * 2)
	}
	plain := EncodeList([]Posting{{PageID: 1, Positions: positions}})

	mode, stored := Pack(plain, Zstd)
	require.Equal(t, Zstd, mode)
	restored, err := Unpack(mode, stored)
	require.NoError(t, err)
	require.Equal(t, plain, restored)
}
