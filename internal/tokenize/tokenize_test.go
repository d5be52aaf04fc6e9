package tokenize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamharah/jamharah/internal/jherr"
)

func run(t *testing.T, text string) []Token {
	t.Helper()
	tokens := make([]Token, len(text)+1)
	workspace := make([]byte, len(text)+1)
	got, err := NormalizeAndTokenize([]byte(text), tokens, workspace)
	require.NoError(t, err)
	return got
}

func TestNormalizeAndTokenizeSplitsOnWhitespaceAndPunctuation(t *testing.T) {
	toks := run(t, "kitab al-fiqh, juz 1")
	var words []string
	for _, tok := range toks {
		words = append(words, string(tok.Word))
	}
	require.Equal(t, []string{"kitab", "al", "fiqh", "juz", "1"}, words)
}

func TestNormalizeAndTokenizeAssignsSequentialPositions(t *testing.T) {
	toks := run(t, "one two three")
	for i, tok := range toks {
		require.Equal(t, uint32(i), tok.Position)
	}
}

func TestNormalizeAndTokenizeFoldsDiacriticsBeforeSplitting(t *testing.T) {
	toks := run(t, "كَتاب")
	require.Len(t, toks, 1)
	require.Equal(t, "كتاب", string(toks[0].Word))
}

func TestNormalizeAndTokenizeReportsCapacityExceededOnTooFewTokenSlots(t *testing.T) {
	text := []byte("alpha beta gamma")
	tokens := make([]Token, 1)
	workspace := make([]byte, len(text))
	_, err := NormalizeAndTokenize(text, tokens, workspace)
	require.True(t, errors.Is(err, jherr.CapacityExceeded))
}

func TestNormalizeAndTokenizeReportsCapacityExceededOnSmallWorkspace(t *testing.T) {
	text := []byte("alpha")
	tokens := make([]Token, 4)
	workspace := make([]byte, 1)
	_, err := NormalizeAndTokenize(text, tokens, workspace)
	require.True(t, errors.Is(err, jherr.CapacityExceeded))
}

func TestNormalizeAndTokenizeReportsInvalidUTF8(t *testing.T) {
	tokens := make([]Token, 4)
	workspace := make([]byte, 8)
	_, err := NormalizeAndTokenize([]byte{'a', 0xff, 'b'}, tokens, workspace)
	require.True(t, errors.Is(err, jherr.InvalidFormat))
}
