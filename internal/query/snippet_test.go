package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLiteralSnippetBracketsMatch(t *testing.T) {
	text := []byte("the book of fiqh covers many rulings")
	snippet, ok := LiteralSnippet(text, "fiqh", 10)
	require.True(t, ok)
	require.Contains(t, snippet, "«fiqh»")
}

func TestLiteralSnippetMissReportsNotFound(t *testing.T) {
	_, ok := LiteralSnippet([]byte("nothing relevant here"), "fiqh", 10)
	require.False(t, ok)
}

func TestBoundarySnippetFindsMatchAcrossPages(t *testing.T) {
	current := []byte("...end of page reads ki")
	next := []byte("tab al fiqh continues here...")
	snippet, ok := BoundarySnippet(current, next, "kitab al fiqh", 5, 10, 20)
	require.True(t, ok)
	require.Contains(t, snippet, "«kitab al fiqh»")
}

func TestTokenSnippetFallsBackToNormalizedToken(t *testing.T) {
	terms, _, err := Tokenize("fiqh")
	require.NoError(t, err)
	text := []byte("a page discussing fiqh matters")
	snippet, ok := TokenSnippet(text, terms, 10)
	require.True(t, ok)
	require.True(t, strings.Contains(snippet, "«fiqh»"))
}
